package stego

import (
	"fmt"
	"math/big"
)

// Factorial-number-system permutation codec. An index in [0, n!) maps
// bijectively to a permutation of n items; multiple independent groups
// compose into one combined index by mixed-radix positional arithmetic.
// Both directions are pure and total over their documented domains.

// indexToPermutation converts a non-negative index below n! into the
// permutation it names. The index is peeled into factorial digits from the
// most significant radix down; each digit removes one element from the
// sorted working set.
func indexToPermutation(index *big.Int, n int) ([]int, error) {
	if n < 0 || index.Sign() < 0 || index.Cmp(factorial(n)) >= 0 {
		return nil, fmt.Errorf("permutation index %s out of range for %d items", index, n)
	}

	rest := new(big.Int).Set(index)
	digits := make([]int, n)
	for i := 0; i < n; i++ {
		radix := factorial(n - 1 - i)
		digit, rem := new(big.Int).QuoRem(rest, radix, new(big.Int))
		digits[i] = int(digit.Int64())
		rest = rem
	}

	available := make([]int, n)
	for i := range available {
		available[i] = i
	}
	perm := make([]int, 0, n)
	for _, d := range digits {
		perm = append(perm, available[d])
		available = append(available[:d], available[d+1:]...)
	}
	return perm, nil
}

// permutationToIndex is the Lehmer-code inverse: each position contributes
// the count of not-yet-used smaller elements, weighted by the factorial of
// the positions remaining after it.
func permutationToIndex(perm []int) *big.Int {
	n := len(perm)
	index := new(big.Int)
	used := make([]bool, n)
	for i, p := range perm {
		smaller := 0
		for v := 0; v < p; v++ {
			if !used[v] {
				smaller++
			}
		}
		used[p] = true
		index.Add(index, new(big.Int).Mul(big.NewInt(int64(smaller)), factorial(n-1-i)))
	}
	return index
}

// splitIndex breaks a combined index into one sub-index per group. Groups
// are listed in the canonical order shared by encode and decode; the first
// group holds the most significant digit. Fails if the index is outside
// the combined space of size prod(sizes[i]!).
func splitIndex(index *big.Int, sizes []int) ([]*big.Int, error) {
	space := big.NewInt(1)
	for _, n := range sizes {
		space.Mul(space, factorial(n))
	}
	if index.Sign() < 0 || index.Cmp(space) >= 0 {
		return nil, fmt.Errorf("combined index does not fit a space of %s orderings", space)
	}

	subs := make([]*big.Int, len(sizes))
	rest := new(big.Int).Set(index)
	for i := len(sizes) - 1; i >= 0; i-- {
		quo, rem := new(big.Int).QuoRem(rest, factorial(sizes[i]), new(big.Int))
		subs[i] = rem
		rest = quo
	}
	return subs, nil
}

// joinIndexes recombines per-group sub-indices into one combined index, the
// exact inverse of splitIndex over the same size list.
func joinIndexes(subs []*big.Int, sizes []int) *big.Int {
	index := new(big.Int)
	for i, sub := range subs {
		index.Mul(index, factorial(sizes[i]))
		index.Add(index, sub)
	}
	return index
}
