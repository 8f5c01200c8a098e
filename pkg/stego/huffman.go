package stego

import (
	"fmt"
	"math/big"
	"sort"
)

// HuffmanTable models one table from a DHT segment. Counts[i] is the number
// of codes that are i+1 bits long; Symbols lists the code values grouped by
// bit length in ascending order, exactly as serialized in the segment.
type HuffmanTable struct {
	Class   int // 0 = DC, 1 = AC
	ID      int
	Counts  [16]int
	Symbols []byte
}

// SymbolGroup is a run of symbols sharing one code bit length. Offset and
// Size address a subslice of the table's Symbols.
type SymbolGroup struct {
	BitLength int
	Offset    int
	Size      int
}

// huffCode is a canonical code assignment for one symbol: the low Bits bits
// of Value, most significant first.
type huffCode struct {
	Value uint16
	Bits  uint8
}

// vlcEntry and vlcTable form the 16-bit lookup automaton used for decoding.
// An entry with Bits == 0 means no code matches that prefix.
type vlcEntry struct {
	Sym  byte
	Bits uint8
}

type vlcTable [1 << 16]vlcEntry

// parseDHT splits a DHT segment payload into its tables. One segment may
// define several tables back to back.
func parseDHT(data []byte) ([]*HuffmanTable, error) {
	var tables []*HuffmanTable
	for len(data) > 0 {
		if len(data) < 17 {
			return nil, fmt.Errorf("%w: DHT table header truncated", ErrFormat)
		}
		t := &HuffmanTable{
			Class: int(data[0] >> 4),
			ID:    int(data[0] & 0x0F),
		}
		if t.Class > 1 || t.ID > 3 {
			return nil, fmt.Errorf("%w: bad DHT class/id byte %#02x", ErrFormat, data[0])
		}

		total := 0
		for i := 0; i < 16; i++ {
			t.Counts[i] = int(data[1+i])
			total += t.Counts[i]
		}
		if total > 256 || len(data) < 17+total {
			return nil, fmt.Errorf("%w: DHT symbol count %d does not fit segment", ErrFormat, total)
		}
		t.Symbols = append([]byte(nil), data[17:17+total]...)
		tables = append(tables, t)
		data = data[17+total:]
	}
	return tables, nil
}

// marshalDHT serializes tables back into a DHT payload. Symbol reordering
// never changes the payload length, so a rewritten segment keeps the same
// length field as the original.
func marshalDHT(tables []*HuffmanTable) []byte {
	size := 0
	for _, t := range tables {
		size += 17 + len(t.Symbols)
	}
	out := make([]byte, 0, size)
	for _, t := range tables {
		out = append(out, byte(t.Class<<4|t.ID))
		for _, c := range t.Counts {
			out = append(out, byte(c))
		}
		out = append(out, t.Symbols...)
	}
	return out
}

func (t *HuffmanTable) clone() *HuffmanTable {
	c := *t
	c.Symbols = append([]byte(nil), t.Symbols...)
	return &c
}

// Groups partitions the symbol list by code bit length, ascending. Group
// boundaries are fixed by Counts; only the order inside a group may change.
func (t *HuffmanTable) Groups() []SymbolGroup {
	var groups []SymbolGroup
	offset := 0
	for i, count := range t.Counts {
		if count > 0 {
			groups = append(groups, SymbolGroup{BitLength: i + 1, Offset: offset, Size: count})
			offset += count
		}
	}
	return groups
}

// Capacity is the number of distinguishable symbol reorderings of this
// table: the product of size! over every group with at least two members.
func (t *HuffmanTable) Capacity() *big.Int {
	capacity := big.NewInt(1)
	for _, g := range t.Groups() {
		if g.Size >= 2 {
			capacity.Mul(capacity, factorial(g.Size))
		}
	}
	return capacity
}

// applyGroupPermutation reorders one symbol group. The reference order is
// the group's values sorted ascending; perm[i] selects which sorted value
// lands at position i. Applying the same permutation twice is a no-op
// because the second application starts from the same sorted reference.
func (t *HuffmanTable) applyGroupPermutation(g SymbolGroup, perm []int) {
	span := t.Symbols[g.Offset : g.Offset+g.Size]
	sorted := append([]byte(nil), span...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	for i, p := range perm {
		span[i] = sorted[p]
	}
}

// readGroupPermutation recovers the permutation a group currently encodes,
// relative to its ascending-sorted reference order. Duplicate symbol values
// are resolved left to right so the result is always a valid permutation.
func (t *HuffmanTable) readGroupPermutation(g SymbolGroup) []int {
	span := t.Symbols[g.Offset : g.Offset+g.Size]
	sorted := append([]byte(nil), span...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	used := make([]bool, g.Size)
	perm := make([]int, g.Size)
	for i, v := range span {
		for j, s := range sorted {
			if !used[j] && s == v {
				perm[i] = j
				used[j] = true
				break
			}
		}
	}
	return perm
}

// canonicalCodes derives the symbol-to-code mapping per the canonical JPEG
// assignment: codes of each bit length are numbered consecutively in symbol
// order, and the counter shifts left by one when the length grows.
func (t *HuffmanTable) canonicalCodes() (map[byte]huffCode, error) {
	codes := make(map[byte]huffCode, len(t.Symbols))
	var next uint32
	idx := 0
	for bits := 1; bits <= 16; bits++ {
		for k := 0; k < t.Counts[bits-1]; k++ {
			if next >= 1<<bits {
				return nil, fmt.Errorf("%w: Huffman code space overflow at length %d", ErrFormat, bits)
			}
			sym := t.Symbols[idx]
			if _, dup := codes[sym]; dup {
				return nil, fmt.Errorf("%w: symbol %#02x defined twice in one table", ErrFormat, sym)
			}
			codes[sym] = huffCode{Value: uint16(next), Bits: uint8(bits)}
			next++
			idx++
		}
		next <<= 1
	}
	return codes, nil
}

// decodeTable expands the canonical codes into a flat 16-bit prefix lookup:
// every 16-bit window whose leading bits equal a code maps to that code's
// symbol and length. Built once per table and reused for the whole scan.
func (t *HuffmanTable) decodeTable() (*vlcTable, error) {
	codes, err := t.canonicalCodes()
	if err != nil {
		return nil, err
	}
	lut := new(vlcTable)
	for sym, c := range codes {
		shift := 16 - int(c.Bits)
		base := uint32(c.Value) << shift
		for i := 0; i < 1<<shift; i++ {
			lut[base+uint32(i)] = vlcEntry{Sym: sym, Bits: c.Bits}
		}
	}
	return lut, nil
}

func factorial(n int) *big.Int {
	result := big.NewInt(1)
	for i := 2; i <= n; i++ {
		result.Mul(result, big.NewInt(int64(i)))
	}
	return result
}
