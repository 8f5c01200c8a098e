package stego

import (
	"fmt"
	"math/big"
	"os"
	"sort"

	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
)

type ConcealArgs struct {
	ImagePath  *string
	Output     *string
	Message    *string
	File       *string
	Passphrase *string
	Shield     *bool
	Verbose    *bool
}

type RevealArgs struct {
	ImagePath  *string
	Output     *string
	Passphrase *string
	Shield     *bool
	Verbose    *bool
}

// Options configure the pure Encode/Decode transforms.
type Options struct {
	// Passphrase, when non-empty, seals the secret with AES-256-GCM
	// before embedding.
	Passphrase string
	// Shield wraps the payload in Reed-Solomon parity so a few corrupted
	// symbol bytes can be repaired on reveal.
	Shield bool
	// Progress draws a progress bar on stderr while transcoding.
	Progress bool
}

// groupRef addresses one permutable symbol group inside one table.
type groupRef struct {
	table *HuffmanTable
	group SymbolGroup
}

// permutableGroups lists every group of size >= 2 across all tables in the
// canonical composition order: ascending bit length, then table class,
// then table id. Encode and decode must walk the exact same sequence or
// the combined index silently scrambles, so this is the only place the
// order is defined.
func permutableGroups(tables []*HuffmanTable) []groupRef {
	var refs []groupRef
	for _, t := range tables {
		for _, g := range t.Groups() {
			if g.Size >= 2 {
				refs = append(refs, groupRef{table: t, group: g})
			}
		}
	}
	sort.SliceStable(refs, func(i, j int) bool {
		a, b := refs[i], refs[j]
		if a.group.BitLength != b.group.BitLength {
			return a.group.BitLength < b.group.BitLength
		}
		if a.table.Class != b.table.Class {
			return a.table.Class < b.table.Class
		}
		return a.table.ID < b.table.ID
	})
	return refs
}

func groupSizes(refs []groupRef) []int {
	sizes := make([]int, len(refs))
	for i, ref := range refs {
		sizes[i] = ref.group.Size
	}
	return sizes
}

func combinedCapacity(refs []groupRef) *big.Int {
	capacity := big.NewInt(1)
	for _, ref := range refs {
		capacity.Mul(capacity, factorial(ref.group.Size))
	}
	return capacity
}

// dhtSegments parses every DHT segment of the file. The outer slice is per
// segment so permuted tables can be written back where they came from.
func dhtSegments(f *File) (segIdx []int, perSeg [][]*HuffmanTable, err error) {
	for i := range f.Segments {
		if f.Segments[i].Marker != markerDHT {
			continue
		}
		tables, err := parseDHT(f.Segments[i].Data)
		if err != nil {
			return nil, nil, err
		}
		segIdx = append(segIdx, i)
		perSeg = append(perSeg, tables)
	}
	if len(segIdx) == 0 {
		err = fmt.Errorf("%w: no Huffman tables defined", ErrFormat)
	}
	return segIdx, perSeg, err
}

func flatten(perSeg [][]*HuffmanTable) []*HuffmanTable {
	var all []*HuffmanTable
	for _, tables := range perSeg {
		all = append(all, tables...)
	}
	return all
}

// validateTables rejects tables whose canonical assignment is ambiguous or
// overfull. The combined index spans every table, scan-selected or not, and
// a duplicate symbol anywhere would make the recovered ordering ambiguous.
func validateTables(tables []*HuffmanTable) error {
	for _, t := range tables {
		if _, err := t.canonicalCodes(); err != nil {
			return err
		}
	}
	return nil
}

// Encode hides a secret inside a baseline JPEG without changing its decoded
// pixels. Only the chosen DHT symbol orderings and the entropy-coded bytes
// differ between input and output; everything else is byte-identical. The
// transform either returns a complete valid file or an error, never a
// half-modified buffer.
func Encode(fileBytes, secret []byte, opts Options) ([]byte, error) {
	f, err := Parse(fileBytes)
	if err != nil {
		return nil, err
	}
	if f.Scan() == nil {
		return nil, fmt.Errorf("%w: no scan data", ErrFormat)
	}

	segIdx, perSeg, err := dhtSegments(f)
	if err != nil {
		return nil, err
	}
	oldTables := flatten(perSeg)
	if err := validateTables(oldTables); err != nil {
		return nil, err
	}

	payload := secret
	if opts.Passphrase != "" {
		if payload, err = encryptSecret(payload, opts.Passphrase); err != nil {
			return nil, err
		}
	}
	if opts.Shield {
		if payload, err = addShield(payload); err != nil {
			return nil, err
		}
	}

	index, err := packSecret(payload)
	if err != nil {
		return nil, err
	}

	refs := permutableGroups(oldTables)
	capacity := combinedCapacity(refs)
	if index.Cmp(capacity) >= 0 {
		return nil, fmt.Errorf("%w: payload needs %d bits, tables address %d bits (%d secret bytes max)",
			ErrCapacity, index.BitLen(), capacity.BitLen()-1, maxSecretBytes(capacity))
	}

	log.Debug().
		Int("tables", len(oldTables)).
		Int("groups", len(refs)).
		Int("payloadBytes", len(payload)+secretFrameOverhead).
		Int("capacityBits", capacity.BitLen()-1).
		Msg("embedding payload into table ordering")

	// Permute copies of the tables; the originals stay bound to the old
	// codes for the decode half of the transcoder.
	newPerSeg := make([][]*HuffmanTable, len(perSeg))
	cloneOf := make(map[*HuffmanTable]*HuffmanTable, len(oldTables))
	for i, tables := range perSeg {
		newPerSeg[i] = make([]*HuffmanTable, len(tables))
		for j, t := range tables {
			newPerSeg[i][j] = t.clone()
			cloneOf[t] = newPerSeg[i][j]
		}
	}

	subs, err := splitIndex(index, groupSizes(refs))
	if err != nil {
		return nil, err
	}
	for i, ref := range refs {
		perm, err := indexToPermutation(subs[i], ref.group.Size)
		if err != nil {
			return nil, err
		}
		cloneOf[ref.table].applyGroupPermutation(ref.group, perm)
	}

	transcoded, err := replaceScan(f, oldTables, flatten(newPerSeg), opts.Progress)
	if err != nil {
		return nil, err
	}

	for i, si := range segIdx {
		f.Segments[si].Data = marshalDHT(newPerSeg[i])
	}
	f.Entropy = transcoded
	return f.Assemble(), nil
}

// Decode recovers the secret hidden by Encode. The scan data is never
// touched; the message lives entirely in the symbol ordering of the
// Huffman tables.
func Decode(fileBytes []byte, opts Options) ([]byte, error) {
	f, err := Parse(fileBytes)
	if err != nil {
		return nil, err
	}
	_, perSeg, err := dhtSegments(f)
	if err != nil {
		return nil, err
	}
	tables := flatten(perSeg)
	if err := validateTables(tables); err != nil {
		return nil, err
	}

	refs := permutableGroups(tables)
	subs := make([]*big.Int, len(refs))
	for i, ref := range refs {
		subs[i] = permutationToIndex(ref.table.readGroupPermutation(ref.group))
	}
	index := joinIndexes(subs, groupSizes(refs))

	payload, err := unpackSecret(index)
	if err != nil {
		return nil, err
	}
	if opts.Shield {
		if payload, err = removeShield(payload); err != nil {
			return nil, err
		}
	}
	if opts.Passphrase != "" {
		if payload, err = decryptSecret(payload, opts.Passphrase); err != nil {
			return nil, err
		}
	}
	return payload, nil
}

// replaceScan runs the entropy transcoder against the file's single scan
// using old tables for decoding and new tables for encoding.
func replaceScan(f *File, oldTables, newTables []*HuffmanTable, progress bool) ([]byte, error) {
	frame, err := f.FrameHeader()
	if err != nil {
		return nil, err
	}
	scan, err := parseScanHeader(f.Scan().Data)
	if err != nil {
		return nil, err
	}
	interval, err := f.RestartInterval()
	if err != nil {
		return nil, err
	}

	var oldSet, newSet tableSet
	for _, t := range oldTables {
		oldSet.put(t)
	}
	for _, t := range newTables {
		newSet.put(t)
	}

	var bar *progressbar.ProgressBar
	if progress {
		_, mcusY, err := mcuGrid(frame, scan)
		if err != nil {
			return nil, err
		}
		bar = progressbar.NewOptions(
			mcusY,
			progressbar.OptionSetDescription("transcoding"),
			progressbar.OptionSetWriter(os.Stderr),
		)
	}

	return transcodeScan(frame, scan, interval, &oldSet, &newSet, f.Entropy, bar)
}

// Conceal is the file-path front end used by the CLI, mirroring Encode.
func Conceal(args *ConcealArgs) error {
	data, err := os.ReadFile(*args.ImagePath)
	if err != nil {
		return err
	}

	var secret []byte
	if args.File != nil && *args.File != "" {
		if secret, err = os.ReadFile(*args.File); err != nil {
			return fmt.Errorf("failed to read secret file: %w", err)
		}
	} else {
		secret = []byte(*args.Message)
	}

	if *args.Output == "" {
		*args.Output = fmt.Sprintf("%s.out", *args.ImagePath)
	}

	out, err := Encode(data, secret, Options{
		Passphrase: *args.Passphrase,
		Shield:     *args.Shield,
		Progress:   true,
	})
	if err != nil {
		return err
	}

	if err := os.WriteFile(*args.Output, out, 0644); err != nil {
		return err
	}
	if *args.Verbose {
		log.Info().Str("output", *args.Output).Int("secretBytes", len(secret)).Msg("Concealed message in image")
	}
	return nil
}

// Reveal is the file-path front end used by the CLI, mirroring Decode.
func Reveal(args *RevealArgs) ([]byte, error) {
	data, err := os.ReadFile(*args.ImagePath)
	if err != nil {
		return nil, err
	}
	secret, err := Decode(data, Options{
		Passphrase: *args.Passphrase,
		Shield:     *args.Shield,
	})
	if err != nil {
		return nil, err
	}

	if args.Output != nil && *args.Output != "" {
		return secret, os.WriteFile(*args.Output, secret, 0644)
	}
	return secret, nil
}
