package stego

import "errors"

// Failure classes surfaced by the codec. Callers can test for them with
// errors.Is; every error returned by this package wraps exactly one of
// these (or is a plain I/O error from reading the input file).
var (
	// ErrFormat means the input is not a well-formed JPEG: missing SOI,
	// a truncated or malformed segment, or a DHT whose symbol count does
	// not match its length counts.
	ErrFormat = errors.New("invalid JPEG structure")

	// ErrUnsupported means the file is a JPEG we refuse to touch:
	// progressive, arithmetic-coded, lossless, or hierarchical frames.
	ErrUnsupported = errors.New("unsupported JPEG coding")

	// ErrCapacity means the secret does not fit into the permutation
	// space offered by the file's Huffman tables.
	ErrCapacity = errors.New("secret exceeds table capacity")

	// ErrCorruptStream means entropy decoding hit a bit pattern that no
	// Huffman code matches, or the scan data ended mid-block.
	ErrCorruptStream = errors.New("corrupt entropy-coded stream")

	// ErrNoSecret means the file parsed fine but its table ordering does
	// not carry the expected payload framing.
	ErrNoSecret = errors.New("no hidden message found")
)
