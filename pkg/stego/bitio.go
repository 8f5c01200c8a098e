package stego

import "fmt"

// destuff removes the 0x00 inserted after every literal 0xFF of the
// entropy-coded region. Restart markers survive as raw FF Dn byte pairs.
func destuff(data []byte) []byte {
	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		b := data[i]
		out = append(out, b)
		if b == 0xFF && i+1 < len(data) {
			next := data[i+1]
			if next == 0x00 {
				i++
			} else {
				out = append(out, next)
				i++
			}
		}
	}
	return out
}

// restuff re-inserts a 0x00 after every 0xFF except those that begin a
// restart marker; markers holds the unstuffed byte offsets of marker FFs.
func restuff(data []byte, markers map[int]bool) []byte {
	out := make([]byte, 0, len(data)+len(data)/128)
	for i, b := range data {
		out = append(out, b)
		if b == 0xFF && !markers[i] && !markers[i-1] {
			out = append(out, 0x00)
		}
	}
	return out
}

// bitReader walks a destuffed entropy stream most-significant bit first.
// The cursor is a plain bit index, so byte alignment and raw byte reads
// around restart markers need no separate buffering state.
type bitReader struct {
	data []byte
	pos  int // bit index
}

func (r *bitReader) remaining() int {
	return len(r.data)*8 - r.pos
}

func (r *bitReader) readBits(n int) (uint32, error) {
	if r.remaining() < n {
		return 0, fmt.Errorf("%w: scan data ended %d bits short", ErrCorruptStream, n-r.remaining())
	}
	var v uint32
	for i := 0; i < n; i++ {
		b := r.data[r.pos>>3]
		v = v<<1 | uint32(b>>(7-(r.pos&7))&1)
		r.pos++
	}
	return v, nil
}

// peek16 returns the next 16 bits without consuming them, padding with one
// bits past the end of the stream so a trailing short code still matches.
func (r *bitReader) peek16() uint32 {
	var v uint32
	pos := r.pos
	for i := 0; i < 16; i++ {
		bit := uint32(1)
		if pos < len(r.data)*8 {
			bit = uint32(r.data[pos>>3] >> (7 - (pos & 7)) & 1)
		}
		v = v<<1 | bit
		pos++
	}
	return v
}

// decodeSymbol matches the longest valid prefix against the lookup table
// built from the canonical codes and consumes exactly that many bits.
func (r *bitReader) decodeSymbol(lut *vlcTable) (byte, error) {
	e := lut[r.peek16()]
	if e.Bits == 0 {
		return 0, fmt.Errorf("%w: no Huffman code matches bit offset %d", ErrCorruptStream, r.pos)
	}
	if r.remaining() < int(e.Bits) {
		return 0, fmt.Errorf("%w: scan data ended inside a code", ErrCorruptStream)
	}
	r.pos += int(e.Bits)
	return e.Sym, nil
}

func (r *bitReader) align() {
	r.pos = (r.pos + 7) &^ 7
}

func (r *bitReader) readByte() (byte, error) {
	if r.pos&7 != 0 {
		return 0, fmt.Errorf("%w: marker read on unaligned stream", ErrCorruptStream)
	}
	if r.remaining() < 8 {
		return 0, fmt.Errorf("%w: scan data ended at marker boundary", ErrCorruptStream)
	}
	b := r.data[r.pos>>3]
	r.pos += 8
	return b, nil
}

// bitWriter accumulates the replacement stream, unstuffed. Restart marker
// positions are recorded so restuff can leave them untouched.
type bitWriter struct {
	buf     []byte
	cur     uint8
	nbits   int
	markers map[int]bool
}

func newBitWriter() *bitWriter {
	return &bitWriter{markers: make(map[int]bool)}
}

func (w *bitWriter) writeBits(v uint32, n int) {
	for i := n - 1; i >= 0; i-- {
		w.cur = w.cur<<1 | uint8(v>>i&1)
		w.nbits++
		if w.nbits == 8 {
			w.buf = append(w.buf, w.cur)
			w.cur, w.nbits = 0, 0
		}
	}
}

func (w *bitWriter) writeCode(c huffCode) {
	w.writeBits(uint32(c.Value), int(c.Bits))
}

// align pads the current byte with one bits, the JPEG fill convention.
func (w *bitWriter) align() {
	for w.nbits != 0 {
		w.writeBits(1, 1)
	}
}

func (w *bitWriter) writeMarker(tag byte) {
	w.align()
	w.markers[len(w.buf)] = true
	w.buf = append(w.buf, 0xFF, tag)
}

func (w *bitWriter) bytes() []byte {
	w.align()
	return restuff(w.buf, w.markers)
}
