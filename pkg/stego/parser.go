package stego

import (
	"encoding/binary"
	"fmt"
)

// File is the parsed marker stream. Segments appear in file order with SOI
// first and EOI last; Entropy holds the raw entropy-coded bytes that follow
// the SOS segment, stuffing and restart markers included. Trailer keeps any
// bytes found after EOI so Assemble can reproduce the input exactly.
type File struct {
	Segments  []Segment
	Entropy   []byte
	Trailer   []byte
	scanIndex int
}

// Parse tokenizes a whole JPEG byte buffer. It is a pure function of the
// input; the returned File aliases the buffer and must not outlive it.
func Parse(data []byte) (*File, error) {
	if len(data) < 4 || data[0] != 0xFF || data[1] != markerSOI {
		return nil, fmt.Errorf("%w: missing SOI marker", ErrFormat)
	}

	f := &File{
		Segments:  []Segment{{Offset: 0, Marker: markerSOI}},
		scanIndex: -1,
	}

	pos := 2
	for {
		if pos+2 > len(data) {
			return nil, fmt.Errorf("%w: unexpected end of file before EOI", ErrFormat)
		}
		if data[pos] != 0xFF {
			return nil, fmt.Errorf("%w: expected marker at offset %#x", ErrFormat, pos)
		}
		// Fill bytes: any number of 0xFF may pad the gap before a marker.
		fillStart := pos
		for data[pos+1] == 0xFF {
			pos++
			if pos+2 > len(data) {
				return nil, fmt.Errorf("%w: unexpected end of file before EOI", ErrFormat)
			}
		}
		fill := pos - fillStart

		m := data[pos+1]
		switch {
		case m == markerEOI:
			f.Segments = append(f.Segments, Segment{Offset: pos, Marker: m, fill: fill})
			f.Trailer = data[pos+2:]
			return f, nil

		case m == markerSOI || m == markerTEM || isRestart(m):
			return nil, fmt.Errorf("%w: unexpected marker FF%02X at offset %#x", ErrFormat, m, pos)

		case isFrameMarker(m) && !isSupportedFrame(m):
			return nil, fmt.Errorf("%w: frame marker FF%02X (%s)", ErrUnsupported, m, markerName(m))

		case m == markerDAC:
			return nil, fmt.Errorf("%w: arithmetic conditioning segment", ErrUnsupported)
		}

		if pos+4 > len(data) {
			return nil, fmt.Errorf("%w: truncated segment header at offset %#x", ErrFormat, pos)
		}
		length := int(binary.BigEndian.Uint16(data[pos+2 : pos+4]))
		if length < 2 || pos+2+length > len(data) {
			return nil, fmt.Errorf("%w: bad segment length %d at offset %#x", ErrFormat, length, pos)
		}
		f.Segments = append(f.Segments, Segment{
			Offset: pos,
			Marker: m,
			Data:   data[pos+4 : pos+2+length],
			fill:   fill,
		})
		pos += 2 + length

		if m == markerSOS {
			if f.scanIndex >= 0 {
				return nil, fmt.Errorf("%w: multiple scans", ErrUnsupported)
			}
			f.scanIndex = len(f.Segments) - 1

			end, err := entropyEnd(data, pos)
			if err != nil {
				return nil, err
			}
			f.Entropy = data[pos:end]
			pos = end
		}
	}
}

// entropyEnd scans forward from the start of the entropy-coded region and
// returns the offset of the first byte of the next true marker. A 0xFF is
// only a terminator when the byte after it is neither 0x00 (stuffing) nor a
// restart tag; restart markers belong to the scan data.
func entropyEnd(data []byte, start int) (int, error) {
	pos := start
	for pos < len(data) {
		if data[pos] != 0xFF {
			pos++
			continue
		}
		if pos+1 >= len(data) {
			break
		}
		next := data[pos+1]
		if next == 0x00 || isRestart(next) {
			pos += 2
			continue
		}
		if next == 0xFF {
			// Fill byte inside the region; keep looking from the second FF.
			pos++
			continue
		}
		return pos, nil
	}
	return 0, fmt.Errorf("%w: entropy-coded data runs past end of file", ErrFormat)
}

// Scan returns the SOS segment, or nil if the file had no scan.
func (f *File) Scan() *Segment {
	if f.scanIndex < 0 {
		return nil
	}
	return &f.Segments[f.scanIndex]
}

// FrameHeader finds and parses the SOF segment.
func (f *File) FrameHeader() (*FrameHeader, error) {
	for _, seg := range f.Segments {
		if isFrameMarker(seg.Marker) {
			return parseFrameHeader(seg.Data)
		}
	}
	return nil, fmt.Errorf("%w: missing SOF marker", ErrFormat)
}

// RestartInterval returns the DRI value, or zero when the file defines none.
func (f *File) RestartInterval() (int, error) {
	interval := 0
	for _, seg := range f.Segments {
		if seg.Marker == markerDRI {
			v, err := parseRestartInterval(seg.Data)
			if err != nil {
				return 0, err
			}
			interval = v
		}
	}
	return interval, nil
}

// Assemble serializes the marker stream back into one buffer. For a file
// whose segments and entropy region were not touched the output is
// byte-identical to the parsed input.
func (f *File) Assemble() []byte {
	size := 0
	for _, seg := range f.Segments {
		size += 2 + seg.fill
		if seg.Data != nil {
			size += 2 + len(seg.Data)
		}
	}
	out := make([]byte, 0, size+len(f.Entropy)+len(f.Trailer))

	for i, seg := range f.Segments {
		for j := 0; j < seg.fill; j++ {
			out = append(out, 0xFF)
		}
		out = append(out, 0xFF, seg.Marker)
		if seg.Data != nil {
			var length [2]byte
			binary.BigEndian.PutUint16(length[:], uint16(len(seg.Data)+2))
			out = append(out, length[:]...)
			out = append(out, seg.Data...)
		}
		if i == f.scanIndex {
			out = append(out, f.Entropy...)
		}
	}
	return append(out, f.Trailer...)
}
