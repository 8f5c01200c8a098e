package stego

import (
	"encoding/binary"
	"fmt"
)

// Segment is one marker segment of the file. Data holds the payload without
// the marker and length bytes; it is nil for standalone markers (SOI, EOI).
type Segment struct {
	Offset int
	Marker byte
	Data   []byte

	// fill counts the 0xFF pad bytes preceding the marker (T.81 B.1.1.2);
	// Assemble re-emits them so untouched files reassemble byte-exactly.
	fill int
}

// FrameComponent describes one colour component from the SOF header.
type FrameComponent struct {
	ID        int
	HSampling int
	VSampling int
	QuantSel  int
}

// FrameHeader is the parsed SOF0/SOF1 payload.
type FrameHeader struct {
	Precision  int
	Width      int
	Height     int
	Components []FrameComponent
}

func parseFrameHeader(data []byte) (*FrameHeader, error) {
	if len(data) < 6 {
		return nil, fmt.Errorf("%w: SOF payload too short", ErrFormat)
	}
	n := int(data[5])
	if n == 0 || len(data) < 6+3*n {
		return nil, fmt.Errorf("%w: SOF component list truncated", ErrFormat)
	}

	h := &FrameHeader{
		Precision: int(data[0]),
		Height:    int(binary.BigEndian.Uint16(data[1:3])),
		Width:     int(binary.BigEndian.Uint16(data[3:5])),
	}
	for i := 0; i < n; i++ {
		c := data[6+3*i:]
		h.Components = append(h.Components, FrameComponent{
			ID:        int(c[0]),
			HSampling: int(c[1] >> 4),
			VSampling: int(c[1] & 0x0F),
			QuantSel:  int(c[2]),
		})
	}
	return h, nil
}

// ScanComponent maps a scan component to its DC and AC table selectors.
type ScanComponent struct {
	ID      int
	DCTable int
	ACTable int
}

// ScanHeader is the parsed SOS payload, without the entropy-coded data that
// follows it in the file.
type ScanHeader struct {
	Components    []ScanComponent
	SpectralStart int
	SpectralEnd   int
	ApproxHigh    int
	ApproxLow     int
}

func parseScanHeader(data []byte) (*ScanHeader, error) {
	if len(data) < 1 {
		return nil, fmt.Errorf("%w: SOS payload too short", ErrFormat)
	}
	n := int(data[0])
	if n == 0 || len(data) < 1+2*n+3 {
		return nil, fmt.Errorf("%w: SOS component list truncated", ErrFormat)
	}

	h := &ScanHeader{}
	for i := 0; i < n; i++ {
		c := data[1+2*i:]
		h.Components = append(h.Components, ScanComponent{
			ID:      int(c[0]),
			DCTable: int(c[1] >> 4),
			ACTable: int(c[1] & 0x0F),
		})
	}
	tail := data[1+2*n:]
	h.SpectralStart = int(tail[0])
	h.SpectralEnd = int(tail[1])
	h.ApproxHigh = int(tail[2] >> 4)
	h.ApproxLow = int(tail[2] & 0x0F)
	return h, nil
}

// QuantTable is one table from a DQT segment. Parsed only for inspection;
// the embedding path never touches quantization data.
type QuantTable struct {
	Precision int
	ID        int
	Values    []byte
}

func parseDQT(data []byte) ([]QuantTable, error) {
	var tables []QuantTable
	for len(data) > 0 {
		prec := int(data[0] >> 4)
		size := 64
		if prec == 1 {
			size = 128
		}
		if len(data) < 1+size {
			return nil, fmt.Errorf("%w: DQT table truncated", ErrFormat)
		}
		tables = append(tables, QuantTable{
			Precision: prec,
			ID:        int(data[0] & 0x0F),
			Values:    data[1 : 1+size],
		})
		data = data[1+size:]
	}
	return tables, nil
}

func parseRestartInterval(data []byte) (int, error) {
	if len(data) < 2 {
		return 0, fmt.Errorf("%w: DRI payload too short", ErrFormat)
	}
	return int(binary.BigEndian.Uint16(data[:2])), nil
}
