package stego

import (
	"fmt"
	"math/big"
	"strings"
)

// TableCapacity summarizes the permutation space of one Huffman table.
type TableCapacity struct {
	Class      int
	ID         int
	GroupSizes []int
	Capacity   *big.Int
}

// CapacityReport is the combined embedding budget of a file.
type CapacityReport struct {
	Tables         []TableCapacity
	Total          *big.Int
	MaxSecretBytes int
}

// Capacity computes how much secret data a file's tables can address.
func Capacity(fileBytes []byte) (*CapacityReport, error) {
	f, err := Parse(fileBytes)
	if err != nil {
		return nil, err
	}
	_, perSeg, err := dhtSegments(f)
	if err != nil {
		return nil, err
	}

	report := &CapacityReport{Total: big.NewInt(1)}
	for _, t := range flatten(perSeg) {
		tc := TableCapacity{Class: t.Class, ID: t.ID, Capacity: t.Capacity()}
		for _, g := range t.Groups() {
			if g.Size >= 2 {
				tc.GroupSizes = append(tc.GroupSizes, g.Size)
			}
		}
		report.Tables = append(report.Tables, tc)
		report.Total.Mul(report.Total, tc.Capacity)
	}
	report.MaxSecretBytes = maxSecretBytes(report.Total)
	return report, nil
}

// SegmentInfo is one line of the inspect dump.
type SegmentInfo struct {
	Offset  int
	Marker  byte
	Name    string
	Length  int
	Summary string
}

// Inspect produces a human-readable summary of every marker segment.
// Read-only; it demands nothing beyond a successful parse.
func Inspect(fileBytes []byte) ([]SegmentInfo, error) {
	f, err := Parse(fileBytes)
	if err != nil {
		return nil, err
	}

	var infos []SegmentInfo
	for i, seg := range f.Segments {
		info := SegmentInfo{
			Offset: seg.Offset,
			Marker: seg.Marker,
			Name:   markerName(seg.Marker),
		}
		if seg.Data != nil {
			info.Length = len(seg.Data) + 2
		}
		info.Summary = summarize(seg)
		if i == f.scanIndex {
			info.Summary += fmt.Sprintf("; %d bytes of entropy-coded data", len(f.Entropy))
		}
		infos = append(infos, info)
	}
	return infos, nil
}

func summarize(seg Segment) string {
	switch {
	case isFrameMarker(seg.Marker):
		h, err := parseFrameHeader(seg.Data)
		if err != nil {
			return err.Error()
		}
		parts := make([]string, len(h.Components))
		for i, c := range h.Components {
			parts[i] = fmt.Sprintf("id=%d %dx%d q=%d", c.ID, c.HSampling, c.VSampling, c.QuantSel)
		}
		return fmt.Sprintf("%dx%d, %d-bit, components [%s]", h.Width, h.Height, h.Precision, strings.Join(parts, ", "))

	case seg.Marker == markerSOS:
		h, err := parseScanHeader(seg.Data)
		if err != nil {
			return err.Error()
		}
		parts := make([]string, len(h.Components))
		for i, c := range h.Components {
			parts[i] = fmt.Sprintf("id=%d dc=%d ac=%d", c.ID, c.DCTable, c.ACTable)
		}
		return fmt.Sprintf("components [%s], spectral %d..%d", strings.Join(parts, ", "), h.SpectralStart, h.SpectralEnd)

	case seg.Marker == markerDHT:
		tables, err := parseDHT(seg.Data)
		if err != nil {
			return err.Error()
		}
		parts := make([]string, len(tables))
		for i, t := range tables {
			class := "DC"
			if t.Class == 1 {
				class = "AC"
			}
			parts[i] = fmt.Sprintf("%s%d: %d symbols, capacity %s", class, t.ID, len(t.Symbols), t.Capacity())
		}
		return strings.Join(parts, "; ")

	case seg.Marker == markerDQT:
		tables, err := parseDQT(seg.Data)
		if err != nil {
			return err.Error()
		}
		parts := make([]string, len(tables))
		for i, t := range tables {
			parts[i] = fmt.Sprintf("table %d, %d-bit", t.ID, 8*(t.Precision+1))
		}
		return strings.Join(parts, "; ")

	case seg.Marker == markerDRI:
		v, err := parseRestartInterval(seg.Data)
		if err != nil {
			return err.Error()
		}
		return fmt.Sprintf("restart interval %d MCUs", v)

	case seg.Marker >= markerAPP0 && seg.Marker <= markerAPP15:
		tag := seg.Data
		if n := len(tag); n > 0 {
			if end := strings.IndexByte(string(tag[:min(n, 16)]), 0); end > 0 {
				return fmt.Sprintf("%q", tag[:end])
			}
		}
		return ""
	}
	return ""
}
