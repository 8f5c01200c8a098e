package stego

import (
	"fmt"

	"github.com/schollz/progressbar/v3"
)

// tableSet indexes Huffman tables the way scan headers select them:
// class (0 DC, 1 AC) then table id.
type tableSet [2][4]*HuffmanTable

func (s *tableSet) put(t *HuffmanTable) {
	s[t.Class][t.ID] = t
}

// scanComponent pairs one scan component's geometry with the decode
// automaton of the old tables and the canonical codes of the new ones.
type scanComponent struct {
	h, v  int
	dcDec *vlcTable
	acDec *vlcTable
	dcEnc map[byte]huffCode
	acEnc map[byte]huffCode
}

// transcodeScan decodes the entropy-coded region symbol by symbol under the
// old tables and re-encodes the identical symbol sequence under the new
// ones. Extra bits (coefficient magnitudes) are copied verbatim; restart
// markers are passed through byte-aligned; old and new tables share the
// same bit-length distribution, so only the code values change.
func transcodeScan(frame *FrameHeader, scan *ScanHeader, restartInterval int,
	oldTabs, newTabs *tableSet, entropy []byte, bar *progressbar.ProgressBar) ([]byte, error) {

	if scan.SpectralStart != 0 || scan.SpectralEnd != 63 || scan.ApproxHigh != 0 || scan.ApproxLow != 0 {
		return nil, fmt.Errorf("%w: non-baseline spectral selection", ErrUnsupported)
	}

	comps, err := buildScanComponents(frame, scan, oldTabs, newTabs)
	if err != nil {
		return nil, err
	}
	mcusX, mcusY, err := mcuGrid(frame, scan)
	if err != nil {
		return nil, err
	}
	interleaved := len(comps) > 1

	r := &bitReader{data: destuff(entropy)}
	w := newBitWriter()

	mcu := 0
	nextRestart := byte(markerRST0)
	for my := 0; my < mcusY; my++ {
		for mx := 0; mx < mcusX; mx++ {
			if restartInterval > 0 && mcu > 0 && mcu%restartInterval == 0 {
				if err := copyRestart(r, w, &nextRestart); err != nil {
					return nil, err
				}
			}
			for i := range comps {
				blocks := 1
				if interleaved {
					blocks = comps[i].h * comps[i].v
				}
				for j := 0; j < blocks; j++ {
					if err := transcodeBlock(r, w, &comps[i]); err != nil {
						return nil, err
					}
				}
			}
			mcu++
		}
		if bar != nil {
			bar.Add(1)
		}
	}

	// Whatever follows the last block may only be bit padding and fill
	// bytes ahead of the next marker.
	r.align()
	for r.remaining() >= 8 {
		b, err := r.readByte()
		if err != nil {
			return nil, err
		}
		if b != 0xFF {
			return nil, fmt.Errorf("%w: %d unread bits after final block", ErrCorruptStream, r.remaining()+8)
		}
	}
	return w.bytes(), nil
}

func buildScanComponents(frame *FrameHeader, scan *ScanHeader, oldTabs, newTabs *tableSet) ([]scanComponent, error) {
	comps := make([]scanComponent, 0, len(scan.Components))
	for _, sc := range scan.Components {
		var fc *FrameComponent
		for i := range frame.Components {
			if frame.Components[i].ID == sc.ID {
				fc = &frame.Components[i]
				break
			}
		}
		if fc == nil {
			return nil, fmt.Errorf("%w: scan references unknown component %d", ErrFormat, sc.ID)
		}

		oldDC, oldAC := oldTabs[0][sc.DCTable], oldTabs[1][sc.ACTable]
		newDC, newAC := newTabs[0][sc.DCTable], newTabs[1][sc.ACTable]
		if oldDC == nil || oldAC == nil || newDC == nil || newAC == nil {
			return nil, fmt.Errorf("%w: scan selects undefined Huffman table %d/%d", ErrFormat, sc.DCTable, sc.ACTable)
		}

		c := scanComponent{h: fc.HSampling, v: fc.VSampling}
		var err error
		if c.dcDec, err = oldDC.decodeTable(); err != nil {
			return nil, err
		}
		if c.acDec, err = oldAC.decodeTable(); err != nil {
			return nil, err
		}
		if c.dcEnc, err = newDC.canonicalCodes(); err != nil {
			return nil, err
		}
		if c.acEnc, err = newAC.canonicalCodes(); err != nil {
			return nil, err
		}
		comps = append(comps, c)
	}
	return comps, nil
}

// mcuGrid computes the MCU lattice. An interleaved scan tiles the image in
// units of the maximum sampling factors; a single-component scan is coded
// non-interleaved, one 8x8 block per MCU over that component's own grid.
func mcuGrid(frame *FrameHeader, scan *ScanHeader) (int, int, error) {
	hMax, vMax := 0, 0
	for _, c := range frame.Components {
		if c.HSampling > hMax {
			hMax = c.HSampling
		}
		if c.VSampling > vMax {
			vMax = c.VSampling
		}
	}
	if hMax == 0 || vMax == 0 || frame.Width == 0 || frame.Height == 0 {
		return 0, 0, fmt.Errorf("%w: degenerate frame geometry", ErrFormat)
	}

	if len(scan.Components) == 1 {
		sc := scan.Components[0]
		for _, c := range frame.Components {
			if c.ID == sc.ID {
				cw := (frame.Width*c.HSampling + hMax - 1) / hMax
				ch := (frame.Height*c.VSampling + vMax - 1) / vMax
				return (cw + 7) / 8, (ch + 7) / 8, nil
			}
		}
		return 0, 0, fmt.Errorf("%w: scan references unknown component %d", ErrFormat, sc.ID)
	}

	return (frame.Width + 8*hMax - 1) / (8 * hMax), (frame.Height + 8*vMax - 1) / (8 * vMax), nil
}

// copyRestart moves one byte-aligned RSTn marker from input to output.
// Restart markers reset nothing we track (extra bits travel verbatim, so
// DC predictors never enter the picture), but their tags must cycle.
func copyRestart(r *bitReader, w *bitWriter, next *byte) error {
	r.align()
	ff, err := r.readByte()
	if err != nil {
		return err
	}
	if ff != 0xFF {
		return fmt.Errorf("%w: expected restart marker, found %02X", ErrCorruptStream, ff)
	}
	tag, err := r.readByte()
	if err != nil {
		return err
	}
	// Fill bytes may pad the gap before the marker tag.
	for tag == 0xFF {
		if tag, err = r.readByte(); err != nil {
			return err
		}
	}
	if !isRestart(tag) {
		return fmt.Errorf("%w: expected restart marker, found FF%02X", ErrCorruptStream, tag)
	}
	if tag != *next {
		return fmt.Errorf("%w: restart marker out of sequence", ErrCorruptStream)
	}
	w.writeMarker(tag)

	*next++
	if *next > markerRST7 {
		*next = markerRST0
	}
	return nil
}

// transcodeBlock re-codes one 8x8 coefficient block, F.2.2.1 and F.2.2.2.
// The symbol stream and the literal extra bits are preserved exactly; only
// the Huffman code values differ between input and output.
func transcodeBlock(r *bitReader, w *bitWriter, c *scanComponent) error {
	// DC: category symbol, then that many magnitude bits.
	sym, err := r.decodeSymbol(c.dcDec)
	if err != nil {
		return err
	}
	code, ok := c.dcEnc[sym]
	if !ok {
		return fmt.Errorf("%w: DC symbol %#02x missing from replacement table", ErrCorruptStream, sym)
	}
	w.writeCode(code)
	if sym > 0 {
		if sym > 15 {
			return fmt.Errorf("%w: DC category %d out of range", ErrCorruptStream, sym)
		}
		bits, err := r.readBits(int(sym))
		if err != nil {
			return err
		}
		w.writeBits(bits, int(sym))
	}

	// AC: run/size symbols until EOB or coefficient 63.
	for zig := 1; zig < 64; {
		sym, err := r.decodeSymbol(c.acDec)
		if err != nil {
			return err
		}
		code, ok := c.acEnc[sym]
		if !ok {
			return fmt.Errorf("%w: AC symbol %#02x missing from replacement table", ErrCorruptStream, sym)
		}
		w.writeCode(code)

		run, size := int(sym>>4), int(sym&0x0F)
		if size == 0 {
			if run == 15 {
				zig += 16 // ZRL, sixteen zero coefficients
				continue
			}
			break // EOB
		}
		zig += run
		if zig > 63 {
			return fmt.Errorf("%w: AC run overflows block", ErrCorruptStream)
		}
		bits, err := r.readBits(size)
		if err != nil {
			return err
		}
		w.writeBits(bits, size)
		zig++
	}
	return nil
}
