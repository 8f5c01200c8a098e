package stego

import (
	"bytes"
	"errors"
	"testing"
)

// testACTable builds an AC table with two permutable groups: the two 2-bit
// codes (EOB and run 1 size 1) and a large 16-bit group whose symbols never
// appear in the test scans. The big group gives the synthetic files enough
// orderings to carry encrypted and shielded payloads.
func testACTable() *HuffmanTable {
	t := &HuffmanTable{Class: 1, ID: 0}
	t.Counts[1] = 2
	t.Counts[15] = 150
	t.Symbols = []byte{0x00, 0x11}
	for v := 1; v <= 150; v++ {
		if byte(v) == 0x11 {
			continue
		}
		t.Symbols = append(t.Symbols, byte(v))
	}
	t.Symbols = append(t.Symbols, 0xF0)
	return t
}

type blockWriter func(w *bitWriter, dc, ac map[byte]huffCode)

// buildTestJPEG assembles a single-component baseline JPEG from scratch:
// JFIF APP0, flat DQT, SOF0, one DHT segment with the test DC and AC tables,
// optional DRI, then an entropy region of one coded block per MCU. The
// default block is DC category 2 plus one AC coefficient and EOB.
func buildTestJPEG(t *testing.T, width, height, restartInterval int, block blockWriter) []byte {
	t.Helper()
	dc, ac := stdDCLuminance(), testACTable()
	dcCodes, err := dc.canonicalCodes()
	if err != nil {
		t.Fatal(err)
	}
	acCodes, err := ac.canonicalCodes()
	if err != nil {
		t.Fatal(err)
	}
	if block == nil {
		block = func(w *bitWriter, dc, ac map[byte]huffCode) {
			w.writeCode(dc[0x02])
			w.writeBits(0b10, 2)
			w.writeCode(ac[0x11])
			w.writeBits(1, 1)
			w.writeCode(ac[0x00])
		}
	}

	mcus := ((width + 7) / 8) * ((height + 7) / 8)
	w := newBitWriter()
	next := byte(markerRST0)
	for mcu := 0; mcu < mcus; mcu++ {
		if restartInterval > 0 && mcu > 0 && mcu%restartInterval == 0 {
			w.writeMarker(next)
			next++
			if next > markerRST7 {
				next = markerRST0
			}
		}
		block(w, dcCodes, acCodes)
	}

	data := []byte{0xFF, markerSOI}
	app0 := append([]byte("JFIF\x00"), 1, 1, 0, 0, 1, 0, 1, 0, 0)
	data = append(data, rawSegment(markerAPP0, app0)...)
	data = append(data, rawSegment(markerDQT, append([]byte{0x00}, bytes.Repeat([]byte{1}, 64)...))...)
	sof := []byte{8, byte(height >> 8), byte(height), byte(width >> 8), byte(width), 1, 1, 0x11, 0}
	data = append(data, rawSegment(markerSOF0, sof)...)
	data = append(data, rawSegment(markerDHT, marshalDHT([]*HuffmanTable{dc, ac}))...)
	if restartInterval > 0 {
		data = append(data, rawSegment(markerDRI, []byte{byte(restartInterval >> 8), byte(restartInterval)})...)
	}
	data = append(data, rawSegment(markerSOS, []byte{1, 1, 0x00, 0, 63, 0})...)
	data = append(data, w.bytes()...)
	return append(data, 0xFF, markerEOI)
}

// scanSymbols decodes a file's entropy region under its own tables and
// returns the full symbol sequence and the literal extra bits. Two files
// with equal outputs decode to identical coefficients.
func scanSymbols(t *testing.T, fileBytes []byte) ([]byte, []uint32) {
	t.Helper()
	f, err := Parse(fileBytes)
	if err != nil {
		t.Fatal(err)
	}
	_, perSeg, err := dhtSegments(f)
	if err != nil {
		t.Fatal(err)
	}
	var set tableSet
	for _, tb := range flatten(perSeg) {
		set.put(tb)
	}
	frame, err := f.FrameHeader()
	if err != nil {
		t.Fatal(err)
	}
	scan, err := parseScanHeader(f.Scan().Data)
	if err != nil {
		t.Fatal(err)
	}
	interval, err := f.RestartInterval()
	if err != nil {
		t.Fatal(err)
	}
	comps, err := buildScanComponents(frame, scan, &set, &set)
	if err != nil {
		t.Fatal(err)
	}
	mcusX, mcusY, err := mcuGrid(frame, scan)
	if err != nil {
		t.Fatal(err)
	}

	r := &bitReader{data: destuff(f.Entropy)}
	var syms []byte
	var extras []uint32

	readBits := func(n int) uint32 {
		v, err := r.readBits(n)
		if err != nil {
			t.Fatal(err)
		}
		return v
	}
	readBlock := func(c *scanComponent) {
		sym, err := r.decodeSymbol(c.dcDec)
		if err != nil {
			t.Fatal(err)
		}
		syms = append(syms, sym)
		if sym > 0 {
			extras = append(extras, readBits(int(sym)))
		}
		for zig := 1; zig < 64; {
			sym, err := r.decodeSymbol(c.acDec)
			if err != nil {
				t.Fatal(err)
			}
			syms = append(syms, sym)
			run, size := int(sym>>4), int(sym&0x0F)
			if size == 0 {
				if run == 15 {
					zig += 16
					continue
				}
				break
			}
			zig += run
			extras = append(extras, readBits(size))
			zig++
		}
	}

	mcu := 0
	for my := 0; my < mcusY; my++ {
		for mx := 0; mx < mcusX; mx++ {
			if interval > 0 && mcu > 0 && mcu%interval == 0 {
				r.align()
				tag := byte(0xFF)
				for tag == 0xFF {
					b, err := r.readByte()
					if err != nil {
						t.Fatal(err)
					}
					tag = b
				}
				if !isRestart(tag) {
					t.Fatalf("expected restart tag, found %02X", tag)
				}
			}
			for i := range comps {
				blocks := 1
				if len(comps) > 1 {
					blocks = comps[i].h * comps[i].v
				}
				for j := 0; j < blocks; j++ {
					readBlock(&comps[i])
				}
			}
			mcu++
		}
	}
	return syms, extras
}

// buildColorTestJPEG assembles an interleaved three-component baseline JPEG:
// a 2x2-sampled luma component and two 1x1 chroma components sharing the
// test tables, six coded blocks per MCU.
func buildColorTestJPEG(t *testing.T, width, height, restartInterval int) []byte {
	t.Helper()
	dc, ac := stdDCLuminance(), testACTable()
	dcCodes, err := dc.canonicalCodes()
	if err != nil {
		t.Fatal(err)
	}
	acCodes, err := ac.canonicalCodes()
	if err != nil {
		t.Fatal(err)
	}

	mcus := ((width + 15) / 16) * ((height + 15) / 16)
	w := newBitWriter()
	next := byte(markerRST0)
	for mcu := 0; mcu < mcus; mcu++ {
		if restartInterval > 0 && mcu > 0 && mcu%restartInterval == 0 {
			w.writeMarker(next)
			next++
			if next > markerRST7 {
				next = markerRST0
			}
		}
		for b := 0; b < 6; b++ { // four luma blocks, one per chroma
			w.writeCode(dcCodes[0x02])
			w.writeBits(0b10, 2)
			w.writeCode(acCodes[0x11])
			w.writeBits(1, 1)
			w.writeCode(acCodes[0x00])
		}
	}

	data := []byte{0xFF, markerSOI}
	data = append(data, rawSegment(markerDQT, append([]byte{0x00}, bytes.Repeat([]byte{1}, 64)...))...)
	sof := []byte{8, byte(height >> 8), byte(height), byte(width >> 8), byte(width),
		3, 1, 0x22, 0, 2, 0x11, 0, 3, 0x11, 0}
	data = append(data, rawSegment(markerSOF0, sof)...)
	data = append(data, rawSegment(markerDHT, marshalDHT([]*HuffmanTable{dc, ac}))...)
	if restartInterval > 0 {
		data = append(data, rawSegment(markerDRI, []byte{byte(restartInterval >> 8), byte(restartInterval)})...)
	}
	data = append(data, rawSegment(markerSOS, []byte{3, 1, 0x00, 2, 0x00, 3, 0x00, 0, 63, 0})...)
	data = append(data, w.bytes()...)
	return append(data, 0xFF, markerEOI)
}

func TestTranscodeIdentity(t *testing.T) {
	// Transcoding with identical old and new tables must reproduce the
	// entropy region byte for byte, restarts and stuffing included.
	for _, ri := range []int{0, 1, 2} {
		data := buildTestJPEG(t, 32, 16, ri, nil)
		f, err := Parse(data)
		if err != nil {
			t.Fatal(err)
		}
		_, perSeg, err := dhtSegments(f)
		if err != nil {
			t.Fatal(err)
		}
		tables := flatten(perSeg)

		out, err := replaceScan(f, tables, tables, false)
		if err != nil {
			t.Fatalf("interval %d: transcode failed: %v", ri, err)
		}
		if !bytes.Equal(out, f.Entropy) {
			t.Errorf("interval %d: identity transcode changed the entropy region", ri)
		}
	}
}

func TestTranscodeZRLAndRuns(t *testing.T) {
	// A block exercising ZRL, a long run and readback through the full
	// walker. Run 1 size 1 at zig 2, ZRL to 19, size-1 coefficient at 20.
	block := func(w *bitWriter, dc, ac map[byte]huffCode) {
		w.writeCode(dc[0x05])
		w.writeBits(0b10110, 5)
		w.writeCode(ac[0x11])
		w.writeBits(0, 1)
		w.writeCode(ac[0xF0]) // ZRL
		w.writeCode(ac[0x11])
		w.writeBits(1, 1)
		w.writeCode(ac[0x00])
	}
	data := buildTestJPEG(t, 8, 8, 0, block)

	syms, extras := scanSymbols(t, data)
	wantSyms := []byte{0x05, 0x11, 0xF0, 0x11, 0x00}
	wantExtras := []uint32{0b10110, 0, 1}
	if !bytes.Equal(syms, wantSyms) {
		t.Errorf("symbols = %x, want %x", syms, wantSyms)
	}
	if len(extras) != len(wantExtras) {
		t.Fatalf("extras = %v, want %v", extras, wantExtras)
	}
	for i := range extras {
		if extras[i] != wantExtras[i] {
			t.Errorf("extra %d = %b, want %b", i, extras[i], wantExtras[i])
		}
	}
}

func TestTranscodeTruncatedStream(t *testing.T) {
	data := buildTestJPEG(t, 8, 8, 0, nil)
	// Drop the final entropy byte, keeping EOI in place.
	cut := append([]byte(nil), data[:len(data)-3]...)
	cut = append(cut, 0xFF, markerEOI)

	_, err := Encode(cut, []byte("x"), Options{})
	if !errors.Is(err, ErrCorruptStream) {
		t.Errorf("truncated scan should be ErrCorruptStream, got %v", err)
	}
}

func TestTranscodeFillByteBeforeRestart(t *testing.T) {
	// A fill 0xFF may pad the gap before a restart marker; the transcoder
	// must step over it instead of rejecting the file.
	carrier := buildTestJPEG(t, 40, 8, 1, nil)
	idx := bytes.Index(carrier, []byte{0xFF, 0xD0})
	if idx < 0 {
		t.Fatal("no restart marker in carrier")
	}
	padded := append([]byte(nil), carrier[:idx]...)
	padded = append(padded, 0xFF)
	padded = append(padded, carrier[idx:]...)

	secret := []byte("padded")
	out, err := Encode(padded, secret, Options{})
	if err != nil {
		t.Fatalf("Encode rejected a legally padded scan: %v", err)
	}
	got, err := Decode(out, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, secret) {
		t.Errorf("Decode = %q, want %q", got, secret)
	}

	symsIn, _ := scanSymbols(t, padded)
	symsOut, _ := scanSymbols(t, out)
	if !bytes.Equal(symsIn, symsOut) {
		t.Error("symbol sequence changed across embedding")
	}
}

func TestTranscodeFillByteAtScanEnd(t *testing.T) {
	carrier := buildTestJPEG(t, 8, 8, 0, nil)
	padded := append([]byte(nil), carrier[:len(carrier)-2]...)
	padded = append(padded, 0xFF, 0xFF, markerEOI)

	secret := []byte("tail")
	out, err := Encode(padded, secret, Options{})
	if err != nil {
		t.Fatalf("Encode rejected trailing fill bytes: %v", err)
	}
	got, err := Decode(out, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, secret) {
		t.Errorf("Decode = %q, want %q", got, secret)
	}
}

func TestCopyRestartSequence(t *testing.T) {
	r := &bitReader{data: []byte{0xFF, 0xD0, 0xFF, 0xD1}}
	w := newBitWriter()
	next := byte(markerRST0)

	if err := copyRestart(r, w, &next); err != nil {
		t.Fatalf("first restart failed: %v", err)
	}
	if next != markerRST0+1 {
		t.Errorf("next tag = %#02x, want %#02x", next, markerRST0+1)
	}
	if err := copyRestart(r, w, &next); err != nil {
		t.Fatalf("second restart failed: %v", err)
	}
	if got := w.bytes(); !bytes.Equal(got, []byte{0xFF, 0xD0, 0xFF, 0xD1}) {
		t.Errorf("copied markers = %x", got)
	}
}

func TestCopyRestartOutOfSequence(t *testing.T) {
	r := &bitReader{data: []byte{0xFF, 0xD3}}
	w := newBitWriter()
	next := byte(markerRST0)

	if err := copyRestart(r, w, &next); !errors.Is(err, ErrCorruptStream) {
		t.Errorf("out-of-sequence restart should be ErrCorruptStream, got %v", err)
	}
}

func TestMCUGrid(t *testing.T) {
	threeComp := &FrameHeader{
		Width: 17, Height: 9,
		Components: []FrameComponent{
			{ID: 1, HSampling: 2, VSampling: 2},
			{ID: 2, HSampling: 1, VSampling: 1},
			{ID: 3, HSampling: 1, VSampling: 1},
		},
	}
	interleaved := &ScanHeader{Components: []ScanComponent{{ID: 1}, {ID: 2}, {ID: 3}}, SpectralEnd: 63}
	chromaOnly := &ScanHeader{Components: []ScanComponent{{ID: 2}}, SpectralEnd: 63}

	tests := []struct {
		name         string
		frame        *FrameHeader
		scan         *ScanHeader
		wantX, wantY int
	}{
		{"interleaved 2x2", threeComp, interleaved, 2, 1},
		{"non-interleaved chroma", threeComp, chromaOnly, 2, 1},
		{"single component", &FrameHeader{Width: 24, Height: 17,
			Components: []FrameComponent{{ID: 1, HSampling: 1, VSampling: 1}}},
			&ScanHeader{Components: []ScanComponent{{ID: 1}}, SpectralEnd: 63}, 3, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y, err := mcuGrid(tt.frame, tt.scan)
			if err != nil {
				t.Fatal(err)
			}
			if x != tt.wantX || y != tt.wantY {
				t.Errorf("mcuGrid = %dx%d, want %dx%d", x, y, tt.wantX, tt.wantY)
			}
		})
	}
}
