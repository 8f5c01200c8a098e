package stego

// JPEG marker tags, ITU-T T.81 table B.1. Only the second byte is stored;
// every marker is preceded by 0xFF in the file.
const (
	markerSOF0 = 0xC0 // baseline DCT
	markerSOF1 = 0xC1 // extended sequential DCT
	markerSOF2 = 0xC2 // progressive DCT
	markerSOF3 = 0xC3 // lossless
	markerDHT  = 0xC4
	markerJPG  = 0xC8
	markerDAC  = 0xCC // arithmetic conditioning
	markerRST0 = 0xD0
	markerRST7 = 0xD7
	markerSOI  = 0xD8
	markerEOI  = 0xD9
	markerSOS  = 0xDA
	markerDQT  = 0xDB
	markerDNL  = 0xDC
	markerDRI  = 0xDD
	markerAPP0 = 0xE0
	markerAPP15 = 0xEF
	markerCOM  = 0xFE
	markerTEM  = 0x01
)

func isRestart(m byte) bool {
	return m >= markerRST0 && m <= markerRST7
}

// isSupportedFrame reports whether a SOFn marker describes a frame type we
// can transcode. Only baseline and extended sequential Huffman frames fit;
// everything else in the C0..CF range is progressive, lossless,
// hierarchical, or arithmetic-coded.
func isSupportedFrame(m byte) bool {
	return m == markerSOF0 || m == markerSOF1
}

func isFrameMarker(m byte) bool {
	if m < 0xC0 || m > 0xCF {
		return false
	}
	// DHT, JPG and DAC share the SOFn range but are not frame headers.
	return m != markerDHT && m != markerJPG && m != markerDAC
}

// markerName gives a human-readable tag for the inspect dump.
func markerName(m byte) string {
	switch {
	case m == markerSOF0:
		return "SOF0"
	case m == markerSOF1:
		return "SOF1"
	case m == markerSOF2:
		return "SOF2"
	case m == markerSOF3:
		return "SOF3"
	case m == markerDHT:
		return "DHT"
	case m == markerDAC:
		return "DAC"
	case isRestart(m):
		return "RST"
	case m == markerSOI:
		return "SOI"
	case m == markerEOI:
		return "EOI"
	case m == markerSOS:
		return "SOS"
	case m == markerDQT:
		return "DQT"
	case m == markerDNL:
		return "DNL"
	case m == markerDRI:
		return "DRI"
	case m >= markerAPP0 && m <= markerAPP15:
		return "APP"
	case m == markerCOM:
		return "COM"
	case isFrameMarker(m):
		return "SOF"
	}
	return "???"
}
