package core

import (
	"bytes"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var (
	bomUTF16BE = []byte{0xFE, 0xFF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
)

// DecodeTextString converts a PDF text string to UTF-8. Strings starting
// with a byte order mark are UTF-16 (big or little endian) or UTF-8; all
// others are PDFDocEncoding, which matches Latin-1 for printable ASCII and
// is approximated by Windows-1252 above 0x7F.
func DecodeTextString(b []byte) string {
	var dec *encoding.Decoder
	switch {
	case bytes.HasPrefix(b, bomUTF16BE):
		dec = unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder()
	case bytes.HasPrefix(b, bomUTF16LE):
		dec = unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder()
	case bytes.HasPrefix(b, bomUTF8):
		return string(bytes.ToValidUTF8(b[len(bomUTF8):], []byte(string(utf8.RuneError))))
	default:
		if isASCII(b) {
			return string(b)
		}
		dec = charmap.Windows1252.NewDecoder()
	}

	out, _, err := transform.Bytes(dec, b)
	if err != nil {
		// Odd-length UTF-16 and similar damage: keep what decodes.
		return string(bytes.ToValidUTF8(out, []byte(string(utf8.RuneError))))
	}
	return string(out)
}

func isASCII(b []byte) bool {
	for _, c := range b {
		if c >= 0x80 {
			return false
		}
	}
	return true
}
