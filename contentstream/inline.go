package contentstream

import (
	"fmt"

	"github.com/tsawler/pdfengine/core"
)

// Abbreviated inline image keys and their full names.
var inlineKeys = map[string]string{
	"BPC": "BitsPerComponent",
	"CS":  "ColorSpace",
	"D":   "Decode",
	"DP":  "DecodeParms",
	"F":   "Filter",
	"H":   "Height",
	"IM":  "ImageMask",
	"I":   "Interpolate",
	"W":   "Width",
	"L":   "Length",
}

// Abbreviated names allowed as inline image values.
var inlineNames = map[string]string{
	"G":    "DeviceGray",
	"RGB":  "DeviceRGB",
	"CMYK": "DeviceCMYK",
	"I":    "Indexed",
	"AHx":  "ASCIIHexDecode",
	"A85":  "ASCII85Decode",
	"LZW":  "LZWDecode",
	"Fl":   "FlateDecode",
	"RL":   "RunLengthDecode",
	"CCF":  "CCITTFaxDecode",
	"DCT":  "DCTDecode",
}

// parseInlineImage reads "<key value>* ID <data> EI" after a BI keyword
// and returns the image as a stream with expanded keys.
func (p *Parser) parseInlineImage() (*core.Stream, error) {
	dict := make(core.Dict)
	for {
		p.skipWhitespace()
		if p.pos >= len(p.data) {
			return nil, fmt.Errorf("inline image without ID")
		}
		if p.data[p.pos] != '/' {
			start := p.pos
			for p.pos < len(p.data) && isRegular(p.data[p.pos]) {
				p.pos++
			}
			if kw := string(p.data[start:p.pos]); kw != "ID" {
				return nil, fmt.Errorf("unexpected %q in inline image dictionary", kw)
			}
			break
		}

		key, _ := p.parseName()
		value, err := p.parseOperand(1)
		if err != nil {
			return nil, fmt.Errorf("inline image /%s: %w", key, err)
		}
		name := string(key.(core.Name))
		if full, ok := inlineKeys[name]; ok {
			name = full
		}
		dict[name] = expandInlineValue(name, value)
	}

	// A single whitespace byte separates ID from the data.
	if p.pos < len(p.data) && isWhitespace(p.data[p.pos]) {
		p.pos++
	}
	start := p.pos

	if n, ok := dict.GetInt("Length"); ok && n >= 0 && start+int(n) <= len(p.data) {
		if end := start + int(n); endsWithEI(p.data, end) {
			p.pos = end
			p.skipEI()
			return &core.Stream{Dict: dict, Data: clone(p.data[start:end])}, nil
		}
	}

	for i := start; i < len(p.data); i++ {
		if isWhitespace(p.data[i]) && endsWithEI(p.data, i) {
			p.pos = i
			p.skipEI()
			return &core.Stream{Dict: dict, Data: clone(p.data[start:i])}, nil
		}
	}
	return nil, fmt.Errorf("inline image without EI")
}

// endsWithEI reports whether data[at:] is whitespace, "EI", then
// whitespace, a delimiter or the end.
func endsWithEI(data []byte, at int) bool {
	i := at
	for i < len(data) && isWhitespace(data[i]) {
		i++
	}
	if i == at && at != len(data) {
		// Data ends exactly at EI is allowed only after whitespace.
		return false
	}
	if i+2 > len(data) || data[i] != 'E' || data[i+1] != 'I' {
		return false
	}
	return i+2 == len(data) || !isRegular(data[i+2])
}

func (p *Parser) skipEI() {
	p.skipWhitespace()
	p.pos += 2
}

func expandInlineValue(key string, v core.Object) core.Object {
	switch key {
	case "ColorSpace", "Filter":
	default:
		return v
	}
	switch x := v.(type) {
	case core.Name:
		if full, ok := inlineNames[string(x)]; ok {
			return core.Name(full)
		}
	case core.Array:
		out := make(core.Array, len(x))
		for i, e := range x {
			out[i] = e
			if n, ok := e.(core.Name); ok {
				if full, ok := inlineNames[string(n)]; ok {
					out[i] = core.Name(full)
				}
			}
		}
		return out
	}
	return v
}

func clone(b []byte) []byte {
	return append([]byte(nil), b...)
}
