package font

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"golang.org/x/text/encoding/unicode"

	"github.com/tsawler/pdfengine/contentstream"
	"github.com/tsawler/pdfengine/core"
)

// CMap maps byte sequences to character codes, CIDs and Unicode text.
// Encoding CMaps of Type0 fonts use the codespace and CID mappings;
// ToUnicode CMaps use the bf mappings.
type CMap struct {
	Name    string
	UseCMap string

	codespace []codespaceRange
	cidChars  map[uint32]int
	cidRanges []cidRange
	uniChars  map[uint32]string
	uniRanges []uniRange

	// defaultLen is the code length used when no codespace matches.
	defaultLen int
	identity   bool
}

type codespaceRange struct {
	lo, hi []byte
}

type cidRange struct {
	lo, hi uint32
	cid    int
}

type uniRange struct {
	lo, hi uint32
	dst    []byte   // incremented per code
	dsts   []string // explicit array form
}

// IdentityCMap returns the Identity-H/Identity-V encoding: two-byte codes
// equal to their CIDs.
func IdentityCMap(name string) *CMap {
	return &CMap{
		Name:       name,
		codespace:  []codespaceRange{{lo: []byte{0, 0}, hi: []byte{0xff, 0xff}}},
		defaultLen: 2,
		identity:   true,
	}
}

// ParseCMap reads the codespace, cid and bf sections of a CMap program.
// Unparseable tokens are skipped.
func ParseCMap(data []byte) (*CMap, error) {
	cm := &CMap{
		cidChars:   make(map[uint32]int),
		uniChars:   make(map[uint32]string),
		defaultLen: 1,
	}

	p := contentstream.NewParser(data)
	found := false
	for {
		op, err := p.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			var se *core.SyntaxError
			if errors.As(err, &se) {
				continue
			}
			return nil, err
		}

		args := op.Operands
		switch op.Operator {
		case "def":
			if len(args) == 2 && args[0] == core.Name("CMapName") {
				if n, ok := args[1].(core.Name); ok {
					cm.Name = string(n)
				}
			}
		case "usecmap":
			if len(args) == 1 {
				if n, ok := args[0].(core.Name); ok {
					cm.UseCMap = string(n)
				}
			}
		case "endcodespacerange":
			found = true
			for i := 0; i+1 < len(args); i += 2 {
				lo, ok1 := args[i].(core.String)
				hi, ok2 := args[i+1].(core.String)
				if ok1 && ok2 && len(lo) == len(hi) && len(lo) > 0 && len(lo) <= 4 {
					cm.codespace = append(cm.codespace, codespaceRange{lo: []byte(lo), hi: []byte(hi)})
				}
			}
		case "endcidchar":
			found = true
			for i := 0; i+1 < len(args); i += 2 {
				src, ok1 := args[i].(core.String)
				cid, ok2 := args[i+1].(core.Int)
				if ok1 && ok2 {
					cm.cidChars[codeValue([]byte(src))] = int(cid)
				}
			}
		case "endcidrange":
			found = true
			for i := 0; i+2 < len(args); i += 3 {
				lo, ok1 := args[i].(core.String)
				hi, ok2 := args[i+1].(core.String)
				cid, ok3 := args[i+2].(core.Int)
				if ok1 && ok2 && ok3 {
					cm.cidRanges = append(cm.cidRanges, cidRange{lo: codeValue([]byte(lo)), hi: codeValue([]byte(hi)), cid: int(cid)})
				}
			}
		case "endbfchar":
			found = true
			for i := 0; i+1 < len(args); i += 2 {
				src, ok := args[i].(core.String)
				if !ok {
					continue
				}
				switch dst := args[i+1].(type) {
				case core.String:
					cm.uniChars[codeValue([]byte(src))] = utf16Text([]byte(dst))
				case core.Name:
					if r, ok := glyphRune(string(dst)); ok {
						cm.uniChars[codeValue([]byte(src))] = string(r)
					}
				}
			}
		case "endbfrange":
			found = true
			for i := 0; i+2 < len(args); i += 3 {
				lo, ok1 := args[i].(core.String)
				hi, ok2 := args[i+1].(core.String)
				if !ok1 || !ok2 {
					continue
				}
				r := uniRange{lo: codeValue([]byte(lo)), hi: codeValue([]byte(hi))}
				switch dst := args[i+2].(type) {
				case core.String:
					r.dst = []byte(dst)
				case core.Array:
					for _, d := range dst {
						s, _ := d.(core.String)
						r.dsts = append(r.dsts, utf16Text([]byte(s)))
					}
				default:
					continue
				}
				if r.hi >= r.lo {
					cm.uniRanges = append(cm.uniRanges, r)
				}
			}
		}
	}
	if !found {
		return nil, fmt.Errorf("no CMap mappings found")
	}
	return cm, nil
}

// loadCMapStream parses an embedded CMap, or returns the identity CMap
// for the Identity-H and Identity-V names.
func loadCMapStream(obj core.Object, res Resolver) (*CMap, error) {
	obj, err := res.Resolve(obj)
	if err != nil {
		return nil, err
	}
	switch v := obj.(type) {
	case core.Name:
		if v == "Identity-H" || v == "Identity-V" || v == "Identity" {
			return IdentityCMap(string(v)), nil
		}
		return nil, fmt.Errorf("predefined CMap /%s is not built in", v)
	case *core.Stream:
		data, err := res.DecodeStream(v)
		if err != nil {
			return nil, fmt.Errorf("cmap stream: %w", err)
		}
		cm, err := ParseCMap(data)
		if err != nil {
			return nil, err
		}
		if n, ok := v.Dict.GetName("CMapName"); ok && cm.Name == "" {
			cm.Name = string(n)
		}
		return cm, nil
	}
	return nil, fmt.Errorf("cmap is %s: %w", typeName(obj), core.ErrWrongType)
}

// NextCode reads one character code from the start of s and returns it
// with its length in bytes. s must not be empty.
func (cm *CMap) NextCode(s []byte) (uint32, int) {
	for n := 1; n <= 4 && n <= len(s); n++ {
		for _, r := range cm.codespace {
			if len(r.lo) == n && inRange(s[:n], r) {
				return codeValue(s[:n]), n
			}
		}
	}
	n := cm.defaultLen
	if n > len(s) {
		n = len(s)
	}
	return codeValue(s[:n]), n
}

// HasSingleByte reports whether code is a one-byte code in the codespace.
func (cm *CMap) HasSingleByte(code byte) bool {
	for _, r := range cm.codespace {
		if len(r.lo) == 1 && r.lo[0] <= code && code <= r.hi[0] {
			return true
		}
	}
	return false
}

// CID maps a character code to a CID. Codes without a mapping map to
// themselves.
func (cm *CMap) CID(code uint32) int {
	if cm.identity {
		return int(code)
	}
	if cid, ok := cm.cidChars[code]; ok {
		return cid
	}
	for _, r := range cm.cidRanges {
		if r.lo <= code && code <= r.hi {
			return r.cid + int(code-r.lo)
		}
	}
	return int(code)
}

// Unicode returns the text mapped to code.
func (cm *CMap) Unicode(code uint32) (string, bool) {
	if s, ok := cm.uniChars[code]; ok {
		return s, true
	}
	for _, r := range cm.uniRanges {
		if code < r.lo || code > r.hi {
			continue
		}
		off := code - r.lo
		if r.dsts != nil {
			if int(off) < len(r.dsts) {
				return r.dsts[off], true
			}
			return "", false
		}
		dst := bytes.Clone(r.dst)
		if len(dst) == 0 {
			return "", false
		}
		// The offset is added to the last byte, carrying into the one before.
		v := uint32(dst[len(dst)-1]) + off
		dst[len(dst)-1] = byte(v)
		if len(dst) >= 2 {
			dst[len(dst)-2] += byte(v >> 8)
		}
		return utf16Text(dst), true
	}
	return "", false
}

func inRange(b []byte, r codespaceRange) bool {
	for i := range b {
		if b[i] < r.lo[i] || b[i] > r.hi[i] {
			return false
		}
	}
	return true
}

func codeValue(b []byte) uint32 {
	var v uint32
	for _, c := range b {
		v = v<<8 | uint32(c)
	}
	return v
}

var utf16be = unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)

// utf16Text decodes a bf destination. A single byte is taken as a code point.
func utf16Text(b []byte) string {
	if len(b) == 1 {
		return string(rune(b[0]))
	}
	out, err := utf16be.NewDecoder().Bytes(b)
	if err != nil {
		return ""
	}
	return string(out)
}

func typeName(obj core.Object) string {
	if obj == nil {
		return "null"
	}
	return obj.Type().String()
}
