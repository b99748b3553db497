package font

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/charmap"

	"github.com/tsawler/pdfengine/core"
)

// ErrNotFont is returned by Load for dictionaries that are not fonts.
var ErrNotFont = errors.New("not a font dictionary")

// Resolver resolves indirect objects and decodes streams.
// *reader.Reader implements it.
type Resolver interface {
	Resolve(obj core.Object) (core.Object, error)
	DecodeStream(s *core.Stream) ([]byte, error)
}

// Descriptor holds the font descriptor entries used for metrics.
type Descriptor struct {
	FontName     string
	Flags        int
	FontBBox     [4]float64
	ItalicAngle  float64
	Ascent       float64
	Descent      float64
	CapHeight    float64
	MissingWidth float64
}

// Font holds what the interpreter needs to advance glyphs: how a string
// splits into character codes and how wide each code is.
type Font struct {
	// Name is the BaseFont without a subset prefix.
	Name     string
	Subtype  string
	Encoding string

	// Vertical is set for composite fonts in vertical writing mode.
	Vertical bool

	Descriptor Descriptor

	composite    bool
	firstChar    int
	widths       []float64
	missingWidth float64
	std          *standardMetrics
	scale        float64 // Type3 FontMatrix
	differences  map[int]string
	cid          *cidMetrics
	encoding     *CMap
	toUnicode    *CMap
	spaceIs1Byte bool
}

// Load builds a font from a font dictionary. Widths come from /Widths
// (simple fonts) or the descendant CIDFont's /W and /DW (Type0), with the
// standard 14 metrics as a fallback for simple fonts.
func Load(dict core.Dict, res Resolver) (*Font, error) {
	subtype, _ := dict.GetName("Subtype")
	if t, ok := dict.GetName("Type"); ok && t != "Font" {
		return nil, fmt.Errorf("/Type /%s: %w", t, ErrNotFont)
	}

	f := &Font{
		Subtype: string(subtype),
		scale:   1,
	}
	if base, ok := dict.GetName("BaseFont"); ok {
		f.Name = stripSubset(string(base))
	}

	var err error
	switch subtype {
	case "Type0":
		err = f.loadComposite(dict, res)
	case "Type1", "MMType1", "TrueType", "Type3":
		err = f.loadSimple(dict, res)
	default:
		return nil, fmt.Errorf("font subtype /%s: %w", subtype, ErrNotFont)
	}
	if err != nil {
		return nil, fmt.Errorf("font %s: %w", f.Name, err)
	}

	if obj := dict.Get("ToUnicode"); obj != nil {
		// A broken ToUnicode only costs text extraction, not metrics.
		if cm, err := loadCMapStream(obj, res); err == nil {
			f.toUnicode = cm
		}
	}
	return f, nil
}

// Standard returns one of the standard 14 fonts, or nil when name is not
// a standard font or a common alias of one.
func Standard(name string) *Font {
	canonical, ok := standardName(stripSubset(name))
	if !ok {
		return nil
	}
	std := standardFonts[canonical]
	return &Font{
		Name:         canonical,
		Subtype:      "Type1",
		Encoding:     "WinAnsiEncoding",
		Descriptor:   Descriptor{FontName: canonical, Ascent: std.ascent, Descent: std.descent},
		std:          std,
		missingWidth: std.defaultWidth,
		scale:        1,
	}
}

func (f *Font) loadSimple(dict core.Dict, res Resolver) error {
	if fc, err := resolveNumber(dict.Get("FirstChar"), res); err == nil {
		f.firstChar = int(fc)
	}
	if obj := dict.Get("Widths"); obj != nil {
		arr, err := resolveArray(obj, res)
		if err != nil {
			return fmt.Errorf("widths: %w", err)
		}
		f.widths = make([]float64, len(arr))
		for i, w := range arr {
			f.widths[i], _ = resolveNumber(w, res)
		}
	}

	if canonical, ok := standardName(f.Name); ok {
		f.std = standardFonts[canonical]
		f.missingWidth = f.std.defaultWidth
		f.Descriptor.Ascent = f.std.ascent
		f.Descriptor.Descent = f.std.descent
	}
	if err := f.loadDescriptor(dict.Get("FontDescriptor"), res); err != nil {
		return err
	}

	if f.Subtype == "Type3" {
		if m, err := resolveArray(dict.Get("FontMatrix"), res); err == nil && len(m) == 6 {
			if a, ok := core.Number(m[0]); ok {
				// Widths are in glyph space; report them in thousandths of
				// text space like every other font.
				f.scale = a * 1000
			}
		}
	}

	enc, err := res.Resolve(dict.Get("Encoding"))
	if err != nil {
		return fmt.Errorf("encoding: %w", err)
	}
	switch v := enc.(type) {
	case core.Name:
		f.Encoding = string(v)
	case core.Dict:
		if base, ok := v.GetName("BaseEncoding"); ok {
			f.Encoding = string(base)
		}
		if diffs, err := resolveArray(v.Get("Differences"), res); err == nil {
			f.differences = parseDifferences(diffs)
		}
	}
	return nil
}

func (f *Font) loadDescriptor(obj core.Object, res Resolver) error {
	if obj == nil {
		return nil
	}
	obj, err := res.Resolve(obj)
	if err != nil {
		return fmt.Errorf("font descriptor: %w", err)
	}
	fd, ok := obj.(core.Dict)
	if !ok {
		return nil
	}

	d := &f.Descriptor
	if name, ok := fd.GetName("FontName"); ok {
		d.FontName = string(name)
	}
	if flags, ok := fd.GetInt("Flags"); ok {
		d.Flags = int(flags)
	}
	if bbox, err := resolveArray(fd.Get("FontBBox"), res); err == nil && len(bbox) == 4 {
		for i := range d.FontBBox {
			d.FontBBox[i], _ = core.Number(bbox[i])
		}
	}
	num := func(key string, dst *float64) {
		if v, err := resolveNumber(fd.Get(key), res); err == nil {
			*dst = v
		}
	}
	num("ItalicAngle", &d.ItalicAngle)
	num("Ascent", &d.Ascent)
	num("Descent", &d.Descent)
	num("CapHeight", &d.CapHeight)
	num("MissingWidth", &d.MissingWidth)
	if d.MissingWidth != 0 {
		f.missingWidth = d.MissingWidth
	}
	return nil
}

// Codes splits a shown string into character codes.
func (f *Font) Codes(s []byte) []int {
	if !f.composite {
		codes := make([]int, len(s))
		for i, b := range s {
			codes[i] = int(b)
		}
		return codes
	}

	var codes []int
	for len(s) > 0 {
		code, n := f.encoding.NextCode(s)
		codes = append(codes, int(code))
		s = s[n:]
	}
	return codes
}

// Width returns the horizontal advance of code in thousandths of text
// space units.
func (f *Font) Width(code int) float64 {
	if f.composite {
		return f.cid.width(f.encoding.CID(uint32(code)))
	}
	if i := code - f.firstChar; i >= 0 && i < len(f.widths) {
		return f.widths[i] * f.scale
	}
	if f.std != nil && f.Descriptor.MissingWidth == 0 {
		return f.std.width(code)
	}
	return f.missingWidth * f.scale
}

// VerticalAdvance returns the vertical displacement w1 of code in
// thousandths of text space units. It is only meaningful when Vertical
// is set and is negative for downward writing.
func (f *Font) VerticalAdvance(code int) float64 {
	if f.cid == nil {
		return -1000
	}
	_, w1 := f.cid.vertical(f.encoding.CID(uint32(code)))
	return w1
}

// IsSpace reports whether word spacing applies after code: only the
// single-byte code 32 qualifies.
func (f *Font) IsSpace(code int) bool {
	if f.composite {
		return code == 32 && f.spaceIs1Byte
	}
	return code == 32
}

// IsComposite reports whether the font is a Type0 font.
func (f *Font) IsComposite() bool {
	return f.composite
}

// Unicode returns the text for a character code, or "" when unknown.
func (f *Font) Unicode(code int) string {
	if f.toUnicode != nil {
		if s, ok := f.toUnicode.Unicode(uint32(code)); ok {
			return s
		}
	}
	if f.composite || code < 0 || code > 255 {
		return ""
	}
	if name, ok := f.differences[code]; ok {
		if r, ok := glyphRune(name); ok {
			return string(r)
		}
	}
	switch f.Encoding {
	case "MacRomanEncoding":
		return string(charmap.Macintosh.DecodeByte(byte(code)))
	case "", "WinAnsiEncoding", "StandardEncoding", "PDFDocEncoding":
		if f.Name == "Symbol" || f.Name == "ZapfDingbats" {
			return ""
		}
		return string(charmap.Windows1252.DecodeByte(byte(code)))
	}
	return ""
}

// Text decodes a shown string to Unicode.
func (f *Font) Text(s []byte) string {
	var b strings.Builder
	for _, c := range f.Codes(s) {
		b.WriteString(f.Unicode(c))
	}
	return b.String()
}

func (f *Font) String() string {
	return fmt.Sprintf("%s (%s)", f.Name, f.Subtype)
}

// stripSubset removes a "ABCDEF+" subset tag.
func stripSubset(name string) string {
	if len(name) > 7 && name[6] == '+' {
		for _, c := range name[:6] {
			if c < 'A' || c > 'Z' {
				return name
			}
		}
		return name[7:]
	}
	return name
}

func resolveNumber(obj core.Object, res Resolver) (float64, error) {
	obj, err := res.Resolve(obj)
	if err != nil {
		return 0, err
	}
	n, ok := core.Number(obj)
	if !ok {
		return 0, core.ErrWrongType
	}
	return n, nil
}

func resolveArray(obj core.Object, res Resolver) (core.Array, error) {
	obj, err := res.Resolve(obj)
	if err != nil {
		return nil, err
	}
	arr, ok := obj.(core.Array)
	if !ok {
		return nil, core.ErrWrongType
	}
	return arr, nil
}

func parseDifferences(diffs core.Array) map[int]string {
	m := make(map[int]string)
	code := 0
	for _, d := range diffs {
		switch v := d.(type) {
		case core.Int:
			code = int(v)
		case core.Name:
			m[code] = string(v)
			code++
		}
	}
	return m
}

// glyphRune maps the glyph names that carry their own code point.
func glyphRune(name string) (rune, bool) {
	if r, ok := glyphNames[name]; ok {
		return r, true
	}
	if len(name) == 1 {
		return rune(name[0]), true
	}
	if len(name) == 7 && strings.HasPrefix(name, "uni") {
		if v, err := strconv.ParseUint(name[3:], 16, 32); err == nil {
			return rune(v), true
		}
	}
	return 0, false
}

var glyphNames = map[string]rune{
	"space": ' ', "exclam": '!', "quotedbl": '"', "numbersign": '#',
	"dollar": '$', "percent": '%', "ampersand": '&', "quotesingle": '\'',
	"parenleft": '(', "parenright": ')', "asterisk": '*', "plus": '+',
	"comma": ',', "hyphen": '-', "period": '.', "slash": '/',
	"zero": '0', "one": '1', "two": '2', "three": '3', "four": '4',
	"five": '5', "six": '6', "seven": '7', "eight": '8', "nine": '9',
	"colon": ':', "semicolon": ';', "less": '<', "equal": '=',
	"greater": '>', "question": '?', "at": '@', "bracketleft": '[',
	"backslash": '\\', "bracketright": ']', "underscore": '_',
	"quoteleft": '‘', "quoteright": '’', "quotedblleft": '“',
	"quotedblright": '”', "endash": '–', "emdash": '—', "bullet": '•',
	"fi": 'ﬁ', "fl": 'ﬂ',
}
