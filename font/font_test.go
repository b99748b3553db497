package font

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/tsawler/pdfengine/core"
)

type objects map[int]core.Object

func (o objects) Resolve(obj core.Object) (core.Object, error) {
	ref, ok := obj.(core.IndirectRef)
	if !ok {
		return obj, nil
	}
	v, ok := o[ref.Number]
	if !ok {
		return nil, core.ErrNotFound
	}
	return v, nil
}

func (o objects) DecodeStream(s *core.Stream) ([]byte, error) {
	return s.Decode()
}

func ref(n int) core.IndirectRef { return core.IndirectRef{Number: n} }

func nums(v ...float64) core.Array {
	a := make(core.Array, len(v))
	for i, n := range v {
		a[i] = core.Real(n)
	}
	return a
}

func TestStandard(t *testing.T) {
	tests := []struct {
		name     string
		wantName string
		code     int
		width    float64
	}{
		{"Helvetica", "Helvetica", 'A', 667},
		{"Helvetica", "Helvetica", ' ', 278},
		{"Helvetica-Oblique", "Helvetica-Oblique", 'i', 222},
		{"ABCDEF+Helvetica-Bold", "Helvetica-Bold", 'A', 722},
		{"ArialMT", "Helvetica", 'W', 944},
		{"Arial,Bold", "Helvetica-Bold", 'a', 556},
		{"Times-Roman", "Times-Roman", 'm', 778},
		{"TimesNewRomanPS-BoldMT", "Times-Bold", 'W', 1000},
		{"Courier", "Courier", 'x', 600},
		{"CourierNew", "Courier", 200, 600},
		{"Helvetica", "Helvetica", 200, 556},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := Standard(tt.name)
			if f == nil {
				t.Fatalf("Standard(%q) = nil", tt.name)
			}
			if f.Name != tt.wantName {
				t.Errorf("Name = %q, want %q", f.Name, tt.wantName)
			}
			if got := f.Width(tt.code); got != tt.width {
				t.Errorf("Width(%d) = %v, want %v", tt.code, got, tt.width)
			}
		})
	}

	if f := Standard("Garamond"); f != nil {
		t.Errorf("Standard(Garamond) = %v, want nil", f)
	}
}

func TestLoadSimple(t *testing.T) {
	res := objects{
		1: core.Dict{
			"Type":         core.Name("FontDescriptor"),
			"FontName":     core.Name("ABCDEF+Custom"),
			"Flags":        core.Int(32),
			"FontBBox":     nums(-100, -200, 1000, 900),
			"Ascent":       core.Int(700),
			"Descent":      core.Int(-200),
			"MissingWidth": core.Int(250),
		},
		2: nums(500, 600),
	}
	f, err := Load(core.Dict{
		"Type":           core.Name("Font"),
		"Subtype":        core.Name("TrueType"),
		"BaseFont":       core.Name("ABCDEF+Custom"),
		"FirstChar":      core.Int(65),
		"Widths":         ref(2),
		"FontDescriptor": ref(1),
	}, res)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if f.Name != "Custom" {
		t.Errorf("Name = %q, want Custom", f.Name)
	}
	if f.IsComposite() {
		t.Error("IsComposite() = true for a TrueType font")
	}
	want := Descriptor{
		FontName:     "ABCDEF+Custom",
		Flags:        32,
		FontBBox:     [4]float64{-100, -200, 1000, 900},
		Ascent:       700,
		Descent:      -200,
		MissingWidth: 250,
	}
	if diff := cmp.Diff(want, f.Descriptor); diff != "" {
		t.Errorf("Descriptor mismatch (-want +got):\n%s", diff)
	}

	widths := map[int]float64{65: 500, 66: 600, 67: 250, 10: 250}
	for code, w := range widths {
		if got := f.Width(code); got != w {
			t.Errorf("Width(%d) = %v, want %v", code, got, w)
		}
	}
	if diff := cmp.Diff([]int{65, 32, 66}, f.Codes([]byte("A B"))); diff != "" {
		t.Errorf("Codes() mismatch (-want +got):\n%s", diff)
	}
	if !f.IsSpace(32) || f.IsSpace(65) {
		t.Error("IsSpace should be true only for code 32")
	}
}

func TestLoadStandardFallback(t *testing.T) {
	f, err := Load(core.Dict{
		"Type":      core.Name("Font"),
		"Subtype":   core.Name("Type1"),
		"BaseFont":  core.Name("Helvetica"),
		"FirstChar": core.Int(32),
		"Widths":    nums(300),
	}, objects{})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got := f.Width(32); got != 300 {
		t.Errorf("Width(32) = %v, want the /Widths value 300", got)
	}
	if got := f.Width('A'); got != 667 {
		t.Errorf("Width('A') = %v, want the standard width 667", got)
	}
	if f.Descriptor.Ascent != 718 {
		t.Errorf("Ascent = %v, want 718", f.Descriptor.Ascent)
	}
}

func TestLoadType3(t *testing.T) {
	f, err := Load(core.Dict{
		"Subtype":    core.Name("Type3"),
		"FontMatrix": nums(0.01, 0, 0, 0.01, 0, 0),
		"FirstChar":  core.Int(0),
		"Widths":     nums(50),
	}, objects{})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got := f.Width(0); got != 500 {
		t.Errorf("Width(0) = %v, want 500", got)
	}
}

func TestLoadType0Identity(t *testing.T) {
	res := objects{
		2: core.Dict{
			"Type":    core.Name("Font"),
			"Subtype": core.Name("CIDFontType2"),
			"DW":      core.Int(900),
			"W": core.Array{
				core.Int(1), nums(100, 200),
				core.Int(10), core.Int(20), core.Int(300),
			},
			"W2": core.Array{
				core.Int(5), nums(-900, 500, 880),
				core.Int(6), core.Int(8), core.Int(-800), core.Int(500), core.Int(880),
			},
			"CIDSystemInfo": core.Dict{
				"Registry":   core.String("Adobe"),
				"Ordering":   core.String("Identity"),
				"Supplement": core.Int(0),
			},
		},
	}
	font := func(enc string) core.Dict {
		return core.Dict{
			"Type":            core.Name("Font"),
			"Subtype":         core.Name("Type0"),
			"BaseFont":        core.Name("Some-CJK"),
			"Encoding":        core.Name(enc),
			"DescendantFonts": core.Array{ref(2)},
		}
	}

	f, err := Load(font("Identity-H"), res)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !f.IsComposite() || f.Vertical {
		t.Errorf("IsComposite() = %v, Vertical = %v", f.IsComposite(), f.Vertical)
	}
	codes := f.Codes([]byte("\x00\x01\x00\x0b\x00\x63\x00\x20"))
	if diff := cmp.Diff([]int{1, 11, 99, 32}, codes); diff != "" {
		t.Errorf("Codes() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{1, 5}, f.Codes([]byte("\x00\x01\x05"))); diff != "" {
		t.Errorf("Codes() of odd length mismatch (-want +got):\n%s", diff)
	}
	for code, w := range map[int]float64{1: 100, 2: 200, 3: 900, 11: 300, 20: 300, 99: 900} {
		if got := f.Width(code); got != w {
			t.Errorf("Width(%d) = %v, want %v", code, got, w)
		}
	}
	if f.IsSpace(32) {
		t.Error("IsSpace(32) = true for a two-byte code")
	}

	v, err := Load(font("Identity-V"), res)
	if err != nil {
		t.Fatalf("Load(Identity-V) error: %v", err)
	}
	if !v.Vertical {
		t.Error("Vertical = false for Identity-V")
	}
	for code, w1 := range map[int]float64{5: -900, 7: -800, 9: -1000} {
		if got := v.VerticalAdvance(code); got != w1 {
			t.Errorf("VerticalAdvance(%d) = %v, want %v", code, got, w1)
		}
	}
}

const mixedCMap = `%!PS-Adobe-3.0 Resource-CMap
/CIDInit /ProcSet findresource begin
12 dict begin
begincmap
/CIDSystemInfo << /Registry (Adobe) /Ordering (Japan1) /Supplement 2 >> def
/CMapName /Test-H def
2 begincodespacerange
<00> <7F>
<8140> <9FFC>
endcodespacerange
1 begincidrange
<20> <7E> 1
endcidrange
1 begincidchar
<8140> 633
endcidchar
endcmap
CMapName currentdict /CMap defineresource pop
end
end`

func TestLoadType0EmbeddedCMap(t *testing.T) {
	res := objects{
		2: core.Dict{
			"Subtype": core.Name("CIDFontType0"),
			"W":       core.Array{core.Int(34), nums(555), core.Int(633), nums(1000)},
		},
		3: &core.Stream{Dict: core.Dict{"Type": core.Name("CMap")}, Data: []byte(mixedCMap)},
	}
	f, err := Load(core.Dict{
		"Subtype":         core.Name("Type0"),
		"BaseFont":        core.Name("Mixed"),
		"Encoding":        ref(3),
		"DescendantFonts": core.Array{ref(2)},
	}, res)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if f.Encoding != "Test-H" {
		t.Errorf("Encoding = %q, want Test-H", f.Encoding)
	}

	codes := f.Codes([]byte("A \x81\x40"))
	if diff := cmp.Diff([]int{0x41, 0x20, 0x8140}, codes); diff != "" {
		t.Errorf("Codes() mismatch (-want +got):\n%s", diff)
	}
	if got := f.Width(0x41); got != 555 {
		t.Errorf("Width('A') = %v, want 555", got)
	}
	if got := f.Width(0x8140); got != 1000 {
		t.Errorf("Width(0x8140) = %v, want 1000", got)
	}
	if !f.IsSpace(32) {
		t.Error("IsSpace(32) = false for a one-byte space code")
	}
}

func TestUnicode(t *testing.T) {
	toUnicode := `1 begincodespacerange <00> <FF> endcodespacerange
1 beginbfchar
<01> <0048>
endbfchar
2 beginbfrange
<02> <04> <0061>
<05> <06> [<0058> <D83DDE00>]
endbfrange`
	res := objects{
		4: &core.Stream{Dict: core.Dict{}, Data: []byte(toUnicode)},
	}

	tests := []struct {
		name string
		dict core.Dict
		in   string
		want string
	}{
		{
			name: "ToUnicode",
			dict: core.Dict{"Subtype": core.Name("Type1"), "BaseFont": core.Name("X"), "ToUnicode": ref(4)},
			in:   "\x01\x02\x04\x05\x06",
			want: "HacX\U0001F600",
		},
		{
			name: "WinAnsi",
			dict: core.Dict{"Subtype": core.Name("Type1"), "BaseFont": core.Name("Helvetica"), "Encoding": core.Name("WinAnsiEncoding")},
			in:   "Euro \x80",
			want: "Euro €",
		},
		{
			name: "MacRoman",
			dict: core.Dict{"Subtype": core.Name("TrueType"), "BaseFont": core.Name("X"), "Encoding": core.Name("MacRomanEncoding")},
			in:   "\x8a",
			want: "ä",
		},
		{
			name: "Differences",
			dict: core.Dict{
				"Subtype":  core.Name("Type1"),
				"BaseFont": core.Name("X"),
				"Encoding": core.Dict{
					"BaseEncoding": core.Name("WinAnsiEncoding"),
					"Differences":  core.Array{core.Int(65), core.Name("uni263A"), core.Name("bullet")},
				},
			},
			in:   "ABC",
			want: "☺•C",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := Load(tt.dict, res)
			if err != nil {
				t.Fatalf("Load() error: %v", err)
			}
			if got := f.Text([]byte(tt.in)); got != tt.want {
				t.Errorf("Text() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		dict core.Dict
		want error
	}{
		{"not a font", core.Dict{"Type": core.Name("XObject"), "Subtype": core.Name("Image")}, ErrNotFont},
		{"unknown subtype", core.Dict{"Subtype": core.Name("OpenType")}, ErrNotFont},
		{"type0 without descendants", core.Dict{"Subtype": core.Name("Type0")}, core.ErrWrongType},
		{"widths not an array", core.Dict{"Subtype": core.Name("Type1"), "Widths": core.Int(3)}, core.ErrWrongType},
		{"missing descriptor", core.Dict{"Subtype": core.Name("Type1"), "FontDescriptor": ref(9)}, core.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.dict, objects{})
			if !errors.Is(err, tt.want) {
				t.Errorf("Load() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestParseCMapWithoutMappings(t *testing.T) {
	if _, err := ParseCMap([]byte("/CMapName /Empty def { junk } pop")); err == nil {
		t.Error("ParseCMap() succeeded without any mapping section")
	}
}
