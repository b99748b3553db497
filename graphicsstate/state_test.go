package graphicsstate

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/tsawler/pdfengine/core"
	"github.com/tsawler/pdfengine/font"
	"github.com/tsawler/pdfengine/model"
)

var stateOpts = cmp.Options{cmpopts.IgnoreUnexported(font.Font{})}

func TestNewGraphicsState(t *testing.T) {
	gs := NewGraphicsState()

	if !gs.CTM.IsIdentity() {
		t.Error("expected CTM to be identity matrix")
	}
	if gs.Stroke.LineWidth != 1 {
		t.Errorf("LineWidth = %v, want 1", gs.Stroke.LineWidth)
	}
	if gs.Stroke.MiterLimit != 10 {
		t.Errorf("MiterLimit = %v, want 10", gs.Stroke.MiterLimit)
	}
	if gs.FillSpace != DeviceGray || gs.StrokeSpace != DeviceGray {
		t.Errorf("color spaces = %v/%v, want DeviceGray", gs.FillSpace, gs.StrokeSpace)
	}
	if diff := cmp.Diff([]float64{0}, gs.FillColor); diff != "" {
		t.Errorf("FillColor mismatch (-want +got):\n%s", diff)
	}
	if gs.FillAlpha != 1 || gs.StrokeAlpha != 1 {
		t.Errorf("alpha = %v/%v, want 1/1", gs.FillAlpha, gs.StrokeAlpha)
	}
	if gs.BlendMode != "Normal" {
		t.Errorf("BlendMode = %q, want Normal", gs.BlendMode)
	}
	if gs.Text.HorizontalScaling != 100 {
		t.Errorf("HorizontalScaling = %v, want 100", gs.Text.HorizontalScaling)
	}
	if gs.Clip != nil {
		t.Error("expected no clip")
	}
}

func TestCloneIsDeep(t *testing.T) {
	gs := NewGraphicsState()
	gs.Stroke.Dash = []float64{3, 1}
	gs.Clip = NewPath()
	gs.Clip.Rectangle(0, 0, 10, 10)
	gs.SoftMask = core.Dict{"S": core.Name("Luminosity")}

	c := gs.Clone()
	c.FillColor[0] = 0.5
	c.Stroke.Dash[0] = 9
	c.Clip.Segments[0].Points[0].X = 7
	c.SoftMask["S"] = core.Name("Alpha")

	if gs.FillColor[0] != 0 {
		t.Error("FillColor shared with clone")
	}
	if gs.Stroke.Dash[0] != 3 {
		t.Error("Dash shared with clone")
	}
	if gs.Clip.Segments[0].Points[0].X != 0 {
		t.Error("Clip shared with clone")
	}
	if gs.SoftMask["S"] != core.Name("Luminosity") {
		t.Error("SoftMask shared with clone")
	}
}

func TestTransformConcatenatesBeforeCTM(t *testing.T) {
	gs := NewGraphicsState()
	gs.Transform(model.Translate(100, 0))
	gs.Transform(model.Scale(2, 2))

	// The later cm applies first: (1,1) scales to (2,2), then moves right.
	got := gs.CTM.Transform(model.Point{X: 1, Y: 1})
	if diff := cmp.Diff(model.Point{X: 102, Y: 2}, got); diff != "" {
		t.Errorf("transformed point mismatch (-want +got):\n%s", diff)
	}
}

func TestSetColorSpaceResetsColor(t *testing.T) {
	tests := []struct {
		cs   *ColorSpace
		want []float64
	}{
		{DeviceGray, []float64{0}},
		{DeviceRGB, []float64{0, 0, 0}},
		{DeviceCMYK, []float64{0, 0, 0, 1}},
		{&ColorSpace{Family: "Separation", N: 1, Base: DeviceCMYK}, []float64{1}},
		{&ColorSpace{Family: "DeviceN", N: 2, Base: DeviceCMYK}, []float64{1, 1}},
		{&ColorSpace{Family: "Indexed", N: 1, Base: DeviceRGB}, []float64{0}},
		{&ColorSpace{Family: "Lab", N: 3}, []float64{0, 0, 0}},
		{PatternCS, nil},
		{&ColorSpace{Family: "Pattern", N: 3, Base: DeviceRGB}, []float64{0, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.cs.String(), func(t *testing.T) {
			gs := NewGraphicsState()
			gs.FillPattern = "P0"
			gs.FillColor = []float64{0.3}
			gs.SetFillColorSpace(tt.cs)
			if diff := cmp.Diff(tt.want, gs.FillColor); diff != "" {
				t.Errorf("FillColor mismatch (-want +got):\n%s", diff)
			}
			if gs.FillPattern != "" {
				t.Errorf("FillPattern = %q, want cleared", gs.FillPattern)
			}

			gs.SetStrokeColorSpace(tt.cs)
			if diff := cmp.Diff(tt.want, gs.StrokeColor); diff != "" {
				t.Errorf("StrokeColor mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestTextState(t *testing.T) {
	gs := NewGraphicsState()
	gs.Text.SetTextMatrix(model.Matrix{1, 0, 0, 1, 72, 720})
	gs.Text.TranslateTextSetLeading(0, -14)
	if gs.Text.Leading != 14 {
		t.Errorf("Leading = %v, want 14", gs.Text.Leading)
	}
	gs.Text.Advance(30, 0)
	gs.Text.NextLine()

	want := model.Matrix{1, 0, 0, 1, 72, 692}
	if diff := cmp.Diff(want, gs.Text.TextMatrix); diff != "" {
		t.Errorf("TextMatrix mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want, gs.Text.TextLineMatrix); diff != "" {
		t.Errorf("TextLineMatrix mismatch (-want +got):\n%s", diff)
	}

	gs.Text.BeginText()
	if !gs.Text.TextMatrix.IsIdentity() || !gs.Text.TextLineMatrix.IsIdentity() {
		t.Error("BeginText did not reset the text matrices")
	}
}

func TestTextRenderingMatrix(t *testing.T) {
	gs := NewGraphicsState()
	gs.SetFont("F1", nil, 10)
	gs.Text.HorizontalScaling = 50
	gs.Text.Rise = 3
	gs.Text.SetTextMatrix(model.Translate(100, 200))
	gs.Transform(model.Scale(2, 2))

	trm := gs.TextRenderingMatrix()
	want := model.Matrix{10, 0, 0, 20, 200, 406}
	if diff := cmp.Diff(want, trm); diff != "" {
		t.Errorf("Trm mismatch (-want +got):\n%s", diff)
	}
}

func TestIntersectClip(t *testing.T) {
	gs := NewGraphicsState()
	gs.Transform(model.Translate(10, 10))

	a := NewPath()
	a.Rectangle(0, 0, 100, 100)
	gs.IntersectClip(a)

	b := NewPath()
	b.Rectangle(50, 50, 100, 100)
	gs.IntersectClip(b)

	got, ok := gs.Clip.Bounds()
	if !ok {
		t.Fatal("clip has no bounds")
	}
	if diff := cmp.Diff(model.BBox{X: 60, Y: 60, Width: 50, Height: 50}, got); diff != "" {
		t.Errorf("clip bounds mismatch (-want +got):\n%s", diff)
	}

	far := NewPath()
	far.Rectangle(1000, 1000, 1, 1)
	gs.IntersectClip(far)
	if !gs.Clip.IsEmpty() {
		t.Errorf("disjoint clip = %v, want empty path", gs.Clip.Segments)
	}
}

func TestStackSaveRestore(t *testing.T) {
	s := NewStack(nil)
	s.Current().Stroke.LineWidth = 2.5
	before := s.Current().Clone()

	s.Push()
	cur := s.Current()
	cur.Transform(model.Scale(3, 3))
	cur.Stroke.LineWidth = 7
	cur.Stroke.Dash = []float64{1, 2}
	cur.SetFillColorSpace(DeviceRGB)
	cur.FillColor[0] = 1
	cur.FillAlpha = 0.5
	cur.Text.Leading = 12
	cur.IntersectClip(NewPath())

	if _, ok := s.Pop(); !ok {
		t.Fatal("Pop() = false after Push")
	}
	if diff := cmp.Diff(before, *s.Current(), stateOpts); diff != "" {
		t.Errorf("state after q ... Q mismatch (-want +got):\n%s", diff)
	}
}

func TestStackPopAtBase(t *testing.T) {
	s := NewStack(nil)
	s.Current().Stroke.LineWidth = 4

	pushes, pops := 3, 0
	for i := 0; i < pushes; i++ {
		s.Push()
	}
	for i := 0; i < 10; i++ {
		if _, ok := s.Pop(); ok {
			pops++
		}
	}
	if pops != pushes {
		t.Errorf("successful pops = %d, want %d", pops, pushes)
	}
	if s.Depth() != 0 {
		t.Errorf("Depth() = %d, want 0", s.Depth())
	}
	if s.Current().Stroke.LineWidth != 4 {
		t.Errorf("base state lost: LineWidth = %v", s.Current().Stroke.LineWidth)
	}
}

func TestNewStackCopiesInitial(t *testing.T) {
	init := NewGraphicsState()
	init.FillColor = []float64{0.25}
	s := NewStack(init)
	s.Current().FillColor[0] = 1
	if init.FillColor[0] != 0.25 {
		t.Error("NewStack shares memory with its initial state")
	}
}

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

func TestLoadColorSpace(t *testing.T) {
	res := objects{
		1: &core.Stream{Dict: core.Dict{"N": core.Int(3), "Alternate": core.Name("DeviceRGB")}},
		2: &core.Stream{Dict: core.Dict{}, Data: []byte{255, 0, 0, 0, 255, 0}},
		3: core.Array{core.Name("ICCBased"), core.IndirectRef{Number: 1}},
		4: &core.Stream{Dict: core.Dict{"N": core.Int(2)}},
	}

	tests := []struct {
		name string
		obj  core.Object
		want *ColorSpace
	}{
		{"gray", core.Name("DeviceGray"), DeviceGray},
		{"abbreviated rgb", core.Name("RGB"), DeviceRGB},
		{"cmyk in array", core.Array{core.Name("DeviceCMYK")}, DeviceCMYK},
		{"cal rgb", core.Array{core.Name("CalRGB"), core.Dict{}}, &ColorSpace{Family: "CalRGB", N: 3}},
		{"lab", core.Array{core.Name("Lab"), core.Dict{}}, &ColorSpace{Family: "Lab", N: 3}},
		{"icc", core.IndirectRef{Number: 3}, &ColorSpace{Family: "ICCBased", N: 3, Base: DeviceRGB}},
		{
			name: "indexed string",
			obj:  core.Array{core.Name("Indexed"), core.Name("DeviceRGB"), core.Int(1), core.String("\xff\x00\x00\x00\x00\xff")},
			want: &ColorSpace{Family: "Indexed", N: 1, Base: DeviceRGB, HiVal: 1, Lookup: []byte{255, 0, 0, 0, 0, 255}},
		},
		{
			name: "indexed stream",
			obj:  core.Array{core.Name("I"), core.Name("RGB"), core.Int(1), core.IndirectRef{Number: 2}},
			want: &ColorSpace{Family: "Indexed", N: 1, Base: DeviceRGB, HiVal: 1, Lookup: []byte{255, 0, 0, 0, 255, 0}},
		},
		{
			name: "separation",
			obj:  core.Array{core.Name("Separation"), core.Name("Spot"), core.Name("DeviceCMYK"), core.Dict{}},
			want: &ColorSpace{Family: "Separation", N: 1, Base: DeviceCMYK, Colorants: []string{"Spot"}},
		},
		{
			name: "devicen",
			obj:  core.Array{core.Name("DeviceN"), core.Array{core.Name("Cyan"), core.Name("Spot")}, core.Name("DeviceCMYK"), core.Dict{}},
			want: &ColorSpace{Family: "DeviceN", N: 2, Base: DeviceCMYK, Colorants: []string{"Cyan", "Spot"}},
		},
		{"uncolored pattern", core.Name("Pattern"), PatternCS},
		{
			name: "colored pattern base",
			obj:  core.Array{core.Name("Pattern"), core.Name("DeviceGray")},
			want: &ColorSpace{Family: "Pattern", N: 1, Base: DeviceGray},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LoadColorSpace(tt.obj, res)
			if err != nil {
				t.Fatalf("LoadColorSpace() error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("LoadColorSpace() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLoadColorSpaceErrors(t *testing.T) {
	res := objects{
		4: &core.Stream{Dict: core.Dict{"N": core.Int(2)}},
		5: core.Array{core.Name("Pattern"), core.IndirectRef{Number: 5}},
	}
	tests := []struct {
		name string
		obj  core.Object
		want error
	}{
		{"unknown name", core.Name("Fancy"), ErrColorSpace},
		{"number", core.Int(3), ErrColorSpace},
		{"empty array", core.Array{}, ErrColorSpace},
		{"icc bad N", core.Array{core.Name("ICCBased"), core.IndirectRef{Number: 4}}, ErrColorSpace},
		{"indexed hival", core.Array{core.Name("Indexed"), core.Name("DeviceRGB"), core.Int(300), core.String("")}, ErrColorSpace},
		{"indexed lookup", core.Array{core.Name("Indexed"), core.Name("DeviceRGB"), core.Int(0), core.Int(1)}, ErrColorSpace},
		{"missing ref", core.IndirectRef{Number: 99}, core.ErrNotFound},
		{"self reference", core.IndirectRef{Number: 5}, ErrColorSpace},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadColorSpace(tt.obj, res)
			if !errors.Is(err, tt.want) {
				t.Errorf("LoadColorSpace() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestStrokeStateClone(t *testing.T) {
	s := StrokeState{LineWidth: 2, Dash: []float64{4, 2}, DashPhase: 1}
	c := s.Clone()
	c.Dash[1] = math.Pi
	if s.Dash[1] != 2 {
		t.Error("Clone shares the dash array")
	}
}
