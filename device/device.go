package device

import (
	"strings"

	"github.com/tsawler/pdfengine/core"
	"github.com/tsawler/pdfengine/font"
	"github.com/tsawler/pdfengine/graphicsstate"
	"github.com/tsawler/pdfengine/model"
)

// Device receives the drawing calls produced by interpreting a content
// stream. Paths and text are given in user space together with the ctm
// that maps them to device space. Arguments are only valid for the
// duration of the call; implementations that keep them must copy.
//
// Every Clip* call is balanced by exactly one PopClip, and Begin* calls
// by their End* counterparts.
type Device interface {
	FillPath(path *graphicsstate.Path, evenOdd bool, ctm model.Matrix, paint Paint)
	StrokePath(path *graphicsstate.Path, stroke graphicsstate.StrokeState, ctm model.Matrix, paint Paint)
	ClipPath(path *graphicsstate.Path, evenOdd bool, ctm model.Matrix)
	ClipStrokePath(path *graphicsstate.Path, stroke graphicsstate.StrokeState, ctm model.Matrix)

	FillText(text *Text, ctm model.Matrix, paint Paint)
	StrokeText(text *Text, stroke graphicsstate.StrokeState, ctm model.Matrix, paint Paint)
	ClipText(text *Text, ctm model.Matrix)
	ClipStrokeText(text *Text, stroke graphicsstate.StrokeState, ctm model.Matrix)
	IgnoreText(text *Text, ctm model.Matrix)

	// Images occupy the unit square mapped by ctm.
	FillImage(img *Image, ctm model.Matrix, alpha float64)
	FillImageMask(img *Image, ctm model.Matrix, paint Paint)
	ClipImageMask(img *Image, ctm model.Matrix)

	PopClip()

	// Marks between BeginMask and EndMask draw a soft mask. EndMask
	// installs it like a clip; the matching PopClip removes it.
	BeginMask(area model.BBox, luminosity bool, cs *graphicsstate.ColorSpace, backdrop []float64)
	EndMask()
	BeginGroup(area model.BBox, cs *graphicsstate.ColorSpace, isolated, knockout bool, blendMode string, alpha float64)
	EndGroup()

	// BeginTile starts one cell of a tiling pattern. area is the region
	// to cover and view the pattern cell, both in pattern space.
	BeginTile(area, view model.BBox, xstep, ystep float64, ctm model.Matrix)
	EndTile()
}

// Paint is the color a mark is drawn with.
type Paint struct {
	Space      *graphicsstate.ColorSpace
	Components []float64

	// Pattern names the pattern resource when Space is a Pattern space.
	Pattern string

	Alpha float64
}

// Glyph is one shown character code.
type Glyph struct {
	Code    int
	Unicode string

	// Matrix maps glyph space, where the em square is one unit, into the
	// text space of the run.
	Matrix model.Matrix

	// Width is the horizontal advance in em units.
	Width float64
}

// TextSpan is a sequence of glyphs sharing a font and size.
type TextSpan struct {
	Font     *font.Font
	FontName string
	Size     float64
	Glyphs   []Glyph
}

// Text is a text run: the glyphs shown in one text object.
type Text struct {
	Spans []TextSpan
}

// Add appends a glyph, starting a new span when the font or size changes.
func (t *Text) Add(f *font.Font, name string, size float64, g Glyph) {
	if n := len(t.Spans); n > 0 {
		last := &t.Spans[n-1]
		if last.Font == f && last.FontName == name && last.Size == size {
			last.Glyphs = append(last.Glyphs, g)
			return
		}
	}
	t.Spans = append(t.Spans, TextSpan{Font: f, FontName: name, Size: size, Glyphs: []Glyph{g}})
}

// IsEmpty reports whether the run has no glyphs.
func (t *Text) IsEmpty() bool {
	for _, s := range t.Spans {
		if len(s.Glyphs) > 0 {
			return false
		}
	}
	return true
}

// String returns the Unicode text of the run.
func (t *Text) String() string {
	var b strings.Builder
	for _, s := range t.Spans {
		for _, g := range s.Glyphs {
			b.WriteString(g.Unicode)
		}
	}
	return b.String()
}

// Clone returns a deep copy of t. Fonts are shared.
func (t *Text) Clone() *Text {
	c := &Text{Spans: make([]TextSpan, len(t.Spans))}
	for i, s := range t.Spans {
		s.Glyphs = append([]Glyph(nil), s.Glyphs...)
		c.Spans[i] = s
	}
	return c
}

// Bounds returns the box covered by the run's glyphs after transforming
// by ctm, using the font ascent and descent for the glyph height.
func (t *Text) Bounds(ctm model.Matrix) (model.BBox, bool) {
	var box model.BBox
	found := false
	for _, s := range t.Spans {
		ascent, descent := 0.8, -0.2
		if s.Font != nil && s.Font.Descriptor.Ascent != 0 {
			ascent = s.Font.Descriptor.Ascent / 1000
			descent = s.Font.Descriptor.Descent / 1000
		}
		for _, g := range s.Glyphs {
			glyph := model.BBox{X: 0, Y: descent, Width: g.Width, Height: ascent - descent}
			b := g.Matrix.Multiply(ctm).TransformBBox(glyph)
			if !found {
				box, found = b, true
			} else {
				box = box.Union(b)
			}
		}
	}
	return box, found
}

// Image is an image XObject or inline image. Data is left encoded.
type Image struct {
	// Name is the XObject resource name, empty for inline images.
	Name   string
	Inline bool

	Width            int
	Height           int
	BitsPerComponent int
	ColorSpace       *graphicsstate.ColorSpace
	ImageMask        bool
	Decode           []float64
	Interpolate      bool

	Stream *core.Stream
}

// NullDevice ignores every call. Embed it to implement only some methods.
type NullDevice struct{}

var _ Device = NullDevice{}

func (NullDevice) FillPath(*graphicsstate.Path, bool, model.Matrix, Paint) {}
func (NullDevice) StrokePath(*graphicsstate.Path, graphicsstate.StrokeState, model.Matrix, Paint) {
}
func (NullDevice) ClipPath(*graphicsstate.Path, bool, model.Matrix) {}
func (NullDevice) ClipStrokePath(*graphicsstate.Path, graphicsstate.StrokeState, model.Matrix) {
}
func (NullDevice) FillText(*Text, model.Matrix, Paint)                                 {}
func (NullDevice) StrokeText(*Text, graphicsstate.StrokeState, model.Matrix, Paint)    {}
func (NullDevice) ClipText(*Text, model.Matrix)                                        {}
func (NullDevice) ClipStrokeText(*Text, graphicsstate.StrokeState, model.Matrix)       {}
func (NullDevice) IgnoreText(*Text, model.Matrix)                                      {}
func (NullDevice) FillImage(*Image, model.Matrix, float64)                             {}
func (NullDevice) FillImageMask(*Image, model.Matrix, Paint)                           {}
func (NullDevice) ClipImageMask(*Image, model.Matrix)                                  {}
func (NullDevice) PopClip()                                                            {}
func (NullDevice) BeginMask(model.BBox, bool, *graphicsstate.ColorSpace, []float64)    {}
func (NullDevice) EndMask()                                                            {}
func (NullDevice) BeginGroup(model.BBox, *graphicsstate.ColorSpace, bool, bool, string, float64) {
}
func (NullDevice) EndGroup()                                                  {}
func (NullDevice) BeginTile(model.BBox, model.BBox, float64, float64, model.Matrix) {}
func (NullDevice) EndTile()                                                   {}
