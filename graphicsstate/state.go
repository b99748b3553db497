package graphicsstate

import (
	"github.com/tsawler/pdfengine/core"
	"github.com/tsawler/pdfengine/font"
	"github.com/tsawler/pdfengine/model"
)

// LineCap is the shape at the open ends of stroked subpaths (J operator).
type LineCap int

const (
	ButtCap LineCap = iota
	RoundCap
	SquareCap
)

// LineJoin is the shape at the corners of stroked paths (j operator).
type LineJoin int

const (
	MiterJoin LineJoin = iota
	RoundJoin
	BevelJoin
)

// StrokeState holds the line parameters used when stroking.
type StrokeState struct {
	LineWidth  float64
	LineCap    LineCap
	LineJoin   LineJoin
	MiterLimit float64
	Dash       []float64
	DashPhase  float64
}

// Clone returns a copy that shares no memory with s.
func (s StrokeState) Clone() StrokeState {
	s.Dash = cloneFloats(s.Dash)
	return s
}

// TextState represents text-specific state
type TextState struct {
	CharSpacing float64
	WordSpacing float64

	// Horizontal scaling in percent (Tz), 100 by default.
	HorizontalScaling float64

	Leading    float64
	RenderMode int
	Rise       float64

	// Text matrices. They are only meaningful between BT and ET.
	TextMatrix     model.Matrix
	TextLineMatrix model.Matrix
}

// BeginText resets both text matrices (BT operator).
func (ts *TextState) BeginText() {
	ts.TextMatrix = model.Identity()
	ts.TextLineMatrix = model.Identity()
}

// SetTextMatrix sets the text matrix and the text line matrix (Tm operator).
func (ts *TextState) SetTextMatrix(m model.Matrix) {
	ts.TextMatrix = m
	ts.TextLineMatrix = m
}

// TranslateText starts a new line offset from the current one (Td operator).
func (ts *TextState) TranslateText(tx, ty float64) {
	ts.TextLineMatrix = model.Translate(tx, ty).Multiply(ts.TextLineMatrix)
	ts.TextMatrix = ts.TextLineMatrix
}

// TranslateTextSetLeading is Td that also sets the leading to -ty (TD operator).
func (ts *TextState) TranslateTextSetLeading(tx, ty float64) {
	ts.Leading = -ty
	ts.TranslateText(tx, ty)
}

// NextLine moves to the start of the next line (T* operator).
func (ts *TextState) NextLine() {
	ts.TranslateText(0, -ts.Leading)
}

// Advance moves the text matrix by (tx, ty) in text space after a glyph.
func (ts *TextState) Advance(tx, ty float64) {
	ts.TextMatrix = model.Translate(tx, ty).Multiply(ts.TextMatrix)
}

// Scale returns the horizontal scaling as a factor.
func (ts *TextState) Scale() float64 {
	return ts.HorizontalScaling / 100
}

// GraphicsState represents the PDF graphics state
type GraphicsState struct {
	// Current Transformation Matrix
	CTM model.Matrix

	// Clip is the intersection of the clipping paths set so far, in device
	// space. Nil means unclipped. ClipDepth counts the clips pushed to the
	// device while this state was current.
	Clip      *Path
	ClipDepth int

	FillSpace     *ColorSpace
	FillColor     []float64
	FillPattern   string
	StrokeSpace   *ColorSpace
	StrokeColor   []float64
	StrokePattern string

	Stroke StrokeState

	Font     *font.Font
	FontName string
	FontSize float64
	Text     TextState

	FillAlpha       float64
	StrokeAlpha     float64
	BlendMode       string
	SoftMask        core.Dict
	RenderingIntent string
	Flatness        float64
}

// NewGraphicsState creates a new graphics state with default values
func NewGraphicsState() *GraphicsState {
	return &GraphicsState{
		CTM:         model.Identity(),
		FillSpace:   DeviceGray,
		FillColor:   DeviceGray.InitialColor(),
		StrokeSpace: DeviceGray,
		StrokeColor: DeviceGray.InitialColor(),
		Stroke: StrokeState{
			LineWidth:  1,
			MiterLimit: 10,
		},
		Text: TextState{
			HorizontalScaling: 100,
			TextMatrix:        model.Identity(),
			TextLineMatrix:    model.Identity(),
		},
		FillAlpha:       1,
		StrokeAlpha:     1,
		BlendMode:       "Normal",
		RenderingIntent: "RelativeColorimetric",
	}
}

// Clone creates a deep copy of the graphics state. Color spaces and fonts
// are shared; they are never modified after construction.
func (gs *GraphicsState) Clone() GraphicsState {
	c := *gs
	c.FillColor = cloneFloats(gs.FillColor)
	c.StrokeColor = cloneFloats(gs.StrokeColor)
	c.Stroke = gs.Stroke.Clone()
	if gs.Clip != nil {
		c.Clip = gs.Clip.Clone()
	}
	if gs.SoftMask != nil {
		c.SoftMask = gs.SoftMask.Clone()
	}
	return c
}

// Transform concatenates m onto the CTM (cm operator).
func (gs *GraphicsState) Transform(m model.Matrix) {
	gs.CTM = m.Multiply(gs.CTM)
}

// SetFillColorSpace selects a fill color space and resets the fill color
// to its initial value (cs operator).
func (gs *GraphicsState) SetFillColorSpace(cs *ColorSpace) {
	gs.FillSpace = cs
	gs.FillColor = cs.InitialColor()
	gs.FillPattern = ""
}

// SetStrokeColorSpace is SetFillColorSpace for stroking (CS operator).
func (gs *GraphicsState) SetStrokeColorSpace(cs *ColorSpace) {
	gs.StrokeSpace = cs
	gs.StrokeColor = cs.InitialColor()
	gs.StrokePattern = ""
}

// SetFont sets the current font (Tf operator)
func (gs *GraphicsState) SetFont(name string, f *font.Font, size float64) {
	gs.FontName = name
	gs.Font = f
	gs.FontSize = size
}

// TextRenderingMatrix returns Trm = [Tfs*Th 0 0 Tfs 0 Trise] x Tm x CTM.
func (gs *GraphicsState) TextRenderingMatrix() model.Matrix {
	params := model.Matrix{gs.FontSize * gs.Text.Scale(), 0, 0, gs.FontSize, 0, gs.Text.Rise}
	return params.Multiply(gs.Text.TextMatrix).Multiply(gs.CTM)
}

// IntersectClip records p, given in user space, as an additional clip.
func (gs *GraphicsState) IntersectClip(p *Path) {
	dp := p.Transform(gs.CTM)
	if gs.Clip == nil {
		gs.Clip = dp
		return
	}
	// Only the bounds of a compound clip are tracked.
	a, okA := gs.Clip.Bounds()
	b, okB := dp.Bounds()
	if !okA || !okB || !a.Intersects(b) {
		gs.Clip = NewPath()
		return
	}
	r := a.Intersection(b)
	gs.Clip = NewPath()
	gs.Clip.Rectangle(r.X, r.Y, r.Width, r.Height)
}

func cloneFloats(f []float64) []float64 {
	if f == nil {
		return nil
	}
	return append(make([]float64, 0, len(f)), f...)
}
