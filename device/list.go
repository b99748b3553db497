package device

import (
	"github.com/tsawler/pdfengine/graphicsstate"
	"github.com/tsawler/pdfengine/model"
)

// Kind identifies a recorded device call.
type Kind int

const (
	KindFillPath Kind = iota
	KindStrokePath
	KindClipPath
	KindClipStrokePath
	KindFillText
	KindStrokeText
	KindClipText
	KindClipStrokeText
	KindIgnoreText
	KindFillImage
	KindFillImageMask
	KindClipImageMask
	KindPopClip
	KindBeginMask
	KindEndMask
	KindBeginGroup
	KindEndGroup
	KindBeginTile
	KindEndTile
)

var kindNames = [...]string{
	KindFillPath:       "FillPath",
	KindStrokePath:     "StrokePath",
	KindClipPath:       "ClipPath",
	KindClipStrokePath: "ClipStrokePath",
	KindFillText:       "FillText",
	KindStrokeText:     "StrokeText",
	KindClipText:       "ClipText",
	KindClipStrokeText: "ClipStrokeText",
	KindIgnoreText:     "IgnoreText",
	KindFillImage:      "FillImage",
	KindFillImageMask:  "FillImageMask",
	KindClipImageMask:  "ClipImageMask",
	KindPopClip:        "PopClip",
	KindBeginMask:      "BeginMask",
	KindEndMask:        "EndMask",
	KindBeginGroup:     "BeginGroup",
	KindEndGroup:       "EndGroup",
	KindBeginTile:      "BeginTile",
	KindEndTile:        "EndTile",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Unknown"
}

// Command is one recorded call. Only the fields used by its Kind are set.
type Command struct {
	Kind Kind
	CTM  model.Matrix

	Path    *graphicsstate.Path
	EvenOdd bool
	Stroke  graphicsstate.StrokeState
	Paint   Paint
	Text    *Text
	Image   *Image
	Alpha   float64

	Area       model.BBox
	View       model.BBox
	XStep      float64
	YStep      float64
	Luminosity bool
	ColorSpace *graphicsstate.ColorSpace
	Backdrop   []float64
	Isolated   bool
	Knockout   bool
	BlendMode  string
}

// ListDevice records calls so they can be inspected or replayed on
// another device. Paths, text and paint components are copied.
type ListDevice struct {
	cmds []Command
}

var _ Device = (*ListDevice)(nil)

// Commands returns the recorded calls in order.
func (d *ListDevice) Commands() []Command {
	return d.cmds
}

// Kinds returns the kind of each recorded call.
func (d *ListDevice) Kinds() []Kind {
	kinds := make([]Kind, len(d.cmds))
	for i, c := range d.cmds {
		kinds[i] = c.Kind
	}
	return kinds
}

// Replay issues the recorded calls on dev.
func (d *ListDevice) Replay(dev Device) {
	for _, c := range d.cmds {
		switch c.Kind {
		case KindFillPath:
			dev.FillPath(c.Path, c.EvenOdd, c.CTM, c.Paint)
		case KindStrokePath:
			dev.StrokePath(c.Path, c.Stroke, c.CTM, c.Paint)
		case KindClipPath:
			dev.ClipPath(c.Path, c.EvenOdd, c.CTM)
		case KindClipStrokePath:
			dev.ClipStrokePath(c.Path, c.Stroke, c.CTM)
		case KindFillText:
			dev.FillText(c.Text, c.CTM, c.Paint)
		case KindStrokeText:
			dev.StrokeText(c.Text, c.Stroke, c.CTM, c.Paint)
		case KindClipText:
			dev.ClipText(c.Text, c.CTM)
		case KindClipStrokeText:
			dev.ClipStrokeText(c.Text, c.Stroke, c.CTM)
		case KindIgnoreText:
			dev.IgnoreText(c.Text, c.CTM)
		case KindFillImage:
			dev.FillImage(c.Image, c.CTM, c.Alpha)
		case KindFillImageMask:
			dev.FillImageMask(c.Image, c.CTM, c.Paint)
		case KindClipImageMask:
			dev.ClipImageMask(c.Image, c.CTM)
		case KindPopClip:
			dev.PopClip()
		case KindBeginMask:
			dev.BeginMask(c.Area, c.Luminosity, c.ColorSpace, c.Backdrop)
		case KindEndMask:
			dev.EndMask()
		case KindBeginGroup:
			dev.BeginGroup(c.Area, c.ColorSpace, c.Isolated, c.Knockout, c.BlendMode, c.Alpha)
		case KindEndGroup:
			dev.EndGroup()
		case KindBeginTile:
			dev.BeginTile(c.Area, c.View, c.XStep, c.YStep, c.CTM)
		case KindEndTile:
			dev.EndTile()
		}
	}
}

func (d *ListDevice) record(c Command) {
	d.cmds = append(d.cmds, c)
}

func copyPaint(p Paint) Paint {
	p.Components = append([]float64(nil), p.Components...)
	return p
}

func (d *ListDevice) FillPath(p *graphicsstate.Path, evenOdd bool, ctm model.Matrix, paint Paint) {
	d.record(Command{Kind: KindFillPath, Path: p.Clone(), EvenOdd: evenOdd, CTM: ctm, Paint: copyPaint(paint)})
}

func (d *ListDevice) StrokePath(p *graphicsstate.Path, stroke graphicsstate.StrokeState, ctm model.Matrix, paint Paint) {
	d.record(Command{Kind: KindStrokePath, Path: p.Clone(), Stroke: stroke.Clone(), CTM: ctm, Paint: copyPaint(paint)})
}

func (d *ListDevice) ClipPath(p *graphicsstate.Path, evenOdd bool, ctm model.Matrix) {
	d.record(Command{Kind: KindClipPath, Path: p.Clone(), EvenOdd: evenOdd, CTM: ctm})
}

func (d *ListDevice) ClipStrokePath(p *graphicsstate.Path, stroke graphicsstate.StrokeState, ctm model.Matrix) {
	d.record(Command{Kind: KindClipStrokePath, Path: p.Clone(), Stroke: stroke.Clone(), CTM: ctm})
}

func (d *ListDevice) FillText(t *Text, ctm model.Matrix, paint Paint) {
	d.record(Command{Kind: KindFillText, Text: t.Clone(), CTM: ctm, Paint: copyPaint(paint)})
}

func (d *ListDevice) StrokeText(t *Text, stroke graphicsstate.StrokeState, ctm model.Matrix, paint Paint) {
	d.record(Command{Kind: KindStrokeText, Text: t.Clone(), Stroke: stroke.Clone(), CTM: ctm, Paint: copyPaint(paint)})
}

func (d *ListDevice) ClipText(t *Text, ctm model.Matrix) {
	d.record(Command{Kind: KindClipText, Text: t.Clone(), CTM: ctm})
}

func (d *ListDevice) ClipStrokeText(t *Text, stroke graphicsstate.StrokeState, ctm model.Matrix) {
	d.record(Command{Kind: KindClipStrokeText, Text: t.Clone(), Stroke: stroke.Clone(), CTM: ctm})
}

func (d *ListDevice) IgnoreText(t *Text, ctm model.Matrix) {
	d.record(Command{Kind: KindIgnoreText, Text: t.Clone(), CTM: ctm})
}

func (d *ListDevice) FillImage(img *Image, ctm model.Matrix, alpha float64) {
	d.record(Command{Kind: KindFillImage, Image: img, CTM: ctm, Alpha: alpha})
}

func (d *ListDevice) FillImageMask(img *Image, ctm model.Matrix, paint Paint) {
	d.record(Command{Kind: KindFillImageMask, Image: img, CTM: ctm, Paint: copyPaint(paint)})
}

func (d *ListDevice) ClipImageMask(img *Image, ctm model.Matrix) {
	d.record(Command{Kind: KindClipImageMask, Image: img, CTM: ctm})
}

func (d *ListDevice) PopClip() {
	d.record(Command{Kind: KindPopClip})
}

func (d *ListDevice) BeginMask(area model.BBox, luminosity bool, cs *graphicsstate.ColorSpace, backdrop []float64) {
	d.record(Command{
		Kind:       KindBeginMask,
		Area:       area,
		Luminosity: luminosity,
		ColorSpace: cs,
		Backdrop:   append([]float64(nil), backdrop...),
	})
}

func (d *ListDevice) EndMask() {
	d.record(Command{Kind: KindEndMask})
}

func (d *ListDevice) BeginGroup(area model.BBox, cs *graphicsstate.ColorSpace, isolated, knockout bool, blendMode string, alpha float64) {
	d.record(Command{
		Kind:       KindBeginGroup,
		Area:       area,
		ColorSpace: cs,
		Isolated:   isolated,
		Knockout:   knockout,
		BlendMode:  blendMode,
		Alpha:      alpha,
	})
}

func (d *ListDevice) EndGroup() {
	d.record(Command{Kind: KindEndGroup})
}

func (d *ListDevice) BeginTile(area, view model.BBox, xstep, ystep float64, ctm model.Matrix) {
	d.record(Command{Kind: KindBeginTile, Area: area, View: view, XStep: xstep, YStep: ystep, CTM: ctm})
}

func (d *ListDevice) EndTile() {
	d.record(Command{Kind: KindEndTile})
}
