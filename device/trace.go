package device

import (
	"context"
	"log/slog"
	"strings"

	"github.com/tsawler/pdfengine/graphicsstate"
	"github.com/tsawler/pdfengine/logging"
	"github.com/tsawler/pdfengine/model"
)

// TraceDevice logs every call at debug level. Begin and clip calls
// increase the depth attribute; their matching end calls decrease it.
type TraceDevice struct {
	log   *slog.Logger
	level slog.Level
	depth int
}

var _ Device = (*TraceDevice)(nil)

// NewTraceDevice returns a device writing to l, or to the process-wide
// logger when l is nil.
func NewTraceDevice(l *slog.Logger) *TraceDevice {
	return &TraceDevice{log: l, level: slog.LevelDebug}
}

// SetLevel changes the level records are written at.
func (d *TraceDevice) SetLevel(level slog.Level) {
	d.level = level
}

func (d *TraceDevice) emit(msg string, attrs ...slog.Attr) {
	attrs = append([]slog.Attr{slog.Int("depth", d.depth)}, attrs...)
	logging.Or(d.log).LogAttrs(context.Background(), d.level, msg, attrs...)
}

func matrixAttr(ctm model.Matrix) slog.Attr {
	return slog.Any("ctm", [6]float64(ctm))
}

func paintAttr(p Paint) slog.Attr {
	attrs := []any{slog.Any("components", p.Components), slog.Float64("alpha", p.Alpha)}
	if p.Space != nil {
		attrs = append(attrs, slog.String("space", p.Space.String()))
	}
	if p.Pattern != "" {
		attrs = append(attrs, slog.String("pattern", p.Pattern))
	}
	return slog.Group("paint", attrs...)
}

func strokeAttr(s graphicsstate.StrokeState) slog.Attr {
	return slog.Group("stroke",
		slog.Float64("width", s.LineWidth),
		slog.Int("cap", int(s.LineCap)),
		slog.Int("join", int(s.LineJoin)),
	)
}

func pathAttr(p *graphicsstate.Path) slog.Attr {
	if p == nil {
		return slog.String("path", "")
	}
	var b strings.Builder
	for i, seg := range p.Segments {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(seg.Type.String())
	}
	return slog.String("path", b.String())
}

func textAttr(t *Text) slog.Attr {
	n := 0
	var fonts []string
	for _, s := range t.Spans {
		n += len(s.Glyphs)
		fonts = append(fonts, s.FontName)
	}
	return slog.Group("text",
		slog.String("string", t.String()),
		slog.Int("glyphs", n),
		slog.Any("fonts", fonts),
	)
}

func imageAttr(img *Image) slog.Attr {
	attrs := []any{
		slog.Int("width", img.Width),
		slog.Int("height", img.Height),
		slog.Int("bpc", img.BitsPerComponent),
		slog.Bool("inline", img.Inline),
	}
	if img.Name != "" {
		attrs = append(attrs, slog.String("name", img.Name))
	}
	if img.ColorSpace != nil {
		attrs = append(attrs, slog.String("space", img.ColorSpace.String()))
	}
	return slog.Group("image", attrs...)
}

func bboxAttr(key string, b model.BBox) slog.Attr {
	return slog.Any(key, [4]float64{b.X, b.Y, b.Width, b.Height})
}

func (d *TraceDevice) FillPath(p *graphicsstate.Path, evenOdd bool, ctm model.Matrix, paint Paint) {
	d.emit("fill_path", pathAttr(p), slog.Bool("even_odd", evenOdd), matrixAttr(ctm), paintAttr(paint))
}

func (d *TraceDevice) StrokePath(p *graphicsstate.Path, stroke graphicsstate.StrokeState, ctm model.Matrix, paint Paint) {
	d.emit("stroke_path", pathAttr(p), strokeAttr(stroke), matrixAttr(ctm), paintAttr(paint))
}

func (d *TraceDevice) ClipPath(p *graphicsstate.Path, evenOdd bool, ctm model.Matrix) {
	d.emit("clip_path", pathAttr(p), slog.Bool("even_odd", evenOdd), matrixAttr(ctm))
	d.depth++
}

func (d *TraceDevice) ClipStrokePath(p *graphicsstate.Path, stroke graphicsstate.StrokeState, ctm model.Matrix) {
	d.emit("clip_stroke_path", pathAttr(p), strokeAttr(stroke), matrixAttr(ctm))
	d.depth++
}

func (d *TraceDevice) FillText(t *Text, ctm model.Matrix, paint Paint) {
	d.emit("fill_text", textAttr(t), matrixAttr(ctm), paintAttr(paint))
}

func (d *TraceDevice) StrokeText(t *Text, stroke graphicsstate.StrokeState, ctm model.Matrix, paint Paint) {
	d.emit("stroke_text", textAttr(t), strokeAttr(stroke), matrixAttr(ctm), paintAttr(paint))
}

func (d *TraceDevice) ClipText(t *Text, ctm model.Matrix) {
	d.emit("clip_text", textAttr(t), matrixAttr(ctm))
	d.depth++
}

func (d *TraceDevice) ClipStrokeText(t *Text, stroke graphicsstate.StrokeState, ctm model.Matrix) {
	d.emit("clip_stroke_text", textAttr(t), strokeAttr(stroke), matrixAttr(ctm))
	d.depth++
}

func (d *TraceDevice) IgnoreText(t *Text, ctm model.Matrix) {
	d.emit("ignore_text", textAttr(t), matrixAttr(ctm))
}

func (d *TraceDevice) FillImage(img *Image, ctm model.Matrix, alpha float64) {
	d.emit("fill_image", imageAttr(img), matrixAttr(ctm), slog.Float64("alpha", alpha))
}

func (d *TraceDevice) FillImageMask(img *Image, ctm model.Matrix, paint Paint) {
	d.emit("fill_image_mask", imageAttr(img), matrixAttr(ctm), paintAttr(paint))
}

func (d *TraceDevice) ClipImageMask(img *Image, ctm model.Matrix) {
	d.emit("clip_image_mask", imageAttr(img), matrixAttr(ctm))
	d.depth++
}

func (d *TraceDevice) PopClip() {
	d.pop()
	d.emit("pop_clip")
}

func (d *TraceDevice) BeginMask(area model.BBox, luminosity bool, cs *graphicsstate.ColorSpace, backdrop []float64) {
	attrs := []slog.Attr{bboxAttr("area", area), slog.Bool("luminosity", luminosity)}
	if cs != nil {
		attrs = append(attrs, slog.String("space", cs.String()))
	}
	if backdrop != nil {
		attrs = append(attrs, slog.Any("backdrop", backdrop))
	}
	d.emit("begin_mask", attrs...)
	d.depth++
}

func (d *TraceDevice) EndMask() {
	d.pop()
	d.emit("end_mask")
	d.depth++
}

func (d *TraceDevice) BeginGroup(area model.BBox, cs *graphicsstate.ColorSpace, isolated, knockout bool, blendMode string, alpha float64) {
	attrs := []slog.Attr{
		bboxAttr("area", area),
		slog.Bool("isolated", isolated),
		slog.Bool("knockout", knockout),
		slog.String("blend", blendMode),
		slog.Float64("alpha", alpha),
	}
	if cs != nil {
		attrs = append(attrs, slog.String("space", cs.String()))
	}
	d.emit("begin_group", attrs...)
	d.depth++
}

func (d *TraceDevice) EndGroup() {
	d.pop()
	d.emit("end_group")
}

func (d *TraceDevice) BeginTile(area, view model.BBox, xstep, ystep float64, ctm model.Matrix) {
	d.emit("begin_tile",
		bboxAttr("area", area),
		bboxAttr("view", view),
		slog.Float64("xstep", xstep),
		slog.Float64("ystep", ystep),
		matrixAttr(ctm),
	)
	d.depth++
}

func (d *TraceDevice) EndTile() {
	d.pop()
	d.emit("end_tile")
}

func (d *TraceDevice) pop() {
	if d.depth > 0 {
		d.depth--
	}
}
