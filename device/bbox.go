package device

import (
	"github.com/tsawler/pdfengine/graphicsstate"
	"github.com/tsawler/pdfengine/model"
)

// clipBox is one entry of the clip stack. unbounded is set until the
// first clip; empty when a clip removed everything.
type clipBox struct {
	box       model.BBox
	unbounded bool
	empty     bool
}

func (c clipBox) intersect(b model.BBox) clipBox {
	if c.empty {
		return c
	}
	if c.unbounded {
		return clipBox{box: b}
	}
	if !c.box.Intersects(b) {
		return clipBox{empty: true}
	}
	return clipBox{box: c.box.Intersection(b)}
}

// BBoxDevice accumulates the device-space bounding box of everything
// painted, limited by the active clip. Marks drawn while defining a soft
// mask do not count.
type BBoxDevice struct {
	clips     []clipBox
	maskDepth int
	tileDepth int

	box   model.BBox
	found bool
}

var _ Device = (*BBoxDevice)(nil)

// NewBBoxDevice returns a device with no marks and no clip.
func NewBBoxDevice() *BBoxDevice {
	return &BBoxDevice{clips: []clipBox{{unbounded: true}}}
}

// Bounds returns the accumulated box. ok is false when nothing visible
// was painted.
func (d *BBoxDevice) Bounds() (model.BBox, bool) {
	return d.box, d.found
}

func (d *BBoxDevice) clip() clipBox {
	return d.clips[len(d.clips)-1]
}

func (d *BBoxDevice) pushClip(b model.BBox, ok bool) {
	c := d.clip()
	if !ok {
		c = clipBox{empty: true}
	} else {
		c = c.intersect(b)
	}
	d.clips = append(d.clips, c)
}

func (d *BBoxDevice) add(b model.BBox) {
	if d.maskDepth > 0 || d.tileDepth > 0 {
		return
	}
	c := d.clip()
	if c.empty {
		return
	}
	if !c.unbounded {
		if !c.box.Intersects(b) {
			return
		}
		b = c.box.Intersection(b)
	}
	if !d.found {
		d.box, d.found = b, true
		return
	}
	d.box = d.box.Union(b)
}

func pathBox(p *graphicsstate.Path, ctm model.Matrix) (model.BBox, bool) {
	if p == nil {
		return model.BBox{}, false
	}
	return p.Transform(ctm).Bounds()
}

func strokeBox(p *graphicsstate.Path, stroke graphicsstate.StrokeState, ctm model.Matrix) (model.BBox, bool) {
	b, ok := pathBox(p, ctm)
	if !ok {
		return b, false
	}
	w := stroke.LineWidth
	if w <= 0 {
		w = 1 // thinnest line the device can draw
	}
	return b.Expand(w / 2 * ctm.Expansion()), true
}

func (d *BBoxDevice) FillPath(p *graphicsstate.Path, _ bool, ctm model.Matrix, _ Paint) {
	if b, ok := pathBox(p, ctm); ok {
		d.add(b)
	}
}

func (d *BBoxDevice) StrokePath(p *graphicsstate.Path, stroke graphicsstate.StrokeState, ctm model.Matrix, _ Paint) {
	if b, ok := strokeBox(p, stroke, ctm); ok {
		d.add(b)
	}
}

func (d *BBoxDevice) ClipPath(p *graphicsstate.Path, _ bool, ctm model.Matrix) {
	d.pushClip(pathBox(p, ctm))
}

func (d *BBoxDevice) ClipStrokePath(p *graphicsstate.Path, stroke graphicsstate.StrokeState, ctm model.Matrix) {
	d.pushClip(strokeBox(p, stroke, ctm))
}

func (d *BBoxDevice) FillText(t *Text, ctm model.Matrix, _ Paint) {
	if b, ok := t.Bounds(ctm); ok {
		d.add(b)
	}
}

func (d *BBoxDevice) StrokeText(t *Text, stroke graphicsstate.StrokeState, ctm model.Matrix, _ Paint) {
	if b, ok := t.Bounds(ctm); ok {
		d.add(b.Expand(stroke.LineWidth / 2 * ctm.Expansion()))
	}
}

func (d *BBoxDevice) ClipText(t *Text, ctm model.Matrix) {
	d.pushClip(t.Bounds(ctm))
}

func (d *BBoxDevice) ClipStrokeText(t *Text, stroke graphicsstate.StrokeState, ctm model.Matrix) {
	b, ok := t.Bounds(ctm)
	d.pushClip(b.Expand(stroke.LineWidth/2*ctm.Expansion()), ok)
}

// IgnoreText records nothing: invisible text paints no pixels.
func (d *BBoxDevice) IgnoreText(*Text, model.Matrix) {}

var unitSquare = model.BBox{Width: 1, Height: 1}

func (d *BBoxDevice) FillImage(_ *Image, ctm model.Matrix, _ float64) {
	d.add(ctm.TransformBBox(unitSquare))
}

func (d *BBoxDevice) FillImageMask(_ *Image, ctm model.Matrix, _ Paint) {
	d.add(ctm.TransformBBox(unitSquare))
}

func (d *BBoxDevice) ClipImageMask(_ *Image, ctm model.Matrix) {
	d.pushClip(ctm.TransformBBox(unitSquare), true)
}

func (d *BBoxDevice) PopClip() {
	if len(d.clips) > 1 {
		d.clips = d.clips[:len(d.clips)-1]
	}
}

func (d *BBoxDevice) BeginMask(model.BBox, bool, *graphicsstate.ColorSpace, []float64) {
	d.maskDepth++
}

// EndMask installs the mask as a clip. Masks do not bound marks, so the
// clip box is unchanged.
func (d *BBoxDevice) EndMask() {
	if d.maskDepth > 0 {
		d.maskDepth--
	}
	d.clips = append(d.clips, d.clip())
}

func (d *BBoxDevice) BeginGroup(model.BBox, *graphicsstate.ColorSpace, bool, bool, string, float64) {}
func (d *BBoxDevice) EndGroup()                                                                   {}

// BeginTile counts the whole tiled area as painted. Marks inside the
// cell are covered by it.
func (d *BBoxDevice) BeginTile(area, _ model.BBox, _, _ float64, ctm model.Matrix) {
	d.add(ctm.TransformBBox(area))
	d.tileDepth++
}

func (d *BBoxDevice) EndTile() {
	if d.tileDepth > 0 {
		d.tileDepth--
	}
}
