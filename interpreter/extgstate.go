package interpreter

import (
	"fmt"

	"github.com/tsawler/pdfengine/core"
	"github.com/tsawler/pdfengine/graphicsstate"
	"github.com/tsawler/pdfengine/model"
)

// setExtGState applies the parameters of an ExtGState resource (gs).
func (in *Interpreter) setExtGState(name string) error {
	obj, err := in.resource("ExtGState", name)
	if err != nil {
		return err
	}
	d, ok := obj.(core.Dict)
	if !ok {
		return fmt.Errorf("ExtGState /%s is %s: %w", name, typeName(obj), core.ErrWrongType)
	}

	in.flushText()
	gs := in.gs()
	if v, ok := in.dictNumber(d, "LW"); ok {
		gs.Stroke.LineWidth = v
	}
	if v, ok := in.dictNumber(d, "LC"); ok {
		gs.Stroke.LineCap = graphicsstate.LineCap(v)
	}
	if v, ok := in.dictNumber(d, "LJ"); ok {
		gs.Stroke.LineJoin = graphicsstate.LineJoin(v)
	}
	if v, ok := in.dictNumber(d, "ML"); ok {
		gs.Stroke.MiterLimit = v
	}
	if v, ok := in.dictNumber(d, "FL"); ok {
		gs.Flatness = v
	}
	if v, ok := in.dictNumber(d, "CA"); ok {
		gs.StrokeAlpha = v
	}
	if v, ok := in.dictNumber(d, "ca"); ok {
		gs.FillAlpha = v
	}
	if ri, ok := d.GetName("RI"); ok {
		gs.RenderingIntent = string(ri)
	}

	if obj, err := in.res.Resolve(d.Get("D")); err == nil {
		if arr, ok := obj.(core.Array); ok && len(arr) == 2 {
			dash, _ := in.res.Resolve(arr[0])
			if da, ok := dash.(core.Array); ok {
				if nums, ok := da.Numbers(); ok {
					gs.Stroke.Dash = nums
					gs.Stroke.DashPhase, _ = core.Number(arr[1])
				}
			}
		}
	}

	if obj, err := in.res.Resolve(d.Get("BM")); err == nil {
		switch v := obj.(type) {
		case core.Name:
			gs.BlendMode = string(v)
		case core.Array:
			// The first mode in the list is used.
			if len(v) > 0 {
				if n, ok := v[0].(core.Name); ok {
					gs.BlendMode = string(n)
				}
			}
		}
	}

	if obj, err := in.res.Resolve(d.Get("Font")); err == nil {
		if arr, ok := obj.(core.Array); ok && len(arr) == 2 {
			size, _ := core.Number(arr[1])
			f := in.fontObject(arr[0], name)
			gs.SetFont(f.Name, f, size)
		}
	}

	if obj := d.Get("SMask"); obj != nil {
		return in.setSoftMask(obj)
	}
	return nil
}

// setSoftMask installs a soft mask from an ExtGState. The mask is drawn
// between BeginMask and EndMask and then counts as a clip of the current
// state, closed by the Q that restores it.
func (in *Interpreter) setSoftMask(obj core.Object) error {
	obj, err := in.res.Resolve(obj)
	if err != nil {
		return fmt.Errorf("/SMask: %w", err)
	}
	if n, ok := obj.(core.Name); ok && n == "None" {
		in.gs().SoftMask = nil
		return nil
	}
	d, ok := obj.(core.Dict)
	if !ok {
		return fmt.Errorf("/SMask is %s: %w", typeName(obj), core.ErrWrongType)
	}
	g, err := in.res.Resolve(d.Get("G"))
	if err != nil {
		return fmt.Errorf("/SMask /G: %w", err)
	}
	form, ok := g.(*core.Stream)
	if !ok {
		return fmt.Errorf("/SMask /G is %s: %w", typeName(g), core.ErrWrongType)
	}

	s, _ := d.GetName("S")
	luminosity := s != "Alpha"

	var backdrop []float64
	if obj, err := in.res.Resolve(d.Get("BC")); err == nil {
		if arr, ok := obj.(core.Array); ok {
			backdrop, _ = arr.Numbers()
		}
	}

	var cs *graphicsstate.ColorSpace
	if group := in.transparencyGroup(form); group != nil && group.Get("CS") != nil {
		if cs, err = in.colorSpace(group.Get("CS")); err != nil {
			in.log.Warn("soft mask color space not usable", "error", err)
		}
	}

	gs := in.gs()
	var area model.BBox
	if b, ok := in.arrayNumbers(form.Dict.Get("BBox"), 4); ok {
		m := model.Identity()
		if v, ok := in.arrayNumbers(form.Dict.Get("Matrix"), 6); ok {
			m, _ = model.MatrixFromArray(v)
		}
		area = m.Multiply(gs.CTM).TransformBBox(model.RectBBox(b))
	}
	gs.SoftMask = d

	in.dev.BeginMask(area, luminosity, cs, backdrop)
	err = in.runForm("SMask", form)
	in.dev.EndMask()
	in.gs().ClipDepth++
	return err
}
