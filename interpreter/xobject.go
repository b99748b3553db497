package interpreter

import (
	"fmt"

	"github.com/tsawler/pdfengine/core"
	"github.com/tsawler/pdfengine/device"
	"github.com/tsawler/pdfengine/graphicsstate"
	"github.com/tsawler/pdfengine/model"
)

func (in *Interpreter) doXObject(name string) error {
	obj, err := in.resource("XObject", name)
	if err != nil {
		return err
	}
	s, ok := obj.(*core.Stream)
	if !ok {
		return fmt.Errorf("XObject /%s is %s: %w", name, typeName(obj), core.ErrWrongType)
	}

	subtype, _ := s.Dict.GetName("Subtype")
	switch subtype {
	case "Image":
		return in.drawImage(name, s, false)
	case "Form":
		return in.runForm(name, s)
	case "PS":
		return nil
	}
	return fmt.Errorf("XObject /%s has subtype /%s: %w", name, subtype, core.ErrWrongType)
}

// drawImage hands an image XObject or inline image to the device. The
// CTM maps the unit square onto the page.
func (in *Interpreter) drawImage(name string, s *core.Stream, inline bool) error {
	in.flushText()
	d := s.Dict
	img := &device.Image{Name: name, Inline: inline, Stream: s}

	w, _ := in.dictNumber(d, "Width")
	h, _ := in.dictNumber(d, "Height")
	bpc, _ := in.dictNumber(d, "BitsPerComponent")
	img.Width, img.Height, img.BitsPerComponent = int(w), int(h), int(bpc)

	if obj, err := in.res.Resolve(d.Get("ImageMask")); err == nil {
		if b, ok := obj.(core.Bool); ok {
			img.ImageMask = bool(b)
		}
	}
	if obj, err := in.res.Resolve(d.Get("Interpolate")); err == nil {
		if b, ok := obj.(core.Bool); ok {
			img.Interpolate = bool(b)
		}
	}
	if obj, err := in.res.Resolve(d.Get("Decode")); err == nil {
		if arr, ok := obj.(core.Array); ok {
			img.Decode, _ = arr.Numbers()
		}
	}

	if img.ImageMask {
		img.BitsPerComponent = 1
	} else if obj := d.Get("ColorSpace"); obj != nil {
		cs, err := in.colorSpace(obj)
		if err != nil {
			in.log.Warn("image color space not usable", "image", name, "error", err)
		}
		img.ColorSpace = cs
	}

	gs := in.gs()
	if img.ImageMask {
		in.dev.FillImageMask(img, gs.CTM, in.fillPaint())
	} else {
		in.dev.FillImage(img, gs.CTM, gs.FillAlpha)
	}
	return nil
}

// runForm draws a form XObject: its matrix is concatenated, its BBox
// clips, and transparency groups are bracketed by BeginGroup and EndGroup.
func (in *Interpreter) runForm(name string, form *core.Stream) error {
	data, err := in.res.DecodeStream(form)
	if err != nil {
		return fmt.Errorf("form /%s: %w", name, err)
	}

	err = in.nest(in.streamResources(form), func() error {
		gs := in.gs()
		if m, ok := in.arrayNumbers(form.Dict.Get("Matrix"), 6); ok {
			mm, _ := model.MatrixFromArray(m)
			gs.Transform(mm)
		}
		in.baseCTM = gs.CTM

		var area model.BBox
		if b, ok := in.arrayNumbers(form.Dict.Get("BBox"), 4); ok {
			r := model.RectBBox(b)
			p := graphicsstate.NewPath()
			p.Rectangle(r.X, r.Y, r.Width, r.Height)
			in.clipPath(p, false)
			area = gs.CTM.TransformBBox(r)
		}

		group := in.transparencyGroup(form)
		if group != nil {
			var cs *graphicsstate.ColorSpace
			if obj := group.Get("CS"); obj != nil {
				c, err := in.colorSpace(obj)
				if err != nil {
					in.log.Warn("group color space not usable", "form", name, "error", err)
				}
				cs = c
			}
			isolated, _ := group.GetBool("I")
			knockout, _ := group.GetBool("K")
			in.dev.BeginGroup(area, cs, bool(isolated), bool(knockout), gs.BlendMode, gs.FillAlpha)

			// The group as a whole carries the blend mode, alpha and mask.
			gs.BlendMode = "Normal"
			gs.FillAlpha, gs.StrokeAlpha = 1, 1
			gs.SoftMask = nil
		}

		err := in.run(data)
		if group != nil {
			in.dev.EndGroup()
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("form /%s: %w", name, err)
	}
	return nil
}

// transparencyGroup returns the /Group dictionary of a form when it is a
// transparency group.
func (in *Interpreter) transparencyGroup(form *core.Stream) core.Dict {
	obj, err := in.res.Resolve(form.Dict.Get("Group"))
	if err != nil {
		return nil
	}
	group, ok := obj.(core.Dict)
	if !ok {
		return nil
	}
	if s, _ := group.GetName("S"); s != "Transparency" {
		return nil
	}
	return group
}
