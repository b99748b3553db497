package interpreter

import (
	"fmt"

	"github.com/tsawler/pdfengine/core"
	"github.com/tsawler/pdfengine/graphicsstate"
	"github.com/tsawler/pdfengine/model"
)

// paintPath implements the painting operators. The current path is
// consumed whether or not anything is drawn, and a pending W or W* clip
// is applied after painting.
func (in *Interpreter) paintPath(close, fill, evenOdd, stroke bool) error {
	in.flushText()
	if close {
		in.path.ClosePath()
	}
	path, rule := in.path, in.clip
	in.path = graphicsstate.NewPath()
	in.clip = noClip

	var err error
	if !path.IsEmpty() {
		if fill {
			err = in.fill(path, evenOdd)
		}
		if stroke {
			if serr := in.stroke(path); err == nil {
				err = serr
			}
		}
	}
	if rule != noClip {
		in.clipPath(path, rule == clipEvenOdd)
	}
	return err
}

func (in *Interpreter) clipPath(p *graphicsstate.Path, evenOdd bool) {
	gs := in.gs()
	in.dev.ClipPath(p, evenOdd, gs.CTM)
	gs.IntersectClip(p)
	gs.ClipDepth++
}

func (in *Interpreter) fill(p *graphicsstate.Path, evenOdd bool) error {
	gs := in.gs()
	if gs.FillSpace.IsPattern() && gs.FillPattern != "" {
		tile, err := in.tilingPattern(gs.FillPattern)
		if err != nil {
			return err
		}
		if tile != nil {
			area, _ := p.Transform(gs.CTM).Bounds()
			in.dev.ClipPath(p, evenOdd, gs.CTM)
			err := in.drawTile(tile, area, true)
			in.dev.PopClip()
			return err
		}
	}
	in.dev.FillPath(p, evenOdd, gs.CTM, in.fillPaint())
	return nil
}

func (in *Interpreter) stroke(p *graphicsstate.Path) error {
	gs := in.gs()
	if gs.StrokeSpace.IsPattern() && gs.StrokePattern != "" {
		tile, err := in.tilingPattern(gs.StrokePattern)
		if err != nil {
			return err
		}
		if tile != nil {
			area, _ := p.Transform(gs.CTM).Bounds()
			area = area.Expand(gs.Stroke.LineWidth / 2 * gs.CTM.Expansion())
			in.dev.ClipStrokePath(p, gs.Stroke, gs.CTM)
			err := in.drawTile(tile, area, false)
			in.dev.PopClip()
			return err
		}
	}
	in.dev.StrokePath(p, gs.Stroke, gs.CTM, in.strokePaint())
	return nil
}

// tilingPattern returns the named pattern if it is a tiling pattern.
// Shading patterns are painted by the device and give nil.
func (in *Interpreter) tilingPattern(name string) (*core.Stream, error) {
	obj, err := in.resource("Pattern", name)
	if err != nil {
		return nil, err
	}
	s, ok := obj.(*core.Stream)
	if !ok {
		return nil, nil
	}
	if t, _ := in.dictNumber(s.Dict, "PatternType"); t != 1 {
		return nil, nil
	}
	return s, nil
}

// drawTile runs a tiling pattern cell over area, given in device space.
// Uncolored patterns (PaintType 2) draw in the color selected with scn.
func (in *Interpreter) drawTile(pat *core.Stream, area model.BBox, fill bool) error {
	ptm := model.Identity()
	if m, ok := in.arrayNumbers(pat.Dict.Get("Matrix"), 6); ok {
		ptm, _ = model.MatrixFromArray(m)
	}
	ptm = ptm.Multiply(in.baseCTM)
	inv, ok := ptm.Invert()
	if !ok {
		return fmt.Errorf("pattern matrix %v is singular", ptm)
	}
	bbox, ok := in.arrayNumbers(pat.Dict.Get("BBox"), 4)
	if !ok {
		return fmt.Errorf("pattern /BBox: %w", core.ErrWrongType)
	}
	xstep, _ := in.dictNumber(pat.Dict, "XStep")
	ystep, _ := in.dictNumber(pat.Dict, "YStep")
	paintType, _ := in.dictNumber(pat.Dict, "PaintType")

	data, err := in.res.DecodeStream(pat)
	if err != nil {
		return fmt.Errorf("pattern content: %w", err)
	}

	gs := in.gs()
	space, comps := gs.StrokeSpace, gs.StrokeColor
	if fill {
		space, comps = gs.FillSpace, gs.FillColor
	}

	in.dev.BeginTile(inv.TransformBBox(area), model.RectBBox(bbox), xstep, ystep, ptm)
	err = in.nest(in.streamResources(pat), func() error {
		cell := graphicsstate.NewGraphicsState()
		cell.CTM = ptm
		cell.ClipDepth = in.gs().ClipDepth
		if paintType == 2 && space.Base != nil {
			cell.SetFillColorSpace(space.Base)
			cell.FillColor = append([]float64(nil), comps...)
			cell.SetStrokeColorSpace(space.Base)
			cell.StrokeColor = append([]float64(nil), comps...)
		}
		*in.gs() = *cell
		in.baseCTM = ptm
		return in.run(data)
	})
	in.dev.EndTile()
	return err
}

// streamResources returns the /Resources of a form or pattern, or nil to
// inherit the current ones.
func (in *Interpreter) streamResources(s *core.Stream) core.Dict {
	obj, err := in.res.Resolve(s.Dict.Get("Resources"))
	if err != nil {
		in.log.Warn("unreadable resources", "error", err)
		return nil
	}
	d, _ := obj.(core.Dict)
	return d
}
