package interpreter

import (
	"fmt"

	"github.com/tsawler/pdfengine/core"
	"github.com/tsawler/pdfengine/device"
	"github.com/tsawler/pdfengine/font"
	"github.com/tsawler/pdfengine/graphicsstate"
	"github.com/tsawler/pdfengine/model"
)

// loadFont returns the font registered under name in the /Font
// resources. Unregistered or unusable fonts fall back to a standard font.
func (in *Interpreter) loadFont(name string) *font.Font {
	obj, _ := in.res.Resolve(in.resources.Get("Font"))
	fonts, _ := obj.(core.Dict)
	entry, ok := fonts[name]
	if !ok {
		in.log.Warn("font not in resources, using Helvetica", "font", name)
		return font.Standard("Helvetica")
	}
	return in.fontObject(entry, name)
}

// fontObject loads a font dictionary, caching fonts reached by reference.
func (in *Interpreter) fontObject(obj core.Object, name string) *font.Font {
	ref, isRef := obj.(core.IndirectRef)
	if isRef {
		if f, ok := in.fonts[ref]; ok {
			return f
		}
	}

	f, err := in.parseFont(obj)
	if err != nil {
		in.log.Warn("font not usable, using a standard font", "font", name, "error", err)
	}
	if isRef {
		in.fonts[ref] = f
	}
	return f
}

// parseFont always returns a font; on error it is the standard font
// closest to the one requested.
func (in *Interpreter) parseFont(obj core.Object) (*font.Font, error) {
	fallback := font.Standard("Helvetica")
	obj, err := in.res.Resolve(obj)
	if err != nil {
		return fallback, err
	}
	dict, ok := obj.(core.Dict)
	if !ok {
		return fallback, fmt.Errorf("font is %s: %w", typeName(obj), core.ErrWrongType)
	}
	f, err := font.Load(dict, in.res)
	if err != nil {
		if base, ok := dict.GetName("BaseFont"); ok {
			if std := font.Standard(string(base)); std != nil {
				fallback = std
			}
		}
		return fallback, err
	}
	return f, nil
}

// showText appends the glyphs of s to the current text run and advances
// the text matrix past each one.
func (in *Interpreter) showText(s []byte) {
	gs := in.gs()
	f := gs.Font
	if f == nil {
		in.log.Warn("text shown before Tf, using Helvetica")
		f = font.Standard("Helvetica")
		gs.Font = f
	}

	ts := &gs.Text
	for _, code := range f.Codes(s) {
		in.addGlyph(gs, f, code)

		spacing := ts.CharSpacing
		if f.IsSpace(code) {
			spacing += ts.WordSpacing
		}
		if f.Vertical {
			ts.Advance(0, f.VerticalAdvance(code)/1000*gs.FontSize+spacing)
			continue
		}
		ts.Advance((f.Width(code)/1000*gs.FontSize+spacing)*ts.Scale(), 0)
	}
}

// showTextArray implements TJ. Numbers move the next glyph back by
// thousandths of the font size.
func (in *Interpreter) showTextArray(arr core.Array) {
	for _, elem := range arr {
		switch v := elem.(type) {
		case core.String:
			in.showText([]byte(v))
		case core.Int, core.Real:
			adj, _ := core.Number(v)
			gs := in.gs()
			shift := -adj / 1000 * gs.FontSize
			if gs.Font != nil && gs.Font.Vertical {
				gs.Text.Advance(0, shift)
			} else {
				gs.Text.Advance(shift*gs.Text.Scale(), 0)
			}
		}
	}
}

func (in *Interpreter) addGlyph(gs *graphicsstate.GraphicsState, f *font.Font, code int) {
	if in.text == nil {
		in.beginRun(gs)
	}
	params := model.Matrix{gs.FontSize * gs.Text.Scale(), 0, 0, gs.FontSize, 0, gs.Text.Rise}
	in.text.Add(f, gs.FontName, gs.FontSize, device.Glyph{
		Code:    code,
		Unicode: f.Unicode(code),
		Matrix:  params.Multiply(gs.Text.TextMatrix).Multiply(in.textInv),
		Width:   f.Width(code) / 1000,
	})
}

// beginRun starts a text run at the current text matrix. Glyph matrices
// are relative to it, so the device gets Tm x CTM as the run's ctm.
func (in *Interpreter) beginRun(gs *graphicsstate.GraphicsState) {
	in.text = &device.Text{}
	in.textMode = gs.Text.RenderMode

	base := gs.Text.TextMatrix
	inv, ok := base.Invert()
	if !ok {
		base, inv = model.Identity(), model.Identity()
	}
	in.textInv = inv
	in.textCTM = base.Multiply(gs.CTM)
}

// flushText hands the pending text run to the device according to the
// render mode it was shown with. Modes 4 to 7 add the glyphs to the clip.
func (in *Interpreter) flushText() {
	t := in.text
	if t == nil {
		return
	}
	in.text = nil
	if t.IsEmpty() {
		return
	}

	gs := in.gs()
	ctm := in.textCTM
	switch in.textMode {
	case 0, 4:
		in.dev.FillText(t, ctm, in.fillPaint())
	case 1, 5:
		in.dev.StrokeText(t, gs.Stroke, ctm, in.strokePaint())
	case 2, 6:
		in.dev.FillText(t, ctm, in.fillPaint())
		in.dev.StrokeText(t, gs.Stroke, ctm, in.strokePaint())
	case 3:
		in.dev.IgnoreText(t, ctm)
	}
	if in.textMode >= 4 {
		in.dev.ClipText(t, ctm)
		gs.ClipDepth++
	}
}

func typeName(obj core.Object) string {
	if obj == nil {
		return "null"
	}
	return obj.Type().String()
}
