package interpreter

import (
	"fmt"

	"github.com/tsawler/pdfengine/contentstream"
	"github.com/tsawler/pdfengine/core"
	"github.com/tsawler/pdfengine/graphicsstate"
)

// processOperation executes one operator. Unknown operators are ignored.
func (in *Interpreter) processOperation(op contentstream.Operation) error {
	switch op.Operator {
	// Graphics state
	case "q":
		in.push()
	case "Q":
		if in.stack.Depth() <= in.floor {
			in.log.Debug("unbalanced Q ignored", "offset", op.Offset)
			return nil
		}
		in.pop()
	case "cm":
		m, err := matrix(op)
		if err != nil {
			return err
		}
		in.flushText()
		in.gs().Transform(m)
	case "w":
		v, err := number(op)
		if err != nil {
			return err
		}
		in.flushText()
		in.gs().Stroke.LineWidth = v
	case "J":
		v, err := number(op)
		if err != nil {
			return err
		}
		in.flushText()
		in.gs().Stroke.LineCap = graphicsstate.LineCap(v)
	case "j":
		v, err := number(op)
		if err != nil {
			return err
		}
		in.flushText()
		in.gs().Stroke.LineJoin = graphicsstate.LineJoin(v)
	case "M":
		v, err := number(op)
		if err != nil {
			return err
		}
		in.gs().Stroke.MiterLimit = v
	case "d":
		a, err := args(op, 2)
		if err != nil {
			return err
		}
		arr, ok := a[0].(core.Array)
		if !ok {
			return typeError(op, len(op.Operands)-2, "array", a[0])
		}
		dash, ok := arr.Numbers()
		if !ok {
			return typeError(op, len(op.Operands)-2, "array of numbers", a[0])
		}
		phase, ok := core.Number(a[1])
		if !ok {
			return typeError(op, len(op.Operands)-1, "number", a[1])
		}
		in.flushText()
		in.gs().Stroke.Dash = dash
		in.gs().Stroke.DashPhase = phase
	case "ri":
		name, err := nameArg(op, 1, 0)
		if err != nil {
			return err
		}
		in.gs().RenderingIntent = name
	case "i":
		v, err := number(op)
		if err != nil {
			return err
		}
		in.gs().Flatness = v
	case "gs":
		name, err := nameArg(op, 1, 0)
		if err != nil {
			return err
		}
		return in.setExtGState(name)

	// Path construction
	case "m":
		v, err := numbers(op, 2)
		if err != nil {
			return err
		}
		in.path.MoveTo(v[0], v[1])
	case "l":
		v, err := numbers(op, 2)
		if err != nil {
			return err
		}
		in.path.LineTo(v[0], v[1])
	case "c":
		v, err := numbers(op, 6)
		if err != nil {
			return err
		}
		in.path.CurveTo(v[0], v[1], v[2], v[3], v[4], v[5])
	case "v":
		v, err := numbers(op, 4)
		if err != nil {
			return err
		}
		in.path.CurveToV(v[0], v[1], v[2], v[3])
	case "y":
		v, err := numbers(op, 4)
		if err != nil {
			return err
		}
		in.path.CurveToY(v[0], v[1], v[2], v[3])
	case "h":
		in.path.ClosePath()
	case "re":
		v, err := numbers(op, 4)
		if err != nil {
			return err
		}
		in.path.Rectangle(v[0], v[1], v[2], v[3])

	// Path painting
	case "S":
		return in.paintPath(false, false, false, true)
	case "s":
		return in.paintPath(true, false, false, true)
	case "f", "F":
		return in.paintPath(false, true, false, false)
	case "f*":
		return in.paintPath(false, true, true, false)
	case "B":
		return in.paintPath(false, true, false, true)
	case "B*":
		return in.paintPath(false, true, true, true)
	case "b":
		return in.paintPath(true, true, false, true)
	case "b*":
		return in.paintPath(true, true, true, true)
	case "n":
		return in.paintPath(false, false, false, false)
	case "W":
		in.clip = clipNonZero
	case "W*":
		in.clip = clipEvenOdd

	// Color
	case "g", "G":
		return in.setDeviceColor(op, graphicsstate.DeviceGray)
	case "rg", "RG":
		return in.setDeviceColor(op, graphicsstate.DeviceRGB)
	case "k", "K":
		return in.setDeviceColor(op, graphicsstate.DeviceCMYK)
	case "cs", "CS":
		name, err := nameArg(op, 1, 0)
		if err != nil {
			return err
		}
		cs, err := in.colorSpace(core.Name(name))
		if err != nil {
			return err
		}
		in.flushText()
		if op.Operator == "cs" {
			in.gs().SetFillColorSpace(cs)
		} else {
			in.gs().SetStrokeColorSpace(cs)
		}
	case "sc", "scn", "SC", "SCN":
		return in.setColor(op)

	// Text objects and state
	case "BT":
		in.flushText()
		in.gs().Text.BeginText()
	case "ET":
		in.flushText()
	case "Tf":
		name, err := nameArg(op, 2, 0)
		if err != nil {
			return err
		}
		size, ok := core.Number(op.Operands[len(op.Operands)-1])
		if !ok {
			return typeError(op, len(op.Operands)-1, "number", op.Operands[len(op.Operands)-1])
		}
		f := in.loadFont(name)
		in.gs().SetFont(name, f, size)
	case "Tc":
		v, err := number(op)
		if err != nil {
			return err
		}
		in.gs().Text.CharSpacing = v
	case "Tw":
		v, err := number(op)
		if err != nil {
			return err
		}
		in.gs().Text.WordSpacing = v
	case "Tz":
		v, err := number(op)
		if err != nil {
			return err
		}
		in.gs().Text.HorizontalScaling = v
	case "TL":
		v, err := number(op)
		if err != nil {
			return err
		}
		in.gs().Text.Leading = v
	case "Tr":
		v, err := number(op)
		if err != nil {
			return err
		}
		if v < 0 || v > 7 {
			return &OperandError{Op: op.Operator, Want: "0-7", Got: fmt.Sprint(v), Index: len(op.Operands) - 1,
				Msg: fmt.Sprintf("render mode %v out of range", v)}
		}
		in.flushText()
		in.gs().Text.RenderMode = int(v)
	case "Ts":
		v, err := number(op)
		if err != nil {
			return err
		}
		in.gs().Text.Rise = v

	// Text positioning
	case "Td":
		v, err := numbers(op, 2)
		if err != nil {
			return err
		}
		in.gs().Text.TranslateText(v[0], v[1])
	case "TD":
		v, err := numbers(op, 2)
		if err != nil {
			return err
		}
		in.gs().Text.TranslateTextSetLeading(v[0], v[1])
	case "Tm":
		m, err := matrix(op)
		if err != nil {
			return err
		}
		in.gs().Text.SetTextMatrix(m)
	case "T*":
		in.gs().Text.NextLine()

	// Text showing
	case "Tj":
		s, err := stringArg(op, 1, 0)
		if err != nil {
			return err
		}
		in.showText(s)
	case "'":
		s, err := stringArg(op, 1, 0)
		if err != nil {
			return err
		}
		in.gs().Text.NextLine()
		in.showText(s)
	case "\"":
		a, err := args(op, 3)
		if err != nil {
			return err
		}
		base := len(op.Operands) - 3
		aw, ok := core.Number(a[0])
		if !ok {
			return typeError(op, base, "number", a[0])
		}
		ac, ok := core.Number(a[1])
		if !ok {
			return typeError(op, base+1, "number", a[1])
		}
		s, err := stringArg(op, 3, 2)
		if err != nil {
			return err
		}
		in.gs().Text.WordSpacing = aw
		in.gs().Text.CharSpacing = ac
		in.gs().Text.NextLine()
		in.showText(s)
	case "TJ":
		a, err := args(op, 1)
		if err != nil {
			return err
		}
		arr, ok := a[0].(core.Array)
		if !ok {
			return typeError(op, len(op.Operands)-1, "array", a[0])
		}
		in.showTextArray(arr)

	// XObjects and images
	case "Do":
		name, err := nameArg(op, 1, 0)
		if err != nil {
			return err
		}
		return in.doXObject(name)
	case "BI":
		a, err := args(op, 1)
		if err != nil {
			return err
		}
		s, ok := a[0].(*core.Stream)
		if !ok {
			return typeError(op, 0, "inline image", a[0])
		}
		return in.drawImage("", s, true)

	case "sh":
		name, _ := nameArg(op, 1, 0)
		in.log.Debug("shading operator not drawn", "shading", name)

	// Type 3 glyph metrics, compatibility sections and marked content
	case "d0", "d1", "BX", "EX", "MP", "DP", "BMC", "BDC", "EMC":
	}
	return nil
}

func (in *Interpreter) setDeviceColor(op contentstream.Operation, cs *graphicsstate.ColorSpace) error {
	v, err := numbers(op, cs.N)
	if err != nil {
		return err
	}
	in.flushText()
	gs := in.gs()
	if op.Operator[0] >= 'a' {
		gs.SetFillColorSpace(cs)
		gs.FillColor = v
	} else {
		gs.SetStrokeColorSpace(cs)
		gs.StrokeColor = v
	}
	return nil
}

// setColor implements sc, scn, SC and SCN: exactly N components for the
// current space, followed by a pattern name in Pattern spaces.
func (in *Interpreter) setColor(op contentstream.Operation) error {
	fill := op.Operator[0] == 's'
	gs := in.gs()
	cs := gs.StrokeSpace
	if fill {
		cs = gs.FillSpace
	}

	operands := op.Operands
	pattern := ""
	if cs.IsPattern() {
		if len(operands) == 0 {
			return countError(op, cs.N+1)
		}
		name, ok := operands[len(operands)-1].(core.Name)
		if !ok {
			return typeError(op, len(operands)-1, "pattern name", operands[len(operands)-1])
		}
		pattern = string(name)
		operands = operands[:len(operands)-1]
	}
	if len(operands) != cs.N {
		want := cs.N
		if cs.IsPattern() {
			want++
		}
		return countError(op, want)
	}
	comps := make([]float64, len(operands))
	for i, obj := range operands {
		v, ok := core.Number(obj)
		if !ok {
			return typeError(op, i, "number", obj)
		}
		comps[i] = v
	}

	in.flushText()
	gs = in.gs()
	if fill {
		gs.FillColor, gs.FillPattern = comps, pattern
	} else {
		gs.StrokeColor, gs.StrokePattern = comps, pattern
	}
	return nil
}

// colorSpace resolves a color space operand, looking names up in the
// /ColorSpace resources before treating them as family names.
func (in *Interpreter) colorSpace(obj core.Object) (*graphicsstate.ColorSpace, error) {
	if name, ok := obj.(core.Name); ok {
		if entry, err := in.resource("ColorSpace", string(name)); err == nil {
			obj = entry
		}
	}
	cs, err := graphicsstate.LoadColorSpace(obj, in.res)
	if err != nil {
		return nil, fmt.Errorf("color space %s: %w", obj, err)
	}
	return cs, nil
}
