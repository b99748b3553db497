package interpreter

import (
	"fmt"

	"github.com/tsawler/pdfengine/contentstream"
	"github.com/tsawler/pdfengine/core"
	"github.com/tsawler/pdfengine/model"
)

// OperandError reports operands an operator cannot use: too few of them,
// or one of the wrong type.
type OperandError struct {
	Op   string
	Want string
	Got  string

	// Index is the position of the offending operand, or -1 when the
	// count is wrong.
	Index int

	Msg string
}

func (e *OperandError) Error() string {
	return e.Op + " " + e.Msg
}

func countError(op contentstream.Operation, n int) *OperandError {
	plural := "s"
	if n == 1 {
		plural = ""
	}
	return &OperandError{
		Op:    op.Operator,
		Want:  fmt.Sprintf("%d", n),
		Got:   fmt.Sprintf("%d", len(op.Operands)),
		Index: -1,
		Msg:   fmt.Sprintf("requires %d operand%s", n, plural),
	}
}

func typeError(op contentstream.Operation, i int, want string, got core.Object) *OperandError {
	name := "null"
	if got != nil {
		name = got.Type().String()
	}
	return &OperandError{
		Op:    op.Operator,
		Want:  want,
		Got:   name,
		Index: i,
		Msg:   fmt.Sprintf("operand %d is %s, want %s", i, name, want),
	}
}

// args returns the last n operands. Extra leading operands are ignored.
func args(op contentstream.Operation, n int) ([]core.Object, error) {
	if len(op.Operands) < n {
		return nil, countError(op, n)
	}
	return op.Operands[len(op.Operands)-n:], nil
}

// numbers returns the last n operands as numbers.
func numbers(op contentstream.Operation, n int) ([]float64, error) {
	a, err := args(op, n)
	if err != nil {
		return nil, err
	}
	vals := make([]float64, n)
	for i, obj := range a {
		v, ok := core.Number(obj)
		if !ok {
			return nil, typeError(op, len(op.Operands)-n+i, "number", obj)
		}
		vals[i] = v
	}
	return vals, nil
}

func number(op contentstream.Operation) (float64, error) {
	v, err := numbers(op, 1)
	if err != nil {
		return 0, err
	}
	return v[0], nil
}

func matrix(op contentstream.Operation) (model.Matrix, error) {
	v, err := numbers(op, 6)
	if err != nil {
		return model.Identity(), err
	}
	m, _ := model.MatrixFromArray(v)
	return m, nil
}

// nameArg returns operand i counted from the end as a name.
func nameArg(op contentstream.Operation, n, i int) (string, error) {
	a, err := args(op, n)
	if err != nil {
		return "", err
	}
	name, ok := a[i].(core.Name)
	if !ok {
		return "", typeError(op, len(op.Operands)-n+i, "name", a[i])
	}
	return string(name), nil
}

func stringArg(op contentstream.Operation, n, i int) ([]byte, error) {
	a, err := args(op, n)
	if err != nil {
		return nil, err
	}
	s, ok := a[i].(core.String)
	if !ok {
		return nil, typeError(op, len(op.Operands)-n+i, "string", a[i])
	}
	return []byte(s), nil
}

// arrayNumbers reads a resolved array of numbers, as in /Matrix or /BBox.
func (in *Interpreter) arrayNumbers(obj core.Object, n int) ([]float64, bool) {
	obj, err := in.res.Resolve(obj)
	if err != nil {
		return nil, false
	}
	arr, ok := obj.(core.Array)
	if !ok || len(arr) != n {
		return nil, false
	}
	vals := make([]float64, n)
	for i, e := range arr {
		e, err := in.res.Resolve(e)
		if err != nil {
			return nil, false
		}
		if vals[i], ok = core.Number(e); !ok {
			return nil, false
		}
	}
	return vals, true
}

func (in *Interpreter) dictNumber(d core.Dict, key string) (float64, bool) {
	obj, err := in.res.Resolve(d.Get(key))
	if err != nil {
		return 0, false
	}
	return core.Number(obj)
}
