package core

import (
	"errors"
	"fmt"
)

// Structural errors. They are wrapped with context, so compare with
// errors.Is.
var (
	ErrNotFound          = errors.New("object not found in xref")
	ErrFreeObject        = errors.New("object is free")
	ErrObjectMismatch    = errors.New("object number or generation mismatch")
	ErrMaxDepth          = errors.New("maximum nesting depth exceeded")
	ErrCircularReference = errors.New("circular reference")
	ErrWrongType         = errors.New("unexpected object type")
)

// MaxDepth bounds the nesting of arrays and dictionaries.
const MaxDepth = 100

// SyntaxError reports malformed PDF syntax at a byte offset.
type SyntaxError struct {
	Offset int64
	Msg    string
	Err    error
}

func (e *SyntaxError) Error() string {
	s := fmt.Sprintf("pdf syntax error at offset %d: %s", e.Offset, e.Msg)
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *SyntaxError) Unwrap() error {
	return e.Err
}

func syntaxErrorf(offset int64, format string, args ...interface{}) error {
	return &SyntaxError{Offset: offset, Msg: fmt.Sprintf(format, args...)}
}

// wrongType reports that obj is not of the wanted type.
func wrongType(what string, obj Object) error {
	return fmt.Errorf("%w: %s is %s", ErrWrongType, what, typeName(obj))
}

func typeName(obj Object) string {
	if obj == nil {
		return "missing"
	}
	return obj.Type().String()
}
