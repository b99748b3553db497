package interpreter

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/tsawler/pdfengine/contentstream"
	"github.com/tsawler/pdfengine/core"
	"github.com/tsawler/pdfengine/device"
	"github.com/tsawler/pdfengine/font"
	"github.com/tsawler/pdfengine/graphicsstate"
	"github.com/tsawler/pdfengine/logging"
	"github.com/tsawler/pdfengine/model"
	"github.com/tsawler/pdfengine/pages"
)

// DefaultMaxFormDepth bounds the nesting of forms, patterns and soft masks.
const DefaultMaxFormDepth = 100

// ErrFormDepth is returned when forms nest deeper than the configured limit.
var ErrFormDepth = errors.New("form XObjects nested too deeply")

// ResourceResolver resolves the objects named by resource dictionaries
// and decodes their streams. *reader.Reader implements it.
type ResourceResolver interface {
	Resolve(obj core.Object) (core.Object, error)
	DecodeStream(s *core.Stream) ([]byte, error)
}

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithErrorHandler sets the policy for operator errors. The handler is
// called with each error; returning nil skips the operator and continues,
// returning an error aborts Run with it. By default every error aborts.
func WithErrorHandler(h func(error) error) Option {
	return func(in *Interpreter) {
		in.onError = h
	}
}

// SkipErrors logs operator errors at warning level and continues.
func SkipErrors() Option {
	return func(in *Interpreter) {
		in.onError = func(err error) error {
			in.log.Warn("skipping operator", "error", err)
			return nil
		}
	}
}

// WithLogger sets the logger. The default is logging.Logger().
func WithLogger(l *slog.Logger) Option {
	return func(in *Interpreter) {
		in.log = l
	}
}

// WithMaxFormDepth sets how deeply forms, patterns and soft masks may nest.
func WithMaxFormDepth(n int) Option {
	return func(in *Interpreter) {
		if n > 0 {
			in.maxFormDepth = n
		}
	}
}

type clipRule int

const (
	noClip clipRule = iota
	clipNonZero
	clipEvenOdd
)

// frame is the part of the interpreter state that a nested content stream
// replaces and restores.
type frame struct {
	resources core.Dict
	path      *graphicsstate.Path
	clip      clipRule

	// floor is the stack depth below which Q does not pop.
	floor int

	// baseCTM maps pattern space for patterns used in this stream.
	baseCTM model.Matrix
}

// Interpreter executes content streams against a Device. It is not safe
// for concurrent use; a single Interpreter may run many pages in turn.
type Interpreter struct {
	dev          device.Device
	res          ResourceResolver
	log          *slog.Logger
	onError      func(error) error
	maxFormDepth int

	stack *graphicsstate.Stack
	frame
	depth int

	// The text run being collected. Glyph matrices are relative to the
	// text matrix at its first glyph; textInv undoes it.
	text     *device.Text
	textInv  model.Matrix
	textCTM  model.Matrix
	textMode int

	fonts map[core.IndirectRef]*font.Font
}

// New returns an interpreter drawing to dev and loading resources through
// res.
func New(dev device.Device, res ResourceResolver, opts ...Option) *Interpreter {
	in := &Interpreter{
		dev:          dev,
		res:          res,
		maxFormDepth: DefaultMaxFormDepth,
		fonts:        make(map[core.IndirectRef]*font.Font),
	}
	for _, opt := range opts {
		opt(in)
	}
	in.log = logging.Or(in.log)
	if in.onError == nil {
		in.onError = func(err error) error { return err }
	}
	return in
}

// abortError carries an error the handler chose to abort with out of
// nested content streams without consulting the handler again.
type abortError struct {
	err error
}

func (e *abortError) Error() string { return e.err.Error() }
func (e *abortError) Unwrap() error { return e.err }

// Run interprets content with the given resources. ctm maps user space to
// device space; see PageMatrix. Clips and saved states left open by the
// content are closed before Run returns.
func (in *Interpreter) Run(content []byte, resources core.Dict, ctm model.Matrix) error {
	gs := graphicsstate.NewGraphicsState()
	gs.CTM = ctm
	in.stack = graphicsstate.NewStack(gs)
	in.frame = frame{resources: resources, path: graphicsstate.NewPath(), baseCTM: ctm}
	in.depth = 0
	in.text = nil

	err := in.execute(content)
	in.flushText()
	in.popTo(0)
	for i := in.stack.Current().ClipDepth; i > 0; i-- {
		in.dev.PopClip()
	}

	var abort *abortError
	if errors.As(err, &abort) {
		return abort.err
	}
	return err
}

// RunPage interprets the contents of page using its resources, with
// PageMatrix as the initial CTM.
func (in *Interpreter) RunPage(page *pages.Page) error {
	ctm, err := PageMatrix(page)
	if err != nil {
		return err
	}
	resources, err := page.Resources()
	if err != nil {
		return err
	}
	streams, err := page.Contents()
	if err != nil {
		return err
	}
	var content []byte
	for i, s := range streams {
		data, err := in.res.DecodeStream(s)
		if err != nil {
			return fmt.Errorf("content stream %d: %w", i, err)
		}
		if i > 0 {
			content = append(content, '\n')
		}
		content = append(content, data...)
	}
	return in.Run(content, resources, ctm)
}

// PageMatrix maps the default user space of page to a y-up device space
// whose origin is the lower-left corner of the rotated CropBox.
func PageMatrix(page *pages.Page) (model.Matrix, error) {
	box, err := page.CropBox()
	if err != nil {
		return model.Identity(), err
	}
	w, h := box[2]-box[0], box[3]-box[1]

	var rot model.Matrix
	switch page.Rotate() {
	case 90:
		rot = model.Matrix{0, -1, 1, 0, 0, w}
	case 180:
		rot = model.Matrix{-1, 0, 0, -1, w, h}
	case 270:
		rot = model.Matrix{0, 1, -1, 0, h, 0}
	default:
		rot = model.Identity()
	}
	return model.Translate(-box[0], -box[1]).Multiply(rot), nil
}

func (in *Interpreter) execute(content []byte) error {
	p := contentstream.NewParser(content)
	for {
		op, err := p.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			if err := in.handle(err); err != nil {
				return err
			}
			continue
		}

		if err := in.processOperation(op); err != nil {
			var abort *abortError
			if errors.As(err, &abort) {
				return err
			}
			if err := in.handle(fmt.Errorf("%s at offset %d: %w", op.Operator, op.Offset, err)); err != nil {
				return err
			}
		}
	}
}

func (in *Interpreter) handle(err error) error {
	in.log.Debug("content stream error", "error", err)
	if herr := in.onError(err); herr != nil {
		return &abortError{err: herr}
	}
	return nil
}

func (in *Interpreter) gs() *graphicsstate.GraphicsState {
	return in.stack.Current()
}

func (in *Interpreter) push() {
	in.flushText()
	in.stack.Push()
}

// pop restores the saved state, closing the clips set since it was saved.
func (in *Interpreter) pop() {
	in.flushText()
	popped, ok := in.stack.Pop()
	if !ok {
		return
	}
	for i := popped.ClipDepth - in.gs().ClipDepth; i > 0; i-- {
		in.dev.PopClip()
	}
}

func (in *Interpreter) popTo(depth int) {
	for in.stack.Depth() > depth {
		in.pop()
	}
}

// nest runs fn in a fresh frame on top of a saved graphics state. fn may
// modify the pushed state; it is discarded afterwards.
func (in *Interpreter) nest(resources core.Dict, fn func() error) error {
	if in.depth >= in.maxFormDepth {
		return fmt.Errorf("depth %d: %w", in.depth, ErrFormDepth)
	}
	in.push()
	saved := in.frame
	if resources == nil {
		resources = saved.resources
	}
	in.frame = frame{
		resources: resources,
		path:      graphicsstate.NewPath(),
		floor:     in.stack.Depth(),
		baseCTM:   saved.baseCTM,
	}
	in.depth++

	err := fn()

	in.depth--
	in.flushText()
	in.popTo(in.frame.floor - 1)
	in.frame = saved
	return err
}

// run executes nested content: the states it saves are restored and its
// clips closed before run returns, so that callers can end groups.
func (in *Interpreter) run(content []byte) error {
	err := in.execute(content)
	in.flushText()
	in.popTo(in.frame.floor)
	return err
}

func (in *Interpreter) fillPaint() device.Paint {
	gs := in.gs()
	return device.Paint{Space: gs.FillSpace, Components: gs.FillColor, Pattern: gs.FillPattern, Alpha: gs.FillAlpha}
}

func (in *Interpreter) strokePaint() device.Paint {
	gs := in.gs()
	return device.Paint{Space: gs.StrokeSpace, Components: gs.StrokeColor, Pattern: gs.StrokePattern, Alpha: gs.StrokeAlpha}
}

// resource returns the entry name of resource category cat, resolved.
func (in *Interpreter) resource(cat, name string) (core.Object, error) {
	obj, err := in.res.Resolve(in.resources.Get(cat))
	if err != nil {
		return nil, fmt.Errorf("/%s: %w", cat, err)
	}
	dict, ok := obj.(core.Dict)
	if !ok {
		return nil, fmt.Errorf("/%s /%s: %w", cat, name, core.ErrNotFound)
	}
	entry, ok := dict[name]
	if !ok {
		return nil, fmt.Errorf("/%s /%s: %w", cat, name, core.ErrNotFound)
	}
	obj, err = in.res.Resolve(entry)
	if err != nil {
		return nil, fmt.Errorf("/%s /%s: %w", cat, name, err)
	}
	return obj, nil
}
