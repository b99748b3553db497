package filters

import (
	"bytes"
	"errors"
	"fmt"
	"io"
)

// Stage is one link of a filter chain. Write accepts a chunk of input,
// which the stage may buffer or transform and forward immediately. Close
// finishes the stage: it flushes buffered state into the next stage and
// then closes that stage, so closing the head of a chain flushes the whole
// chain. Closing a stage twice is harmless; writing after Close fails.
//
// A Stage is owned by a single writer for the lifetime of one decode or
// encode operation.
type Stage interface {
	io.WriteCloser
	Name() string
}

// Options bounds the work a decoder may do.
type Options struct {
	// MaxDecodedSize caps the number of bytes each decoding stage may
	// produce. Zero means no limit.
	MaxDecodedSize int64
}

var (
	// ErrMemoryLimit is returned when a decoder would produce more output
	// than Options.MaxDecodedSize allows. It is never wrapped in a
	// DecodeError, so callers can tell a decompression bomb apart from
	// corrupt input.
	ErrMemoryLimit = errors.New("decoded data exceeds memory limit")

	// ErrUnsupportedFilter is returned for filter names this package
	// cannot decode or encode.
	ErrUnsupportedFilter = errors.New("unsupported filter")

	// ErrClosed is returned by Write after Close.
	ErrClosed = errors.New("write to closed filter stage")
)

// DecodeError reports malformed input to a filter.
type DecodeError struct {
	Filter string
	Err    error
}

func (e *DecodeError) Error() string {
	return e.Filter + ": " + e.Err.Error()
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func decodeErrorf(filter, format string, args ...interface{}) error {
	return &DecodeError{Filter: filter, Err: fmt.Errorf(format, args...)}
}

// Buffer is the usual terminal stage of a chain. It collects everything
// written to it; Bytes returns the collected data.
type Buffer struct {
	buf    bytes.Buffer
	closed bool
}

// NewBuffer returns an empty collector.
func NewBuffer() *Buffer {
	return &Buffer{}
}

func (b *Buffer) Write(p []byte) (int, error) {
	if b.closed {
		return 0, ErrClosed
	}
	return b.buf.Write(p)
}

// Close marks the buffer finished. It has no other effect.
func (b *Buffer) Close() error {
	b.closed = true
	return nil
}

// Name returns "Buffer".
func (b *Buffer) Name() string { return "Buffer" }

// Bytes returns the accumulated bytes. The result is complete once Close
// has propagated through the chain feeding the buffer.
func (b *Buffer) Bytes() []byte {
	return b.buf.Bytes()
}

// Len returns the number of bytes collected so far.
func (b *Buffer) Len() int {
	return b.buf.Len()
}

// Closed reports whether Close has been called.
func (b *Buffer) Closed() bool {
	return b.closed
}

// stage implements the Stage bookkeeping shared by every filter: sticky
// errors, single Close, and propagation to the next stage. The filter
// itself supplies write and flush.
type stage struct {
	name   string
	next   Stage
	write  func(p []byte) error
	flush  func() error
	closed bool
	err    error
}

func (s *stage) Name() string { return s.name }

func (s *stage) Write(p []byte) (int, error) {
	if s.closed {
		return 0, ErrClosed
	}
	if s.err != nil {
		return 0, s.err
	}
	if len(p) == 0 {
		return 0, nil
	}
	if err := s.write(p); err != nil {
		s.err = err
		return 0, err
	}
	return len(p), nil
}

func (s *stage) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	err := s.err
	if err == nil && s.flush != nil {
		err = s.flush()
	}
	if cerr := s.next.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		s.err = err
	}
	return err
}

// limitWriter forwards to w until more than max bytes have passed through.
type limitWriter struct {
	w   io.Writer
	max int64
	n   int64
}

func (l *limitWriter) Write(p []byte) (int, error) {
	if l.max > 0 && l.n+int64(len(p)) > l.max {
		return 0, fmt.Errorf("%w (limit %d bytes)", ErrMemoryLimit, l.max)
	}
	n, err := l.w.Write(p)
	l.n += int64(n)
	return n, err
}

// output returns the writer a decoder should send its output through.
func output(next Stage, opts Options) io.Writer {
	if opts.MaxDecodedSize <= 0 {
		return next
	}
	return &limitWriter{w: next, max: opts.MaxDecodedSize}
}

// newPassThrough forwards bytes unchanged. It is used for image codecs
// whose output this package does not interpret and for Identity crypt
// filters.
func newPassThrough(name string, next Stage) Stage {
	return &stage{
		name: name,
		next: next,
		write: func(p []byte) error {
			_, err := next.Write(p)
			return err
		},
	}
}
