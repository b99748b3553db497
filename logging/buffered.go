package logging

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// BufferedHandler is a slog.Handler that keeps records in memory, one line
// per record. Tests use it to check what was logged.
type BufferedHandler struct {
	level slog.Leveler
	attrs []string // formatted when added, under the group current then
	group string

	mu  *sync.Mutex
	buf *bytes.Buffer
}

// NewBufferedHandler returns a handler capturing records at level and
// above. A nil level captures everything.
func NewBufferedHandler(level slog.Leveler) *BufferedHandler {
	return &BufferedHandler{level: level, mu: &sync.Mutex{}, buf: &bytes.Buffer{}}
}

func (h *BufferedHandler) Enabled(_ context.Context, level slog.Level) bool {
	return h.level == nil || level >= h.level.Level()
}

// Handle writes "LEVEL message key=value ...".
func (h *BufferedHandler) Handle(_ context.Context, r slog.Record) error {
	var line strings.Builder
	fmt.Fprintf(&line, "%s %s", r.Level, r.Message)
	for _, a := range h.attrs {
		line.WriteString(" " + a)
	}
	r.Attrs(func(a slog.Attr) bool {
		line.WriteString(" " + h.format(a))
		return true
	})

	h.mu.Lock()
	defer h.mu.Unlock()
	h.buf.WriteString(line.String())
	h.buf.WriteByte('\n')
	return nil
}

func (h *BufferedHandler) format(a slog.Attr) string {
	if h.group == "" {
		return a.String()
	}
	return h.group + "." + a.String()
}

func (h *BufferedHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *h
	c.attrs = append([]string(nil), h.attrs...)
	for _, a := range attrs {
		c.attrs = append(c.attrs, h.format(a))
	}
	return &c
}

func (h *BufferedHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := *h
	if c.group != "" {
		c.group += "." + name
	} else {
		c.group = name
	}
	return &c
}

// String returns everything captured so far.
func (h *BufferedHandler) String() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.buf.String()
}

// Lines returns the captured records.
func (h *BufferedHandler) Lines() []string {
	s := strings.TrimSuffix(h.String(), "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

// Contains reports whether any captured record contains s.
func (h *BufferedHandler) Contains(s string) bool {
	return strings.Contains(h.String(), s)
}

// Reset discards captured output.
func (h *BufferedHandler) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.buf.Reset()
}
