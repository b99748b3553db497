package logging

import (
	"context"
	"log/slog"
	"sync"
	"testing"
)

func TestDefaultIsDiscard(t *testing.T) {
	old := Logger()
	defer SetLogger(old)

	SetLogger(nil)
	if !IsDiscard(Logger()) {
		t.Error("SetLogger(nil) should install the discard logger")
	}
	if Logger().Enabled(context.Background(), slog.LevelError) {
		t.Error("discard logger should not be enabled")
	}
}

func TestSetLogger(t *testing.T) {
	old := Logger()
	defer SetLogger(old)

	h := NewBufferedHandler(slog.LevelDebug)
	SetLogger(slog.New(h))
	Logger().Debug("xref merged", "sections", 2)

	if !h.Contains("DEBUG xref merged sections=2") {
		t.Errorf("captured %q", h.String())
	}
	if IsDiscard(Logger()) {
		t.Error("IsDiscard() on a real logger")
	}
}

func TestOr(t *testing.T) {
	l := slog.New(NewBufferedHandler(nil))
	if Or(l) != l {
		t.Error("Or(l) should return l")
	}
	if Or(nil) != Logger() {
		t.Error("Or(nil) should return the process-wide logger")
	}
}

func TestBufferedHandler(t *testing.T) {
	h := NewBufferedHandler(slog.LevelWarn)
	l := slog.New(h).With("doc", "a.pdf").WithGroup("op")

	l.Info("dropped")
	l.Warn("skipped operator", "name", "cm")

	want := []string{"WARN skipped operator doc=a.pdf op.name=cm"}
	got := h.Lines()
	if len(got) != 1 || got[0] != want[0] {
		t.Errorf("Lines() = %q, want %q", got, want)
	}

	h.Reset()
	if h.Lines() != nil {
		t.Errorf("after Reset: %q", h.Lines())
	}
}

func TestLoggerConcurrent(t *testing.T) {
	old := Logger()
	defer SetLogger(old)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				SetLogger(nil)
			}
			if Logger() == nil {
				t.Error("Logger() returned nil")
			}
		}(i)
	}
	wg.Wait()
}
