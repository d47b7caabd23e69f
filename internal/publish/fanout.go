package publish

import (
	"context"
	"fmt"
	"sync"

	"github.com/nerrad567/c4bridge-core/internal/entity"
)

// Logger defines the logging interface used by the publishers.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Fanout is an entity.StateWriter that forwards to several writers in the
// order they were added. A panicking writer is logged and skipped so the
// others still receive the update.
type Fanout struct {
	writers []entity.StateWriter
	mu      sync.RWMutex
	logger  Logger
}

// NewFanout creates a fan-out over writers. Nil writers are ignored.
func NewFanout(writers ...entity.StateWriter) *Fanout {
	f := &Fanout{logger: noopLogger{}}
	for _, w := range writers {
		f.Add(w)
	}
	return f
}

// SetLogger sets the logger for the fan-out.
func (f *Fanout) SetLogger(logger Logger) {
	f.logger = logger
}

// Add appends a writer.
func (f *Fanout) Add(w entity.StateWriter) {
	if w == nil {
		return
	}
	f.mu.Lock()
	f.writers = append(f.writers, w)
	f.mu.Unlock()
}

// Len returns the number of writers.
func (f *Fanout) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.writers)
}

// WriteState implements entity.StateWriter.
func (f *Fanout) WriteState(ctx context.Context, s entity.Snapshot) {
	for _, w := range f.snapshot() {
		f.safely("write state", func() { w.WriteState(ctx, s) })
	}
}

// DevicesRefreshed implements entity.StateWriter.
func (f *Fanout) DevicesRefreshed(ctx context.Context, r entity.Refresh) {
	for _, w := range f.snapshot() {
		f.safely("devices refreshed", func() { w.DevicesRefreshed(ctx, r) })
	}
}

func (f *Fanout) snapshot() []entity.StateWriter {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]entity.StateWriter, len(f.writers))
	copy(out, f.writers)
	return out
}

func (f *Fanout) safely(op string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			f.logger.Error("state writer panicked", "op", op, "panic", fmt.Sprint(r))
		}
	}()
	fn()
}
