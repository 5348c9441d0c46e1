// Package trace provides optional structured logging of asynchronous copy
// traffic. Each issued operation gets a stable id so its chunks and
// completion can be correlated in the log stream.
package trace

import (
	"log/slog"

	"github.com/google/uuid"
)

// Tracer logs copy-engine events. The zero-value-like Disabled tracer costs
// one branch per event.
type Tracer struct {
	log     *slog.Logger
	enabled bool
}

// New returns a tracer writing to l at debug level.
func New(l *slog.Logger) *Tracer {
	if l == nil {
		l = slog.Default()
	}
	return &Tracer{log: l, enabled: true}
}

// Disabled returns a tracer that drops every event.
func Disabled() *Tracer {
	return &Tracer{}
}

// NewOpID returns a fresh operation id.
func (t *Tracer) NewOpID() string {
	if !t.enabled {
		return ""
	}
	return uuid.NewString()
}

// Issued records an operation entering the queue.
func (t *Tracer) Issued(op, kind string, bytes, chunks int) {
	if !t.enabled {
		return
	}
	t.log.Debug("copy issued", "op", op, "kind", kind, "bytes", bytes, "chunks", chunks)
}

// ChunkDone records one chunk's completion.
func (t *Tracer) ChunkDone(op string, bytes int) {
	if !t.enabled {
		return
	}
	t.log.Debug("chunk done", "op", op, "bytes", bytes)
}

// BarrierPhase records a barrier completing a phase.
func (t *Tracer) BarrierPhase(phase uint32) {
	if !t.enabled {
		return
	}
	t.log.Debug("barrier phase complete", "phase", phase)
}
