// Copyright 2026 TileKit Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package pipeline

import (
	"log/slog"

	"github.com/tilekit-ml/tilekit/internal/arch"
	"github.com/tilekit-ml/tilekit/internal/pipeline"
	"github.com/tilekit-ml/tilekit/internal/tile"
	"github.com/tilekit-ml/tilekit/internal/trace"
)

// Type aliases for public API

// Target is one architecture capability table entry.
type Target = arch.Target

// LookupTarget returns the named target's capability entry.
func LookupTarget(name string) (Target, bool) { return arch.Lookup(name) }

// DefaultTarget returns the registry's default target.
func DefaultTarget() Target { return arch.Default() }

// Tracer logs async copy operations through slog.
type Tracer = trace.Tracer

// NewTracer builds a tracer on the given slog logger.
func NewTracer(logger *slog.Logger) *Tracer { return trace.New(logger) }

// State is the circular stage/phase counter of a multi-buffered pipeline.
type State = pipeline.State

// NewState builds the state for a pipeline of numStages circular slots.
func NewState(numStages int) *State { return pipeline.NewState(numStages) }

// BarrierState is the lifecycle position of a barrier within its phase.
type BarrierState = pipeline.BarrierState

// Barrier lifecycle states.
const (
	Unarmed   BarrierState = pipeline.Unarmed
	Armed     BarrierState = pipeline.Armed
	Expecting BarrierState = pipeline.Expecting
	Signaled  BarrierState = pipeline.Signaled
	Consumed  BarrierState = pipeline.Consumed
)

// Barrier is the software memory barrier completion is observed through: an
// arrival counter plus a transaction byte counter with a phase bit.
type Barrier = pipeline.Barrier

// NewBarrier returns an unarmed barrier. Init must run before any traffic.
func NewBarrier() *Barrier { return pipeline.NewBarrier() }

// SwizzleMode selects the shared-memory swizzle pattern a bulk copy
// descriptor is built for.
type SwizzleMode = pipeline.SwizzleMode

// Bulk-copy swizzle modes.
const (
	SwizzleNone SwizzleMode = pipeline.SwizzleNone
	Swizzle32B  SwizzleMode = pipeline.Swizzle32B
	Swizzle64B  SwizzleMode = pipeline.Swizzle64B
	Swizzle128B SwizzleMode = pipeline.Swizzle128B
)

// Descriptor describes a fixed source tensor and tile shape for repeated
// asynchronous transfers. Created once, immutable, reused.
type Descriptor = pipeline.Descriptor

// NewDescriptor validates and builds a bulk-copy descriptor against the
// default target.
//
// Example:
//
//	src := tile.Of[float32](buf, layout.ColMajor(1024, 1024))
//	desc := pipeline.NewDescriptor(src, []int{128, 64}, pipeline.Swizzle128B)
func NewDescriptor(src tile.View, tileShape []int, mode SwizzleMode) *Descriptor {
	return pipeline.NewDescriptor(src, tileShape, mode)
}

// NewDescriptorFor is NewDescriptor against an explicit target table entry.
func NewDescriptorFor(target arch.Target, src tile.View, tileShape []int, mode SwizzleMode) *Descriptor {
	return pipeline.NewDescriptorFor(target, src, tileShape, mode)
}

// ReduceOp selects the reduction applied at the destination of AsyncReduce.
type ReduceOp = pipeline.ReduceOp

// Supported reductions.
const (
	ReduceAdd ReduceOp = pipeline.ReduceAdd
	ReduceMax ReduceOp = pipeline.ReduceMax
	ReduceMin ReduceOp = pipeline.ReduceMin
)

// Engine models the asynchronous bulk-copy hardware: issuing returns
// immediately and completion is observed only through a barrier wait.
type Engine = pipeline.Engine

// EngineOption configures an Engine.
type EngineOption = pipeline.EngineOption

// WithWorkers sets the number of DMA worker goroutines.
func WithWorkers(n int) EngineOption { return pipeline.WithWorkers(n) }

// WithTracer attaches a copy tracer.
func WithTracer(t *trace.Tracer) EngineOption { return pipeline.WithTracer(t) }

// NewEngine starts the copy workers.
//
// Example:
//
//	e := pipeline.NewEngine(pipeline.WithWorkers(4))
//	defer e.Close()
//
//	bar := pipeline.NewBarrier()
//	bar.Init(0)
//	e.AsyncCopy(desc, dst, bar, 0, 0)
//	bar.Wait(0)
func NewEngine(opts ...EngineOption) *Engine { return pipeline.NewEngine(opts...) }

// AsyncReduce is AsyncStore with the destination combined through op
// instead of overwritten.
func AsyncReduce[T tile.Scalar](e *Engine, desc *Descriptor, src tile.View, bar *Barrier, op ReduceOp, coords ...int) {
	pipeline.AsyncReduce[T](e, desc, src, bar, op, coords...)
}
