package pipeline

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/tilekit-ml/tilekit/internal/buffer"
	"github.com/tilekit-ml/tilekit/internal/layout"
	"github.com/tilekit-ml/tilekit/internal/tile"
	"github.com/tilekit-ml/tilekit/internal/trace"
)

// ReduceOp selects the reduction applied at the destination of AsyncReduce.
type ReduceOp int

// Supported reductions.
const (
	ReduceAdd ReduceOp = iota
	ReduceMax
	ReduceMin
)

// job is one hardware copy instruction's worth of work.
type job struct {
	run   func() int // moves the bytes, returns byte count
	bar   *Barrier
	trace string
}

// Engine models the asynchronous bulk-copy hardware: issuing returns
// immediately, worker goroutines stand in for the DMA units, and completion
// is observed only through a barrier wait. There is no cancellation; once
// issued, a copy runs to completion. Backpressure is the caller's job via
// the pipeline stage cap.
type Engine struct {
	jobs   chan job
	wg     sync.WaitGroup
	tracer *trace.Tracer

	closeOnce sync.Once
}

// EngineOption configures an Engine.
type EngineOption func(*engineConfig)

type engineConfig struct {
	workers int
	queue   int
	tracer  *trace.Tracer
}

// WithWorkers sets the number of DMA worker goroutines.
func WithWorkers(n int) EngineOption {
	return func(c *engineConfig) { c.workers = n }
}

// WithTracer attaches a copy tracer.
func WithTracer(t *trace.Tracer) EngineOption {
	return func(c *engineConfig) { c.tracer = t }
}

// NewEngine starts the copy workers.
func NewEngine(opts ...EngineOption) *Engine {
	cfg := engineConfig{
		workers: runtime.NumCPU(),
		queue:   256,
		tracer:  trace.Disabled(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.workers < 1 {
		cfg.workers = 1
	}

	e := &Engine{
		jobs:   make(chan job, cfg.queue),
		tracer: cfg.tracer,
	}
	e.wg.Add(cfg.workers)
	for i := 0; i < cfg.workers; i++ {
		go e.worker()
	}
	return e
}

func (e *Engine) worker() {
	defer e.wg.Done()
	for j := range e.jobs {
		n := j.run()
		e.tracer.ChunkDone(j.trace, n)
		if phase, done := j.bar.arriveBytes(n); done {
			e.tracer.BarrierPhase(phase)
		}
	}
}

// Close drains the queue and stops the workers. Outstanding copies complete
// first.
func (e *Engine) Close() {
	e.closeOnce.Do(func() {
		close(e.jobs)
		e.wg.Wait()
	})
}

// AsyncCopy loads the tile at the given per-dim tile coordinates from the
// descriptor's source into dst, decomposed into the descriptor's chunk
// grid, one job per chunk, all tagged with bar. The barrier fires once
// every chunk has arrived. dst must be 128-byte aligned shared memory
// matching the descriptor's tile shape; issuing returns immediately.
func (e *Engine) AsyncCopy(desc *Descriptor, dst tile.View, bar *Barrier, coords ...int) {
	e.issue(desc, []tile.View{dst}, bar, coords, "load")
}

// AsyncMulticast is AsyncCopy delivering the same tile to every cluster
// member selected by mask. dsts is indexed by cluster rank and capped by the
// descriptor target's cluster size; the barrier fires once all selected
// members' chunks have arrived.
func (e *Engine) AsyncMulticast(desc *Descriptor, dsts []tile.View, mask uint16, bar *Barrier, coords ...int) {
	if len(dsts) > 16 {
		panic(fmt.Sprintf("pipeline: %d cluster members, mask holds 16", len(dsts)))
	}
	if len(dsts) > desc.target.ClusterSize {
		panic(fmt.Sprintf("pipeline: %d cluster members on target %s with cluster size %d", len(dsts), desc.target.Name, desc.target.ClusterSize))
	}
	selected := make([]tile.View, 0, len(dsts))
	for i, d := range dsts {
		if mask&(1<<i) != 0 {
			selected = append(selected, d)
		}
	}
	if len(selected) == 0 {
		panic("pipeline: empty multicast mask")
	}
	e.issue(desc, selected, bar, coords, "multicast")
}

// issue validates destinations, arms the barrier with the total byte count,
// and enqueues one job per (destination, chunk).
func (e *Engine) issue(desc *Descriptor, dsts []tile.View, bar *Barrier, coords []int, kind string) {
	srcTile := desc.src.Sub(desc.tileLayout(), desc.tileBase(coords))
	chunkTiler := chunkTilerOf(desc)
	zSrc := layout.ZippedDivide(srcTile.Layout(), chunkTiler)

	for _, dst := range dsts {
		checkBulkDst(desc, dst)
	}

	total := desc.TileBytes() * len(dsts)
	bar.ExpectBytes(total)

	op := e.tracer.NewOpID()
	e.tracer.Issued(op, kind, total, desc.NumChunks()*len(dsts))

	for _, dst := range dsts {
		zDst := layout.ZippedDivide(dst.Layout(), chunkTiler)
		srcInner, srcOuter := zSrc.Mode(0), zSrc.Mode(1)
		dstInner, dstOuter := zDst.Mode(0), zDst.Mode(1)
		for c := 0; c < srcOuter.Size(); c++ {
			srcChunk := srcTile.Sub(srcInner, srcOuter.OffsetLinear(c))
			dstChunk := dst.Sub(dstInner, dstOuter.OffsetLinear(c))
			e.jobs <- job{
				run:   func() int { return copyElems(dstChunk, srcChunk) },
				bar:   bar,
				trace: op,
			}
		}
	}
}

// AsyncStore writes the tile in src back to the descriptor's source tensor
// at the given tile coordinates, shared to global. Completion is observed
// through bar, modeling the store commit group.
func (e *Engine) AsyncStore(desc *Descriptor, src tile.View, bar *Barrier, coords ...int) {
	checkBulkDst(desc, src)
	dstTile := desc.src.Sub(desc.tileLayout(), desc.tileBase(coords))
	chunkTiler := chunkTilerOf(desc)
	zDst := layout.ZippedDivide(dstTile.Layout(), chunkTiler)
	zSrc := layout.ZippedDivide(src.Layout(), chunkTiler)

	bar.ExpectBytes(desc.TileBytes())
	op := e.tracer.NewOpID()
	e.tracer.Issued(op, "store", desc.TileBytes(), desc.NumChunks())

	srcInner, srcOuter := zSrc.Mode(0), zSrc.Mode(1)
	dstInner, dstOuter := zDst.Mode(0), zDst.Mode(1)
	for c := 0; c < srcOuter.Size(); c++ {
		srcChunk := src.Sub(srcInner, srcOuter.OffsetLinear(c))
		dstChunk := dstTile.Sub(dstInner, dstOuter.OffsetLinear(c))
		e.jobs <- job{
			run:   func() int { return copyElems(dstChunk, srcChunk) },
			bar:   bar,
			trace: op,
		}
	}
}

// AsyncReduce is AsyncStore with the destination combined through op
// instead of overwritten.
func AsyncReduce[T tile.Scalar](e *Engine, desc *Descriptor, src tile.View, bar *Barrier, op ReduceOp, coords ...int) {
	checkBulkDst(desc, src)
	dstTile := desc.src.Sub(desc.tileLayout(), desc.tileBase(coords))
	chunkTiler := chunkTilerOf(desc)
	zDst := layout.ZippedDivide(dstTile.Layout(), chunkTiler)
	zSrc := layout.ZippedDivide(src.Layout(), chunkTiler)

	bar.ExpectBytes(desc.TileBytes())
	opID := e.tracer.NewOpID()
	e.tracer.Issued(opID, "reduce", desc.TileBytes(), desc.NumChunks())

	srcInner, srcOuter := zSrc.Mode(0), zSrc.Mode(1)
	dstInner, dstOuter := zDst.Mode(0), zDst.Mode(1)
	for c := 0; c < srcOuter.Size(); c++ {
		srcChunk := src.Sub(srcInner, srcOuter.OffsetLinear(c))
		dstChunk := dstTile.Sub(dstInner, dstOuter.OffsetLinear(c))
		e.jobs <- job{
			run:   func() int { return reduceElems[T](dstChunk, srcChunk, op) },
			bar:   bar,
			trace: opID,
		}
	}
}

// chunkTilerOf builds the per-dim chunk tiler of a descriptor.
func chunkTilerOf(desc *Descriptor) []layout.Layout {
	tiler := make([]layout.Layout, len(desc.chunk))
	for i, c := range desc.chunk {
		tiler[i] = layout.ColMajor(c)
	}
	return tiler
}

// checkBulkDst enforces the shared-memory side preconditions: address
// space, 128-byte alignment, and tile shape agreement.
func checkBulkDst(desc *Descriptor, v tile.View) {
	if v.Space() != buffer.Shared {
		panic(fmt.Sprintf("pipeline: bulk copy endpoint in %s memory, want shared", v.Space()))
	}
	if v.Buffer().Alignment() < buffer.BulkCopyAlign {
		panic(fmt.Sprintf("pipeline: bulk copy endpoint aligned to %d bytes, need %d", v.Buffer().Alignment(), buffer.BulkCopyAlign))
	}
	if v.Layout().Rank() != len(desc.tileShape) {
		panic(fmt.Sprintf("pipeline: endpoint rank %d does not match descriptor rank %d", v.Layout().Rank(), len(desc.tileShape)))
	}
	if v.Size() != desc.TileBytes()/desc.elemSize {
		panic(fmt.Sprintf("pipeline: endpoint holds %d elements, descriptor tile has %d", v.Size(), desc.TileBytes()/desc.elemSize))
	}
}

// copyElems moves every element of src to the same domain position of dst,
// honoring both views' layouts and swizzles. Returns bytes moved.
func copyElems(dst, src tile.View) int {
	es := src.ElemSize()
	db, sb := dst.Buffer().Bytes(), src.Buffer().Bytes()
	n := src.Size()
	for i := 0; i < n; i++ {
		so := src.ElemOffsetLinear(i) * es
		do := dst.ElemOffsetLinear(i) * es
		copy(db[do:do+es], sb[so:so+es])
	}
	return n * es
}

// reduceElems combines every element of src into dst through op.
func reduceElems[T tile.Scalar](dst, src tile.View, op ReduceOp) int {
	n := src.Size()
	for i := 0; i < n; i++ {
		s := tile.GetLinear[T](src, i)
		d := tile.GetLinear[T](dst, i)
		tile.SetLinear(dst, i, combine(d, s, op))
	}
	return n * src.ElemSize()
}

func combine[T tile.Scalar](d, s T, op ReduceOp) T {
	switch op {
	case ReduceAdd:
		return d + s
	case ReduceMax:
		if s > d {
			return s
		}
		return d
	case ReduceMin:
		if s < d {
			return s
		}
		return d
	default:
		panic(fmt.Sprintf("pipeline: reduce op %d", op))
	}
}
