package pipeline

import (
	"bytes"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tilekit-ml/tilekit/internal/arch"
	"github.com/tilekit-ml/tilekit/internal/buffer"
	"github.com/tilekit-ml/tilekit/internal/layout"
	"github.com/tilekit-ml/tilekit/internal/swizzle"
	"github.com/tilekit-ml/tilekit/internal/tile"
	"github.com/tilekit-ml/tilekit/internal/trace"
)

// globalMatrix builds a rows-by-cols column-major float32 view in global
// memory with element i holding float32(i).
func globalMatrix(t *testing.T, rows, cols int) tile.View {
	t.Helper()
	buf := buffer.NewHost(rows * cols * 4)
	v := tile.Of[float32](buf, layout.ColMajor(rows, cols))
	for i := 0; i < rows*cols; i++ {
		tile.SetLinear(v, i, float32(i))
	}
	return v
}

// sharedTile allocates a shared-memory view of the given tile shape.
func sharedTile(t *testing.T, rows, cols int) tile.View {
	t.Helper()
	buf := buffer.NewShared(rows * cols * 4)
	return tile.Of[float32](buf, layout.ColMajor(rows, cols))
}

func TestStatePhaseCorrectness(t *testing.T) {
	const stages = 3
	s := NewState(stages)

	for k := 0; k < 4; k++ {
		for r := 0; r < stages; r++ {
			assert.Equal(t, r, s.Index(), "after %d full cycles and %d steps", k, r)
			assert.Equal(t, uint32(k%2), s.Phase(), "after %d full cycles and %d steps", k, r)
			s.Step()
		}
	}
	assert.Equal(t, uint(4*stages), s.Count())
}

func TestStateRejectsZeroStages(t *testing.T) {
	assert.Panics(t, func() { NewState(0) })
}

func TestBarrierLifecycle(t *testing.T) {
	b := NewBarrier()
	assert.Equal(t, Unarmed, b.State())

	b.Init(1)
	assert.Equal(t, Armed, b.State())

	b.ExpectBytes(64)
	assert.Equal(t, Expecting, b.State())

	b.Arrive(64)
	assert.Equal(t, Signaled, b.State())
	assert.Equal(t, uint32(1), b.Phase())

	b.Wait(0) // already flipped past phase 0, returns immediately
	assert.Equal(t, Consumed, b.State())
}

func TestBarrierDoubleInitPanics(t *testing.T) {
	b := NewBarrier()
	b.Init(1)
	assert.Panics(t, func() { b.Init(1) })
}

func TestBarrierRequiresInit(t *testing.T) {
	assert.Panics(t, func() { NewBarrier().Arrive(0) })
	assert.Panics(t, func() { NewBarrier().ExpectBytes(8) })
}

func TestBarrierBlocksUntilBytesDrain(t *testing.T) {
	b := NewBarrier()
	b.Init(0)
	b.ExpectBytes(128)

	released := make(chan struct{})
	go func() {
		b.Wait(0)
		close(released)
	}()

	b.arriveBytes(64)
	select {
	case <-released:
		t.Fatal("wait returned with bytes outstanding")
	case <-time.After(20 * time.Millisecond):
	}

	b.arriveBytes(64)
	select {
	case <-released:
	case <-time.After(time.Second):
		t.Fatal("wait did not return after all bytes arrived")
	}
}

func TestBarrierStaleSignalIsSafe(t *testing.T) {
	// A consumer holding the phase token observed before issue must not
	// block on a slot whose signal already landed.
	b := NewBarrier()
	b.Init(0)

	phase := b.Phase()
	b.ExpectBytes(32)
	b.arriveBytes(32) // signal lands before the consumer waits

	done := make(chan struct{})
	go func() {
		b.Wait(phase)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("wait blocked on an already completed phase")
	}
}

func TestBarrierManyConsumers(t *testing.T) {
	b := NewBarrier()
	b.Init(1)
	b.ExpectBytes(16)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.Wait(0)
		}()
	}
	b.Arrive(16)
	wg.Wait()
}

func TestDescriptorValidation(t *testing.T) {
	src := globalMatrix(t, 64, 64)

	assert.Panics(t, func() { NewDescriptor(src, []int{64}, SwizzleNone) }, "rank 1")
	assert.Panics(t, func() { NewDescriptor(src, []int{8, 8, 8, 8}, SwizzleNone) }, "rank 4")
	assert.Panics(t, func() { NewDescriptor(src, []int{24, 8}, SwizzleNone) }, "non-dividing tile")

	// 64 floats = 256 bytes exceeds every swizzle budget.
	assert.Panics(t, func() { NewDescriptor(src, []int{64, 8}, Swizzle128B) })
	// 24 bytes does not divide the 32B budget.
	assert.Panics(t, func() {
		NewDescriptor(globalMatrix(t, 48, 8), []int{6, 8}, Swizzle32B)
	})
	// 32 floats = 128 bytes exactly fills the 128B budget.
	assert.NotPanics(t, func() { NewDescriptor(src, []int{32, 8}, Swizzle128B) })
}

func TestDescriptorRejectsSharedSource(t *testing.T) {
	src := sharedTile(t, 16, 16)
	assert.Panics(t, func() { NewDescriptor(src, []int{8, 8}, SwizzleNone) })
}

func TestDescriptorTargetRankCap(t *testing.T) {
	sm80, ok := arch.Lookup("sm80")
	require.True(t, ok)

	buf := buffer.NewHost(8 * 8 * 8 * 4)
	src := tile.Of[float32](buf, layout.ColMajor(8, 8, 8))
	assert.Panics(t, func() { NewDescriptorFor(sm80, src, []int{4, 4, 4}, SwizzleNone) })
}

func TestDescriptorChunking(t *testing.T) {
	src := globalMatrix(t, 64, 16)
	d := NewDescriptor(src, []int{32, 8}, SwizzleNone)
	assert.Equal(t, []int{32, 8}, d.ChunkShape())
	assert.Equal(t, 1, d.NumChunks())
	assert.Equal(t, 32*8*4, d.TileBytes())

	// An extent beyond the per-instruction cap splits into chunks.
	wide := tile.Of[float32](buffer.NewHost(512*4*4), layout.ColMajor(512, 4))
	d = NewDescriptor(wide, []int{512, 4}, SwizzleNone)
	assert.Equal(t, []int{256, 4}, d.ChunkShape())
	assert.Equal(t, 2, d.NumChunks())
}

func TestAsyncCopyDeliversTile(t *testing.T) {
	src := globalMatrix(t, 16, 16)
	desc := NewDescriptor(src, []int{8, 8}, SwizzleNone)

	e := NewEngine(WithWorkers(4))
	defer e.Close()

	dst := sharedTile(t, 8, 8)
	bar := NewBarrier()
	bar.Init(0)

	e.AsyncCopy(desc, dst, bar, 1, 1) // tile at rows 8..15, cols 8..15
	bar.Wait(0)

	for r := 0; r < 8; r++ {
		for c := 0; c < 8; c++ {
			want := float32((8 + r) + (8+c)*16)
			got := tile.GetLinear[float32](dst, r+c*8)
			require.Equal(t, want, got, "tile element (%d,%d)", r, c)
		}
	}
}

func TestAsyncCopyRejectsBadDestination(t *testing.T) {
	src := globalMatrix(t, 16, 16)
	desc := NewDescriptor(src, []int{8, 8}, SwizzleNone)
	e := NewEngine(WithWorkers(1))
	defer e.Close()
	bar := NewBarrier()
	bar.Init(0)

	// Global-memory destination.
	assert.Panics(t, func() {
		e.AsyncCopy(desc, globalMatrix(t, 8, 8), bar, 0, 0)
	})
	// Wrong tile size.
	assert.Panics(t, func() {
		e.AsyncCopy(desc, sharedTile(t, 4, 4), bar, 0, 0)
	})
}

func TestAsyncMulticast(t *testing.T) {
	src := globalMatrix(t, 16, 16)
	desc := NewDescriptor(src, []int{8, 8}, SwizzleNone)
	e := NewEngine(WithWorkers(4))
	defer e.Close()

	dsts := []tile.View{sharedTile(t, 8, 8), sharedTile(t, 8, 8), sharedTile(t, 8, 8)}
	bar := NewBarrier()
	bar.Init(0)

	// Members 0 and 2 receive, member 1 does not.
	e.AsyncMulticast(desc, dsts, 0b101, bar, 0, 1)
	bar.Wait(0)

	for _, member := range []int{0, 2} {
		for i := 0; i < 64; i++ {
			r, c := i%8, i/8
			want := float32(r + (8+c)*16)
			require.Equal(t, want, tile.GetLinear[float32](dsts[member], i), "member %d element %d", member, i)
		}
	}
	assert.Equal(t, float32(0), tile.GetLinear[float32](dsts[1], 1), "unselected member must stay untouched")
}

func TestAsyncMulticastHonorsClusterSize(t *testing.T) {
	sm80, ok := arch.Lookup("sm80")
	require.True(t, ok)
	require.Equal(t, 1, sm80.ClusterSize)

	src := globalMatrix(t, 16, 16)
	desc := NewDescriptorFor(sm80, src, []int{8, 8}, SwizzleNone)
	e := NewEngine(WithWorkers(1))
	defer e.Close()
	bar := NewBarrier()
	bar.Init(0)

	dsts := []tile.View{sharedTile(t, 8, 8), sharedTile(t, 8, 8)}
	assert.Panics(t, func() { e.AsyncMulticast(desc, dsts, 0b11, bar, 0, 0) })
}

func TestEngineTracesBarrierPhase(t *testing.T) {
	var logBuf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logBuf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	src := globalMatrix(t, 16, 16)
	desc := NewDescriptor(src, []int{8, 8}, SwizzleNone)
	e := NewEngine(WithWorkers(1), WithTracer(trace.New(logger)))

	dst := sharedTile(t, 8, 8)
	bar := NewBarrier()
	bar.Init(0)
	e.AsyncCopy(desc, dst, bar, 0, 0)
	bar.Wait(0)
	e.Close() // workers flush their last events before Close returns

	out := logBuf.String()
	assert.True(t, strings.Contains(out, "copy issued"), "log: %s", out)
	assert.True(t, strings.Contains(out, "barrier phase complete"), "log: %s", out)
	assert.True(t, strings.Contains(out, "phase=0"), "log: %s", out)
}

func TestAsyncStoreWritesBack(t *testing.T) {
	dst := globalMatrix(t, 16, 16)
	for i := 0; i < 256; i++ {
		tile.SetLinear(dst, i, float32(0))
	}
	desc := NewDescriptor(dst, []int{8, 8}, SwizzleNone)
	e := NewEngine(WithWorkers(2))
	defer e.Close()

	stage := sharedTile(t, 8, 8)
	for i := 0; i < 64; i++ {
		tile.SetLinear(stage, i, float32(100+i))
	}

	bar := NewBarrier()
	bar.Init(0)
	e.AsyncStore(desc, stage, bar, 1, 0) // rows 8..15, cols 0..7
	bar.Wait(0)

	for i := 0; i < 64; i++ {
		r, c := i%8, i/8
		got := tile.GetLinear[float32](dst, (8+r)+c*16)
		require.Equal(t, float32(100+i), got, "stored element %d", i)
	}
	// Outside the stored tile everything stays zero.
	assert.Equal(t, float32(0), tile.GetLinear[float32](dst, 0))
}

func TestAsyncReduceAccumulates(t *testing.T) {
	dst := globalMatrix(t, 8, 8)
	desc := NewDescriptor(dst, []int{8, 8}, SwizzleNone)
	e := NewEngine(WithWorkers(2))
	defer e.Close()

	stage := sharedTile(t, 8, 8)
	for i := 0; i < 64; i++ {
		tile.SetLinear(stage, i, float32(1))
	}

	bar := NewBarrier()
	bar.Init(0)
	AsyncReduce[float32](e, desc, stage, bar, ReduceAdd, 0, 0)
	bar.Wait(0)

	for i := 0; i < 64; i++ {
		require.Equal(t, float32(i+1), tile.GetLinear[float32](dst, i))
	}
}

func TestAsyncCopyIntoSwizzledTile(t *testing.T) {
	src := globalMatrix(t, 16, 16)
	desc := NewDescriptor(src, []int{8, 8}, SwizzleNone)
	e := NewEngine(WithWorkers(4))
	defer e.Close()

	// The swizzled destination stores a bank-conflict-free permutation;
	// reading back through the same view is transparent.
	sw := sharedTile(t, 8, 8).WithSwizzle(swizzle.New(2, 0, 2))
	bar := NewBarrier()
	bar.Init(0)
	e.AsyncCopy(desc, sw, bar, 0, 0)
	bar.Wait(0)

	for i := 0; i < 64; i++ {
		r, c := i%8, i/8
		require.Equal(t, float32(r+c*16), tile.GetLinear[float32](sw, i))
	}
}

// TestPipelinedDoubleBuffer runs the canonical multi-stage producer and
// consumer loop: the producer keeps num_stages copies in flight, the
// consumer waits on each stage's barrier with the phase token from its own
// pipeline state. Stage slots and barriers recycle across phases.
func TestPipelinedDoubleBuffer(t *testing.T) {
	const (
		stages   = 2
		numTiles = 8
	)
	src := globalMatrix(t, 8, 8*numTiles)
	desc := NewDescriptor(src, []int{8, 8}, SwizzleNone)
	e := NewEngine(WithWorkers(4))
	defer e.Close()

	stageTiles := make([]tile.View, stages)
	bars := make([]*Barrier, stages)
	for i := range bars {
		stageTiles[i] = sharedTile(t, 8, 8)
		bars[i] = NewBarrier()
		bars[i].Init(0)
	}

	producer := NewState(stages)
	consumer := NewState(stages)
	sums := make([]float64, numTiles)

	issued := 0
	// Prime the pipeline.
	for ; issued < stages; issued++ {
		e.AsyncCopy(desc, stageTiles[producer.Index()], bars[producer.Index()], 0, issued)
		producer.Step()
	}

	for tl := 0; tl < numTiles; tl++ {
		slot := consumer.Index()
		bars[slot].Wait(consumer.Phase())

		var sum float64
		for i := 0; i < 64; i++ {
			sum += float64(tile.GetLinear[float32](stageTiles[slot], i))
		}
		sums[tl] = sum
		consumer.Step()

		// Backpressure: reuse the slot only after its consumer is done.
		if issued < numTiles {
			e.AsyncCopy(desc, stageTiles[producer.Index()], bars[producer.Index()], 0, issued)
			producer.Step()
			issued++
		}
	}

	for tl := 0; tl < numTiles; tl++ {
		var want float64
		for r := 0; r < 8; r++ {
			for c := 0; c < 8; c++ {
				want += float64(r + (tl*8+c)*8)
			}
		}
		assert.Equal(t, want, sums[tl], "tile %d checksum", tl)
	}
}
