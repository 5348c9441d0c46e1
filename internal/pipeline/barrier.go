package pipeline

import (
	"fmt"
	"sync"
)

// BarrierState is the lifecycle position of a barrier within its current
// phase.
type BarrierState int

// Barrier lifecycle states. A slot recycles to Armed when its phase
// completes.
const (
	Unarmed BarrierState = iota
	Armed
	Expecting
	Signaled
	Consumed
)

// String returns a human-readable state name.
func (s BarrierState) String() string {
	switch s {
	case Unarmed:
		return "unarmed"
	case Armed:
		return "armed"
	case Expecting:
		return "expecting"
	case Signaled:
		return "signaled"
	case Consumed:
		return "consumed"
	default:
		return "unknown"
	}
}

// Barrier models the hardware memory barrier cell: an arrival counter plus
// a transaction byte counter with a phase bit. Exactly one worker (or a
// designated subset) arms it with Init and ExpectBytes; producers Arrive;
// consumers block in Wait. The phase completes once the armed arrivals have
// all arrived and the expected bytes are fully accounted.
type Barrier struct {
	mu   sync.Mutex
	cond *sync.Cond

	phase        uint32
	state        BarrierState
	arrivals     int // required arrivals per phase
	arrivalsLeft int
	bytesLeft    int
	expecting    bool
}

// NewBarrier returns an unarmed barrier. Init must run before any Arrive or
// Wait.
func NewBarrier() *Barrier {
	b := &Barrier{}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Init arms the barrier with the number of arrivals required per phase.
// Called exactly once, before any traffic.
func (b *Barrier) Init(arrivals int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != Unarmed {
		panic("pipeline: barrier initialized twice")
	}
	if arrivals < 0 {
		panic(fmt.Sprintf("pipeline: %d arrivals", arrivals))
	}
	b.arrivals = arrivals
	b.arrivalsLeft = arrivals
	b.state = Armed
}

// ExpectBytes adds n transaction bytes to the current phase. The phase
// cannot complete until Arrive calls have accounted for all expected bytes.
func (b *Barrier) ExpectBytes(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == Unarmed {
		panic("pipeline: ExpectBytes on unarmed barrier")
	}
	b.bytesLeft += n
	b.expecting = true
	b.state = Expecting
}

// Arrive records one producer completion carrying n transferred bytes
// (n may be 0 for a plain arrival). Completes the phase when both counters
// drain.
func (b *Barrier) Arrive(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == Unarmed {
		panic("pipeline: Arrive on unarmed barrier")
	}
	b.arrivalsLeft--
	b.bytesLeft -= n
	b.tryCompleteLocked()
}

// arriveBytes accounts bytes without consuming an arrival slot; used by the
// engine's chunk workers, which are not worker-group participants. When this
// arrival finishes the phase it reports the completed phase token.
func (b *Barrier) arriveBytes(n int) (phase uint32, completed bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bytesLeft -= n
	phase = b.phase
	completed = b.tryCompleteLocked()
	return phase, completed
}

// tryCompleteLocked flips the phase once both counters drain and reports
// whether it did.
func (b *Barrier) tryCompleteLocked() bool {
	if b.arrivalsLeft > 0 || b.bytesLeft > 0 {
		return false
	}
	if b.arrivals == 0 && !b.expecting {
		// Nothing was ever armed for this phase.
		return false
	}
	b.phase ^= 1
	b.arrivalsLeft = b.arrivals
	b.bytesLeft = 0
	b.expecting = false
	b.state = Signaled
	b.cond.Broadcast()
	return true
}

// Wait blocks until the barrier completes the given phase: it returns once
// the barrier's phase differs from the token. Waiting with the phase
// observed before issuing is what makes a recycled slot safe: a stale
// signal from the previous cycle left the phase already flipped past the
// older token, so the wait returns immediately instead of consuming the new
// signal.
func (b *Barrier) Wait(phase uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for b.phase == phase {
		b.cond.Wait()
	}
	b.state = Consumed
}

// TryWait reports whether the given phase has already completed, without
// blocking.
func (b *Barrier) TryWait(phase uint32) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.phase == phase {
		return false
	}
	b.state = Consumed
	return true
}

// Phase returns the barrier's current phase bit.
func (b *Barrier) Phase() uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.phase
}

// State returns the barrier's lifecycle state.
func (b *Barrier) State() BarrierState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
