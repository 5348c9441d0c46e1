// Package pipeline implements the asynchronous tile-copy engine: bulk-copy
// descriptors, the software memory barrier the hardware mbarrier maps to,
// the circular pipeline state coordinating multi-stage transfers, and the
// engine that moves the bytes.
package pipeline

import "fmt"

// State is the circular stage/phase counter of a multi-buffered pipeline.
// index walks the stages round-robin; phase flips exactly when index wraps,
// disambiguating a wait on a recycled slot from a stale signal left by the
// previous cycle through it. Advance by exactly one Step per completed
// stage; there is no reset.
type State struct {
	index  int
	phase  uint32
	count  uint
	stages int
}

// NewState builds the state for a pipeline of numStages circular slots.
func NewState(numStages int) *State {
	if numStages <= 0 {
		panic(fmt.Sprintf("pipeline: %d stages", numStages))
	}
	return &State{stages: numStages}
}

// Step advances to the next stage.
func (s *State) Step() {
	s.index++
	s.count++
	if s.index == s.stages {
		s.index = 0
		s.phase ^= 1
	}
}

// Index returns the current stage slot, always in [0, NumStages()).
func (s *State) Index() int { return s.index }

// Phase returns the current phase bit.
func (s *State) Phase() uint32 { return s.phase }

// Count returns the total number of Steps taken.
func (s *State) Count() uint { return s.count }

// NumStages returns the stage capacity.
func (s *State) NumStages() int { return s.stages }
