package nnue

import (
	"sync"

	"github.com/hailam/nnueaffine/nnue/common"
)

// Evaluator runs an architecture from many goroutines at once. Parameters are
// shared read-only; every call borrows its own arena from a pool.
type Evaluator struct {
	arch  *Architecture
	arena sync.Pool
}

// NewEvaluator returns an evaluator for a fully loaded architecture.
func NewEvaluator(arch *Architecture) *Evaluator {
	size := arch.BufferSize()
	e := &Evaluator{arch: arch}
	e.arena.New = func() any {
		return common.NewArena(size)
	}
	return e
}

// Architecture returns the evaluated chain.
func (e *Evaluator) Architecture() *Architecture { return e.arch }

// Evaluate returns the raw network output for a transformed feature vector.
// features must hold InputDimensions bytes; with capacity for
// Architecture().FeatureSize() bytes it is read without a copy.
func (e *Evaluator) Evaluate(features []uint8) int32 {
	a := e.arena.Get().(*common.Arena)
	v := e.arch.Propagate(features, a.Bytes())
	e.arena.Put(a)
	return v
}

// EvaluateInto propagates with a caller-owned arena and returns the output
// layer's values, which alias the arena.
func (e *Evaluator) EvaluateInto(features []uint8, a *common.Arena) []int32 {
	return e.arch.Output().Propagate(features, a.Bytes())
}
