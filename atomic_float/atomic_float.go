package atomic_float

import (
	"math"
	"sync/atomic"
)

// AtomicFloat64 encapsulates a float64 for non-locking atomic reads and writes.
// The solver is the only writer of a state-value table; the server's live values
// endpoint reads the same table while a solve is running. The zero value reads as 0.
type AtomicFloat64 struct {
	bits atomic.Uint64
}

// AtomicRead atomically reads the float64.
func (af *AtomicFloat64) AtomicRead() float64 {
	return math.Float64frombits(af.bits.Load())
}

// AtomicSet stores the float64 unconditionally.
func (af *AtomicFloat64) AtomicSet(val float64) {
	af.bits.Store(math.Float64bits(val))
}
