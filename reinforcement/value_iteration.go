package reinforcement

/*
Value iteration over the deterministic grid world. Every sweep backs up each cell in
row-major order from the current state-value table, which is updated in place: cells
later in a sweep see the values already written for earlier cells (Gauss-Seidel rather
than Jacobi). Do not double-buffer the table; the fixed point is the same but the
trajectory, the sweep count and the tie-breaks along the way are not.
*/

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gridvi/atomic_float"
	"gridvi/grid_world"
)

var (
	ErrInvalidDiscount = errors.New("discount must satisfy 0 <= discount < 1")
	ErrInvalidEpsilon  = errors.New("convergence epsilon must be positive")
	// ErrMaxSweeps is returned by Solve when a configured sweep cap is reached first.
	ErrMaxSweeps = errors.New("sweep limit reached before convergence")
)

// ProgressFunc is called synchronously after every sweep with a copy of the tables.
// It runs on the solving goroutine and should complete quickly.
type ProgressFunc func(context.Context, Snapshot)

// Result summarizes a call to Solve.
type Result struct {
	Sweeps    int
	Delta     float64
	Converged bool
	// Deltas is the per-sweep delta history since construction.
	Deltas []float64
}

// Solver owns the state-value, action-value and policy tables for one grid world.
// State values may be read concurrently through StateValue while a solve runs;
// every other accessor must be called from the solving goroutine or after Solve returns.
// The per-cell accessors panic on coordinates outside the grid.
type Solver struct {
	world     *grid_world.GridWorld
	discount  float64
	epsilon   float64
	maxSweeps int

	stateValues  []atomic_float.AtomicFloat64
	actionValues [][grid_world.NUM_ACTIONS]float64
	policy       []Distribution

	sweeps    int
	deltas    []float64
	converged bool
}

// Option configures a Solver.
type Option func(*Solver)

// WithDiscount sets the Bellman discount applied to successor values.
func WithDiscount(discount float64) Option {
	return func(s *Solver) { s.discount = discount }
}

// WithEpsilon sets the convergence threshold on the summed absolute change per sweep.
func WithEpsilon(epsilon float64) Option {
	return func(s *Solver) { s.epsilon = epsilon }
}

// WithMaxSweeps caps the total number of sweeps; zero leaves the loop unbounded.
func WithMaxSweeps(n int) Option {
	return func(s *Solver) { s.maxSweeps = n }
}

// NewSolver returns a solver with zeroed values and a uniform policy.
func NewSolver(world *grid_world.GridWorld, opts ...Option) (*Solver, error) {
	if world == nil {
		return nil, fmt.Errorf("%w: nil grid world", grid_world.ErrInvalidConfig)
	}

	s := &Solver{
		world:    world,
		discount: DEFAULT_DISCOUNT,
		epsilon:  DEFAULT_EPSILON,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.discount < 0 || s.discount >= 1 || math.IsNaN(s.discount) {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidDiscount, s.discount)
	}
	if !(s.epsilon > 0) {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidEpsilon, s.epsilon)
	}
	if s.maxSweeps < 0 {
		s.maxSweeps = 0
	}

	n := world.NumCells()
	s.stateValues = make([]atomic_float.AtomicFloat64, n)
	s.actionValues = make([][grid_world.NUM_ACTIONS]float64, n)
	s.policy = make([]Distribution, n)
	for i := range s.policy {
		s.policy[i] = Uniform()
	}
	return s, nil
}

func (s *Solver) World() *grid_world.GridWorld { return s.world }
func (s *Solver) Discount() float64            { return s.discount }
func (s *Solver) Epsilon() float64             { return s.epsilon }
func (s *Solver) MaxSweeps() int               { return s.maxSweeps }
func (s *Solver) Sweeps() int                  { return s.sweeps }
func (s *Solver) Converged() bool              { return s.converged }

// StateValue is safe to call concurrently with Solve.
func (s *Solver) StateValue(c grid_world.Coord) float64 {
	return s.stateValues[s.world.Index(c)].AtomicRead()
}

func (s *Solver) ActionValue(c grid_world.Coord, a grid_world.Action) float64 {
	if !a.Valid() {
		a = grid_world.None
	}
	return s.actionValues[s.world.Index(c)][a]
}

func (s *Solver) Policy(c grid_world.Coord) Distribution {
	return s.policy[s.world.Index(c)]
}

func (s *Solver) BestAction(c grid_world.Coord) grid_world.Action {
	return s.Policy(c).ArgMax()
}

// Sweep performs one full in-place backup of every cell and returns the summed
// absolute change in state values.
func (s *Solver) Sweep() (delta float64) {
	previous := make([]float64, len(s.stateValues))
	for i := range s.stateValues {
		previous[i] = s.stateValues[i].AtomicRead()
	}

	s.world.Visit(func(c grid_world.Coord) {
		idx := s.world.Index(c)
		for _, a := range grid_world.Actions {
			next := s.world.NextState(c, a)
			s.actionValues[idx][a] = s.world.Reward(next) +
				s.discount*s.stateValues[s.world.Index(next)].AtomicRead()
		}
		best := argMax(s.actionValues[idx])
		s.policy[idx] = OneHot(grid_world.Action(best))
		s.stateValues[idx].AtomicSet(s.actionValues[idx][best])
	})

	for i := range s.stateValues {
		delta += math.Abs(previous[i] - s.stateValues[i].AtomicRead())
	}

	s.sweeps++
	s.deltas = append(s.deltas, delta)
	s.converged = delta < s.epsilon
	return delta
}

// Solve sweeps until the delta falls below epsilon. The context is only checked
// between sweeps. A solver that has already converged returns immediately without
// sweeping, leaving the tables untouched.
func (s *Solver) Solve(ctx context.Context, progressFn ProgressFunc) (Result, error) {
	for !s.converged {
		if err := ctx.Err(); err != nil {
			return s.result(), err
		}
		if s.maxSweeps > 0 && s.sweeps >= s.maxSweeps {
			return s.result(), fmt.Errorf("%w: %d sweeps, delta %g", ErrMaxSweeps, s.sweeps, s.lastDelta())
		}

		s.Sweep()
		if progressFn != nil {
			progressFn(ctx, s.Snapshot())
		}
	}
	return s.result(), nil
}

func (s *Solver) lastDelta() float64 {
	if len(s.deltas) == 0 {
		return math.Inf(1)
	}
	return s.deltas[len(s.deltas)-1]
}

func (s *Solver) result() Result {
	deltas := make([]float64, len(s.deltas))
	copy(deltas, s.deltas)
	return Result{
		Sweeps:    s.sweeps,
		Delta:     s.lastDelta(),
		Converged: s.converged,
		Deltas:    deltas,
	}
}

// Snapshot copies the current tables.
func (s *Solver) Snapshot() Snapshot {
	rows, cols := s.world.Rows(), s.world.Cols()
	snap := Snapshot{
		Sweep:     s.sweeps,
		Delta:     s.lastDelta(),
		Converged: s.converged,
		Rows:      rows,
		Cols:      cols,
		Values:    make([][]float64, rows),
		Policy:    make([][]Distribution, rows),
		Best:      make([][]grid_world.Action, rows),
	}
	if len(s.deltas) == 0 {
		snap.Delta = 0
	}
	for i := 0; i < rows; i++ {
		snap.Values[i] = make([]float64, cols)
		snap.Policy[i] = make([]Distribution, cols)
		snap.Best[i] = make([]grid_world.Action, cols)
	}
	s.world.Visit(func(c grid_world.Coord) {
		snap.Values[c.Row][c.Col] = s.StateValue(c)
		snap.Policy[c.Row][c.Col] = s.Policy(c)
		snap.Best[c.Row][c.Col] = s.BestAction(c)
	})
	return snap
}
