package reinforcement

import (
	"gridvi/grid_world"
)

// Distribution is a probability per action, indexed in enumeration order.
type Distribution [grid_world.NUM_ACTIONS]float64

// Uniform assigns equal probability to every action.
func Uniform() (d Distribution) {
	for i := range d {
		d[i] = 1.0 / float64(grid_world.NUM_ACTIONS)
	}
	return
}

// OneHot assigns probability 1 to the action and 0 elsewhere.
func OneHot(a grid_world.Action) (d Distribution) {
	d[a] = 1.0
	return
}

// ArgMax returns the first action with the highest entry.
func (d Distribution) ArgMax() grid_world.Action {
	return grid_world.Action(argMax(d))
}

// IsOneHot reports whether exactly one action has probability 1 and the rest 0.
func (d Distribution) IsOneHot() bool {
	ones := 0
	for _, p := range d {
		switch p {
		case 1.0:
			ones++
		case 0.0:
		default:
			return false
		}
	}
	return ones == 1
}

// Sum is the total probability mass.
func (d Distribution) Sum() (sum float64) {
	for _, p := range d {
		sum += p
	}
	return
}

// Stable arg-max: the earliest index wins ties.
func argMax(vals [grid_world.NUM_ACTIONS]float64) int {
	best := 0
	for i := 1; i < len(vals); i++ {
		if vals[i] > vals[best] {
			best = i
		}
	}
	return best
}

// Snapshot is a copy of the solver tables after some sweep. Snapshots are what the
// presentation layers consume; they never reference the solver's live tables.
type Snapshot struct {
	Sweep     int                   `json:"sweep"`
	Delta     float64               `json:"delta"`
	Converged bool                  `json:"converged"`
	Rows      int                   `json:"rows"`
	Cols      int                   `json:"cols"`
	Values    [][]float64           `json:"values"`
	Policy    [][]Distribution      `json:"policy"`
	Best      [][]grid_world.Action `json:"best"`
}

// Value returns the snapshot's state value for the cell.
func (s *Snapshot) Value(c grid_world.Coord) float64 {
	return s.Values[c.Row][c.Col]
}

// Distribution returns the snapshot's action distribution for the cell.
func (s *Snapshot) Distribution(c grid_world.Coord) Distribution {
	return s.Policy[c.Row][c.Col]
}

// BestAction returns the arg-max action for the cell.
func (s *Snapshot) BestAction(c grid_world.Coord) grid_world.Action {
	return s.Best[c.Row][c.Col]
}
