package reinforcement

import (
	"math/rand"

	"gridvi/grid_world"
)

// Step is a single time step of an agent: do action a in state s, observe reward r and successor s'.
type Step struct {
	State     grid_world.Coord
	Action    grid_world.Action
	Successor grid_world.Coord
	Reward    float64
}

// Episode is a sequence of Steps.
type Episode []Step

// Return is the undiscounted sum of rewards.
func (ep Episode) Return() (total float64) {
	for _, step := range ep {
		total += step.Reward
	}
	return
}

// DiscountedReturn is the sum of rewards discounted by gamma per time step.
func (ep Episode) DiscountedReturn(gamma float64) (total float64) {
	scale := 1.0
	for _, step := range ep {
		total += scale * step.Reward
		scale *= gamma
	}
	return
}

// Path returns the visited cells, starting with the first state.
func (ep Episode) Path() []grid_world.Coord {
	if len(ep) == 0 {
		return nil
	}
	path := []grid_world.Coord{ep[0].State}
	for _, step := range ep {
		path = append(path, step.Successor)
	}
	return path
}

// PolicyFunc returns the action distribution for a cell, e.g. Solver.Policy or Snapshot.Distribution.
type PolicyFunc func(grid_world.Coord) Distribution

// SampleAction draws an action from the distribution. An all-zero distribution yields None.
func SampleAction(dist Distribution, rng *rand.Rand) grid_world.Action {
	r := rng.Float64() * dist.Sum()
	last := grid_world.None
	cumulative := 0.0
	for i, p := range dist {
		if p <= 0 {
			continue
		}
		last = grid_world.Action(i)
		cumulative += p
		if r < cumulative {
			return last
		}
	}
	// Rounding may leave r at the very top of the range.
	return last
}

// Rollout simulates an episode from the world's start cell by sampling the policy
// until a terminal cell is reached or maxSteps steps have been taken. A non-positive
// maxSteps defaults to four times the number of cells.
func Rollout(
	world *grid_world.GridWorld,
	policy PolicyFunc,
	rng *rand.Rand,
	maxSteps int,
) (episode Episode) {
	if maxSteps <= 0 {
		maxSteps = 4 * world.NumCells()
	}

	state := world.Start()
	for t := 0; t < maxSteps && !world.IsTerminal(state); t++ {
		action := SampleAction(policy(state), rng)
		successor := world.NextState(state, action)
		episode = append(episode, Step{
			State:     state,
			Action:    action,
			Successor: successor,
			Reward:    world.Reward(successor),
		})
		state = successor
	}
	return
}
