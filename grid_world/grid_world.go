// Package grid_world is the deterministic environment model: a bounded grid of cells
// with obstacles and two terminal cells, a transition function mapping a cell and an
// action to the successor cell, and a reward function over successor cells.
package grid_world

import "fmt"

// Coord is a (row, col) grid position. Row 0 is the top row when printed.
type Coord struct {
	Row, Col int
}

func (c Coord) String() string {
	return fmt.Sprintf("(%d,%d)", c.Row, c.Col)
}

// Add returns the coordinate displaced by the offset, without bounds checks.
func (c Coord) Add(off Offset) Coord {
	return Coord{Row: c.Row + off.DRow, Col: c.Col + off.DCol}
}

// Cell types, mostly for display purposes.
const (
	OPEN     = 'o'
	OBSTACLE = 'W'
	START    = '-'
	WIN      = '+'
	LOSE     = 'x'
)

// Rewards of the default reward function.
const (
	WIN_REWARD  = 1.0
	LOSE_REWARD = -1.0
	STEP_REWARD = 0.0
)

// RewardFunc computes the reward for landing in a successor cell.
type RewardFunc func(gw *GridWorld, successor Coord) float64

// WinLoseReward is the default reward: +1 for landing on the win cell, -1 for the lose
// cell, and zero otherwise. Only the successor matters, not the originating cell or action.
func WinLoseReward(gw *GridWorld, successor Coord) float64 {
	switch successor {
	case gw.win:
		return WIN_REWARD
	case gw.lose:
		return LOSE_REWARD
	default:
		return STEP_REWARD
	}
}

// GridWorld is immutable after construction and safe to share between goroutines.
type GridWorld struct {
	rows, cols int
	obstacles  map[Coord]struct{}
	win, lose  Coord
	start      Coord
	rewardFn   RewardFunc
}

// Option customizes a GridWorld at construction.
type Option func(*GridWorld)

// WithRewardFunc replaces the default win/lose reward rule.
func WithRewardFunc(fn RewardFunc) Option {
	return func(gw *GridWorld) {
		if fn != nil {
			gw.rewardFn = fn
		}
	}
}

// NewGridWorld validates the layout and builds the model. A *ConfigError wrapping
// ErrInvalidConfig is returned for any layout violation.
func NewGridWorld(layout Layout, opts ...Option) (*GridWorld, error) {
	if err := layout.Validate(); err != nil {
		return nil, err
	}

	gw := &GridWorld{
		rows:      layout.Rows,
		cols:      layout.Cols,
		obstacles: make(map[Coord]struct{}, len(layout.Obstacles)),
		win:       layout.Win,
		lose:      layout.Lose,
		start:     layout.Start,
		rewardFn:  WinLoseReward,
	}
	for _, o := range layout.Obstacles {
		gw.obstacles[o] = struct{}{}
	}
	for _, opt := range opts {
		opt(gw)
	}
	return gw, nil
}

func (gw *GridWorld) Rows() int    { return gw.rows }
func (gw *GridWorld) Cols() int    { return gw.cols }
func (gw *GridWorld) Win() Coord   { return gw.win }
func (gw *GridWorld) Lose() Coord  { return gw.lose }
func (gw *GridWorld) Start() Coord { return gw.start }

// Obstacles returns the obstacle cells in row-major order.
func (gw *GridWorld) Obstacles() (obstacles []Coord) {
	gw.Visit(func(c Coord) {
		if gw.IsObstacle(c) {
			obstacles = append(obstacles, c)
		}
	})
	return
}

// Layout returns a copy of the layout the world was built from.
func (gw *GridWorld) Layout() Layout {
	return Layout{
		Rows:      gw.rows,
		Cols:      gw.cols,
		Obstacles: gw.Obstacles(),
		Win:       gw.win,
		Lose:      gw.lose,
		Start:     gw.start,
	}
}

func (gw *GridWorld) IsObstacle(c Coord) bool {
	_, ok := gw.obstacles[c]
	return ok
}

func (gw *GridWorld) InBounds(c Coord) bool {
	return inBounds(gw.rows, gw.cols, c)
}

func (gw *GridWorld) IsTerminal(c Coord) bool {
	return c == gw.win || c == gw.lose
}

// NextState is the deterministic transition function. The agent bounces and stays put
// when the move would leave the grid or enter an obstacle. Actions outside the
// enumeration are treated as None.
func (gw *GridWorld) NextState(c Coord, a Action) Coord {
	candidate := c.Add(a.Offset())
	if !gw.InBounds(candidate) || gw.IsObstacle(candidate) {
		return c
	}
	return candidate
}

// Reward returns the reward for landing in the successor cell.
func (gw *GridWorld) Reward(successor Coord) float64 {
	return gw.rewardFn(gw, successor)
}

// CellType returns the display type of the cell.
func (gw *GridWorld) CellType(c Coord) rune {
	switch {
	case gw.IsObstacle(c):
		return OBSTACLE
	case c == gw.win:
		return WIN
	case c == gw.lose:
		return LOSE
	case c == gw.start:
		return START
	default:
		return OPEN
	}
}

// NumCells is rows*cols, including obstacles.
func (gw *GridWorld) NumCells() int {
	return gw.rows * gw.cols
}

// Index maps a coordinate to its row-major index. It panics if c is out of bounds.
func (gw *GridWorld) Index(c Coord) int {
	if !gw.InBounds(c) {
		panic(fmt.Sprintf("grid_world: coordinate %v outside %dx%d grid", c, gw.rows, gw.cols))
	}
	return c.Row*gw.cols + c.Col
}

// Visit calls fn for every cell in row-major order.
func (gw *GridWorld) Visit(fn func(c Coord)) {
	for i := 0; i < gw.rows; i++ {
		for j := 0; j < gw.cols; j++ {
			fn(Coord{Row: i, Col: j})
		}
	}
}

// Cells returns every coordinate in row-major order.
func (gw *GridWorld) Cells() []Coord {
	cells := make([]Coord, 0, gw.NumCells())
	gw.Visit(func(c Coord) { cells = append(cells, c) })
	return cells
}
