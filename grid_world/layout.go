package grid_world

import (
	"errors"
	"fmt"
)

// Layout is the static description of a grid: its bounds, impassable cells, the two
// terminal cells, and the start cell used for rollouts. A Layout is validated once by
// NewGridWorld and is never mutated afterwards.
type Layout struct {
	Rows, Cols int
	Obstacles  []Coord
	Win        Coord
	Lose       Coord
	Start      Coord
}

// DefaultLayout is the classic 3x4 grid: a single obstacle in the middle,
// the win cell in the top right corner and the lose cell directly below it.
func DefaultLayout() Layout {
	return Layout{
		Rows:      3,
		Cols:      4,
		Obstacles: []Coord{{Row: 1, Col: 1}},
		Win:       Coord{Row: 0, Col: 3},
		Lose:      Coord{Row: 1, Col: 3},
		Start:     Coord{Row: 2, Col: 0},
	}
}

// ErrInvalidConfig is the sentinel wrapped by every layout validation failure.
var ErrInvalidConfig = errors.New("invalid grid configuration")

// ConfigError describes which part of a Layout is invalid.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrInvalidConfig, e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error {
	return ErrInvalidConfig
}

func inBounds(rows, cols int, c Coord) bool {
	return c.Row >= 0 && c.Row < rows && c.Col >= 0 && c.Col < cols
}

// Validate checks the layout invariants. The first violation found is returned.
func (l Layout) Validate() error {
	if l.Rows <= 0 || l.Cols <= 0 {
		return &ConfigError{
			Field:  "rows/cols",
			Reason: fmt.Sprintf("dimensions must be positive, got %dx%d", l.Rows, l.Cols),
		}
	}

	obstacles := map[Coord]struct{}{}
	for _, o := range l.Obstacles {
		if !inBounds(l.Rows, l.Cols, o) {
			return &ConfigError{Field: "obstacles", Reason: fmt.Sprintf("%v is out of bounds", o)}
		}
		obstacles[o] = struct{}{}
	}

	cells := []struct {
		name string
		c    Coord
	}{
		{"win", l.Win},
		{"lose", l.Lose},
		{"start", l.Start},
	}
	for _, cell := range cells {
		if !inBounds(l.Rows, l.Cols, cell.c) {
			return &ConfigError{Field: cell.name, Reason: fmt.Sprintf("%v is out of bounds", cell.c)}
		}
		if _, ok := obstacles[cell.c]; ok {
			return &ConfigError{Field: cell.name, Reason: fmt.Sprintf("%v is an obstacle", cell.c)}
		}
	}

	if l.Win == l.Lose {
		return &ConfigError{Field: "win/lose", Reason: fmt.Sprintf("terminal cells coincide at %v", l.Win)}
	}
	return nil
}
