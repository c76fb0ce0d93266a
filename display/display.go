// Package display renders the grid world and solver output to a console.
// Nothing here mutates solver state; it only reads snapshots and the grid layout.
package display

import (
	"fmt"
	"io"
	"strings"

	"gridvi/grid_world"
	"gridvi/reinforcement"

	"github.com/logrusorgru/aurora"
)

// Board tokens
const (
	EMPTY_TOKEN    = "0"
	OBSTACLE_TOKEN = "z"
	AGENT_TOKEN    = "*"
)

// Policy glyphs
const (
	UP_GLYPH       = "↑"
	DOWN_GLYPH     = "↓"
	LEFT_GLYPH     = "←"
	RIGHT_GLYPH    = "→"
	NONE_GLYPH     = "⭕"
	OBSTACLE_GLYPH = "■"
	WIN_GLYPH      = "★"
	LOSE_GLYPH     = "X"
)

// Printer writes renderings to w, colored when enabled.
type Printer struct {
	w  io.Writer
	au aurora.Aurora
}

func NewPrinter(w io.Writer, color bool) *Printer {
	return &Printer{
		w:  w,
		au: aurora.NewAurora(color),
	}
}

// ActionGlyph returns the arrow for a direction, or the stay glyph for None.
func ActionGlyph(a grid_world.Action) string {
	switch a {
	case grid_world.Up:
		return UP_GLYPH
	case grid_world.Down:
		return DOWN_GLYPH
	case grid_world.Left:
		return LEFT_GLYPH
	case grid_world.Right:
		return RIGHT_GLYPH
	default:
		return NONE_GLYPH
	}
}

// PolicyGlyph returns the glyph shown for a cell: obstacle and terminal cells
// override the arg-max action.
func PolicyGlyph(world *grid_world.GridWorld, c grid_world.Coord, best grid_world.Action) string {
	switch {
	case world.IsObstacle(c):
		return OBSTACLE_GLYPH
	case c == world.Win():
		return WIN_GLYPH
	case c == world.Lose():
		return LOSE_GLYPH
	default:
		return ActionGlyph(best)
	}
}

func separator(cellWidth, cols int) string {
	return strings.Repeat("-", cols*(cellWidth+3)+1)
}

// renderGrid prints a bordered grid whose cells are produced by cellFn.
func (p *Printer) renderGrid(world *grid_world.GridWorld, cellWidth int, cellFn func(c grid_world.Coord) interface{}) {
	sep := separator(cellWidth, world.Cols())
	for i := 0; i < world.Rows(); i++ {
		fmt.Fprintln(p.w, sep)
		fmt.Fprint(p.w, "|")
		for j := 0; j < world.Cols(); j++ {
			fmt.Fprint(p.w, " ", cellFn(grid_world.Coord{Row: i, Col: j}), " |")
		}
		fmt.Fprintln(p.w)
	}
	fmt.Fprintln(p.w, sep)
}

// ShowBoard prints the layout with the agent's position.
func (p *Printer) ShowBoard(world *grid_world.GridWorld, agent grid_world.Coord) {
	p.renderGrid(world, 1, func(c grid_world.Coord) interface{} {
		switch {
		case c == agent:
			return p.au.Green(AGENT_TOKEN)
		case world.IsObstacle(c):
			return p.au.Red(OBSTACLE_TOKEN)
		default:
			return EMPTY_TOKEN
		}
	})
}

// ShowValues prints the state values to two decimals, padded to a fixed width.
func (p *Printer) ShowValues(world *grid_world.GridWorld, snap *reinforcement.Snapshot) {
	p.renderGrid(world, 6, func(c grid_world.Coord) interface{} {
		text := fmt.Sprintf("%-6.2f", snap.Value(c))
		if snap.Value(c) < 0 {
			return p.au.Red(text)
		}
		return p.au.Blue(text)
	})
}

// ShowPolicy prints the arg-max action glyph per cell.
func (p *Printer) ShowPolicy(world *grid_world.GridWorld, snap *reinforcement.Snapshot) {
	p.renderGrid(world, 1, func(c grid_world.Coord) interface{} {
		glyph := PolicyGlyph(world, c, snap.BestAction(c))
		switch glyph {
		case WIN_GLYPH:
			return p.au.Yellow(glyph)
		case LOSE_GLYPH:
			return p.au.Red(glyph)
		default:
			return glyph
		}
	})
}

// ShowEpisode prints each step of a rollout.
func (p *Printer) ShowEpisode(episode reinforcement.Episode) {
	for t, step := range episode {
		fmt.Fprintf(p.w, "step %d: %v %s %v reward %.0f\n",
			t, step.State, ActionGlyph(step.Action), step.Successor, step.Reward)
	}
	fmt.Fprintf(p.w, "steps: %d return: %.2f\n", len(episode), episode.Return())
}

// ShowResult prints a one-line solve summary.
func (p *Printer) ShowResult(result reinforcement.Result) {
	status := p.au.Green("converged")
	if !result.Converged {
		status = p.au.Red("not converged")
	}
	fmt.Fprintf(p.w, "%s after %d sweeps, final delta %.3g\n", status, result.Sweeps, result.Delta)
}
