package display

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"gridvi/grid_world"
	"gridvi/reinforcement"

	"github.com/stretchr/testify/require"
)

func solved(t *testing.T) (*grid_world.GridWorld, *reinforcement.Solver) {
	t.Helper()
	world, err := grid_world.NewGridWorld(grid_world.DefaultLayout())
	require.NoError(t, err)
	solver, err := reinforcement.NewSolver(world)
	require.NoError(t, err)
	_, err = solver.Solve(context.Background(), nil)
	require.NoError(t, err)
	return world, solver
}

func TestShowBoard(t *testing.T) {
	world, _ := solved(t)
	var buf bytes.Buffer
	NewPrinter(&buf, false).ShowBoard(world, world.Start())

	expected := strings.Join([]string{
		"-----------------",
		"| 0 | 0 | 0 | 0 |",
		"-----------------",
		"| 0 | z | 0 | 0 |",
		"-----------------",
		"| * | 0 | 0 | 0 |",
		"-----------------",
		"",
	}, "\n")
	require.Equal(t, expected, buf.String())
}

func TestShowValues(t *testing.T) {
	world, solver := solved(t)
	snap := solver.Snapshot()
	var buf bytes.Buffer
	NewPrinter(&buf, false).ShowValues(world, &snap)

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 7)
	require.Equal(t, strings.Repeat("-", 37), lines[0])
	require.Equal(t, "| 0.13   | 0.43   | 1.43   | 1.43   |", lines[1])
	require.Equal(t, "| 0.01   | 0.04   | 0.13   | 0.04   |", lines[5])
}

func TestShowPolicy(t *testing.T) {
	world, solver := solved(t)
	snap := solver.Snapshot()
	var buf bytes.Buffer
	NewPrinter(&buf, false).ShowPolicy(world, &snap)

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Equal(t, []string{
		"-----------------",
		"| → | → | → | ★ |",
		"-----------------",
		"| ↑ | ■ | ↑ | X |",
		"-----------------",
		"| ↑ | → | ↑ | ← |",
		"-----------------",
	}, lines)
}

func TestGlyphs(t *testing.T) {
	world, _ := solved(t)
	cases := []struct {
		name   string
		cell   grid_world.Coord
		action grid_world.Action
		glyph  string
	}{
		{"up", grid_world.Coord{Row: 2, Col: 0}, grid_world.Up, UP_GLYPH},
		{"down", grid_world.Coord{Row: 2, Col: 0}, grid_world.Down, DOWN_GLYPH},
		{"left", grid_world.Coord{Row: 2, Col: 0}, grid_world.Left, LEFT_GLYPH},
		{"right", grid_world.Coord{Row: 2, Col: 0}, grid_world.Right, RIGHT_GLYPH},
		{"none", grid_world.Coord{Row: 2, Col: 0}, grid_world.None, NONE_GLYPH},
		{"invalid action", grid_world.Coord{Row: 2, Col: 0}, grid_world.Action(11), NONE_GLYPH},
		{"obstacle overrides", grid_world.Coord{Row: 1, Col: 1}, grid_world.Up, OBSTACLE_GLYPH},
		{"win overrides", grid_world.Coord{Row: 0, Col: 3}, grid_world.Up, WIN_GLYPH},
		{"lose overrides", grid_world.Coord{Row: 1, Col: 3}, grid_world.Up, LOSE_GLYPH},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.glyph, PolicyGlyph(world, tc.cell, tc.action))
		})
	}
}

func TestShowEpisodeAndResult(t *testing.T) {
	episode := reinforcement.Episode{
		{State: grid_world.Coord{Row: 0, Col: 2}, Action: grid_world.Right, Successor: grid_world.Coord{Row: 0, Col: 3}, Reward: 1},
	}
	var buf bytes.Buffer
	p := NewPrinter(&buf, false)
	p.ShowEpisode(episode)
	p.ShowResult(reinforcement.Result{Sweeps: 14, Delta: 8.76e-7, Converged: true})

	require.Equal(t,
		"step 0: (0,2) → (0,3) reward 1\n"+
			"steps: 1 return: 1.00\n"+
			"converged after 14 sweeps, final delta 8.76e-07\n",
		buf.String())
}

func TestColorOutput(t *testing.T) {
	world, _ := solved(t)
	var buf bytes.Buffer
	NewPrinter(&buf, true).ShowBoard(world, world.Start())
	require.Contains(t, buf.String(), "\x1b[")
}
