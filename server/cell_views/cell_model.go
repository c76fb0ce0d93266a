// cell_views contains views derived from the Board view-model.
package cell_views

import (
	"fmt"

	"gridvi/display"
	"gridvi/grid_world"
	"gridvi/reinforcement"
)

// Cell is a flattened, template-friendly view of one grid cell. Row 0 is the top row,
// matching svg coordinates, so no flipping is needed. Cell fields should be immediately
// usable as view parameters.
type Cell struct {
	Row, Col int
	Value    float64
	Glyph    string
	Fill     string
}

// Board is the view-model: the cells plus sweep progress.
type Board struct {
	Sweep     int
	Delta     float64
	Converged bool
	Cells     [][]Cell
}

// NewConverter returns the snapshot to view-model conversion for the given world.
// The world supplies obstacle and terminal cells, which snapshots do not carry.
func NewConverter(world *grid_world.GridWorld) func(reinforcement.Snapshot) Board {
	return func(snap reinforcement.Snapshot) Board {
		return Convert(world, &snap)
	}
}

// Convert transforms a snapshot into a Board.
func Convert(world *grid_world.GridWorld, snap *reinforcement.Snapshot) Board {
	board := Board{
		Sweep:     snap.Sweep,
		Delta:     snap.Delta,
		Converged: snap.Converged,
		Cells:     make([][]Cell, world.Rows()),
	}
	for i := range board.Cells {
		board.Cells[i] = make([]Cell, world.Cols())
	}

	world.Visit(func(c grid_world.Coord) {
		board.Cells[c.Row][c.Col] = Cell{
			Row:   c.Row,
			Col:   c.Col,
			Value: snap.Value(c),
			Glyph: display.PolicyGlyph(world, c, snap.BestAction(c)),
			Fill:  getFill(world.CellType(c)),
		}
	})
	return board
}

func getFill(cellType rune) (fill string) {
	switch cellType {
	case grid_world.OBSTACLE:
		fill = "dimgray"
	case grid_world.WIN:
		fill = "lightgreen"
	case grid_world.LOSE:
		fill = "lightcoral"
	case grid_world.START:
		fill = "lightblue"
	default:
		fill = "white"
	}
	return
}

func valueText(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
