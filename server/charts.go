package server

import (
	"fmt"
	"io"

	"gridvi/grid_world"
	"gridvi/reinforcement"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// renderCharts writes a page with the per-sweep delta line and the state-value heat-map.
func renderCharts(
	w io.Writer,
	world *grid_world.GridWorld,
	snap *reinforcement.Snapshot,
	deltas []float64,
) error {
	page := components.NewPage()
	page.PageTitle = "gridvi convergence"
	page.AddCharts(
		deltaLine(deltas, snap),
		valueHeatMap(world, snap),
	)
	return page.Render(w)
}

func deltaLine(deltas []float64, snap *reinforcement.Snapshot) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "delta per sweep",
			Subtitle: fmt.Sprintf("sweep %d, converged: %t", snap.Sweep, snap.Converged),
		}),
		charts.WithInitializationOpts(opts.Initialization{
			Theme: "shine",
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Type: "log",
		}),
	)

	sweeps := make([]string, 0, len(deltas))
	items := make([]opts.LineData, 0, len(deltas))
	for i, delta := range deltas {
		sweeps = append(sweeps, fmt.Sprintf("%d", i+1))
		items = append(items, opts.LineData{Value: delta})
	}

	line.SetXAxis(sweeps).AddSeries("delta", items)
	return line
}

// valueHeatMap plots V(s) per cell. Row 0 is drawn at the top, as on the console board.
func valueHeatMap(world *grid_world.GridWorld, snap *reinforcement.Snapshot) *charts.HeatMap {
	cols := make([]string, world.Cols())
	for c := range cols {
		cols[c] = fmt.Sprintf("%d", c)
	}
	rows := make([]string, world.Rows())
	for r := range rows {
		rows[r] = fmt.Sprintf("%d", world.Rows()-1-r)
	}

	minVal, maxVal := 0.0, 0.0
	items := make([]opts.HeatMapData, 0, world.NumCells())
	world.Visit(func(c grid_world.Coord) {
		if world.IsObstacle(c) {
			return
		}
		v := snap.Value(c)
		minVal = min(minVal, v)
		maxVal = max(maxVal, v)
		items = append(items, opts.HeatMapData{
			Name:  c.String(),
			Value: [3]interface{}{c.Col, world.Rows() - 1 - c.Row, v},
		})
	})

	hm := charts.NewHeatMap()
	hm.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title: "state values",
		}),
		charts.WithXAxisOpts(opts.XAxis{
			Type: "category",
			Data: cols,
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Type: "category",
			Data: rows,
		}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Calculable: opts.Bool(true),
			Min:        float32(minVal),
			Max:        float32(maxVal),
			InRange: &opts.VisualMapInRange{
				Color: []string{"#d73027", "#ffffbf", "#1a9850"},
			},
		}),
	)
	hm.SetXAxis(cols).AddSeries("value", items)
	return hm
}
