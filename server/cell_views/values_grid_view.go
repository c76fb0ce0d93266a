package cell_views

import (
	"fmt"
	"html/template"

	"gridvi/server/fastview"

	channerics "github.com/niceyeti/channerics/channels"
)

// ValuesGrid is an svg grid showing each cell's state value and policy glyph.
type ValuesGrid struct {
	id      string
	updates <-chan []fastview.EleUpdate
}

func NewValuesGrid(
	done <-chan struct{},
	boards <-chan Board,
) *ValuesGrid {
	vg := &ValuesGrid{id: "valuesgrid"}
	vg.updates = channerics.Convert(done, boards, vg.onUpdate)
	return vg
}

func (vg *ValuesGrid) Updates() <-chan []fastview.EleUpdate {
	return vg.updates
}

func valueTextId(c Cell) string   { return fmt.Sprintf("%d-%d-value-text", c.Row, c.Col) }
func policyGlyphId(c Cell) string { return fmt.Sprintf("%d-%d-policy-glyph", c.Row, c.Col) }

// Returns the set of view updates needed for the view to reflect the current values.
func (vg *ValuesGrid) onUpdate(board Board) (ops []fastview.EleUpdate) {
	for _, row := range board.Cells {
		for _, cell := range row {
			ops = append(ops,
				fastview.EleUpdate{
					EleId: valueTextId(cell),
					Ops: []fastview.Op{
						{Key: fastview.TEXT_CONTENT, Value: valueText(cell.Value)},
					},
				},
				fastview.EleUpdate{
					EleId: policyGlyphId(cell),
					Ops: []fastview.Op{
						{Key: fastview.TEXT_CONTENT, Value: cell.Glyph},
					},
				})
		}
	}
	return
}

// Parse adds the grid's template to the parent. The parent must define the
// add, sub, mult and div funcs.
func (vg *ValuesGrid) Parse(t *template.Template) (name string, err error) {
	name = vg.id
	addedMap := template.FuncMap{
		"valueText":     valueText,
		"valueTextId":   valueTextId,
		"policyGlyphId": policyGlyphId,
	}
	_, err = t.Funcs(addedMap).Parse(
		`{{ define "` + name + `" }}
		<div id="` + vg.id + `">
			{{ $rows := len .Cells }}
			{{ $cols := len (index .Cells 0) }}
			{{ $cell_width := 100 }}
			{{ $cell_height := $cell_width }}
			{{ $width := mult $cell_width $cols }}
			{{ $height := mult $cell_height $rows }}
			{{ $half_height := div $cell_height 2 }}
			{{ $half_width := div $cell_width 2 }}
			<svg width="{{ add $width 1 }}px" height="{{ add $height 1 }}px"
				style="shape-rendering: crispEdges;">
				{{ range $row := .Cells }}
					{{ range $cell := $row }}
					<g>
						<rect
							x="{{ mult $cell.Col $cell_width }}"
							y="{{ mult $cell.Row $cell_height }}"
							width="{{ $cell_width }}"
							height="{{ $cell_height }}"
							fill="{{ $cell.Fill }}"
							stroke="black"
							stroke-width="1"/>
						<text id="{{ valueTextId $cell }}"
							x="{{ add (mult $cell.Col $cell_width) $half_width }}"
							y="{{ add (mult $cell.Row $cell_height) (sub $half_height 10) }}"
							fill="blue"
							dominant-baseline="text-top" text-anchor="middle"
							>{{ valueText $cell.Value }}</text>
						<text id="{{ policyGlyphId $cell }}"
							x="{{ add (mult $cell.Col $cell_width) $half_width }}"
							y="{{ add (mult $cell.Row $cell_height) (add $half_height 20) }}"
							dominant-baseline="central" text-anchor="middle"
							>{{ $cell.Glyph }}</text>
					</g>
					{{ end }}
				{{ end }}
			</svg>
		</div>
		{{ end }}`)
	return
}
