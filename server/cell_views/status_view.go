package cell_views

import (
	"fmt"
	"html/template"

	"gridvi/server/fastview"

	channerics "github.com/niceyeti/channerics/channels"
)

// Status shows the sweep count, the latest delta and whether the solver converged.
type Status struct {
	id      string
	updates <-chan []fastview.EleUpdate
}

func NewStatus(done <-chan struct{}, boards <-chan Board) *Status {
	st := &Status{id: "status"}
	st.updates = channerics.Convert(done, boards, st.onUpdate)
	return st
}

func (st *Status) Updates() <-chan []fastview.EleUpdate {
	return st.updates
}

func statusText(board Board) string {
	state := "solving"
	if board.Converged {
		state = "converged"
	}
	return fmt.Sprintf("sweep %d, delta %.3g, %s", board.Sweep, board.Delta, state)
}

func (st *Status) onUpdate(board Board) []fastview.EleUpdate {
	return []fastview.EleUpdate{
		{
			EleId: st.id + "-text",
			Ops:   []fastview.Op{{Key: fastview.TEXT_CONTENT, Value: statusText(board)}},
		},
	}
}

func (st *Status) Parse(t *template.Template) (name string, err error) {
	name = st.id
	_, err = t.Funcs(template.FuncMap{"statusText": statusText}).Parse(
		`{{ define "` + name + `" }}
		<p id="` + st.id + `-text">{{ statusText . }}</p>
		{{ end }}`)
	return
}
