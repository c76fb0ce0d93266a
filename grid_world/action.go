package grid_world

import (
	"fmt"
	"strings"
)

// Action is one of the closed set of moves available in every cell.
type Action int

// The declaration order is the enumeration order used by the solver and
// is significant: ties on the arg-max resolve to the earliest action.
const (
	Up Action = iota
	Down
	Left
	Right
	None
)

// NUM_ACTIONS is the size of the action enumeration.
const NUM_ACTIONS = 5

// Actions is the fixed enumeration order.
var Actions = [NUM_ACTIONS]Action{Up, Down, Left, Right, None}

// Offset is a row/column displacement.
type Offset struct {
	DRow, DCol int
}

// Total mapping from the enumeration to displacements; None is the zero offset.
var offsets = [NUM_ACTIONS]Offset{
	Up:    {DRow: -1},
	Down:  {DRow: 1},
	Left:  {DCol: -1},
	Right: {DCol: 1},
	None:  {},
}

var actionNames = [NUM_ACTIONS]string{"up", "down", "left", "right", "none"}

// Valid reports whether the action belongs to the enumeration.
func (a Action) Valid() bool {
	return a >= Up && a <= None
}

// Offset returns the displacement for the action. Values outside the
// enumeration displace nothing, exactly like None.
func (a Action) Offset() Offset {
	if !a.Valid() {
		return Offset{}
	}
	return offsets[a]
}

func (a Action) String() string {
	if !a.Valid() {
		return fmt.Sprintf("action(%d)", int(a))
	}
	return actionNames[a]
}

// ParseAction converts an action name (case-insensitive) to an Action.
func ParseAction(name string) (Action, error) {
	for i, n := range actionNames {
		if strings.EqualFold(n, name) {
			return Action(i), nil
		}
	}
	return None, fmt.Errorf("unknown action %q", name)
}
