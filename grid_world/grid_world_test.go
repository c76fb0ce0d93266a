package grid_world

import (
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func mustDefault() *GridWorld {
	gw, err := NewGridWorld(DefaultLayout())
	if err != nil {
		panic(err)
	}
	return gw
}

func TestReward(t *testing.T) {
	Convey("Given the default grid world", t, func() {
		gw := mustDefault()

		Convey("Reward is +1 only at the win cell, -1 only at the lose cell, and 0 elsewhere", func() {
			gw.Visit(func(c Coord) {
				switch c {
				case gw.Win():
					So(gw.Reward(c), ShouldEqual, 1.0)
				case gw.Lose():
					So(gw.Reward(c), ShouldEqual, -1.0)
				default:
					So(gw.Reward(c), ShouldEqual, 0.0)
				}
			})
		})

		Convey("Only the win and lose cells are terminal", func() {
			terminals := 0
			gw.Visit(func(c Coord) {
				if gw.IsTerminal(c) {
					terminals++
				}
			})
			So(terminals, ShouldEqual, 2)
			So(gw.IsTerminal(Coord{0, 3}), ShouldBeTrue)
			So(gw.IsTerminal(Coord{1, 3}), ShouldBeTrue)
		})
	})

	Convey("Given a replacement reward function", t, func() {
		stepCost := func(gw *GridWorld, c Coord) float64 {
			if gw.IsTerminal(c) {
				return WinLoseReward(gw, c)
			}
			return -0.04
		}
		gw, err := NewGridWorld(DefaultLayout(), WithRewardFunc(stepCost))
		So(err, ShouldBeNil)

		Convey("Reward uses it", func() {
			So(gw.Reward(Coord{2, 0}), ShouldEqual, -0.04)
			So(gw.Reward(gw.Win()), ShouldEqual, 1.0)
		})

		Convey("A nil reward function keeps the default", func() {
			gw, err := NewGridWorld(DefaultLayout(), WithRewardFunc(nil))
			So(err, ShouldBeNil)
			So(gw.Reward(Coord{2, 0}), ShouldEqual, 0.0)
		})
	})
}

func TestNextState(t *testing.T) {
	Convey("Given the default grid world", t, func() {
		gw := mustDefault()

		Convey("Every transition from an open cell stays in bounds and never lands on an obstacle", func() {
			gw.Visit(func(c Coord) {
				if gw.IsObstacle(c) {
					return
				}
				for _, a := range Actions {
					next := gw.NextState(c, a)
					So(gw.InBounds(next), ShouldBeTrue)
					So(gw.IsObstacle(next), ShouldBeFalse)

					naive := c.Add(a.Offset())
					if !gw.InBounds(naive) || gw.IsObstacle(naive) {
						So(next, ShouldResemble, c)
					} else {
						So(next, ShouldResemble, naive)
					}
				}
			})
		})

		Convey("An obstacle cell only ever moves to an open neighbor or stays put", func() {
			obstacle := Coord{1, 1}
			So(gw.NextState(obstacle, None), ShouldResemble, obstacle)
			So(gw.NextState(obstacle, Up), ShouldResemble, Coord{0, 1})
			So(gw.NextState(obstacle, Down), ShouldResemble, Coord{2, 1})
			So(gw.NextState(obstacle, Left), ShouldResemble, Coord{1, 0})
			So(gw.NextState(obstacle, Right), ShouldResemble, Coord{1, 2})
		})

		Convey("Up and Left from the top-left corner bounce back to the corner", func() {
			corner := Coord{0, 0}
			So(gw.NextState(corner, Up), ShouldResemble, corner)
			So(gw.NextState(corner, Left), ShouldResemble, corner)
			So(gw.NextState(corner, Right), ShouldResemble, Coord{0, 1})
			So(gw.NextState(corner, Down), ShouldResemble, Coord{1, 0})
		})

		Convey("Moving into the obstacle bounces", func() {
			So(gw.NextState(Coord{0, 1}, Down), ShouldResemble, Coord{0, 1})
			So(gw.NextState(Coord{1, 0}, Right), ShouldResemble, Coord{1, 0})
		})

		Convey("None stays put", func() {
			So(gw.NextState(Coord{2, 2}, None), ShouldResemble, Coord{2, 2})
		})

		Convey("Out-of-enumeration actions are no-op transitions", func() {
			So(gw.NextState(Coord{2, 2}, Action(42)), ShouldResemble, Coord{2, 2})
			So(gw.NextState(Coord{2, 2}, Action(-1)), ShouldResemble, Coord{2, 2})
		})
	})
}

func TestNewGridWorld(t *testing.T) {
	Convey("When building a grid world from a layout", t, func() {
		Convey("The default layout is valid", func() {
			gw := mustDefault()
			So(gw.Rows(), ShouldEqual, 3)
			So(gw.Cols(), ShouldEqual, 4)
			So(gw.Start(), ShouldResemble, Coord{2, 0})
			So(gw.Obstacles(), ShouldResemble, []Coord{{1, 1}})
			So(gw.Layout(), ShouldResemble, DefaultLayout())
			So(len(gw.Cells()), ShouldEqual, 12)
			So(gw.Cells()[5], ShouldResemble, Coord{1, 1})
			So(gw.Index(Coord{2, 3}), ShouldEqual, 11)
		})

		Convey("Index rejects coordinates outside the grid instead of wrapping rows", func() {
			gw := mustDefault()
			So(func() { gw.Index(Coord{0, 4}) }, ShouldPanic)
			So(func() { gw.Index(Coord{-1, 0}) }, ShouldPanic)
			So(func() { gw.Index(Coord{3, 0}) }, ShouldPanic)
		})

		Convey("Cell types describe the layout", func() {
			gw := mustDefault()
			So(gw.CellType(Coord{1, 1}), ShouldEqual, OBSTACLE)
			So(gw.CellType(Coord{0, 3}), ShouldEqual, WIN)
			So(gw.CellType(Coord{1, 3}), ShouldEqual, LOSE)
			So(gw.CellType(Coord{2, 0}), ShouldEqual, START)
			So(gw.CellType(Coord{0, 0}), ShouldEqual, OPEN)
		})

		invalid := []struct {
			name   string
			mutate func(l *Layout)
		}{
			{"zero rows", func(l *Layout) { l.Rows = 0 }},
			{"negative cols", func(l *Layout) { l.Cols = -4 }},
			{"coinciding terminals", func(l *Layout) { l.Lose = l.Win }},
			{"win out of bounds", func(l *Layout) { l.Win = Coord{0, 4} }},
			{"lose out of bounds", func(l *Layout) { l.Lose = Coord{-1, 3} }},
			{"win on obstacle", func(l *Layout) { l.Win = Coord{1, 1} }},
			{"lose on obstacle", func(l *Layout) { l.Obstacles = append(l.Obstacles, l.Lose) }},
			{"start on obstacle", func(l *Layout) { l.Start = Coord{1, 1} }},
			{"obstacle off grid", func(l *Layout) { l.Obstacles = append(l.Obstacles, Coord{3, 0}) }},
		}
		for _, tc := range invalid {
			tc := tc
			Convey("An invalid layout is rejected: "+tc.name, func() {
				layout := DefaultLayout()
				tc.mutate(&layout)
				gw, err := NewGridWorld(layout)
				So(gw, ShouldBeNil)
				So(errors.Is(err, ErrInvalidConfig), ShouldBeTrue)

				var cfgErr *ConfigError
				So(errors.As(err, &cfgErr), ShouldBeTrue)
				So(cfgErr.Field, ShouldNotBeEmpty)
			})
		}
	})
}

func TestActions(t *testing.T) {
	Convey("The action enumeration", t, func() {
		Convey("Is ordered up, down, left, right, none", func() {
			So(Actions, ShouldResemble, [NUM_ACTIONS]Action{Up, Down, Left, Right, None})
			So(Up.String(), ShouldEqual, "up")
			So(None.String(), ShouldEqual, "none")
			So(Action(9).String(), ShouldEqual, "action(9)")
		})

		Convey("Maps None and invalid values to the zero offset", func() {
			So(None.Offset(), ShouldResemble, Offset{})
			So(Action(7).Offset(), ShouldResemble, Offset{})
			So(Up.Offset(), ShouldResemble, Offset{DRow: -1})
		})

		Convey("Parses names case-insensitively", func() {
			a, err := ParseAction("Right")
			So(err, ShouldBeNil)
			So(a, ShouldEqual, Right)
			_, err = ParseAction("diagonal")
			So(err, ShouldNotBeNil)
		})
	})
}
