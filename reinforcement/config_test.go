package reinforcement

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"gridvi/grid_world"

	. "github.com/smartystreets/goconvey/convey"
)

const testConfig = `
kind: valueIteration
def:
  hyperParams:
    - key: discount
      val: 0.5
    - key: maxSweeps
      val: 200
    - key: seed
      val: 42
  grid:
    rows: 4
    cols: 5
    obstacles:
      - [1, 1]
      - [2, 3]
    win: [0, 4]
    lose: [1, 4]
    start: [3, 0]
  trainingDeadline:
    duration: 5s
`

func writeConfig(t *testing.T, contents string) string {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFromYaml(t *testing.T) {
	Convey("When loading a full config file", t, func() {
		cfg, err := FromYaml(writeConfig(t, testConfig))
		So(err, ShouldBeNil)

		Convey("File hyper-parameters override defaults, others keep them", func() {
			So(cfg.GetHyperParamOrDefault(DISCOUNT, 0), ShouldEqual, 0.5)
			So(cfg.GetHyperParamOrDefault(EPSILON, 0), ShouldEqual, DEFAULT_EPSILON)
			So(cfg.GetHyperParamOrDefault(MAX_SWEEPS, 0), ShouldEqual, 200)
			seed, err := cfg.Seed()
			So(err, ShouldBeNil)
			So(seed, ShouldEqual, 42)
		})

		Convey("The grid converts to a layout", func() {
			layout, err := cfg.Layout()
			So(err, ShouldBeNil)
			So(layout, ShouldResemble, grid_world.Layout{
				Rows:      4,
				Cols:      5,
				Obstacles: []grid_world.Coord{{Row: 1, Col: 1}, {Row: 2, Col: 3}},
				Win:       grid_world.Coord{Row: 0, Col: 4},
				Lose:      grid_world.Coord{Row: 1, Col: 4},
				Start:     grid_world.Coord{Row: 3, Col: 0},
			})
		})

		Convey("The solver options carry the hyper-parameters", func() {
			layout, _ := cfg.Layout()
			world, err := grid_world.NewGridWorld(layout)
			So(err, ShouldBeNil)
			opts, err := cfg.SolverOptions()
			So(err, ShouldBeNil)
			solver, err := NewSolver(world, opts...)
			So(err, ShouldBeNil)
			So(solver.Discount(), ShouldEqual, 0.5)
			So(solver.MaxSweeps(), ShouldEqual, 200)
		})

		Convey("The training deadline bounds the context", func() {
			ctx, cancel, err := cfg.WithTrainingDeadline(context.Background())
			So(err, ShouldBeNil)
			defer cancel()
			deadline, ok := ctx.Deadline()
			So(ok, ShouldBeTrue)
			So(time.Until(deadline), ShouldBeLessThanOrEqualTo, 5*time.Second)
		})
	})

	Convey("When loading a config without a grid", t, func() {
		cfg, err := FromYaml(writeConfig(t, "kind: valueIteration\ndef:\n  hyperParams:\n    - key: epsilon\n      val: 0.001\n"))
		So(err, ShouldBeNil)

		Convey("The default layout and no deadline apply", func() {
			layout, err := cfg.Layout()
			So(err, ShouldBeNil)
			So(layout, ShouldResemble, grid_world.DefaultLayout())
			So(cfg.GetHyperParamOrDefault(EPSILON, 0), ShouldEqual, 0.001)
			So(cfg.GetHyperParamOrDefault(DISCOUNT, 0), ShouldEqual, DEFAULT_DISCOUNT)

			ctx, cancel, err := cfg.WithTrainingDeadline(context.Background())
			So(err, ShouldBeNil)
			defer cancel()
			_, ok := ctx.Deadline()
			So(ok, ShouldBeFalse)
		})
	})

	Convey("When the file is missing", t, func() {
		_, err := FromYaml(filepath.Join(t.TempDir(), "absent.yaml"))
		So(errors.Is(err, os.ErrNotExist), ShouldBeTrue)
	})

	Convey("When the kind is unknown", t, func() {
		_, err := FromYaml(writeConfig(t, "kind: qLearning\ndef: {}\n"))
		So(err, ShouldNotBeNil)
	})

	Convey("When a coordinate is malformed", t, func() {
		cfg, err := FromYaml(writeConfig(t, "kind: valueIteration\ndef:\n  grid:\n    rows: 3\n    cols: 4\n    win: [0]\n    lose: [1, 3]\n    start: [2, 0]\n"))
		So(err, ShouldBeNil)
		_, err = cfg.Layout()
		So(errors.Is(err, grid_world.ErrInvalidConfig), ShouldBeTrue)
	})

	Convey("When the deadline is malformed", t, func() {
		cfg := DefaultTrainingConfig()
		cfg.TrainingDeadline = map[string]string{"duration": "soon"}
		_, _, err := cfg.WithTrainingDeadline(context.Background())
		So(err, ShouldNotBeNil)
	})

	Convey("SetHyperParam replaces or appends", t, func() {
		cfg := DefaultTrainingConfig()
		cfg.SetHyperParam(DISCOUNT, 0.9)
		cfg.SetHyperParam(SEED, 3)
		So(cfg.GetHyperParamOrDefault(DISCOUNT, 0), ShouldEqual, 0.9)
		seed, err := cfg.Seed()
		So(err, ShouldBeNil)
		So(seed, ShouldEqual, 3)
		So(len(cfg.HyperParams), ShouldEqual, 3)
	})

	Convey("Whole-number hyper-parameters are validated", t, func() {
		cfg := DefaultTrainingConfig()

		Convey("A fractional sweep cap is rejected", func() {
			cfg.SetHyperParam(MAX_SWEEPS, 2.5)
			_, err := cfg.SolverOptions()
			So(errors.Is(err, ErrInvalidHyperParam), ShouldBeTrue)
		})

		Convey("A negative or huge sweep cap is rejected", func() {
			cfg.SetHyperParam(MAX_SWEEPS, -1)
			_, err := cfg.SolverOptions()
			So(errors.Is(err, ErrInvalidHyperParam), ShouldBeTrue)

			cfg.SetHyperParam(MAX_SWEEPS, 1e12)
			_, err = cfg.SolverOptions()
			So(errors.Is(err, ErrInvalidHyperParam), ShouldBeTrue)
		})

		Convey("A seed beyond float64 precision is rejected", func() {
			cfg.SetHyperParam(SEED, 1e17)
			_, err := cfg.Seed()
			So(errors.Is(err, ErrInvalidHyperParam), ShouldBeTrue)
		})

		Convey("SetSeed keeps every bit of a large seed", func() {
			cfg.SetHyperParam(SEED, 1e17)
			cfg.SetSeed(9007199254740993)
			seed, err := cfg.Seed()
			So(err, ShouldBeNil)
			So(seed, ShouldEqual, int64(9007199254740993))
		})
	})
}
