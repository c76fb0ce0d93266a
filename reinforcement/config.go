package reinforcement

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"gridvi/grid_world"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Hyper-parameter keys recognized in TrainingConfig.HyperParams.
const (
	DISCOUNT   = "discount"
	EPSILON    = "epsilon"
	MAX_SWEEPS = "maxSweeps"
	SEED       = "seed"
)

// Defaults of the reference configuration.
const (
	DEFAULT_DISCOUNT = 0.3
	DEFAULT_EPSILON  = 1e-6
)

// OuterConfig is the file envelope: a kind selector and the definition it describes.
type OuterConfig struct {
	Kind string      `mapstructure:"kind"`
	Def  interface{} `mapstructure:"def"`
}

// TrainingConfig holds the grid layout and the solver parameters.
// Viper lower-cases every map key it reads, hence the lower-case yaml tags.
type TrainingConfig struct {
	// HyperParams is a key-val list of param names and their value.
	HyperParams []HyperParameter `yaml:"hyperparams"`
	// Grid is the layout; the default layout is used when omitted.
	Grid *GridSpec `yaml:"grid"`
	// TrainingDeadline optionally bounds solving by a duration, e.g. {duration: 10s}.
	TrainingDeadline map[string]string `yaml:"trainingdeadline"`

	seed *int64
}

type HyperParameter struct {
	Key string  `yaml:"key"`
	Val float64 `yaml:"val"`
}

// GridSpec is the file form of a grid_world.Layout; coordinates are [row, col] pairs.
type GridSpec struct {
	Rows      int     `yaml:"rows"`
	Cols      int     `yaml:"cols"`
	Obstacles [][]int `yaml:"obstacles"`
	Win       []int   `yaml:"win"`
	Lose      []int   `yaml:"lose"`
	Start     []int   `yaml:"start"`
}

// DefaultTrainingConfig is the reference configuration: the default layout,
// discount 0.3, convergence threshold 1e-6, and no sweep cap.
func DefaultTrainingConfig() *TrainingConfig {
	return &TrainingConfig{
		HyperParams: []HyperParameter{
			{Key: DISCOUNT, Val: DEFAULT_DISCOUNT},
			{Key: EPSILON, Val: DEFAULT_EPSILON},
		},
	}
}

func (cfg *TrainingConfig) GetHyperParamOrDefault(param string, defaultVal float64) float64 {
	for _, kvp := range cfg.HyperParams {
		if kvp.Key == param {
			return kvp.Val
		}
	}
	return defaultVal
}

// SetHyperParam overwrites or appends a hyper-parameter.
func (cfg *TrainingConfig) SetHyperParam(param string, val float64) {
	for i := range cfg.HyperParams {
		if cfg.HyperParams[i].Key == param {
			cfg.HyperParams[i].Val = val
			return
		}
	}
	cfg.HyperParams = append(cfg.HyperParams, HyperParameter{Key: param, Val: val})
}

// ErrInvalidHyperParam is returned for hyper-parameters that must be whole numbers but are not.
var ErrInvalidHyperParam = errors.New("invalid hyper-parameter")

// Whole-number hyper-parameters are stored as float64, which is exact up to 2^53.
const maxExactInt = 1 << 53

// integralHyperParam returns the named hyper-parameter as an int64, failing if it is
// fractional or too large to have been represented exactly.
func (cfg *TrainingConfig) integralHyperParam(param string, defaultVal int64) (int64, error) {
	val := cfg.GetHyperParamOrDefault(param, float64(defaultVal))
	if val != math.Trunc(val) || math.Abs(val) > maxExactInt {
		return 0, fmt.Errorf("%w: %s must be a whole number within ±2^53, got %v", ErrInvalidHyperParam, param, val)
	}
	return int64(val), nil
}

// SolverOptions converts the hyper-parameters to solver options.
func (cfg *TrainingConfig) SolverOptions() ([]Option, error) {
	maxSweeps, err := cfg.integralHyperParam(MAX_SWEEPS, 0)
	if err != nil {
		return nil, err
	}
	if maxSweeps < 0 || maxSweeps > math.MaxInt32 {
		return nil, fmt.Errorf("%w: %s out of range, got %d", ErrInvalidHyperParam, MAX_SWEEPS, maxSweeps)
	}
	return []Option{
		WithDiscount(cfg.GetHyperParamOrDefault(DISCOUNT, DEFAULT_DISCOUNT)),
		WithEpsilon(cfg.GetHyperParamOrDefault(EPSILON, DEFAULT_EPSILON)),
		WithMaxSweeps(int(maxSweeps)),
	}, nil
}

// SetSeed sets the rollout seed exactly, taking precedence over the seed hyper-parameter.
func (cfg *TrainingConfig) SetSeed(seed int64) {
	cfg.seed = &seed
}

// Seed returns the rollout seed: one set with SetSeed, else the seed hyper-parameter.
// A zero seed means the current time.
func (cfg *TrainingConfig) Seed() (int64, error) {
	if cfg.seed != nil {
		if *cfg.seed != 0 {
			return *cfg.seed, nil
		}
		return time.Now().UnixNano(), nil
	}
	seed, err := cfg.integralHyperParam(SEED, 0)
	if err != nil {
		return 0, err
	}
	if seed != 0 {
		return seed, nil
	}
	return time.Now().UnixNano(), nil
}

// Layout converts the grid spec to a layout, or returns the default layout when none is given.
func (cfg *TrainingConfig) Layout() (grid_world.Layout, error) {
	if cfg.Grid == nil {
		return grid_world.DefaultLayout(), nil
	}

	var err error
	layout := grid_world.Layout{
		Rows: cfg.Grid.Rows,
		Cols: cfg.Grid.Cols,
	}
	if layout.Win, err = toCoord("win", cfg.Grid.Win); err != nil {
		return layout, err
	}
	if layout.Lose, err = toCoord("lose", cfg.Grid.Lose); err != nil {
		return layout, err
	}
	if layout.Start, err = toCoord("start", cfg.Grid.Start); err != nil {
		return layout, err
	}
	for _, o := range cfg.Grid.Obstacles {
		var c grid_world.Coord
		if c, err = toCoord("obstacles", o); err != nil {
			return layout, err
		}
		layout.Obstacles = append(layout.Obstacles, c)
	}
	return layout, nil
}

func toCoord(field string, pair []int) (grid_world.Coord, error) {
	if len(pair) != 2 {
		return grid_world.Coord{}, &grid_world.ConfigError{
			Field:  field,
			Reason: fmt.Sprintf("expected a [row, col] pair, got %v", pair),
		}
	}
	return grid_world.Coord{Row: pair[0], Col: pair[1]}, nil
}

// WithTrainingDeadline returns a context extended by the training deadline, if one is specified.
func (cfg *TrainingConfig) WithTrainingDeadline(
	ctx context.Context,
) (context.Context, context.CancelFunc, error) {
	if val, ok := cfg.TrainingDeadline["duration"]; ok {
		duration, err := time.ParseDuration(val)
		if err != nil {
			return nil, nil, fmt.Errorf("training deadline: %w", err)
		}
		innerCtx, cancel := context.WithTimeout(ctx, duration)
		return innerCtx, cancel, nil
	}
	defaultCtx, cancel := context.WithCancel(ctx)
	return defaultCtx, cancel, nil
}

// FromYaml reads the envelope with viper, then re-encodes its definition and decodes
// it into a TrainingConfig. Parameters missing from the file keep their defaults.
func FromYaml(path string) (*TrainingConfig, error) {
	vp := viper.New()
	vp.SetConfigFile(path)
	vp.SetConfigType("yaml")
	if err := vp.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	outerConfig := &OuterConfig{}
	if err := vp.Unmarshal(outerConfig); err != nil {
		return nil, fmt.Errorf("decode config envelope: %w", err)
	}
	if outerConfig.Kind != "" && outerConfig.Kind != KIND {
		return nil, fmt.Errorf("unsupported config kind %q, expected %q", outerConfig.Kind, KIND)
	}

	spec, err := yaml.Marshal(outerConfig.Def)
	if err != nil {
		return nil, fmt.Errorf("encode config def: %w", err)
	}

	innerConfig := DefaultTrainingConfig()
	fileConfig := &TrainingConfig{}
	if err = yaml.Unmarshal(spec, fileConfig); err != nil {
		return nil, fmt.Errorf("decode config def: %w", err)
	}
	for _, kvp := range fileConfig.HyperParams {
		innerConfig.SetHyperParam(kvp.Key, kvp.Val)
	}
	innerConfig.Grid = fileConfig.Grid
	innerConfig.TrainingDeadline = fileConfig.TrainingDeadline

	return innerConfig, nil
}

// KIND is the only config kind this package understands.
const KIND = "valueIteration"
