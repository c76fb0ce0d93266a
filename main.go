/*
Gridvi solves a small deterministic grid world with value iteration: an agent moves
up, down, left or right (or stays put) between open cells, bumping off walls and
obstacles, and is rewarded on reaching the win cell and penalized on the lose cell.
The solver sweeps Bellman backups in place until the state values stop changing,
leaving a greedy one-hot policy behind. The resulting values and policy can be
printed, sampled as rollouts from the start cell, or watched converge live in a browser.
*/

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"time"

	"gridvi/display"
	"gridvi/grid_world"
	"gridvi/reinforcement"
	"gridvi/server"

	channerics "github.com/niceyeti/channerics/channels"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

const envPrefix = "GRIDVI"

// Flag names. The hyper-parameter flags override the values in the config file.
const (
	configFlag    = "config"
	discountFlag  = "discount"
	epsilonFlag   = "epsilon"
	maxSweepsFlag = "max-sweeps"
	seedFlag      = "seed"
	noColorFlag   = "no-color"
	episodesFlag  = "episodes"
	maxStepsFlag  = "max-steps"
	hostFlag      = "host"
	portFlag      = "port"
	paceFlag      = "pace"
)

// gridApp is what every command needs: the loaded config, the world it describes, and a printer.
type gridApp struct {
	cfg     *reinforcement.TrainingConfig
	world   *grid_world.GridWorld
	printer *display.Printer
	vp      *viper.Viper
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "gridvi",
		Short:         "Value iteration over a deterministic grid world",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.String(configFlag, "./config.yaml", "config file; built-in defaults are used if it does not exist")
	flags.Float64(discountFlag, reinforcement.DEFAULT_DISCOUNT, "discount factor in [0, 1)")
	flags.Float64(epsilonFlag, reinforcement.DEFAULT_EPSILON, "convergence threshold on the summed value change per sweep")
	flags.Int(maxSweepsFlag, 0, "give up after this many sweeps; 0 sweeps until convergence")
	flags.Int64(seedFlag, 0, "rollout seed; 0 seeds from the clock")
	flags.Bool(noColorFlag, false, "disable colored output")

	root.AddCommand(
		newSolveCommand(),
		newRolloutCommand(),
		newServeCommand(),
	)
	return root
}

func newSolveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "solve",
		Short: "Solve the grid and print the board, state values and policy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd)
			if err != nil {
				return err
			}
			_, snap, err := app.solve(cmd.Context())
			if err != nil {
				return err
			}
			app.printer.ShowValues(app.world, &snap)
			app.printer.ShowPolicy(app.world, &snap)
			return nil
		},
	}
}

func newRolloutCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rollout",
		Short: "Solve the grid, then sample episodes from the start cell using the policy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd)
			if err != nil {
				return err
			}
			solver, snap, err := app.solve(cmd.Context())
			if err != nil {
				return err
			}
			app.printer.ShowPolicy(app.world, &snap)

			episodes := app.vp.GetInt(episodesFlag)
			maxSteps := app.vp.GetInt(maxStepsFlag)
			seed, err := app.seed()
			if err != nil {
				return err
			}
			rng := rand.New(rand.NewSource(seed))
			for i := 0; i < episodes; i++ {
				episode := reinforcement.Rollout(app.world, snap.Distribution, rng, maxSteps)
				fmt.Fprintf(cmd.OutOrStdout(), "episode %d, discounted return %.4f\n",
					i+1, episode.DiscountedReturn(solver.Discount()))
				app.printer.ShowEpisode(episode)
				final := app.world.Start()
				if len(episode) > 0 {
					final = episode[len(episode)-1].Successor
				}
				app.printer.ShowBoard(app.world, final)
			}
			return nil
		},
	}
	cmd.Flags().Int(episodesFlag, 1, "number of episodes to sample")
	cmd.Flags().Int(maxStepsFlag, 0, "episode step limit; 0 uses four times the number of cells")
	return cmd
}

func newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Solve the grid while streaming its values and policy to a browser",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd)
			if err != nil {
				return err
			}
			addr := app.vp.GetString(hostFlag) + ":" + app.vp.GetString(portFlag)
			return app.serve(cmd.Context(), addr, app.vp.GetDuration(paceFlag))
		},
	}
	cmd.Flags().String(hostFlag, "localhost", "the host ip")
	cmd.Flags().String(portFlag, "8080", "the host port")
	cmd.Flags().Duration(paceFlag, time.Millisecond*250, "pause between sweeps so the views can be followed")
	return cmd
}

// newApp loads the config file and applies flag and environment overrides.
func newApp(cmd *cobra.Command) (*gridApp, error) {
	vp, err := bindFlags(cmd.Flags())
	if err != nil {
		return nil, err
	}

	cfg, err := loadConfig(vp.GetString(configFlag))
	if err != nil {
		return nil, err
	}
	applyOverrides(cfg, vp)

	layout, err := cfg.Layout()
	if err != nil {
		return nil, err
	}
	world, err := grid_world.NewGridWorld(layout)
	if err != nil {
		return nil, err
	}

	return &gridApp{
		cfg:     cfg,
		world:   world,
		printer: display.NewPrinter(cmd.OutOrStdout(), !vp.GetBool(noColorFlag)),
		vp:      vp,
	}, nil
}

// bindFlags makes every flag readable through viper, which also picks up
// GRIDVI_* environment variables, e.g. GRIDVI_MAX_SWEEPS.
func bindFlags(flags *pflag.FlagSet) (*viper.Viper, error) {
	vp := viper.New()
	vp.SetEnvPrefix(envPrefix)
	vp.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	vp.AutomaticEnv()
	if err := vp.BindPFlags(flags); err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}
	return vp, nil
}

// loadConfig reads the config file, falling back to the defaults when there is none.
func loadConfig(path string) (*reinforcement.TrainingConfig, error) {
	cfg, err := reinforcement.FromYaml(path)
	if errors.Is(err, os.ErrNotExist) {
		log.Printf("no config at %s, using defaults\n", path)
		return reinforcement.DefaultTrainingConfig(), nil
	}
	return cfg, err
}

// applyOverrides copies explicitly set flags (or env vars) over the file's hyper-parameters.
func applyOverrides(cfg *reinforcement.TrainingConfig, vp *viper.Viper) {
	overrides := []struct {
		flag string
		key  string
	}{
		{discountFlag, reinforcement.DISCOUNT},
		{epsilonFlag, reinforcement.EPSILON},
		{maxSweepsFlag, reinforcement.MAX_SWEEPS},
	}
	for _, o := range overrides {
		if vp.IsSet(o.flag) {
			cfg.SetHyperParam(o.key, vp.GetFloat64(o.flag))
		}
	}
	if vp.IsSet(seedFlag) {
		cfg.SetSeed(vp.GetInt64(seedFlag))
	}
}

func (app *gridApp) seed() (int64, error) {
	seed, err := app.cfg.Seed()
	if err != nil {
		return 0, err
	}
	log.Println("rollout seed:", seed)
	return seed, nil
}

func (app *gridApp) newSolver() (*reinforcement.Solver, error) {
	opts, err := app.cfg.SolverOptions()
	if err != nil {
		return nil, err
	}
	return reinforcement.NewSolver(app.world, opts...)
}

// solve shows the board, runs the solver to convergence and prints a summary.
func (app *gridApp) solve(ctx context.Context) (*reinforcement.Solver, reinforcement.Snapshot, error) {
	solver, err := app.newSolver()
	if err != nil {
		return nil, reinforcement.Snapshot{}, err
	}
	app.printer.ShowBoard(app.world, app.world.Start())

	trainingCtx, cancel, err := app.cfg.WithTrainingDeadline(ctx)
	if err != nil {
		return nil, reinforcement.Snapshot{}, err
	}
	defer cancel()

	result, err := solver.Solve(trainingCtx, nil)
	app.printer.ShowResult(result)
	if err != nil {
		return nil, reinforcement.Snapshot{}, err
	}
	return solver, solver.Snapshot(), nil
}

// serve runs the web server and the solver side by side; the solver publishes a snapshot
// after every sweep and then waits for the pace interval. The server keeps running
// after the solver finishes, until interrupted.
func (app *gridApp) serve(ctx context.Context, addr string, pace time.Duration) error {
	solver, err := app.newSolver()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	srv, err := server.NewServer(ctx, addr, app.world, solver.Snapshot())
	if err != nil {
		return err
	}
	srv.WatchValues(solver.StateValue)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return srv.Serve(groupCtx)
	})
	group.Go(func() error {
		trainingCtx, cancel, err := app.cfg.WithTrainingDeadline(groupCtx)
		if err != nil {
			return err
		}
		defer cancel()

		wait := func(context.Context) {}
		if pace > 0 {
			ticker := channerics.NewTicker(trainingCtx.Done(), pace)
			wait = func(ctx context.Context) {
				select {
				case <-ticker:
				case <-ctx.Done():
				}
			}
		}
		result, err := solver.Solve(trainingCtx, func(ctx context.Context, snap reinforcement.Snapshot) {
			srv.Publish(snap)
			wait(ctx)
		})
		app.printer.ShowResult(result)
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			log.Println("training deadline exceeded")
			return nil
		case errors.Is(err, context.Canceled):
			return nil
		case err != nil:
			return err
		}

		snap := solver.Snapshot()
		app.printer.ShowValues(app.world, &snap)
		app.printer.ShowPolicy(app.world, &snap)
		return nil
	})

	return group.Wait()
}

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
