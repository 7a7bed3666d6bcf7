/*
Citybrains drives walkers and cars around a grid city. Each agent delegates the
choice of its next road cell to a brain: a breadth-first shortest path planner,
a tabular Q-learner that discovers routes between home and shop by trial and
error, or a random wanderer. The serve command runs the live scene and pushes
it to a page over a websocket; the train command trains learners headless and
dumps their policies; the route command prints a shortest path.
*/
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"time"

	"citybrains/brains"
	"citybrains/planner"
	"citybrains/reinforcement"
	. "citybrains/road_graph"
	"citybrains/server"
	"citybrains/simulation"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

// Used when the config sets neither an episode budget nor a deadline.
const defaultEpisodes = 500

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using the process environment")
	}

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// newRootCmd wires the commands. Every flag may also be set from the
// environment as CITYBRAINS_<FLAG>, with dashes as underscores.
func newRootCmd() *cobra.Command {
	vp := viper.New()
	vp.SetEnvPrefix("CITYBRAINS")
	vp.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	vp.AutomaticEnv()

	rootCmd := &cobra.Command{
		Use:          "citybrains",
		Short:        "Grid city agents driven by planning and learning brains",
		SilenceUsage: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.String("config", "./config.yaml", "training config file")
	flags.String("layout", "lattice", "city layout: lattice, downtown or debug")
	flags.Bool("debug", false, "use the small debug layout")
	flags.Int("grid-size", 15, "lattice width and depth in cells")
	flags.Int("road-step", 3, "a street every road-step rows and columns")
	flags.Float64("closure-rate", 0, "fraction of lattice links closed by noise")
	flags.Int64("seed", 1, "seed of the city generator and the random walkers")
	_ = vp.BindPFlags(flags)

	rootCmd.AddCommand(serveCmd(vp))
	rootCmd.AddCommand(trainCmd(vp))
	rootCmd.AddCommand(routeCmd(vp))
	return rootCmd
}

func serveCmd(vp *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the live scene and serve it to a browser",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return runServe(ctx, vp)
		},
	}

	cmd.Flags().String("host", "", "the host ip")
	cmd.Flags().String("port", "8080", "the host port")
	cmd.Flags().Duration("tick", 50*time.Millisecond, "wall time between simulation steps")
	cmd.Flags().Float64("speed", 1, "simulated seconds per wall second")
	_ = vp.BindPFlags(cmd.Flags())
	return cmd
}

func trainCmd(vp *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train Q-learning walkers headless and print their policies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return runTrain(ctx, vp, cmd.OutOrStdout())
		},
	}

	cmd.Flags().Int("nworkers", runtime.NumCPU(), "number of worker training routines")
	_ = vp.BindPFlags(cmd.Flags())
	return cmd
}

func routeCmd(vp *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "route [from] [to]",
		Short: "Print the shortest road path between two points of interest",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoute(vp, cmd.OutOrStdout(), args[0], args[1])
		},
	}
}

func buildCity(vp *viper.Viper) (*City, error) {
	layout := vp.GetString("layout")
	if vp.GetBool("debug") {
		layout = "debug"
	}

	switch layout {
	case "debug":
		return Convert(DebugLayout)
	case "downtown":
		return Convert(DowntownLayout)
	case "lattice":
		cfg := DefaultCityConfig()
		cfg.GridSize = vp.GetInt("grid-size")
		cfg.RoadStep = vp.GetInt("road-step")
		cfg.ClosureRate = vp.GetFloat64("closure-rate")
		cfg.Seed = vp.GetInt64("seed")
		return NewLatticeCity(cfg)
	}
	return nil, fmt.Errorf("%w: unknown layout %q", ErrBadLayout, layout)
}

// loadConfig reads the training config, or returns an empty one (all
// defaults) when the file does not exist.
func loadConfig(vp *viper.Viper) (*reinforcement.TrainingConfig, error) {
	path := vp.GetString("config")
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		log.Printf("no config at %s, using default hyperparameters", path)
		return &reinforcement.TrainingConfig{}, nil
	}
	return reinforcement.FromYaml(path)
}

func runServe(ctx context.Context, vp *viper.Viper) error {
	city, err := buildCity(vp)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(vp)
	if err != nil {
		return err
	}

	sim, err := simulation.NewScene(city, simulation.SceneConfig{
		QLearning: cfg.QLearning(),
		Seed:      vp.GetInt64("seed"),
		Logger:    brains.NewLogger("Scene"),
	})
	if err != nil {
		return err
	}

	snapshots := make(chan simulation.Snapshot)
	addr := vp.GetString("host") + ":" + vp.GetString("port")
	srv, err := server.NewServer(ctx, addr, city, sim.Snapshot(), snapshots, brains.NewLogger("Server"))
	if err != nil {
		return err
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		err := sim.Run(groupCtx, vp.GetDuration("tick"), vp.GetFloat64("speed"), func(snap simulation.Snapshot) {
			select {
			case snapshots <- snap:
			case <-groupCtx.Done():
			}
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	group.Go(func() error {
		return srv.Serve(groupCtx)
	})
	return group.Wait()
}

func runTrain(ctx context.Context, vp *viper.Viper, out io.Writer) error {
	city, err := buildCity(vp)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(vp)
	if err != nil {
		return err
	}
	if cfg.Episodes == 0 && len(cfg.TrainingDeadline) == 0 {
		cfg.Episodes = defaultEpisodes
	}

	trainingCtx, cancel, err := cfg.WithTrainingDeadline(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	logger := brains.NewLogger("Train")
	start := time.Now()
	result, err := simulation.Train(
		trainingCtx,
		city,
		cfg,
		vp.GetInt("nworkers"),
		func(_ context.Context, episodes int) {
			if episodes%100 == 0 {
				logger.Printf("%d episodes in %s", episodes, time.Since(start).Round(time.Millisecond))
			}
		})
	if err != nil {
		return err
	}

	ShowGrid(out, city)
	if len(result.Brains) > 0 {
		for _, goal := range []string{"shop", "home"} {
			reinforcement.ShowPolicy(out, city, result.Brains[0], goal)
			reinforcement.ShowMaxValues(out, city, result.Brains[0], goal)
		}
	}

	stats, err := json.MarshalIndent(result.Stats, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(out, string(stats))
	return nil
}

func runRoute(vp *viper.Viper, out io.Writer, from, to string) error {
	city, err := buildCity(vp)
	if err != nil {
		return err
	}

	start, ok := city.Resolve(from)
	if !ok {
		return fmt.Errorf("route: %s: %w", from, ErrUnknownPOI)
	}
	goal, ok := city.Resolve(to)
	if !ok {
		return fmt.Errorf("route: %s: %w", to, ErrUnknownPOI)
	}

	path, found := planner.FindPath(city.Graph, start, goal)
	if !found {
		return fmt.Errorf("route: no path from %s to %s", from, to)
	}

	nodes := make([]string, len(path))
	for i, node := range path {
		nodes[i] = node.String()
	}
	fmt.Fprintf(out, "%s -> %s: %d steps\n%s\n", from, to, path.Steps(), strings.Join(nodes, " "))
	return nil
}
