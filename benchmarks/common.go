package benchmarks

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/spf13/cobra"
	"github.com/zeu5/edgeracer/dqn"
	"github.com/zeu5/edgeracer/experiment"
	"github.com/zeu5/edgeracer/policies"
	"github.com/zeu5/edgeracer/server"
	"github.com/zeu5/edgeracer/track"
)

var errCourseRequired = errors.New("place a start and a finish first: pass --course or --track")

var (
	courseName   string
	trackFile    string
	batchSize    int
	syncEvery    int
	discount     float64
	learningRate float64
	memorySize   int
	hidden       []int
	exploration  policies.ExplorationConfig
	recordTraces bool
	serveAddr    string
)

// addTrainingFlags binds the course and hyperparameter flags of a training command
func addTrainingFlags(cmd *cobra.Command) {
	d := dqn.DefaultConfig()
	cmd.Flags().StringVarP(&courseName, "course", "c", "course1", "Preset course to drive")
	cmd.Flags().StringVarP(&trackFile, "track", "t", "", "JSON course file, overrides --course")
	cmd.Flags().IntVar(&batchSize, "batch", d.BatchSize, "Transitions per optimizer step")
	cmd.Flags().IntVar(&syncEvery, "sync", d.SyncEvery, "Steps between two target network syncs")
	cmd.Flags().Float64Var(&discount, "discount", d.Discount, "Discount factor")
	cmd.Flags().Float64Var(&learningRate, "lr", d.LearningRate, "Learning rate")
	cmd.Flags().IntVar(&memorySize, "memory", d.MemorySize, "Replay memory capacity")
	cmd.Flags().IntSliceVar(&hidden, "hidden", d.Hidden, "Hidden layer widths")
	cmd.Flags().Float64Var(&exploration.Initial, "explore", d.Exploration.Initial, "Initial exploration rate")
	cmd.Flags().Float64Var(&exploration.Min, "explore-min", d.Exploration.Min, "Minimum exploration rate")
	cmd.Flags().Float64Var(&exploration.DecayPerStep, "explore-decay", d.Exploration.DecayPerStep, "Exploration decay per step")
	cmd.Flags().Float64Var(&exploration.DecayPerEpisode, "explore-episode-decay", d.Exploration.DecayPerEpisode, "Decay of the initial exploration rate per episode")
	cmd.Flags().BoolVar(&recordTraces, "traces", false, "Record the transitions of every episode")
	cmd.Flags().StringVar(&serveAddr, "serve", "", "Serve the training status on this address, e.g. localhost:8080")
}

func trainingConfig() *dqn.Config {
	cfg := dqn.DefaultConfig()
	cfg.Episodes = episodes
	cfg.MaxStepsPerEpisode = horizon
	cfg.BatchSize = batchSize
	cfg.SyncEvery = syncEvery
	cfg.Discount = discount
	cfg.LearningRate = learningRate
	cfg.MemorySize = memorySize
	cfg.Hidden = append([]int(nil), hidden...)
	cfg.Exploration = exploration
	cfg.Seed = seed
	return cfg
}

func loadCourse() (*track.Course, error) {
	if trackFile != "" {
		return track.Load(trackFile)
	}
	if courseName == "" {
		return nil, errCourseRequired
	}
	c, ok := track.Preset(courseName)
	if !ok {
		return nil, fmt.Errorf("unknown course %q, available: %v", courseName, track.PresetNames())
	}
	return c, nil
}

func newLogger() log.Logger {
	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	logger = log.With(logger, "ts", log.DefaultTimestampUTC)
	if verbose {
		return level.NewFilter(logger, level.AllowDebug())
	}
	return level.NewFilter(logger, level.AllowInfo())
}

// interruptContext is cancelled on the first interrupt signal
func interruptContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

// runComparison starts the optional status server and the profiles around c.Run
func runComparison(ctx context.Context, logger log.Logger, c *experiment.Comparison, monitor *server.Monitor) error {
	if monitor != nil {
		go func() {
			if err := server.Serve(ctx, serveAddr, monitor, logger); err != nil {
				level.Error(logger).Log("msg", "status server stopped", "err", err)
			}
		}()
	}

	stop, err := startProfiling()
	if err != nil {
		return err
	}
	runErr := c.Run(ctx)
	if err := stop(); err != nil && runErr == nil {
		runErr = err
	}
	if errors.Is(runErr, context.Canceled) {
		level.Warn(logger).Log("msg", "interrupted, results are partial")
		return nil
	}
	return runErr
}

// newComparison prepares the results folder and wires the monitor hooks when serving
func newComparison(logger log.Logger) (*experiment.Comparison, *server.Monitor, error) {
	config := &experiment.ComparisonConfig{
		Runs:           runs,
		RecordPath:     saveFile,
		RecordTraces:   recordTraces,
		PrintFrequency: 1,
		Logger:         logger,
	}
	var monitor *server.Monitor
	if serveAddr != "" {
		monitor = server.NewMonitor(0)
		config.OnFrame = monitor.ObserveFrame
		config.OnEpisode = monitor.ObserveEpisode
	}
	c, err := experiment.NewComparison(config)
	if err != nil {
		return nil, nil, err
	}
	c.AddAnalysis("rewards", experiment.NewRewardAnalyzer(), experiment.Comparators(
		experiment.RewardPlotter(saveFile, logger),
		experiment.RewardRecorder(saveFile),
	))
	c.AddAnalysis("outcomes", experiment.NewOutcomeAnalyzer(), experiment.OutcomeRecorder(saveFile))
	return c, monitor, nil
}
