package experiment

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"sort"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/zeu5/edgeracer/dqn"
	"github.com/zeu5/edgeracer/racing"
	"github.com/zeu5/edgeracer/util"
)

// Generic Dataset that contains information after processing the episodes
type DataSet interface{}

// Analyzer compresses the episode summaries of one experiment to a DataSet
type Analyzer interface {
	// run, experiment, summary
	Analyze(int, string, dqn.EpisodeSummary)
	DataSet() DataSet
	Reset()
}

// Comparator differentiates between the datasets of the experiments of one run
type Comparator func(run int, names []string, datasets []DataSet) error

func NoopComparator() Comparator {
	return func(int, []string, []DataSet) error { return nil }
}

// ComparisonConfig contains the configuration for the comparison
type ComparisonConfig struct {
	Runs       int
	RecordPath string // results folder, emptied when the comparison is created

	RecordTraces bool
	// seconds between two terminal refreshes, zero turns the live printer off
	PrintFrequency int

	Logger log.Logger

	// optional hooks, called from the training goroutine
	OnFrame   func(experiment string, pose racing.Pose)
	OnEpisode func(experiment string, run int, summary dqn.EpisodeSummary)
}

// Comparison contains the different experiments to compare
// The episode summaries of every experiment are analyzed
// The analyzed datasets are then compared
type Comparison struct {
	Experiments []*Experiment
	analyzers   map[string]Analyzer
	comparators map[string]Comparator
	cConfig     *ComparisonConfig
	logger      log.Logger
}

// NewComparison creates a comparison instance and prepares the results folder
func NewComparison(config *ComparisonConfig) (*Comparison, error) {
	if _, err := os.Stat(config.RecordPath); err == nil {
		if err := util.RemoveContents(config.RecordPath); err != nil {
			return nil, err
		}
	}
	folders := []string{config.RecordPath}
	if config.RecordTraces {
		folders = append(folders, path.Join(config.RecordPath, "traces"))
	}
	for _, f := range folders {
		if err := util.EnsureDir(f); err != nil {
			return nil, err
		}
	}

	logger := config.Logger
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Comparison{
		Experiments: make([]*Experiment, 0),
		analyzers:   make(map[string]Analyzer),
		comparators: make(map[string]Comparator),
		cConfig:     config,
		logger:      logger,
	}, nil
}

// AddAnalysis adds an analyzer and comparator to the comparison
func (c *Comparison) AddAnalysis(name string, analyzer Analyzer, comparator Comparator) {
	c.analyzers[name] = analyzer
	c.comparators[name] = comparator
}

// Add experiments to compare
func (c *Comparison) AddExperiment(e *Experiment) {
	c.Experiments = append(c.Experiments, e)
}

// record the configuration of the comparison
func (c *Comparison) recordConfig() error {
	cfg := c.cConfig
	out := make(map[string]interface{})
	out["runs"] = cfg.Runs
	out["record_traces"] = cfg.RecordTraces

	experiments := make(map[string]interface{})
	for _, e := range c.Experiments {
		experiments[e.Name] = map[string]interface{}{
			"course":      e.Course.Name,
			"training":    e.Config,
			"environment": e.Environment,
		}
	}
	out["experiments"] = experiments
	out["analyzers"] = c.analyzerNames()

	bs, err := json.MarshalIndent(out, "", "\t")
	if err != nil {
		return err
	}
	return util.WriteToFile(path.Join(cfg.RecordPath, "comparison_config.json"), string(bs))
}

func (c *Comparison) analyzerNames() []string {
	names := make([]string, 0, len(c.analyzers))
	for name := range c.analyzers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Run the comparison. Every run trains each experiment from scratch, then
// the comparators are called on the datasets of the run.
func (c *Comparison) Run(ctx context.Context) error {
	if err := c.recordConfig(); err != nil {
		return fmt.Errorf("recording comparison config: %w", err)
	}

	longestNameLen := 0
	for _, e := range c.Experiments {
		if len(e.Name) > longestNameLen {
			longestNameLen = len(e.Name)
		}
	}

	output := NewStatusLine()
	if c.cConfig.PrintFrequency > 0 {
		printer := NewTerminalPrinter(ctx, []*StatusLine{output}, time.Duration(c.cConfig.PrintFrequency)*time.Second)
		printer.Start()
		defer printer.Stop()
	}

	names := c.analyzerNames()
	for run := 0; run < c.cConfig.Runs; run++ {
		level.Info(c.logger).Log("msg", "starting run", "run", run+1, "of", c.cConfig.Runs)
		datasets := make(map[string][]DataSet)
		for _, name := range names {
			datasets[name] = make([]DataSet, len(c.Experiments))
		}

		expNames := make([]string, len(c.Experiments))
		for i, e := range c.Experiments {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			analyzers := make([]Analyzer, 0, len(names))
			for _, name := range names {
				analyzers = append(analyzers, c.analyzers[name])
			}
			output.Start()
			rewards, err := e.Run(ctx, &experimentRunConfig{
				CurrentRun:        run,
				Analyzers:         analyzers,
				Logger:            c.logger,
				RecordTraces:      c.cConfig.RecordTraces,
				ReportSavePath:    c.cConfig.RecordPath,
				Output:            output,
				LongestExpNameLen: longestNameLen,
				OnFrame:           c.cConfig.OnFrame,
				OnEpisode:         c.cConfig.OnEpisode,
			})
			output.Finish()
			if err != nil {
				return fmt.Errorf("run %d, experiment %s: %w", run, e.Name, err)
			}
			level.Info(c.logger).Log("msg", "experiment finished", "experiment", e.Name, "run", run, "episodes", len(rewards))

			for _, name := range names {
				datasets[name][i] = c.analyzers[name].DataSet()
				c.analyzers[name].Reset()
			}
			expNames[i] = e.Name
		}
		for _, name := range names {
			if err := c.comparators[name](run, expNames, datasets[name]); err != nil {
				return fmt.Errorf("comparator %s: %w", name, err)
			}
		}
	}
	return nil
}

// Comparators calls every comparator in order and stops at the first error
func Comparators(comparators ...Comparator) Comparator {
	return func(run int, names []string, datasets []DataSet) error {
		for _, c := range comparators {
			if err := c(run, names, datasets); err != nil {
				return err
			}
		}
		return nil
	}
}
