// Package experiment runs named training configurations side by side,
// analyzes the episode summaries and compares the results.
package experiment

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strconv"

	"github.com/go-kit/log"
	"github.com/zeu5/edgeracer/dqn"
	"github.com/zeu5/edgeracer/racing"
	"github.com/zeu5/edgeracer/track"
	"github.com/zeu5/edgeracer/util"
)

type experimentRunConfig struct {
	CurrentRun int
	Analyzers  []Analyzer
	Logger     log.Logger

	RecordTraces   bool
	ReportSavePath string

	Output            *StatusLine
	LongestExpNameLen int

	OnFrame   func(string, racing.Pose)
	OnEpisode func(string, int, dqn.EpisodeSummary)
}

// Experiment is one training configuration on one course
type Experiment struct {
	Name        string
	Config      *dqn.Config
	Course      *track.Course
	Environment *racing.Config
}

// NewExperiment creates an experiment that drives with the default vehicle settings
func NewExperiment(name string, config *dqn.Config, course *track.Course) *Experiment {
	return &Experiment{
		Name:        name,
		Config:      config,
		Course:      course,
		Environment: racing.DefaultConfig(),
	}
}

// runSeed offsets the configured seed so that every run draws different randomness
func (e *Experiment) runSeed(run int) uint64 {
	return e.Config.Seed + uint64(run)*1000
}

func (e *Experiment) tracePath(rConfig *experimentRunConfig) string {
	return path.Join(rConfig.ReportSavePath, "traces", e.Name+"_"+strconv.Itoa(rConfig.CurrentRun)+".jsonl")
}

type episodeRecord struct {
	Episode     int         `json:"episode"`
	Outcome     string      `json:"outcome"`
	Transitions interface{} `json:"transitions"`
}

// Run trains a fresh pair of networks for the configured episodes
func (e *Experiment) Run(ctx context.Context, rConfig *experimentRunConfig) ([]float64, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	config := e.Config.Copy()
	config.Seed = e.runSeed(rConfig.CurrentRun)

	logger := log.With(rConfig.Logger, "experiment", e.Name, "run", rConfig.CurrentRun)
	trainer, err := dqn.NewMLPTrainer(config, logger)
	if err != nil {
		return nil, err
	}
	agent, err := dqn.NewRun(config, racing.NewEnv(e.Environment), e.Course)
	if err != nil {
		return nil, err
	}
	if rConfig.OnFrame != nil {
		agent.OnFrame(func(p racing.Pose) {
			rConfig.OnFrame(e.Name, p)
		})
	}

	EPPadding := len(strconv.Itoa(config.Episodes))
	NamePadding := rConfig.LongestExpNameLen

	var recordErr error
	rewards, err := trainer.Train(ctx, agent, func(s dqn.EpisodeSummary) {
		for _, a := range rConfig.Analyzers {
			a.Analyze(rConfig.CurrentRun, e.Name, s)
		}
		if rConfig.RecordTraces && recordErr == nil {
			bs, err := json.Marshal(episodeRecord{
				Episode:     s.Index,
				Outcome:     s.OutcomeName,
				Transitions: agent.Trace().Transitions(),
			})
			if err == nil {
				err = util.AppendToFile(e.tracePath(rConfig), string(bs))
			}
			recordErr = err
		}
		if rConfig.OnEpisode != nil {
			rConfig.OnEpisode(e.Name, rConfig.CurrentRun, s)
		}
		if rConfig.Output != nil {
			rConfig.Output.Set(fmt.Sprintf("Exp:%*s, Eps:%*d/%d, Reward:%9.1f, Avg:%9.1f, Steps:%5d, Explore:%4.2f, Outcome:%s",
				NamePadding, e.Name, EPPadding, s.Index+1, config.Episodes, s.Reward, s.MovingAverage, s.Steps, s.ExplorationRate, s.OutcomeName))
		}
	})
	if err != nil {
		return rewards, err
	}
	if recordErr != nil {
		return rewards, fmt.Errorf("experiment %s: recording traces: %w", e.Name, recordErr)
	}
	return rewards, nil
}
