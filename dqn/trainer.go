package dqn

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/zeu5/edgeracer/memory"
	"github.com/zeu5/edgeracer/nn"
	"github.com/zeu5/edgeracer/policies"
	"github.com/zeu5/edgeracer/racing"
	"github.com/zeu5/edgeracer/track"
	"github.com/zeu5/edgeracer/types"
	"gonum.org/v1/gonum/floats"
)

var ErrNilAgent = errors.New("dqn: nil agent")

// EpisodeSummary is handed to the episode callback after every episode
type EpisodeSummary struct {
	Index           int            `json:"episode"`
	Reward          float64        `json:"reward"`
	MovingAverage   float64        `json:"moving_average"`
	Steps           int            `json:"steps"`
	Outcome         racing.Outcome `json:"-"`
	OutcomeName     string         `json:"outcome"`
	ExplorationRate float64        `json:"exploration_rate"`
	// mean loss of the optimizer steps of the episode, zero when none ran
	Loss float64 `json:"loss"`
}

// Trainer owns the policy and the target networks. Only the policy network
// is trained; the target is a copy refreshed every SyncEvery steps.
type Trainer struct {
	config *Config
	policy types.QNetwork
	target types.QNetwork
	logger log.Logger

	totalSteps int
	average    *types.MovingAverage
}

func NewTrainer(config *Config, policy, target types.QNetwork, logger log.Logger) *Trainer {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Trainer{
		config:  config,
		policy:  policy,
		target:  target,
		logger:  logger,
		average: types.NewMovingAverage(config.MovingAverageWindow),
	}
}

// NewMLPTrainer builds both networks as nn.MLP with the configured layer sizes
func NewMLPTrainer(config *Config, logger log.Logger) (*Trainer, error) {
	policy, err := nn.NewMLP(config.LayerSizes(), config.Seed)
	if err != nil {
		return nil, err
	}
	target, err := nn.NewMLP(config.LayerSizes(), config.Seed+1)
	if err != nil {
		return nil, err
	}
	return NewTrainer(config, policy, target, logger), nil
}

// NewRun wires a fresh environment, replay memory and explorer to a course
// following the seed of the configuration
func NewRun(config *Config, env types.Environment, course *track.Course) (*Agent, error) {
	mem, err := memory.NewReplayMemory(config.MemorySize, config.Seed+2)
	if err != nil {
		return nil, err
	}
	explorer := policies.NewEpsilonGreedy(config.Exploration, config.Seed+3)
	return NewAgent(env, course, mem, explorer), nil
}

func (t *Trainer) Config() *Config {
	return t.config
}

func (t *Trainer) Policy() types.QNetwork {
	return t.policy
}

func (t *Trainer) Target() types.QNetwork {
	return t.target
}

// TotalSteps counts the steps since the start of the last Train call
func (t *Trainer) TotalSteps() int {
	return t.totalSteps
}

func (t *Trainer) resetCounters() {
	t.totalSteps = 0
	t.average.Reset()
}

// Train runs the configured number of episodes and returns the reward of
// each. The context is only checked between episodes; a cancelled run
// returns the rewards collected so far with the context error.
func (t *Trainer) Train(ctx context.Context, agent *Agent, onEpisodeEnd func(EpisodeSummary)) ([]float64, error) {
	if agent == nil {
		return nil, ErrNilAgent
	}
	if err := t.config.Validate(); err != nil {
		return nil, err
	}
	if err := t.target.CopyWeightsFrom(t.policy); err != nil {
		return nil, fmt.Errorf("dqn: syncing target network: %w", err)
	}
	t.resetCounters()
	agent.TotallyReset()

	rewards := make([]float64, 0, t.config.Episodes)
	for episode := 0; episode < t.config.Episodes; episode++ {
		select {
		case <-ctx.Done():
			return rewards, ctx.Err()
		default:
		}

		summary, err := t.runEpisode(episode, agent)
		if err != nil {
			return rewards, fmt.Errorf("dqn: episode %d: %w", episode, err)
		}
		rewards = append(rewards, summary.Reward)

		level.Debug(t.logger).Log(
			"msg", "episode finished",
			"episode", summary.Index,
			"reward", summary.Reward,
			"moving_average", summary.MovingAverage,
			"steps", summary.Steps,
			"outcome", summary.OutcomeName,
			"exploration", summary.ExplorationRate,
		)
		if onEpisodeEnd != nil {
			onEpisodeEnd(summary)
		}
	}
	level.Info(t.logger).Log("msg", "training finished", "episodes", len(rewards), "steps", t.totalSteps)
	return rewards, nil
}

func (t *Trainer) runEpisode(episode int, agent *Agent) (EpisodeSummary, error) {
	if err := agent.Reset(); err != nil {
		return EpisodeSummary{}, err
	}

	var (
		report    StepReport
		lossSum   float64
		lossCount int
	)
	for step := 0; step < t.config.MaxStepsPerEpisode; step++ {
		var (
			loss      float64
			optimized bool
			err       error
		)
		report, loss, optimized, err = t.step(agent)
		if err != nil {
			return EpisodeSummary{}, err
		}
		if optimized {
			lossSum += loss
			lossCount++
		}
		if report.Terminated {
			break
		}
	}

	t.average.Add(agent.Reward())
	summary := EpisodeSummary{
		Index:           episode,
		Reward:          agent.Reward(),
		MovingAverage:   t.average.Value(),
		Steps:           agent.Steps(),
		Outcome:         agent.Outcome(),
		OutcomeName:     agent.Outcome().String(),
		ExplorationRate: agent.Explorer().Rate(),
	}
	if lossCount > 0 {
		summary.Loss = lossSum / float64(lossCount)
	}
	return summary, nil
}

// step plays one frame, runs one optimizer step when the memory holds a
// full batch and syncs the target network on the configured cadence
func (t *Trainer) step(agent *Agent) (StepReport, float64, bool, error) {
	report, err := agent.PlayStep(t.policy)
	if err != nil {
		return report, 0, false, err
	}

	var (
		loss      float64
		optimized bool
	)
	if agent.Memory().Len() >= t.config.BatchSize {
		loss, err = t.optimize(agent.Memory())
		if err != nil {
			return report, 0, false, err
		}
		optimized = true
	}

	t.totalSteps++
	if t.totalSteps%t.config.SyncEvery == 0 {
		if err := t.target.CopyWeightsFrom(t.policy); err != nil {
			return report, loss, optimized, fmt.Errorf("dqn: syncing target network: %w", err)
		}
	}
	return report, loss, optimized, nil
}

func (t *Trainer) optimize(mem *memory.ReplayMemory) (float64, error) {
	batch, err := mem.Sample(t.config.BatchSize)
	if err != nil {
		return 0, err
	}
	states := make([][]float64, len(batch))
	next := make([][]float64, len(batch))
	actions := make([]racing.Action, len(batch))
	for i, tr := range batch {
		states[i] = tr.State.Vector()
		next[i] = tr.Next.Vector()
		actions[i] = tr.Action
	}

	nextValues := t.target.Predict(next)
	if len(nextValues) != len(batch) {
		return 0, ErrNoPrediction
	}
	for i, row := range nextValues {
		if len(row) != racing.ActionSize {
			return 0, fmt.Errorf("%w: row %d has %d values, want %d", ErrNoPrediction, i, len(row), racing.ActionSize)
		}
	}
	targets := BellmanTargets(batch, nextValues, t.config.Discount)
	return t.policy.ApplyGradientStep(states, TakenActionLoss(actions, targets), t.config.LearningRate)
}

// BellmanTargets computes r + discount * (1 - terminated) * max Q'(s') per transition.
// Every row of nextValues must be non empty.
func BellmanTargets(batch []types.Transition, nextValues [][]float64, discount float64) []float64 {
	targets := make([]float64, len(batch))
	for i, tr := range batch {
		targets[i] = tr.Reward
		if !tr.Terminated {
			targets[i] += discount * floats.Max(nextValues[i])
		}
	}
	return targets
}

// TakenActionLoss is the mean squared error between the predicted value of
// the taken action and its target. The other outputs get no gradient.
func TakenActionLoss(actions []racing.Action, targets []float64) types.LossFunc {
	return func(predicted [][]float64) (float64, [][]float64) {
		n := float64(len(predicted))
		loss := 0.0
		grad := make([][]float64, len(predicted))
		for i, row := range predicted {
			grad[i] = make([]float64, len(row))
			a := int(actions[i])
			d := row[a] - targets[i]
			loss += d * d / n
			grad[i][a] = 2 * d / n
		}
		return loss, grad
	}
}
