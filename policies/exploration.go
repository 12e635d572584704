// Package policies holds the exploration schedule used while collecting
// experience.
package policies

import (
	"errors"

	"github.com/zeu5/edgeracer/racing"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/sampleuv"
)

var ErrInvalidExploration = errors.New("policies: exploration rates must satisfy 0 <= min <= initial <= 1")

// ExplorationConfig describes the epsilon schedule. The rate starts every
// episode at Initial - episode*DecayPerEpisode and loses DecayPerStep after
// every step, never leaving [Min, Initial].
type ExplorationConfig struct {
	Initial         float64 `json:"initial"`
	Min             float64 `json:"min"`
	DecayPerStep    float64 `json:"decay_per_step"`
	DecayPerEpisode float64 `json:"decay_per_episode"`
}

func DefaultExplorationConfig() ExplorationConfig {
	return ExplorationConfig{
		Initial:         1,
		Min:             0.1,
		DecayPerStep:    0.001,
		DecayPerEpisode: 0,
	}
}

func (c ExplorationConfig) Validate() error {
	if c.Min < 0 || c.Initial > 1 || c.Min > c.Initial || c.DecayPerStep < 0 || c.DecayPerEpisode < 0 {
		return ErrInvalidExploration
	}
	return nil
}

func (c ExplorationConfig) clamp(rate float64) float64 {
	if rate < c.Min {
		return c.Min
	}
	if rate > c.Initial {
		return c.Initial
	}
	return rate
}

// EpsilonGreedy picks a uniformly random action with probability Rate and
// the action with the highest value otherwise
type EpsilonGreedy struct {
	config   ExplorationConfig
	rate     float64
	episodes int
	rand     *rand.Rand
	uniform  []float64
}

func NewEpsilonGreedy(config ExplorationConfig, seed uint64) *EpsilonGreedy {
	uniform := make([]float64, racing.ActionSize)
	for i := range uniform {
		uniform[i] = 1
	}
	return &EpsilonGreedy{
		config:  config,
		rate:    config.Initial,
		rand:    rand.New(rand.NewSource(seed)),
		uniform: uniform,
	}
}

// Reset restores the schedule to the beginning of a run
func (e *EpsilonGreedy) Reset() {
	e.rate = e.config.Initial
	e.episodes = 0
}

// StartEpisode sets the rate for the next episode and advances the episode count
func (e *EpsilonGreedy) StartEpisode() {
	e.rate = e.config.clamp(e.config.Initial - float64(e.episodes)*e.config.DecayPerEpisode)
	e.episodes++
}

// Decay applies the per step decay
func (e *EpsilonGreedy) Decay() {
	e.rate = e.config.clamp(e.rate - e.config.DecayPerStep)
}

func (e *EpsilonGreedy) Rate() float64 {
	return e.rate
}

func (e *EpsilonGreedy) Episodes() int {
	return e.episodes
}

// Explore draws whether the next action should be random
func (e *EpsilonGreedy) Explore() bool {
	return e.rand.Float64() < e.rate
}

// Random returns a uniformly random action
func (e *EpsilonGreedy) Random() racing.Action {
	i, ok := sampleuv.NewWeighted(e.uniform, e.rand).Take()
	if !ok {
		return racing.Accelerate
	}
	return racing.Action(i)
}

// Choose explores with probability Rate, otherwise it calls values and
// returns the greedy action. values is not called when exploring.
func (e *EpsilonGreedy) Choose(values func() []float64) (racing.Action, bool) {
	if e.Explore() {
		return e.Random(), true
	}
	return Greedy(values()), false
}

// Greedy is the index of the highest value, the lowest index on ties
func Greedy(values []float64) racing.Action {
	if len(values) == 0 {
		return racing.Accelerate
	}
	return racing.Action(floats.MaxIdx(values))
}
