// Package dqn trains a Q network to drive the racing environment with
// experience replay and a periodically synced target network.
package dqn

import (
	"errors"
	"fmt"

	"github.com/zeu5/edgeracer/policies"
	"github.com/zeu5/edgeracer/racing"
)

var ErrInvalidConfig = errors.New("dqn: invalid configuration")

// Config holds the hyperparameters of a training run
type Config struct {
	Episodes           int     `json:"episodes"`
	MaxStepsPerEpisode int     `json:"max_steps_per_episode"`
	BatchSize          int     `json:"batch_size"`
	SyncEvery          int     `json:"sync_every"`
	Discount           float64 `json:"discount"`
	LearningRate       float64 `json:"learning_rate"`
	MemorySize         int     `json:"memory_size"`
	// episodes averaged in EpisodeSummary.MovingAverage
	MovingAverageWindow int                        `json:"moving_average_window"`
	Exploration         policies.ExplorationConfig `json:"exploration"`
	// widths of the hidden layers of the networks
	Hidden []int  `json:"hidden"`
	Seed   uint64 `json:"seed"`
}

func DefaultConfig() *Config {
	return &Config{
		Episodes:            1000,
		MaxStepsPerEpisode:  1000,
		BatchSize:           10,
		SyncEvery:           100,
		Discount:            0.7,
		LearningRate:        0.001,
		MemorySize:          5000,
		MovingAverageWindow: 100,
		Exploration:         policies.DefaultExplorationConfig(),
		Hidden:              []int{36, 24, 36},
		Seed:                42,
	}
}

func (c *Config) Validate() error {
	switch {
	case c.Episodes <= 0:
		return fmt.Errorf("%w: episodes must be positive", ErrInvalidConfig)
	case c.MaxStepsPerEpisode <= 0:
		return fmt.Errorf("%w: max steps per episode must be positive", ErrInvalidConfig)
	case c.BatchSize <= 0:
		return fmt.Errorf("%w: batch size must be positive", ErrInvalidConfig)
	case c.SyncEvery <= 0:
		return fmt.Errorf("%w: sync interval must be positive", ErrInvalidConfig)
	case c.Discount < 0 || c.Discount > 1:
		return fmt.Errorf("%w: discount must lie in [0, 1]", ErrInvalidConfig)
	case c.LearningRate <= 0:
		return fmt.Errorf("%w: learning rate must be positive", ErrInvalidConfig)
	case c.MemorySize < c.BatchSize:
		return fmt.Errorf("%w: memory size %d is smaller than the batch size %d", ErrInvalidConfig, c.MemorySize, c.BatchSize)
	case c.MovingAverageWindow <= 0:
		return fmt.Errorf("%w: moving average window must be positive", ErrInvalidConfig)
	}
	for _, h := range c.Hidden {
		if h <= 0 {
			return fmt.Errorf("%w: hidden layer widths must be positive", ErrInvalidConfig)
		}
	}
	if err := c.Exploration.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// LayerSizes are the widths of every network layer, input and output included
func (c *Config) LayerSizes() []int {
	sizes := []int{racing.ObservationSize}
	sizes = append(sizes, c.Hidden...)
	return append(sizes, racing.ActionSize)
}

// Copy returns a deep copy, safe to modify for a variant experiment
func (c *Config) Copy() *Config {
	out := *c
	out.Hidden = append([]int(nil), c.Hidden...)
	return &out
}
