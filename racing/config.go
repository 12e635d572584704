package racing

import (
	"errors"
	"fmt"
)

var ErrInvalidConfig = errors.New("racing: invalid config")

// Config holds the vehicle model, sensor and reward constants.
// Speeds are in units per frame and angles in degrees per frame.
type Config struct {
	TopSpeed         float64
	Acceleration     float64
	PassiveBraking   float64
	TurnAcceleration float64
	MaxTurnRate      float64

	SensorRange  float64 // length of each sensor ray
	SensorSpread float64 // angle between the front ray and each side ray

	GoalRadius        float64 // goal is reached once the car is closer than this
	CollisionDistance float64 // a sensor reading below this counts as a crash

	GoalReward       float64
	CollisionPenalty float64
	StepPenalty      float64
	SpeedReward      float64 // reward per unit of speed on every running frame
}

func DefaultConfig() *Config {
	return &Config{
		TopSpeed:         10,
		Acceleration:     0.1,
		PassiveBraking:   0.1,
		TurnAcceleration: 0.3,
		MaxTurnRate:      6,

		SensorRange:  500,
		SensorSpread: 45,

		GoalRadius:        10,
		CollisionDistance: 30,

		GoalReward:       500,
		CollisionPenalty: 500,
		StepPenalty:      1,
		SpeedReward:      1,
	}
}

// Validate rejects the constants the observation or the turn model divide by
func (c *Config) Validate() error {
	positive := []struct {
		name  string
		value float64
	}{
		{"top speed", c.TopSpeed},
		{"sensor range", c.SensorRange},
		{"turn acceleration", c.TurnAcceleration},
		{"max turn rate", c.MaxTurnRate},
		{"goal radius", c.GoalRadius},
	}
	for _, p := range positive {
		if !(p.value > 0) {
			return fmt.Errorf("%w: %s must be positive, got %v", ErrInvalidConfig, p.name, p.value)
		}
	}
	return nil
}
