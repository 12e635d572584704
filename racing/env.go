// Package racing simulates a point car with a heading on a walled track.
// It turns actions into telemetry, senses the walls with three rays and
// scores every frame.
package racing

import (
	"errors"
	"fmt"
	"math"

	"github.com/zeu5/edgeracer/geometry"
	"github.com/zeu5/edgeracer/track"
)

var (
	ErrNotReset         = errors.New("racing: environment has not been reset")
	ErrEpisodeOver      = errors.New("racing: episode already terminated, reset first")
	ErrInvalidAction    = errors.New("racing: invalid action")
	ErrDegenerateCourse = track.ErrDegenerateCourse
)

// ObservationSize is the input width of the Q network
const ObservationSize = 6

// Observation is the normalized view of the car fed to the networks.
// Every field lies in [0, 1].
type Observation struct {
	Front        float64 `json:"front"`
	LeftFront    float64 `json:"left_front"`
	RightFront   float64 `json:"right_front"`
	GoalDistance float64 `json:"goal_distance"` // current over initial distance to the finish
	GoalBearing  float64 `json:"goal_bearing"`  // heading relative bearing to the finish over 360
	Speed        float64 `json:"speed"`
}

func (o Observation) Vector() []float64 {
	return []float64{o.Front, o.LeftFront, o.RightFront, o.GoalDistance, o.GoalBearing, o.Speed}
}

// Telemetry is the raw vehicle state
type Telemetry struct {
	Position geometry.Position
	Heading  float64 // degrees in [0, 360)
	Speed    float64 // [0, TopSpeed]
	TurnRate float64 // degrees per frame in [-MaxTurnRate, MaxTurnRate]
}

// Sensors are the raw distances to the closest wall along each ray
type Sensors struct {
	Front      float64
	LeftFront  float64
	RightFront float64
}

func (s Sensors) Min() float64 {
	return math.Min(s.Front, math.Min(s.LeftFront, s.RightFront))
}

// Pose is what a renderer needs to draw the car
type Pose struct {
	Position geometry.Position `json:"position"`
	Heading  float64           `json:"heading"`
}

type Outcome int

const (
	Running Outcome = iota
	GoalReached
	Collided
)

func (o Outcome) String() string {
	switch o {
	case Running:
		return "running"
	case GoalReached:
		return "goal"
	case Collided:
		return "collision"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

type StepResult struct {
	Next       Observation
	Reward     float64
	Terminated bool
	Outcome    Outcome
}

// envState is the internal superset of the observation
type envState struct {
	Telemetry
	Sensors
	GoalDistance float64
	GoalBearing  float64 // degrees in [0, 360)
}

// Env is the racing environment. It is not safe for concurrent use.
type Env struct {
	config *Config

	walls               []track.Wall
	goal                geometry.Position
	initialGoalDistance float64

	// nil until Reset and after Destroy
	state    *envState
	terminal bool
}

func NewEnv(config *Config) *Env {
	if config == nil {
		config = DefaultConfig()
	}
	return &Env{config: config}
}

func (e *Env) Config() *Config {
	return e.config
}

// Reset places the car at start facing 0 degrees with no speed and returns
// the first observation. The walls are copied: editing them afterwards does
// not affect the running episode.
func (e *Env) Reset(walls []track.Wall, start, finish geometry.Position) (Observation, error) {
	if err := e.config.Validate(); err != nil {
		return Observation{}, err
	}
	if !start.IsFinite() || !finish.IsFinite() {
		return Observation{}, track.ErrInvalidPosition
	}
	initial := geometry.Distance(start, finish)
	if initial == 0 {
		return Observation{}, ErrDegenerateCourse
	}

	e.walls = make([]track.Wall, len(walls))
	copy(e.walls, walls)
	e.goal = finish
	e.initialGoalDistance = initial
	e.terminal = false

	telemetry := Telemetry{Position: start}
	e.state = &envState{
		Telemetry:    telemetry,
		Sensors:      e.sense(start, 0),
		GoalDistance: initial,
		GoalBearing:  geometry.Bearing(start, finish),
	}
	return e.observe(), nil
}

// ResetCourse is Reset with the walls and positions of c
func (e *Env) ResetCourse(c *track.Course) (Observation, error) {
	return e.Reset(c.Walls, c.Start, c.Finish)
}

// Step advances the simulation by one frame
func (e *Env) Step(action Action) (StepResult, error) {
	if e.state == nil {
		return StepResult{}, ErrNotReset
	}
	if e.terminal {
		return StepResult{}, ErrEpisodeOver
	}
	if !action.Valid() {
		return StepResult{}, fmt.Errorf("%w: %d", ErrInvalidAction, int(action))
	}

	previous := e.state.Position
	telemetry := e.drive(action, e.state.Telemetry)
	rad := geometry.Radians(telemetry.Heading)
	telemetry.Position = geometry.Position{
		X: previous.X + telemetry.Speed*math.Cos(rad),
		Y: previous.Y + telemetry.Speed*math.Sin(rad),
	}

	e.state = &envState{
		Telemetry:    telemetry,
		Sensors:      e.sense(telemetry.Position, telemetry.Heading),
		GoalDistance: geometry.Distance(telemetry.Position, e.goal),
		GoalBearing:  geometry.NormalizeDegrees(geometry.Bearing(telemetry.Position, e.goal) - telemetry.Heading),
	}

	reward, outcome := e.reward(previous)
	if outcome != Running {
		e.terminal = true
	}
	return StepResult{
		Next:       e.observe(),
		Reward:     reward,
		Terminated: outcome != Running,
		Outcome:    outcome,
	}, nil
}

// Destroy drops the episode. Step fails until the next Reset.
func (e *Env) Destroy() {
	e.state = nil
	e.walls = nil
	e.terminal = false
}

// Pose returns the car position and heading, false when there is no episode
func (e *Env) Pose() (Pose, bool) {
	if e.state == nil {
		return Pose{}, false
	}
	return Pose{Position: e.state.Position, Heading: e.state.Heading}, true
}

// Telemetry returns the raw vehicle state, false when there is no episode
func (e *Env) Telemetry() (Telemetry, bool) {
	if e.state == nil {
		return Telemetry{}, false
	}
	return e.state.Telemetry, true
}

// drive applies the passive decay and the action to the telemetry.
// The position is left unchanged.
func (e *Env) drive(action Action, t Telemetry) Telemetry {
	cfg := e.config
	speed := t.Speed
	turnRate := t.TurnRate

	if action.accelerates() {
		speed += cfg.Acceleration
	} else if speed > cfg.PassiveBraking {
		speed -= cfg.PassiveBraking
	} else {
		speed = 0
	}

	if steer := action.steer(); steer != 0 {
		turnRate += steer * cfg.TurnAcceleration
	} else if turnRate > cfg.TurnAcceleration {
		turnRate -= cfg.TurnAcceleration
	} else if turnRate < -cfg.TurnAcceleration {
		turnRate += cfg.TurnAcceleration
	} else {
		turnRate = 0
	}

	t.Speed = geometry.Clamp(speed, 0, cfg.TopSpeed)
	t.TurnRate = geometry.Clamp(turnRate, -cfg.MaxTurnRate, cfg.MaxTurnRate)
	t.Heading = geometry.NormalizeDegrees(t.Heading + t.TurnRate)
	return t
}

// sense casts the three rays from position and keeps the closest hit of each
func (e *Env) sense(position geometry.Position, heading float64) Sensors {
	return Sensors{
		Front:      e.cast(position, heading),
		LeftFront:  e.cast(position, heading-e.config.SensorSpread),
		RightFront: e.cast(position, heading+e.config.SensorSpread),
	}
}

func (e *Env) cast(position geometry.Position, angle float64) float64 {
	end := geometry.PointAtBearing(position, angle, e.config.SensorRange)
	closest := e.config.SensorRange
	for _, w := range e.walls {
		if p, ok := w.Intersect(position, end); ok {
			closest = math.Min(closest, geometry.Distance(position, p))
		}
	}
	return closest
}

// crossed reports whether moving from previous to the current position went through a wall
func (e *Env) crossed(previous geometry.Position) bool {
	if previous == e.state.Position {
		return false
	}
	for _, w := range e.walls {
		if _, ok := w.Intersect(previous, e.state.Position); ok {
			return true
		}
	}
	return false
}

// reward scores the current state. A crash wins over reaching the goal on the same frame.
func (e *Env) reward(previous geometry.Position) (float64, Outcome) {
	cfg := e.config
	s := e.state
	if s.Sensors.Min() < cfg.CollisionDistance || e.crossed(previous) {
		return -cfg.CollisionPenalty, Collided
	}
	if s.GoalDistance < cfg.GoalRadius {
		return cfg.GoalReward, GoalReached
	}
	return -cfg.StepPenalty + cfg.SpeedReward*s.Speed, Running
}

func (e *Env) observe() Observation {
	s := e.state
	cfg := e.config
	return Observation{
		Front:        s.Front / cfg.SensorRange,
		LeftFront:    s.LeftFront / cfg.SensorRange,
		RightFront:   s.RightFront / cfg.SensorRange,
		GoalDistance: geometry.Clamp(s.GoalDistance/e.initialGoalDistance, 0, 1),
		GoalBearing:  s.GoalBearing / 360,
		Speed:        s.Speed / cfg.TopSpeed,
	}
}
