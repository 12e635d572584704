package dqn

import (
	"errors"

	"github.com/zeu5/edgeracer/memory"
	"github.com/zeu5/edgeracer/policies"
	"github.com/zeu5/edgeracer/racing"
	"github.com/zeu5/edgeracer/track"
	"github.com/zeu5/edgeracer/types"
)

var ErrNoPrediction = errors.New("dqn: network returned no action values")

// StepReport is returned by every PlayStep
type StepReport struct {
	CumulativeReward float64
	Terminated       bool
	Outcome          racing.Outcome
	Action           racing.Action
	Explored         bool
}

// Agent couples one environment to the exploration policy and the replay
// memory. Each PlayStep produces exactly one transition.
type Agent struct {
	environment types.Environment
	course      *track.Course
	memory      *memory.ReplayMemory
	explorer    *policies.EpsilonGreedy

	// episode state
	observation racing.Observation
	reward      float64
	steps       int
	outcome     racing.Outcome
	trace       *types.Trace
	ready       bool

	onFrame func(racing.Pose)
}

func NewAgent(environment types.Environment, course *track.Course, memory *memory.ReplayMemory, explorer *policies.EpsilonGreedy) *Agent {
	return &Agent{
		environment: environment,
		course:      course,
		memory:      memory,
		explorer:    explorer,
		trace:       types.NewTrace(),
	}
}

// OnFrame registers a hook called with the car pose after every step
func (a *Agent) OnFrame(f func(racing.Pose)) {
	a.onFrame = f
}

// Reset starts a new episode on the course. The replay memory is kept.
func (a *Agent) Reset() error {
	obs, err := a.environment.Reset(a.course.Walls, a.course.Start, a.course.Finish)
	if err != nil {
		a.ready = false
		return err
	}
	a.observation = obs
	a.reward = 0
	a.steps = 0
	a.outcome = racing.Running
	a.trace = types.NewTrace()
	a.explorer.StartEpisode()
	a.ready = true
	return nil
}

// TotallyReset drops everything learned during a run: the replay memory
// and the exploration schedule. The next episode still needs Reset.
func (a *Agent) TotallyReset() {
	a.memory.Clear()
	a.explorer.Reset()
	a.environment.Destroy()
	a.ready = false
}

// PlayStep picks an action epsilon greedily on net, applies it and records the transition
func (a *Agent) PlayStep(net types.QNetwork) (StepReport, error) {
	if !a.ready {
		return StepReport{}, racing.ErrNotReset
	}

	state := a.observation
	var values []float64
	action, explored := a.explorer.Choose(func() []float64 {
		out := net.Predict([][]float64{state.Vector()})
		if len(out) == 1 {
			values = out[0]
		}
		return values
	})
	if !explored && len(values) != racing.ActionSize {
		return StepReport{}, ErrNoPrediction
	}

	result, err := a.environment.Step(action)
	if err != nil {
		return StepReport{}, err
	}
	transition := types.Transition{
		State:      state,
		Action:     action,
		Reward:     result.Reward,
		Next:       result.Next,
		Terminated: result.Terminated,
	}
	a.memory.Push(transition)
	a.trace.Append(transition)

	a.observation = result.Next
	a.reward += result.Reward
	a.steps++
	a.outcome = result.Outcome
	a.explorer.Decay()

	if a.onFrame != nil {
		if pose, ok := a.environment.Pose(); ok {
			a.onFrame(pose)
		}
	}

	return StepReport{
		CumulativeReward: a.reward,
		Terminated:       result.Terminated,
		Outcome:          result.Outcome,
		Action:           action,
		Explored:         explored,
	}, nil
}

func (a *Agent) Memory() *memory.ReplayMemory {
	return a.memory
}

func (a *Agent) Explorer() *policies.EpsilonGreedy {
	return a.explorer
}

func (a *Agent) Course() *track.Course {
	return a.course
}

// Reward accumulated in the current episode
func (a *Agent) Reward() float64 {
	return a.reward
}

func (a *Agent) Steps() int {
	return a.steps
}

func (a *Agent) Outcome() racing.Outcome {
	return a.outcome
}

// Trace of the current episode
func (a *Agent) Trace() *types.Trace {
	return a.trace
}
