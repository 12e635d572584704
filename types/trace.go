package types

import "github.com/zeu5/edgeracer/racing"

// Transition is one (state, action, reward, next state, terminated) tuple
type Transition struct {
	State      racing.Observation `json:"s"`
	Action     racing.Action      `json:"a"`
	Reward     float64            `json:"reward"`
	Next       racing.Observation `json:"s_prime"`
	Terminated bool               `json:"terminated"`
}

// Trace of an episode as the ordered list of its transitions
type Trace struct {
	transitions []Transition
}

func NewTrace() *Trace {
	return &Trace{
		transitions: make([]Transition, 0),
	}
}

func (t *Trace) Append(tr Transition) {
	t.transitions = append(t.transitions, tr)
}

func (t *Trace) Len() int {
	return len(t.transitions)
}

func (t *Trace) Get(i int) (Transition, bool) {
	if i < 0 || i >= len(t.transitions) {
		return Transition{}, false
	}
	return t.transitions[i], true
}

func (t *Trace) Last() (Transition, bool) {
	return t.Get(len(t.transitions) - 1)
}

// Reward is the sum of the rewards of the trace
func (t *Trace) Reward() float64 {
	sum := 0.0
	for _, tr := range t.transitions {
		sum += tr.Reward
	}
	return sum
}

func (t *Trace) Transitions() []Transition {
	out := make([]Transition, len(t.transitions))
	copy(out, t.transitions)
	return out
}
