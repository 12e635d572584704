package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMovingAverage(t *testing.T) {
	m := NewMovingAverage(3)
	assert.Equal(t, 0.0, m.Value())

	assert.InDelta(t, 1, m.Add(1), 1e-12)
	assert.InDelta(t, 1.5, m.Add(2), 1e-12)
	assert.InDelta(t, 2, m.Add(3), 1e-12)
	// 1 leaves the window
	assert.InDelta(t, 3, m.Add(4), 1e-12)
	assert.Equal(t, 3, m.Len())

	m.Reset()
	assert.Equal(t, 0, m.Len())
	assert.InDelta(t, 10, m.Add(10), 1e-12)
}

func TestTrace(t *testing.T) {
	trace := NewTrace()
	_, ok := trace.Last()
	assert.False(t, ok)

	trace.Append(Transition{Reward: 1})
	trace.Append(Transition{Reward: -3, Terminated: true})
	assert.Equal(t, 2, trace.Len())
	assert.Equal(t, -2.0, trace.Reward())

	last, ok := trace.Last()
	assert.True(t, ok)
	assert.True(t, last.Terminated)

	_, ok = trace.Get(2)
	assert.False(t, ok)
}
