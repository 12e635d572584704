package policies

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeu5/edgeracer/racing"
)

func TestStepDecay(t *testing.T) {
	cfg := ExplorationConfig{Initial: 1, Min: 0.1, DecayPerStep: 0.01}
	e := NewEpsilonGreedy(cfg, 1)
	e.StartEpisode()

	for k := 1; k <= 200; k++ {
		e.Decay()
		expected := math.Max(cfg.Min, cfg.Initial-float64(k)*cfg.DecayPerStep)
		require.InDelta(t, expected, e.Rate(), 1e-9, "step %d", k)
	}
	assert.Equal(t, cfg.Min, e.Rate())
}

func TestEpisodeSchedule(t *testing.T) {
	cfg := ExplorationConfig{Initial: 0.9, Min: 0.2, DecayPerStep: 0.1, DecayPerEpisode: 0.3}
	e := NewEpsilonGreedy(cfg, 1)

	e.StartEpisode()
	assert.InDelta(t, 0.9, e.Rate(), 1e-12)
	e.Decay()
	e.Decay()
	assert.InDelta(t, 0.7, e.Rate(), 1e-12)

	e.StartEpisode()
	assert.InDelta(t, 0.6, e.Rate(), 1e-12)
	e.StartEpisode()
	assert.InDelta(t, 0.3, e.Rate(), 1e-12)
	e.StartEpisode()
	assert.InDelta(t, 0.2, e.Rate(), 1e-12)
	assert.Equal(t, 4, e.Episodes())

	e.Reset()
	assert.Equal(t, 0, e.Episodes())
	assert.InDelta(t, 0.9, e.Rate(), 1e-12)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, DefaultExplorationConfig().Validate())
	assert.ErrorIs(t, ExplorationConfig{Initial: 0.1, Min: 0.5}.Validate(), ErrInvalidExploration)
	assert.ErrorIs(t, ExplorationConfig{Initial: 2}.Validate(), ErrInvalidExploration)
}

func TestGreedy(t *testing.T) {
	assert.Equal(t, racing.RightTurn, Greedy([]float64{0, 1, 3, 2, -1}))
	assert.Equal(t, racing.LeftTurn, Greedy([]float64{0, 5, 5, 2, -1}))
}

func TestChoose(t *testing.T) {
	values := []float64{0, 0, 0, 9, 0}

	greedy := NewEpsilonGreedy(ExplorationConfig{Initial: 0, Min: 0}, 3)
	for i := 0; i < 50; i++ {
		a, explored := greedy.Choose(func() []float64 { return values })
		require.False(t, explored)
		require.Equal(t, racing.AccelLeft, a)
	}

	random := NewEpsilonGreedy(ExplorationConfig{Initial: 1, Min: 1}, 3)
	seen := make(map[racing.Action]int)
	for i := 0; i < 5000; i++ {
		a, explored := random.Choose(func() []float64 {
			t.Fatal("values must not be evaluated while exploring")
			return nil
		})
		require.True(t, explored)
		require.True(t, a.Valid())
		seen[a]++
	}
	require.Len(t, seen, racing.ActionSize)
	for a, c := range seen {
		assert.InEpsilon(t, 1000, c, 0.15, "action %v", a)
	}
}
