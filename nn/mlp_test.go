package nn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeu5/edgeracer/types"
)

func squaredError(targets [][]float64) types.LossFunc {
	return func(predicted [][]float64) (float64, [][]float64) {
		loss := 0.0
		grad := make([][]float64, len(predicted))
		n := float64(len(predicted) * len(predicted[0]))
		for i, row := range predicted {
			grad[i] = make([]float64, len(row))
			for j, p := range row {
				d := p - targets[i][j]
				loss += d * d / n
				grad[i][j] = 2 * d / n
			}
		}
		return loss, grad
	}
}

type fakeNetwork struct{}

func (fakeNetwork) Predict([][]float64) [][]float64 { return nil }
func (fakeNetwork) ApplyGradientStep([][]float64, types.LossFunc, float64) (float64, error) {
	return 0, nil
}
func (fakeNetwork) CopyWeightsFrom(types.QNetwork) error { return nil }

func TestNewMLPSizes(t *testing.T) {
	_, err := NewMLP([]int{3}, 1)
	assert.ErrorIs(t, err, ErrInvalidSizes)
	_, err = NewMLP([]int{3, 0, 2}, 1)
	assert.ErrorIs(t, err, ErrInvalidSizes)

	n, err := NewMLP([]int{6, 36, 24, 36, 5}, 1)
	require.NoError(t, err)
	assert.Equal(t, []int{6, 36, 24, 36, 5}, n.Sizes())
	assert.Equal(t, 6, n.Inputs())
	assert.Equal(t, 5, n.Outputs())
}

func TestPredictShape(t *testing.T) {
	n, err := NewMLP([]int{3, 8, 2}, 7)
	require.NoError(t, err)

	out := n.Predict([][]float64{{0, 0.5, 1}, {1, 1, 1}, {0, 0, 0}})
	require.Len(t, out, 3)
	for _, row := range out {
		assert.Len(t, row, 2)
	}
	// zero input with zero bias yields zero output
	assert.Equal(t, []float64{0, 0}, out[2])

	assert.Nil(t, n.Predict(nil))
	assert.Nil(t, n.Predict([][]float64{{1, 2}}))
}

func TestSeedDeterminism(t *testing.T) {
	a, _ := NewMLP([]int{4, 16, 3}, 11)
	b, _ := NewMLP([]int{4, 16, 3}, 11)
	c, _ := NewMLP([]int{4, 16, 3}, 12)
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}

func TestApplyGradientStepReducesLoss(t *testing.T) {
	n, err := NewMLP([]int{2, 16, 2}, 3)
	require.NoError(t, err)

	states := [][]float64{{0, 0}, {0, 1}, {1, 0}, {1, 1}}
	targets := [][]float64{{0, 1}, {1, 0}, {1, 0}, {0, 1}}
	loss := squaredError(targets)

	first, err := n.ApplyGradientStep(states, loss, 0.01)
	require.NoError(t, err)
	last := first
	for i := 0; i < 2000; i++ {
		last, err = n.ApplyGradientStep(states, loss, 0.01)
		require.NoError(t, err)
	}
	assert.Less(t, last, first/10)
}

func TestApplyGradientStepShapeMismatch(t *testing.T) {
	n, _ := NewMLP([]int{2, 4, 2}, 3)

	_, err := n.ApplyGradientStep([][]float64{{1}}, squaredError(nil), 0.1)
	assert.ErrorIs(t, err, ErrShapeMismatch)

	badGrad := func(predicted [][]float64) (float64, [][]float64) {
		return 0, [][]float64{{1, 2, 3}}
	}
	before, _ := NewMLP([]int{2, 4, 2}, 3)
	_, err = n.ApplyGradientStep([][]float64{{1, 1}}, badGrad, 0.1)
	assert.ErrorIs(t, err, ErrShapeMismatch)
	assert.True(t, n.Equal(before), "a rejected step leaves the weights untouched")
}

func TestCopyWeightsFrom(t *testing.T) {
	policy, _ := NewMLP([]int{3, 8, 2}, 1)
	target, _ := NewMLP([]int{3, 8, 2}, 2)
	require.False(t, policy.Equal(target))

	require.NoError(t, target.CopyWeightsFrom(policy))
	assert.True(t, target.Equal(policy))

	states := [][]float64{{0.2, 0.4, 0.6}}
	assert.Equal(t, policy.Predict(states), target.Predict(states))

	// training the policy does not move the copy
	_, err := policy.ApplyGradientStep(states, squaredError([][]float64{{5, -5}}), 0.1)
	require.NoError(t, err)
	assert.False(t, target.Equal(policy))
}

func TestCopyWeightsFromIncompatible(t *testing.T) {
	n, _ := NewMLP([]int{3, 8, 2}, 1)
	other, _ := NewMLP([]int{3, 4, 2}, 1)

	assert.ErrorIs(t, n.CopyWeightsFrom(other), ErrShapeMismatch)
	assert.ErrorIs(t, n.CopyWeightsFrom(fakeNetwork{}), ErrIncompatibleNetwork)
}
