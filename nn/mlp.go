// Package nn is a small dense network on top of gonum/mat used as the Q
// function approximator.
package nn

import (
	"errors"
	"fmt"
	"math"

	"github.com/zeu5/edgeracer/types"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

var (
	ErrShapeMismatch       = errors.New("nn: shape mismatch")
	ErrIncompatibleNetwork = errors.New("nn: incompatible network implementation")
	ErrInvalidSizes        = errors.New("nn: a network needs at least an input and an output layer of positive width")
)

const (
	beta1   = 0.9
	beta2   = 0.999
	epsilon = 1e-8
)

type layer struct {
	weights *mat.Dense // in x out
	bias    *mat.Dense // 1 x out

	// Adam moments, same shapes as weights and bias
	mWeights, vWeights *mat.Dense
	mBias, vBias       *mat.Dense
}

func newLayer(in, out int, r *rand.Rand) *layer {
	limit := math.Sqrt(6 / float64(in))
	w := make([]float64, in*out)
	for i := range w {
		w[i] = (2*r.Float64() - 1) * limit
	}
	return &layer{
		weights:  mat.NewDense(in, out, w),
		bias:     mat.NewDense(1, out, nil),
		mWeights: mat.NewDense(in, out, nil),
		vWeights: mat.NewDense(in, out, nil),
		mBias:    mat.NewDense(1, out, nil),
		vBias:    mat.NewDense(1, out, nil),
	}
}

// MLP is a fully connected network with ReLU hidden layers and a linear
// output layer, trained with Adam. It is not safe for concurrent use.
type MLP struct {
	sizes  []int
	layers []*layer
	steps  int
}

var _ types.QNetwork = &MLP{}

// NewMLP creates a network with the given layer widths, input first and
// output last. Weights use He uniform initialization from seed, biases start at zero.
func NewMLP(sizes []int, seed uint64) (*MLP, error) {
	if len(sizes) < 2 {
		return nil, ErrInvalidSizes
	}
	for _, s := range sizes {
		if s <= 0 {
			return nil, ErrInvalidSizes
		}
	}
	r := rand.New(rand.NewSource(seed))
	layers := make([]*layer, len(sizes)-1)
	for i := range layers {
		layers[i] = newLayer(sizes[i], sizes[i+1], r)
	}
	s := make([]int, len(sizes))
	copy(s, sizes)
	return &MLP{
		sizes:  s,
		layers: layers,
	}, nil
}

func (n *MLP) Sizes() []int {
	s := make([]int, len(n.sizes))
	copy(s, n.sizes)
	return s
}

func (n *MLP) Inputs() int {
	return n.sizes[0]
}

func (n *MLP) Outputs() int {
	return n.sizes[len(n.sizes)-1]
}

func (n *MLP) batch(states [][]float64) (*mat.Dense, error) {
	if len(states) == 0 {
		return nil, fmt.Errorf("%w: empty batch", ErrShapeMismatch)
	}
	in := n.Inputs()
	data := make([]float64, 0, len(states)*in)
	for i, s := range states {
		if len(s) != in {
			return nil, fmt.Errorf("%w: state %d has %d values, expected %d", ErrShapeMismatch, i, len(s), in)
		}
		data = append(data, s...)
	}
	return mat.NewDense(len(states), in, data), nil
}

// forward returns the activations of every layer, the input included,
// and the pre-activations of every layer
func (n *MLP) forward(x *mat.Dense) ([]*mat.Dense, []*mat.Dense) {
	activations := []*mat.Dense{x}
	pre := make([]*mat.Dense, 0, len(n.layers))
	a := x
	for i, l := range n.layers {
		rows, _ := a.Dims()
		_, out := l.weights.Dims()
		z := mat.NewDense(rows, out, nil)
		z.Mul(a, l.weights)
		z.Apply(func(_, j int, v float64) float64 {
			return v + l.bias.At(0, j)
		}, z)
		pre = append(pre, z)

		next := mat.DenseCopyOf(z)
		if i < len(n.layers)-1 {
			next.Apply(func(_, _ int, v float64) float64 {
				return relu(v)
			}, next)
		}
		activations = append(activations, next)
		a = next
	}
	return activations, pre
}

// Predict returns one row of action values per state. It returns nil when
// the batch is empty or a state does not match the input width.
func (n *MLP) Predict(states [][]float64) [][]float64 {
	x, err := n.batch(states)
	if err != nil {
		return nil
	}
	activations, _ := n.forward(x)
	return rows(activations[len(activations)-1])
}

// ApplyGradientStep runs a forward pass, backpropagates the gradient given
// by loss and applies one Adam update
func (n *MLP) ApplyGradientStep(states [][]float64, loss types.LossFunc, learningRate float64) (float64, error) {
	x, err := n.batch(states)
	if err != nil {
		return 0, err
	}
	activations, pre := n.forward(x)
	value, grad := loss(rows(activations[len(activations)-1]))

	batch := len(states)
	outputs := n.Outputs()
	if len(grad) != batch {
		return 0, fmt.Errorf("%w: gradient has %d rows, expected %d", ErrShapeMismatch, len(grad), batch)
	}
	data := make([]float64, 0, batch*outputs)
	for i, g := range grad {
		if len(g) != outputs {
			return 0, fmt.Errorf("%w: gradient row %d has %d values, expected %d", ErrShapeMismatch, i, len(g), outputs)
		}
		data = append(data, g...)
	}
	delta := mat.NewDense(batch, outputs, data)

	weightGrads := make([]*mat.Dense, len(n.layers))
	biasGrads := make([]*mat.Dense, len(n.layers))
	for i := len(n.layers) - 1; i >= 0; i-- {
		l := n.layers[i]
		if i < len(n.layers)-1 {
			z := pre[i]
			delta.Apply(func(r, c int, v float64) float64 {
				return v * reluDerivative(z.At(r, c))
			}, delta)
		}
		in, out := l.weights.Dims()

		dw := mat.NewDense(in, out, nil)
		dw.Mul(activations[i].T(), delta)
		weightGrads[i] = dw

		db := mat.NewDense(1, out, nil)
		for c := 0; c < out; c++ {
			db.Set(0, c, mat.Sum(delta.ColView(c)))
		}
		biasGrads[i] = db

		if i > 0 {
			prev := mat.NewDense(batch, in, nil)
			prev.Mul(delta, l.weights.T())
			delta = prev
		}
	}

	n.steps++
	correction1 := 1 - math.Pow(beta1, float64(n.steps))
	correction2 := 1 - math.Pow(beta2, float64(n.steps))
	for i, l := range n.layers {
		adam(l.weights, l.mWeights, l.vWeights, weightGrads[i], learningRate, correction1, correction2)
		adam(l.bias, l.mBias, l.vBias, biasGrads[i], learningRate, correction1, correction2)
	}
	return value, nil
}

// CopyWeightsFrom overwrites the weights and biases with those of other.
// The optimizer state is left untouched.
func (n *MLP) CopyWeightsFrom(other types.QNetwork) error {
	o, ok := other.(*MLP)
	if !ok {
		return fmt.Errorf("%w: %T", ErrIncompatibleNetwork, other)
	}
	if !sameSizes(n.sizes, o.sizes) {
		return fmt.Errorf("%w: %v and %v", ErrShapeMismatch, n.sizes, o.sizes)
	}
	if o == n {
		return nil
	}
	for i, l := range n.layers {
		l.weights.Copy(o.layers[i].weights)
		l.bias.Copy(o.layers[i].bias)
	}
	return nil
}

// Equal reports whether both networks have the same shape and weights
func (n *MLP) Equal(other *MLP) bool {
	if other == nil || !sameSizes(n.sizes, other.sizes) {
		return false
	}
	for i, l := range n.layers {
		if !mat.Equal(l.weights, other.layers[i].weights) || !mat.Equal(l.bias, other.layers[i].bias) {
			return false
		}
	}
	return true
}

func adam(param, m, v, grad *mat.Dense, lr, correction1, correction2 float64) {
	p := param.RawMatrix().Data
	ms := m.RawMatrix().Data
	vs := v.RawMatrix().Data
	g := grad.RawMatrix().Data
	for i := range p {
		ms[i] = beta1*ms[i] + (1-beta1)*g[i]
		vs[i] = beta2*vs[i] + (1-beta2)*g[i]*g[i]
		mHat := ms[i] / correction1
		vHat := vs[i] / correction2
		p[i] -= lr * mHat / (math.Sqrt(vHat) + epsilon)
	}
}

func rows(m *mat.Dense) [][]float64 {
	r, c := m.Dims()
	out := make([][]float64, r)
	for i := range out {
		out[i] = make([]float64, c)
		mat.Row(out[i], i, m)
	}
	return out
}

func sameSizes(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func relu(x float64) float64 {
	if x < 0 {
		return 0
	}
	return x
}

func reluDerivative(x float64) float64 {
	if x <= 0 {
		return 0
	}
	return 1
}
