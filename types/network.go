package types

// LossFunc scores a batch of network outputs. It returns the loss and its
// gradient with respect to every output, shaped like predicted.
type LossFunc func(predicted [][]float64) (float64, [][]float64)

// QNetwork maps a batch of observation vectors to a batch of action values.
// Any numerical backend can implement it; the training loop only relies on
// these three operations.
type QNetwork interface {
	Predict(states [][]float64) [][]float64
	// ApplyGradientStep runs a forward pass on states, scores it with loss
	// and applies one optimizer step. It returns the loss before the step.
	ApplyGradientStep(states [][]float64, loss LossFunc, learningRate float64) (float64, error)
	// CopyWeightsFrom overwrites the weights with those of other.
	// Both networks must share the same architecture.
	CopyWeightsFrom(other QNetwork) error
}
