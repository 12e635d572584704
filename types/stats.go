package types

// MovingAverage over the last Window values
type MovingAverage struct {
	window int
	values []float64
	sum    float64
}

func NewMovingAverage(window int) *MovingAverage {
	if window <= 0 {
		window = 1
	}
	return &MovingAverage{
		window: window,
		values: make([]float64, 0, window),
	}
}

// Add records v and returns the average of the window
func (m *MovingAverage) Add(v float64) float64 {
	if len(m.values) == m.window {
		m.sum -= m.values[0]
		m.values = m.values[1:]
	}
	m.values = append(m.values, v)
	m.sum += v
	return m.Value()
}

func (m *MovingAverage) Value() float64 {
	if len(m.values) == 0 {
		return 0
	}
	return m.sum / float64(len(m.values))
}

func (m *MovingAverage) Len() int {
	return len(m.values)
}

func (m *MovingAverage) Reset() {
	m.values = m.values[:0]
	m.sum = 0
}
