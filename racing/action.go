package racing

import "fmt"

// Action is one of the discrete controls the agent can apply in a frame.
// Coasting is not an action of its own: speed and turn rate decay whenever
// the chosen action does not drive them.
type Action int

const (
	Accelerate Action = iota
	LeftTurn
	RightTurn
	AccelLeft
	AccelRight
)

// ActionSize is the number of actions, the output width of the Q network
const ActionSize = 5

var AllActions = []Action{Accelerate, LeftTurn, RightTurn, AccelLeft, AccelRight}

func (a Action) Valid() bool {
	return a >= Accelerate && a <= AccelRight
}

func (a Action) accelerates() bool {
	return a == Accelerate || a == AccelLeft || a == AccelRight
}

// steer is -1 for a left turn, 1 for a right turn and 0 otherwise
func (a Action) steer() float64 {
	switch a {
	case LeftTurn, AccelLeft:
		return -1
	case RightTurn, AccelRight:
		return 1
	}
	return 0
}

func (a Action) String() string {
	switch a {
	case Accelerate:
		return "Accelerate"
	case LeftTurn:
		return "LeftTurn"
	case RightTurn:
		return "RightTurn"
	case AccelLeft:
		return "AccelLeft"
	case AccelRight:
		return "AccelRight"
	}
	return fmt.Sprintf("Action(%d)", int(a))
}
