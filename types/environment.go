package types

import (
	"github.com/zeu5/edgeracer/geometry"
	"github.com/zeu5/edgeracer/racing"
	"github.com/zeu5/edgeracer/track"
)

// Environment the agent drives in
type Environment interface {
	// Reset starts a new episode on a snapshot of the walls
	Reset([]track.Wall, geometry.Position, geometry.Position) (racing.Observation, error)
	// Step advances one frame
	Step(racing.Action) (racing.StepResult, error)
	// Pose of the car for rendering, false outside an episode
	Pose() (racing.Pose, bool)
	// Destroy ends the episode
	Destroy()
}

var _ Environment = &racing.Env{}
