package racing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeu5/edgeracer/geometry"
	"github.com/zeu5/edgeracer/track"
)

func pos(x, y float64) geometry.Position {
	return geometry.Position{X: x, Y: y}
}

func assertBounded(t *testing.T, o Observation) {
	t.Helper()
	for i, v := range o.Vector() {
		assert.GreaterOrEqual(t, v, 0.0, "field %d", i)
		assert.LessOrEqual(t, v, 1.0, "field %d", i)
	}
}

func TestStepBeforeReset(t *testing.T) {
	env := NewEnv(nil)
	_, err := env.Step(Accelerate)
	assert.ErrorIs(t, err, ErrNotReset)

	_, ok := env.Pose()
	assert.False(t, ok)
}

func TestDestroy(t *testing.T) {
	env := NewEnv(nil)
	_, err := env.Reset(track.BorderWalls(800, 600), pos(50, 50), pos(400, 50))
	require.NoError(t, err)
	_, err = env.Step(Accelerate)
	require.NoError(t, err)

	env.Destroy()
	_, err = env.Step(Accelerate)
	assert.ErrorIs(t, err, ErrNotReset)

	_, err = env.Reset(track.BorderWalls(800, 600), pos(50, 50), pos(400, 50))
	require.NoError(t, err)
	_, err = env.Step(Accelerate)
	assert.NoError(t, err)
}

func TestResetDegenerate(t *testing.T) {
	env := NewEnv(nil)
	_, err := env.Reset(track.BorderWalls(800, 600), pos(50, 50), pos(50, 50))
	assert.ErrorIs(t, err, ErrDegenerateCourse)

	_, err = env.Step(Accelerate)
	assert.ErrorIs(t, err, ErrNotReset)
}

func TestReset(t *testing.T) {
	env := NewEnv(nil)
	obs, err := env.Reset(track.BorderWalls(800, 600), pos(50, 50), pos(450, 50))
	require.NoError(t, err)
	assertBounded(t, obs)

	assert.Equal(t, 1.0, obs.GoalDistance)
	assert.Equal(t, 0.0, obs.Speed)
	assert.InDelta(t, 0, obs.GoalBearing, 1e-12)
	// front ray reaches past x=550 without touching the right border at 800
	assert.Equal(t, 1.0, obs.Front)
	// left front ray hits the top border at 50/sin(45)
	assert.InDelta(t, 70.7106781/500, obs.LeftFront, 1e-6)

	pose, ok := env.Pose()
	require.True(t, ok)
	assert.Equal(t, pos(50, 50), pose.Position)
	assert.Equal(t, 0.0, pose.Heading)
}

func TestWallsAreSnapshotted(t *testing.T) {
	env := NewEnv(nil)
	walls := track.BorderWalls(800, 600)
	_, err := env.Reset(walls, pos(400, 300), pos(700, 300))
	require.NoError(t, err)

	// a wall moved right in front of the car after reset does not exist for the episode
	walls[2] = track.Wall{Start: pos(405, 0), End: pos(405, 600)}
	res, err := env.Step(Accelerate)
	require.NoError(t, err)
	assert.False(t, res.Terminated)
}

func TestGoalReached(t *testing.T) {
	env := NewEnv(nil)
	_, err := env.Reset(track.BorderWalls(800, 600), pos(400, 300), pos(405, 300))
	require.NoError(t, err)

	res, err := env.Step(Accelerate)
	require.NoError(t, err)
	assert.True(t, res.Terminated)
	assert.Equal(t, GoalReached, res.Outcome)
	assert.Equal(t, DefaultConfig().GoalReward, res.Reward)
	assert.Greater(t, res.Reward, 100.0)

	_, err = env.Step(Accelerate)
	assert.ErrorIs(t, err, ErrEpisodeOver)
}

func TestCollision(t *testing.T) {
	env := NewEnv(nil)
	walls := append(track.BorderWalls(800, 600), track.Wall{Start: pos(70, 0), End: pos(70, 600)})
	_, err := env.Reset(walls, pos(50, 300), pos(500, 300))
	require.NoError(t, err)

	res, err := env.Step(Accelerate)
	require.NoError(t, err)
	assert.True(t, res.Terminated)
	assert.Equal(t, Collided, res.Outcome)
	assert.Equal(t, -DefaultConfig().CollisionPenalty, res.Reward)
	assert.Less(t, res.Reward, -100.0)
}

func TestCrossingAWallIsACollision(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CollisionDistance = 0
	cfg.Acceleration = 5
	env := NewEnv(cfg)
	// a short wall across the path, reachable only by the motion segment
	walls := append(track.BorderWalls(800, 600), track.Wall{Start: pos(403, 299), End: pos(403, 301)})
	_, err := env.Reset(walls, pos(400, 300), pos(700, 300))
	require.NoError(t, err)

	res, err := env.Step(Accelerate)
	require.NoError(t, err)
	assert.Equal(t, Collided, res.Outcome)
}

func TestRunningReward(t *testing.T) {
	env := NewEnv(nil)
	_, err := env.Reset(track.BorderWalls(800, 600), pos(400, 300), pos(700, 300))
	require.NoError(t, err)

	first, err := env.Step(Accelerate)
	require.NoError(t, err)
	second, err := env.Step(Accelerate)
	require.NoError(t, err)

	assert.False(t, first.Terminated)
	assert.Equal(t, Running, first.Outcome)
	assert.InDelta(t, -1+0.1, first.Reward, 1e-9)
	assert.InDelta(t, -1+0.2, second.Reward, 1e-9)
	assert.Greater(t, second.Reward, first.Reward)
}

func TestHeadingStaysNormalized(t *testing.T) {
	env := NewEnv(nil)
	_, err := env.Reset(track.BorderWalls(800, 600), pos(400, 300), pos(700, 300))
	require.NoError(t, err)

	for _, action := range []Action{LeftTurn, RightTurn} {
		for i := 0; i < 200; i++ {
			res, err := env.Step(action)
			require.NoError(t, err)
			require.False(t, res.Terminated)
			assertBounded(t, res.Next)

			pose, _ := env.Pose()
			require.GreaterOrEqual(t, pose.Heading, 0.0)
			require.Less(t, pose.Heading, 360.0)
		}
	}
}

func TestTelemetryLimits(t *testing.T) {
	cfg := DefaultConfig()
	env := NewEnv(cfg)
	_, err := env.Reset(track.BorderWalls(100000, 100000), pos(50000, 50000), pos(90000, 50000))
	require.NoError(t, err)

	for i := 0; i < 150; i++ {
		_, err := env.Step(Accelerate)
		require.NoError(t, err)
	}
	tel, _ := env.Telemetry()
	assert.Equal(t, cfg.TopSpeed, tel.Speed)

	for i := 0; i < 40; i++ {
		_, err := env.Step(AccelRight)
		require.NoError(t, err)
	}
	tel, _ = env.Telemetry()
	assert.Equal(t, cfg.MaxTurnRate, tel.TurnRate)
}

func TestTurnRateSnapsToZero(t *testing.T) {
	env := NewEnv(nil)
	_, err := env.Reset(track.BorderWalls(800, 600), pos(400, 300), pos(700, 300))
	require.NoError(t, err)

	_, err = env.Step(LeftTurn)
	require.NoError(t, err)
	tel, _ := env.Telemetry()
	assert.InDelta(t, -0.3, tel.TurnRate, 1e-12)

	// within one decay step of zero the rate snaps instead of oscillating
	_, err = env.Step(Accelerate)
	require.NoError(t, err)
	tel, _ = env.Telemetry()
	assert.Equal(t, 0.0, tel.TurnRate)

	// a turn does not accelerate, so speed brakes back to zero
	_, err = env.Step(RightTurn)
	require.NoError(t, err)
	tel, _ = env.Telemetry()
	assert.Equal(t, 0.0, tel.Speed)
}

func TestInvalidAction(t *testing.T) {
	env := NewEnv(nil)
	_, err := env.Reset(track.BorderWalls(800, 600), pos(400, 300), pos(700, 300))
	require.NoError(t, err)
	_, err = env.Step(Action(ActionSize))
	assert.ErrorIs(t, err, ErrInvalidAction)
}

func TestStraightRunReachesGoal(t *testing.T) {
	env := NewEnv(nil)
	start := pos(50, 50)
	_, err := env.Reset(track.BorderWalls(800, 600), start, start.Add(pos(40, 0)))
	require.NoError(t, err)

	res, err := env.Step(Accelerate)
	require.NoError(t, err)
	assert.Less(t, res.Next.GoalDistance, 1.0)

	last := res.Next.GoalDistance
	steps := 1
	for !res.Terminated && steps < 100 {
		res, err = env.Step(Accelerate)
		require.NoError(t, err)
		if !res.Terminated {
			assert.Less(t, res.Next.GoalDistance, last)
			last = res.Next.GoalDistance
		}
		steps++
	}
	require.True(t, res.Terminated)
	assert.Equal(t, GoalReached, res.Outcome)
	assert.Greater(t, res.Reward, 0.0)
}

func TestResetRejectsInvalidConfig(t *testing.T) {
	edits := map[string]func(*Config){
		"top speed":         func(c *Config) { c.TopSpeed = 0 },
		"sensor range":      func(c *Config) { c.SensorRange = 0 },
		"turn acceleration": func(c *Config) { c.TurnAcceleration = -1 },
		"max turn rate":     func(c *Config) { c.MaxTurnRate = 0 },
		"goal radius":       func(c *Config) { c.GoalRadius = 0 },
	}
	for name, edit := range edits {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			edit(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

			env := NewEnv(cfg)
			_, err := env.Reset(track.BorderWalls(800, 600), pos(50, 50), pos(400, 50))
			assert.ErrorIs(t, err, ErrInvalidConfig)
			_, err = env.Step(Accelerate)
			assert.ErrorIs(t, err, ErrNotReset)
		})
	}
	assert.NoError(t, DefaultConfig().Validate())
}

func TestCollisionBeatsGoalOnSameFrame(t *testing.T) {
	env := NewEnv(nil)
	walls := append(track.BorderWalls(800, 600), track.Wall{Start: pos(410, 0), End: pos(410, 600)})
	_, err := env.Reset(walls, pos(400, 300), pos(405, 300))
	require.NoError(t, err)

	res, err := env.Step(Accelerate)
	require.NoError(t, err)
	assert.True(t, res.Terminated)
	assert.Equal(t, Collided, res.Outcome)
	assert.Equal(t, -DefaultConfig().CollisionPenalty, res.Reward)
}
