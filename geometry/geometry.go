// Package geometry holds the 2D primitives shared by the track and the
// racing environment. Angles are in degrees, measured the same way as the
// screen: 0 points along +X and positive angles rotate towards +Y.
package geometry

import "math"

// ParallelTolerance bounds |cross(r, s)| relative to |r||s| under which two
// segments are treated as parallel. It is the sine of the smallest angle two
// segments can form and still be intersected.
const ParallelTolerance = 1e-12

type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p Position) Add(o Position) Position {
	return Position{X: p.X + o.X, Y: p.Y + o.Y}
}

func (p Position) Sub(o Position) Position {
	return Position{X: p.X - o.X, Y: p.Y - o.Y}
}

func (p Position) Scale(f float64) Position {
	return Position{X: p.X * f, Y: p.Y * f}
}

// IsFinite is false when either coordinate is NaN or infinite
func (p Position) IsFinite() bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}

func cross(a, b Position) float64 {
	return a.X*b.Y - a.Y*b.X
}

func norm(a Position) float64 {
	return math.Hypot(a.X, a.Y)
}

// Intersect returns the point where segment a0-a1 crosses segment b0-b1.
// Both segments are closed: touching at an endpoint counts as a hit.
// Parallel, coincident and zero-length segments never intersect.
func Intersect(a0, a1, b0, b1 Position) (Position, bool) {
	r := a1.Sub(a0)
	s := b1.Sub(b0)
	denom := cross(r, s)
	if math.Abs(denom) <= ParallelTolerance*norm(r)*norm(s) {
		return Position{}, false
	}

	qp := b0.Sub(a0)
	t := cross(qp, s) / denom
	u := cross(qp, r) / denom
	if t < 0 || t > 1 || u < 0 || u > 1 {
		return Position{}, false
	}
	return a0.Add(r.Scale(t)), true
}

func Distance(p, q Position) float64 {
	return math.Hypot(q.X-p.X, q.Y-p.Y)
}

func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func Radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// NormalizeDegrees maps any angle into [0, 360)
func NormalizeDegrees(deg float64) float64 {
	d := math.Mod(deg, 360)
	if d < 0 {
		d += 360
	}
	// -1e-15 + 360 rounds to 360
	if d >= 360 {
		d = 0
	}
	return d
}

// PointAtBearing is the point at distance dist from origin along angleDeg
func PointAtBearing(origin Position, angleDeg, dist float64) Position {
	rad := Radians(angleDeg)
	return Position{
		X: origin.X + dist*math.Cos(rad),
		Y: origin.Y + dist*math.Sin(rad),
	}
}

// Bearing is the angle of the vector p->q in [0, 360)
func Bearing(p, q Position) float64 {
	return NormalizeDegrees(math.Atan2(q.Y-p.Y, q.X-p.X) * 180 / math.Pi)
}
