// Package geom provides the planar geometry primitives shared by the
// trajectory follower and the simulation harness.
package geom

import "math"

// Translation is a planar displacement in meters. It doubles as a field
// position and as a wheel offset from the robot center.
type Translation struct {
	X float64
	Y float64
}

// Norm returns the Euclidean length.
func (t Translation) Norm() float64 { return math.Hypot(t.X, t.Y) }

// DistanceTo returns the planar distance to other.
func (t Translation) DistanceTo(other Translation) float64 {
	return math.Hypot(other.X-t.X, other.Y-t.Y)
}

// Pose is a planar robot pose: field position in meters plus heading in
// radians, counterclockwise positive, zero along +X.
type Pose struct {
	X       float64
	Y       float64
	Heading float64
}

// Translation returns the position component of the pose.
func (p Pose) Translation() Translation { return Translation{X: p.X, Y: p.Y} }

// DistanceTo returns the planar distance between two poses, ignoring
// heading.
func (p Pose) DistanceTo(other Pose) float64 {
	return math.Hypot(other.X-p.X, other.Y-p.Y)
}

// IsFinite reports whether every component is a real number.
func (p Pose) IsFinite() bool {
	return finite(p.X) && finite(p.Y) && finite(p.Heading)
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// WrapAngle normalizes an angle to (-π, π].
func WrapAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	switch {
	case a <= -math.Pi:
		a += 2 * math.Pi
	case a > math.Pi:
		a -= 2 * math.Pi
	}
	return a
}

// LerpAngle interpolates from a to b along the shortest arc. u is clamped
// to [0, 1].
func LerpAngle(a, b, u float64) float64 {
	switch {
	case u <= 0:
		return WrapAngle(a)
	case u >= 1:
		return WrapAngle(b)
	}
	return WrapAngle(a + WrapAngle(b-a)*u)
}
