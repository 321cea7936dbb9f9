// Package drive defines the chassis and wheel command representations for
// a mecanum drivetrain and the kinematic mapping between them.
package drive

import "math"

// ChassisSpeeds is a robot-frame chassis velocity: linear meters per
// second along the robot's +X (forward) and +Y (left) axes, and angular
// radians per second, counterclockwise positive.
type ChassisSpeeds struct {
	VX    float64
	VY    float64
	Omega float64
}

// FromFieldRelative rotates field-frame speeds into the robot frame given
// the robot's field heading.
func FromFieldRelative(vx, vy, omega, heading float64) ChassisSpeeds {
	sin, cos := math.Sincos(heading)
	return ChassisSpeeds{
		VX:    vx*cos + vy*sin,
		VY:    -vx*sin + vy*cos,
		Omega: omega,
	}
}

// Norm returns the linear speed magnitude.
func (c ChassisSpeeds) Norm() float64 { return math.Hypot(c.VX, c.VY) }

// WheelSpeeds holds one linear surface speed per mecanum wheel, meters per
// second, positive driving the robot forward.
type WheelSpeeds struct {
	FrontLeft  float64
	FrontRight float64
	RearLeft   float64
	RearRight  float64
}

// Max returns the largest wheel speed magnitude.
func (w WheelSpeeds) Max() float64 {
	m := math.Abs(w.FrontLeft)
	for _, v := range [...]float64{w.FrontRight, w.RearLeft, w.RearRight} {
		if a := math.Abs(v); a > m {
			m = a
		}
	}
	return m
}

// Desaturate scales all four wheels uniformly so the fastest sits exactly
// at limit, preserving signs and the ratios between wheels. Per-wheel
// clamping would change the commanded direction of travel; uniform scaling
// only slows it down. Speeds already within the limit, or a limit <= 0,
// pass through unchanged.
func (w WheelSpeeds) Desaturate(limit float64) WheelSpeeds {
	m := w.Max()
	if limit <= 0 || m <= limit {
		return w
	}
	k := limit / m
	return WheelSpeeds{
		FrontLeft:  w.FrontLeft * k,
		FrontRight: w.FrontRight * k,
		RearLeft:   w.RearLeft * k,
		RearRight:  w.RearRight * k,
	}
}
