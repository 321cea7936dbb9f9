// Package pid implements the single-axis PID controller used for
// trajectory correction.
package pid

import "math"

// Gains parameterizes one controller. The optional fields are disabled at
// their zero values: IZone <= 0 integrates everywhere, Tolerance <= 0
// means AtSetpoint never reports true.
type Gains struct {
	Kp float64
	Ki float64
	Kd float64

	// IZone zeroes the integral accumulator whenever the error magnitude
	// exceeds it.
	IZone float64
	// Tolerance is the error magnitude accepted by AtSetpoint.
	Tolerance float64
}

// Controller is a single-axis PID controller driven by absolute
// timestamps; dt derives from consecutive Update calls. Not safe for
// concurrent use. Each controlled axis owns its own instance, even when
// axes share a gain set.
type Controller struct {
	gains Gains

	continuous bool
	halfRange  float64

	integral float64
	prevErr  float64
	prevT    float64
	first    bool
}

// New returns a controller with zeroed state. The first Update after New
// or Reset contributes the proportional term only.
func New(g Gains) *Controller {
	return &Controller{gains: g, first: true}
}

// Gains returns the gain set the controller was built with.
func (c *Controller) Gains() Gains { return c.gains }

// EnableContinuousInput treats the measurement range [min, max] as
// circular and wraps errors to the shortest distance across it. Heading
// controllers call this with (-π, π).
func (c *Controller) EnableContinuousInput(min, max float64) {
	c.continuous = true
	c.halfRange = (max - min) / 2
}

// Update computes the control output for one cycle at absolute time t
// seconds. A non-advancing t degrades to the proportional term without
// touching the accumulator.
func (c *Controller) Update(setpoint, measurement, t float64) float64 {
	err := setpoint - measurement
	if c.continuous {
		err = wrap(err, c.halfRange)
	}

	if c.first {
		c.prevErr = err
		c.prevT = t
		c.first = false
		return c.gains.Kp * err
	}

	dt := t - c.prevT
	if dt <= 0 {
		return c.gains.Kp * err
	}

	if c.gains.IZone > 0 && math.Abs(err) > c.gains.IZone {
		c.integral = 0
	} else {
		c.integral += err * dt
	}
	derivative := (err - c.prevErr) / dt

	c.prevErr = err
	c.prevT = t
	return c.gains.Kp*err + c.gains.Ki*c.integral + c.gains.Kd*derivative
}

// Reset clears the accumulator and error history. The next Update behaves
// like the first call on a fresh controller.
func (c *Controller) Reset() {
	c.integral = 0
	c.prevErr = 0
	c.first = true
}

// Error returns the (wrapped) error from the most recent Update.
func (c *Controller) Error() float64 { return c.prevErr }

// AtSetpoint reports whether the last error magnitude is within the
// configured tolerance. False before the first Update or when Tolerance
// is unset.
func (c *Controller) AtSetpoint() bool {
	return !c.first && c.gains.Tolerance > 0 && math.Abs(c.prevErr) <= c.gains.Tolerance
}

// wrap maps err into (-half, half].
func wrap(err, half float64) float64 {
	m := math.Mod(err, 2*half)
	switch {
	case m <= -half:
		m += 2 * half
	case m > half:
		m -= 2 * half
	}
	return m
}
