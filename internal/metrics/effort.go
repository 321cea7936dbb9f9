package metrics

import (
	"math"

	"github.com/san-kum/mectrack/internal/sim"
)

// ControlEffort integrates the commanded velocity magnitude over the
// run, a cheap stand-in for how hard the gains work the drivetrain.
// Frame spacing is taken from successive timestamps, so the first
// frame contributes nothing.
type ControlEffort struct {
	name  string
	sum   float64
	prevT float64
	seen  bool
}

func NewControlEffort() *ControlEffort {
	return &ControlEffort{name: "control_effort"}
}

func (c *ControlEffort) Name() string { return c.name }

func (c *ControlEffort) Observe(f sim.Frame) {
	if c.seen {
		dt := f.T - c.prevT
		if dt > 0 {
			c.sum += (math.Abs(f.Cmd.VX) + math.Abs(f.Cmd.VY) + math.Abs(f.Cmd.Omega)) * dt
		}
	}
	c.prevT = f.T
	c.seen = true
}

func (c *ControlEffort) Value() float64 { return c.sum }

func (c *ControlEffort) Reset() {
	c.sum = 0
	c.prevT = 0
	c.seen = false
}
