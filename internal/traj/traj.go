// Package traj represents precomputed, time-parameterized trajectories and
// samples them for the follower. Trajectories arrive as data (YAML files or
// literal state lists); this package never plans geometry.
package traj

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/san-kum/mectrack/internal/geom"
)

var (
	// ErrNoStates reports an empty trajectory.
	ErrNoStates = errors.New("traj: trajectory has no states")
	// ErrBadTimestamp reports timestamps that are negative or not strictly
	// increasing.
	ErrBadTimestamp = errors.New("traj: timestamps must start at or after zero and strictly increase")
	// ErrNotFinite reports a state containing NaN or Inf.
	ErrNotFinite = errors.New("traj: state contains NaN or Inf")
)

// State is one timestamped reference sample: the desired field pose and
// the desired field-frame chassis velocity at T seconds into the
// trajectory.
type State struct {
	T       float64 `yaml:"t" json:"t"`
	X       float64 `yaml:"x" json:"x"`
	Y       float64 `yaml:"y" json:"y"`
	Heading float64 `yaml:"heading" json:"heading"`
	VX      float64 `yaml:"vx" json:"vx"`
	VY      float64 `yaml:"vy" json:"vy"`
	Omega   float64 `yaml:"omega" json:"omega"`
}

// Pose returns the desired pose component.
func (s State) Pose() geom.Pose {
	return geom.Pose{X: s.X, Y: s.Y, Heading: s.Heading}
}

// Speed returns the desired linear speed magnitude.
func (s State) Speed() float64 { return math.Hypot(s.VX, s.VY) }

// IsFinite reports whether every field is a real number.
func (s State) IsFinite() bool {
	for _, v := range [...]float64{s.T, s.X, s.Y, s.Heading, s.VX, s.VY, s.Omega} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Trajectory is a named sequence of reference states with strictly
// increasing timestamps.
type Trajectory struct {
	Name   string  `yaml:"name"`
	States []State `yaml:"states"`
}

// Duration returns the timestamp of the final state.
func (tr *Trajectory) Duration() float64 {
	if len(tr.States) == 0 {
		return 0
	}
	return tr.States[len(tr.States)-1].T
}

// InitialPose returns the pose of the first state.
func (tr *Trajectory) InitialPose() geom.Pose {
	if len(tr.States) == 0 {
		return geom.Pose{}
	}
	return tr.States[0].Pose()
}

// Sample returns the reference state at time t, linearly interpolated
// between the bracketing states with the heading taken along the shortest
// arc. Times outside the trajectory clamp to the first or last state.
func (tr *Trajectory) Sample(t float64) State {
	n := len(tr.States)
	if n == 0 {
		return State{}
	}
	if t <= tr.States[0].T {
		return tr.States[0]
	}
	if t >= tr.States[n-1].T {
		return tr.States[n-1]
	}

	i := sort.Search(n, func(i int) bool { return tr.States[i].T > t })
	a, b := tr.States[i-1], tr.States[i]
	u := (t - a.T) / (b.T - a.T)
	return State{
		T:       t,
		X:       lerp(a.X, b.X, u),
		Y:       lerp(a.Y, b.Y, u),
		Heading: geom.LerpAngle(a.Heading, b.Heading, u),
		VX:      lerp(a.VX, b.VX, u),
		VY:      lerp(a.VY, b.VY, u),
		Omega:   lerp(a.Omega, b.Omega, u),
	}
}

// Validate checks the trajectory invariants the follower relies on.
func (tr *Trajectory) Validate() error {
	if len(tr.States) == 0 {
		return ErrNoStates
	}
	var prev float64
	for i, s := range tr.States {
		if !s.IsFinite() {
			return fmt.Errorf("%w: state %d", ErrNotFinite, i)
		}
		if i == 0 {
			if s.T < 0 {
				return fmt.Errorf("%w: state 0 at t=%.3f", ErrBadTimestamp, s.T)
			}
		} else if s.T <= prev {
			return fmt.Errorf("%w: state %d at t=%.3f after t=%.3f", ErrBadTimestamp, i, s.T, prev)
		}
		prev = s.T
	}
	return nil
}

// Concat joins trajectories end to end, shifting timestamps so each part
// starts where the previous one ended. Coinciding boundary states collapse
// into the later part's state, which carries the upcoming velocity.
func Concat(name string, parts ...*Trajectory) *Trajectory {
	out := &Trajectory{Name: name}
	var offset float64
	for _, p := range parts {
		for _, s := range p.States {
			s.T += offset
			if n := len(out.States); n > 0 && s.T <= out.States[n-1].T {
				out.States[n-1] = s
				continue
			}
			out.States = append(out.States, s)
		}
		offset = out.Duration()
	}
	return out
}

func lerp(a, b, u float64) float64 { return a + (b-a)*u }
