package traj

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/mectrack/internal/geom"
)

// Load reads and validates a trajectory file.
func Load(path string) (*Trajectory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("traj: read: %w", err)
	}
	var tr Trajectory
	if err := yaml.Unmarshal(data, &tr); err != nil {
		return nil, fmt.Errorf("traj: parse %s: %w", path, err)
	}
	if err := tr.Validate(); err != nil {
		return nil, fmt.Errorf("traj: %s: %w", path, err)
	}
	return &tr, nil
}

// Save writes a trajectory file.
func Save(path string, tr *Trajectory) error {
	data, err := yaml.Marshal(tr)
	if err != nil {
		return fmt.Errorf("traj: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("traj: write: %w", err)
	}
	return nil
}

// Linear builds a constant-velocity straight-line trajectory from one pose
// to another over duration seconds, sampled every step seconds. The
// heading turns at a constant rate along the shortest arc. It is a test
// and demo fixture; real trajectories come from a planner.
func Linear(name string, from, to geom.Pose, duration, step float64) *Trajectory {
	if duration <= 0 || step <= 0 {
		return &Trajectory{Name: name, States: []State{{
			X: from.X, Y: from.Y, Heading: geom.WrapAngle(from.Heading),
		}}}
	}

	vx := (to.X - from.X) / duration
	vy := (to.Y - from.Y) / duration
	turn := geom.WrapAngle(to.Heading - from.Heading)
	omega := turn / duration

	var states []State
	for t := 0.0; t < duration; t += step {
		u := t / duration
		states = append(states, State{
			T:       t,
			X:       lerp(from.X, to.X, u),
			Y:       lerp(from.Y, to.Y, u),
			Heading: geom.WrapAngle(from.Heading + turn*u),
			VX:      vx,
			VY:      vy,
			Omega:   omega,
		})
	}
	states = append(states, State{
		T:       duration,
		X:       to.X,
		Y:       to.Y,
		Heading: geom.WrapAngle(to.Heading),
		VX:      vx,
		VY:      vy,
		Omega:   omega,
	})
	return &Trajectory{Name: name, States: states}
}
