package sim

import (
	"github.com/san-kum/mectrack/internal/drive"
	"github.com/san-kum/mectrack/internal/geom"
	"github.com/san-kum/mectrack/internal/traj"
)

// Routine is the runnable unit a Session drives: scheduled externally,
// one Step per control period. *follow.Follower satisfies it.
type Routine interface {
	Init()
	Step(t float64) error
	IsFinished(t float64) bool
	End(interrupted bool)
}

// Sampler provides the reference states a session records alongside the
// plant's response. *traj.Trajectory satisfies it.
type Sampler interface {
	Sample(t float64) traj.State
	Duration() float64
}

// Frame is one observed control cycle: the reference, the plant pose
// after the cycle, and the command standing at the plant.
type Frame struct {
	T    float64
	Ref  traj.State
	Pose geom.Pose
	Cmd  drive.ChassisSpeeds
}

// Metric accumulates one scalar over the frames of a run.
type Metric interface {
	Name() string
	Observe(f Frame)
	Value() float64
	Reset()
}

// Observer is notified after every cycle.
type Observer interface {
	OnStep(f Frame)
}

// Result collects the recorded series and final metric values of one run.
type Result struct {
	Times    []float64
	Refs     []traj.State
	Poses    []geom.Pose
	Commands []drive.ChassisSpeeds
	Metrics  map[string]float64
}

// Steps returns the number of recorded cycles.
func (r *Result) Steps() int { return len(r.Times) }

func (r *Result) append(f Frame) {
	r.Times = append(r.Times, f.T)
	r.Refs = append(r.Refs, f.Ref)
	r.Poses = append(r.Poses, f.Pose)
	r.Commands = append(r.Commands, f.Cmd)
}
