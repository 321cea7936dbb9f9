package follow

import (
	"fmt"

	"github.com/san-kum/mectrack/internal/drive"
	"github.com/san-kum/mectrack/internal/pid"
)

// stopVelocityTol separates trajectories that end at rest from chained
// segments that end at speed. At-rest ends get a zero terminal command.
const stopVelocityTol = 0.1

// Follower executes one trajectory-following run. It is driven externally:
// the owner calls Step once per control period with the elapsed run time,
// polls IsFinished, and calls End when done or aborted. Nothing here
// blocks; each Step performs one bounded computation and one consumer
// call.
type Follower struct {
	traj    Sampler
	pose    PoseSource
	x       *pid.Controller
	y       *pid.Controller
	heading *pid.Controller

	mode     DriveMode
	kin      Kinematics
	maxWheel float64
	wheels   WheelConsumer
	chassis  ChassisConsumer

	ended bool
}

// Init arms the follower for a run, clearing all controller state. A
// follower fresh from Builder.Follower is already armed; Init makes reuse
// of the same instance explicit.
func (f *Follower) Init() {
	f.x.Reset()
	f.y.Reset()
	f.heading.Reset()
	f.ended = false
}

// Step runs one control cycle at elapsed seconds into the trajectory:
// sample the reference, correct toward it, emit one command. Non-finite
// samples and poses are caller-side contract violations; they propagate
// immediately and nothing is emitted for the cycle.
func (f *Follower) Step(elapsed float64) error {
	ref := f.traj.Sample(elapsed)
	if !ref.IsFinite() {
		return fmt.Errorf("%w: t=%.3f", ErrInvalidSample, elapsed)
	}
	cur := f.pose()
	if !cur.IsFinite() {
		return fmt.Errorf("%w: t=%.3f", ErrInvalidPose, elapsed)
	}

	vx := ref.VX + f.x.Update(ref.X, cur.X, elapsed)
	vy := ref.VY + f.y.Update(ref.Y, cur.Y, elapsed)
	omega := ref.Omega + f.heading.Update(ref.Heading, cur.Heading, elapsed)

	f.emit(drive.FromFieldRelative(vx, vy, omega, cur.Heading))
	return nil
}

// IsFinished reports whether elapsed has reached the trajectory duration.
func (f *Follower) IsFinished(elapsed float64) bool {
	return elapsed >= f.traj.Duration()
}

// End emits the terminal command, exactly once per run: a zero command
// when interrupted or when the trajectory ends at rest, otherwise the
// final reference velocity (chained segments end at speed). Repeat calls
// emit nothing until the next Init.
func (f *Follower) End(interrupted bool) {
	if f.ended {
		return
	}
	f.ended = true

	final := f.traj.Sample(f.traj.Duration())
	if interrupted || final.Speed() < stopVelocityTol {
		f.emit(drive.ChassisSpeeds{})
		return
	}
	f.emit(drive.FromFieldRelative(final.VX, final.VY, final.Omega, final.Heading))
}

// AtReference reports whether all three controllers were within their
// configured tolerances as of the last Step.
func (f *Follower) AtReference() bool {
	return f.x.AtSetpoint() && f.y.AtSetpoint() && f.heading.AtSetpoint()
}

func (f *Follower) emit(c drive.ChassisSpeeds) {
	if f.mode == ModeWheelSpeeds {
		f.wheels(f.kin.ToWheelSpeeds(c).Desaturate(f.maxWheel))
		return
	}
	f.chassis(c)
}
