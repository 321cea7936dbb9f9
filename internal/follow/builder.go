package follow

import (
	"fmt"
	"math"

	"github.com/san-kum/mectrack/internal/drive"
	"github.com/san-kum/mectrack/internal/geom"
	"github.com/san-kum/mectrack/internal/pid"
	"github.com/san-kum/mectrack/internal/traj"
)

// DriveMode identifies the output representation a builder emits. It is
// resolved once at construction and never changes.
type DriveMode int

const (
	// ModeChassisSpeeds emits whole-chassis velocity setpoints.
	ModeChassisSpeeds DriveMode = iota + 1
	// ModeWheelSpeeds emits per-wheel speed setpoints.
	ModeWheelSpeeds
)

func (m DriveMode) String() string {
	switch m {
	case ModeChassisSpeeds:
		return "chassis"
	case ModeWheelSpeeds:
		return "wheels"
	default:
		return fmt.Sprintf("DriveMode(%d)", int(m))
	}
}

// PoseSource supplies the current pose estimate, queried once per cycle.
type PoseSource func() geom.Pose

// PoseReset receives the pose odometry should be re-seeded to before a
// run.
type PoseReset func(geom.Pose)

// ChassisConsumer receives one robot-frame chassis velocity command per
// cycle. It must not block.
type ChassisConsumer func(drive.ChassisSpeeds)

// WheelConsumer receives one set of wheel speed setpoints per cycle. It
// must not block.
type WheelConsumer func(drive.WheelSpeeds)

// Sampler provides timed reference states from a precomputed trajectory.
// *traj.Trajectory satisfies it.
type Sampler interface {
	// Sample returns the reference state at t seconds into the trajectory,
	// clamped to its endpoints.
	Sample(t float64) traj.State
	// Duration returns the total trajectory time in seconds.
	Duration() float64
}

// Kinematics converts a chassis velocity into wheel speeds. Required in
// wheel mode, forbidden otherwise.
type Kinematics interface {
	ToWheelSpeeds(drive.ChassisSpeeds) drive.WheelSpeeds
}

// Config is the static configuration a Builder captures for its lifetime.
// Exactly one output must be configured: Wheels together with Kinematics
// and MaxWheelSpeed, or Chassis alone.
type Config struct {
	// Pose supplies the current pose estimate. Required.
	Pose PoseSource
	// Reset, when set, lets Builder.ResetPose re-seed odometry from a
	// trajectory's initial pose. Optional.
	Reset PoseReset

	// Translation gains parameterize two independent controllers, one per
	// horizontal axis.
	Translation pid.Gains
	// Rotation gains parameterize the heading controller.
	Rotation pid.Gains

	// Kinematics and MaxWheelSpeed belong to wheel output. MaxWheelSpeed
	// is the per-wheel cap in meters per second.
	Kinematics    Kinematics
	MaxWheelSpeed float64

	// Wheels receives wheel speed commands in wheel mode.
	Wheels WheelConsumer
	// Chassis receives chassis velocity commands in chassis mode.
	Chassis ChassisConsumer
}

// Builder validates a Config once and manufactures followers bound to
// individual trajectories.
type Builder struct {
	cfg  Config
	mode DriveMode
}

// NewBuilder resolves the drive mode from cfg or fails.
func NewBuilder(cfg Config) (*Builder, error) {
	if cfg.Pose == nil {
		return nil, ErrNoPoseSource
	}
	switch {
	case cfg.Wheels != nil && cfg.Chassis != nil:
		return nil, fmt.Errorf("%w: both consumers supplied", ErrModeConflict)
	case cfg.Wheels != nil:
		if cfg.Kinematics == nil || cfg.MaxWheelSpeed <= 0 {
			return nil, ErrIncompleteWheelMode
		}
		return &Builder{cfg: cfg, mode: ModeWheelSpeeds}, nil
	case cfg.Chassis != nil:
		if cfg.Kinematics != nil || cfg.MaxWheelSpeed != 0 {
			return nil, fmt.Errorf("%w: chassis output takes no kinematics or wheel cap", ErrModeConflict)
		}
		return &Builder{cfg: cfg, mode: ModeChassisSpeeds}, nil
	default:
		return nil, fmt.Errorf("%w: no consumer supplied", ErrModeConflict)
	}
}

// Mode returns the output mode resolved at construction.
func (b *Builder) Mode() DriveMode { return b.mode }

// Follower binds a fresh follower to tr. Every call builds new PID
// controllers; no state carries over between runs or between followers.
func (b *Builder) Follower(tr Sampler) *Follower {
	rotation := pid.New(b.cfg.Rotation)
	rotation.EnableContinuousInput(-math.Pi, math.Pi)
	return &Follower{
		traj:     tr,
		pose:     b.cfg.Pose,
		x:        pid.New(b.cfg.Translation),
		y:        pid.New(b.cfg.Translation),
		heading:  rotation,
		mode:     b.mode,
		kin:      b.cfg.Kinematics,
		maxWheel: b.cfg.MaxWheelSpeed,
		wheels:   b.cfg.Wheels,
		chassis:  b.cfg.Chassis,
	}
}

// ResetPose feeds the trajectory's initial pose to the configured reset
// consumer. A no-op when none is configured.
func (b *Builder) ResetPose(tr Sampler) {
	if b.cfg.Reset == nil {
		return
	}
	b.cfg.Reset(tr.Sample(0).Pose())
}
