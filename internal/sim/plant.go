package sim

import (
	"errors"
	"math"

	"github.com/golang/geo/r3"

	"github.com/san-kum/mectrack/internal/drive"
	"github.com/san-kum/mectrack/internal/geom"
)

var (
	// ErrBadStep is returned by Advance for a non-positive time step.
	ErrBadStep = errors.New("sim: non-positive time step")
	// ErrNoKinematics is reported when wheel commands reach a plant
	// that was built without a kinematic model.
	ErrNoKinematics = errors.New("sim: wheel command without kinematics")
)

// PlantConfig describes the simulated chassis.
type PlantConfig struct {
	// Kinematics maps between wheel and chassis speeds. Required for
	// wheel commands and for the actuator cap; may be nil for an
	// ideal velocity-mode plant.
	Kinematics *drive.MecanumKinematics
	// WheelCap is the speed each wheel physically tops out at, in m/s.
	// Zero disables the cap.
	WheelCap float64
	// Lag is the first-order velocity time constant, in seconds.
	// Zero makes the plant track commands instantly.
	Lag float64
	// Slip is the fraction of commanded motion lost to wheel slip,
	// in [0, 1).
	Slip float64
	// Start is the initial pose.
	Start geom.Pose
}

// Plant is a simulated mecanum chassis. Commands are robot-relative;
// the pose evolves in the field frame. Unlike the controller-side
// uniform desaturation, the plant clamps each wheel independently, so
// an over-driven command also distorts direction.
type Plant struct {
	cfg   PlantConfig
	pose  geom.Pose
	cmd   drive.ChassisSpeeds
	vel   drive.ChassisSpeeds
	fkErr error
}

func NewPlant(cfg PlantConfig) *Plant {
	return &Plant{cfg: cfg, pose: cfg.Start}
}

// SetVelocity accepts a robot-relative velocity command. Linear X/Y are
// in m/s, angular Z in rad/s; the remaining components are ignored.
func (p *Plant) SetVelocity(linear, angular r3.Vector) {
	p.cmd = drive.ChassisSpeeds{VX: linear.X, VY: linear.Y, Omega: angular.Z}
}

// SetWheelSpeeds accepts a wheel-space command. A conversion failure is
// held and surfaced by the next Advance.
func (p *Plant) SetWheelSpeeds(ws drive.WheelSpeeds) {
	if p.cfg.Kinematics == nil {
		p.fkErr = ErrNoKinematics
		return
	}
	c, err := p.cfg.Kinematics.ToChassisSpeeds(ws)
	if err != nil {
		p.fkErr = err
		return
	}
	p.cmd = c
}

// Pose returns the current field-frame pose.
func (p *Plant) Pose() geom.Pose { return p.pose }

// Velocity returns the achieved robot-relative velocity.
func (p *Plant) Velocity() drive.ChassisSpeeds { return p.vel }

// Command returns the velocity command currently standing at the plant.
func (p *Plant) Command() drive.ChassisSpeeds { return p.cmd }

// ResetPose teleports the chassis and zeroes its motion.
func (p *Plant) ResetPose(pose geom.Pose) {
	p.pose = pose
	p.cmd = drive.ChassisSpeeds{}
	p.vel = drive.ChassisSpeeds{}
}

// Advance integrates the plant by dt seconds: the standing command is
// clamped wheel by wheel, filtered through the velocity lag, reduced by
// slip and integrated into the field-frame pose.
func (p *Plant) Advance(dt float64) error {
	if err := p.fkErr; err != nil {
		p.fkErr = nil
		return err
	}
	if dt <= 0 {
		return ErrBadStep
	}

	target := p.cmd
	if p.cfg.Kinematics != nil && p.cfg.WheelCap > 0 {
		target = p.saturate(target)
	}

	alpha := 1.0
	if p.cfg.Lag > 0 {
		alpha = 1 - math.Exp(-dt/p.cfg.Lag)
	}
	p.vel.VX += alpha * (target.VX - p.vel.VX)
	p.vel.VY += alpha * (target.VY - p.vel.VY)
	p.vel.Omega += alpha * (target.Omega - p.vel.Omega)

	eff := p.vel
	if p.cfg.Slip > 0 {
		k := 1 - p.cfg.Slip
		eff.VX *= k
		eff.VY *= k
		eff.Omega *= k
	}

	sin, cos := math.Sincos(p.pose.Heading)
	p.pose.X += (eff.VX*cos - eff.VY*sin) * dt
	p.pose.Y += (eff.VX*sin + eff.VY*cos) * dt
	p.pose.Heading = geom.WrapAngle(p.pose.Heading + eff.Omega*dt)
	return nil
}

func (p *Plant) saturate(c drive.ChassisSpeeds) drive.ChassisSpeeds {
	ws := p.cfg.Kinematics.ToWheelSpeeds(c)
	limit := p.cfg.WheelCap
	for _, w := range []*float64{&ws.FrontLeft, &ws.FrontRight, &ws.RearLeft, &ws.RearRight} {
		if *w > limit {
			*w = limit
		} else if *w < -limit {
			*w = -limit
		}
	}
	capped, err := p.cfg.Kinematics.ToChassisSpeeds(ws)
	if err != nil {
		// Degenerate geometry; fall back to the raw command.
		return c
	}
	return capped
}
