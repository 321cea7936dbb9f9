package drive

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/mectrack/internal/geom"
)

// MecanumKinematics maps robot-frame chassis speeds to the four wheel
// speeds of a mecanum drivetrain with rollers at 45 degrees. Wheel
// positions are offsets from the robot center, +X forward, +Y left.
type MecanumKinematics struct {
	inverse *mat.Dense // 4x3; wheels = inverse * [vx vy omega]
}

// NewMecanumKinematics builds the kinematic map from the four wheel
// positions: front-left, front-right, rear-left, rear-right.
func NewMecanumKinematics(fl, fr, rl, rr geom.Translation) *MecanumKinematics {
	ik := mat.NewDense(4, 3, nil)
	ik.SetRow(0, []float64{1, -1, -(fl.X + fl.Y)})
	ik.SetRow(1, []float64{1, 1, fr.X - fr.Y})
	ik.SetRow(2, []float64{1, 1, rl.X - rl.Y})
	ik.SetRow(3, []float64{1, -1, -(rr.X + rr.Y)})
	return &MecanumKinematics{inverse: ik}
}

// ForFrame builds kinematics for a rectangular frame with the robot center
// in the middle: trackWidth is the left-right wheel separation, wheelBase
// the front-rear separation, in meters.
func ForFrame(trackWidth, wheelBase float64) *MecanumKinematics {
	halfTrack := trackWidth / 2
	halfBase := wheelBase / 2
	return NewMecanumKinematics(
		geom.Translation{X: halfBase, Y: halfTrack},
		geom.Translation{X: halfBase, Y: -halfTrack},
		geom.Translation{X: -halfBase, Y: halfTrack},
		geom.Translation{X: -halfBase, Y: -halfTrack},
	)
}

// ToWheelSpeeds converts a chassis velocity into the wheel speeds that
// produce it.
func (k *MecanumKinematics) ToWheelSpeeds(c ChassisSpeeds) WheelSpeeds {
	var w mat.VecDense
	w.MulVec(k.inverse, mat.NewVecDense(3, []float64{c.VX, c.VY, c.Omega}))
	return WheelSpeeds{
		FrontLeft:  w.AtVec(0),
		FrontRight: w.AtVec(1),
		RearLeft:   w.AtVec(2),
		RearRight:  w.AtVec(3),
	}
}

// ToChassisSpeeds recovers the chassis velocity from four wheel speeds.
// The system is overdetermined, so inconsistent wheel speeds resolve to
// the nearest chassis motion in the least-squares sense.
func (k *MecanumKinematics) ToChassisSpeeds(w WheelSpeeds) (ChassisSpeeds, error) {
	b := mat.NewVecDense(4, []float64{w.FrontLeft, w.FrontRight, w.RearLeft, w.RearRight})
	var v mat.VecDense
	if err := v.SolveVec(k.inverse, b); err != nil {
		return ChassisSpeeds{}, fmt.Errorf("drive: forward kinematics: %w", err)
	}
	return ChassisSpeeds{VX: v.AtVec(0), VY: v.AtVec(1), Omega: v.AtVec(2)}, nil
}
