package follow_test

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/mectrack/internal/drive"
	"github.com/san-kum/mectrack/internal/follow"
	"github.com/san-kum/mectrack/internal/geom"
	"github.com/san-kum/mectrack/internal/pid"
	"github.com/san-kum/mectrack/internal/traj"
)

var _ = Describe("Builder", func() {
	var (
		kin   *drive.MecanumKinematics
		pose  follow.PoseSource
		gains pid.Gains
		sinkW follow.WheelConsumer
		sinkC follow.ChassisConsumer
	)

	BeforeEach(func() {
		kin = drive.ForFrame(0.5, 0.6)
		pose = func() geom.Pose { return geom.Pose{} }
		gains = pid.Gains{Kp: 1}
		sinkW = func(drive.WheelSpeeds) {}
		sinkC = func(drive.ChassisSpeeds) {}
	})

	It("selects wheel mode from kinematics, cap, and a wheel consumer", func() {
		b, err := follow.NewBuilder(follow.Config{
			Pose: pose, Translation: gains, Rotation: gains,
			Kinematics: kin, MaxWheelSpeed: 3, Wheels: sinkW,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(b.Mode()).To(Equal(follow.ModeWheelSpeeds))
		Expect(b.Mode().String()).To(Equal("wheels"))
	})

	It("selects chassis mode from a chassis consumer alone", func() {
		b, err := follow.NewBuilder(follow.Config{
			Pose: pose, Translation: gains, Rotation: gains, Chassis: sinkC,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(b.Mode()).To(Equal(follow.ModeChassisSpeeds))
		Expect(b.Mode().String()).To(Equal("chassis"))
	})

	It("rejects both consumers at once", func() {
		_, err := follow.NewBuilder(follow.Config{
			Pose: pose, Kinematics: kin, MaxWheelSpeed: 3,
			Wheels: sinkW, Chassis: sinkC,
		})
		Expect(err).To(MatchError(follow.ErrModeConflict))
	})

	It("rejects a configuration with no consumer", func() {
		_, err := follow.NewBuilder(follow.Config{Pose: pose})
		Expect(err).To(MatchError(follow.ErrModeConflict))
	})

	It("rejects a wheel consumer without kinematics", func() {
		_, err := follow.NewBuilder(follow.Config{
			Pose: pose, MaxWheelSpeed: 3, Wheels: sinkW,
		})
		Expect(err).To(MatchError(follow.ErrIncompleteWheelMode))
	})

	It("rejects a wheel consumer without a positive cap", func() {
		_, err := follow.NewBuilder(follow.Config{
			Pose: pose, Kinematics: kin, Wheels: sinkW,
		})
		Expect(err).To(MatchError(follow.ErrIncompleteWheelMode))

		_, err = follow.NewBuilder(follow.Config{
			Pose: pose, Kinematics: kin, MaxWheelSpeed: -2, Wheels: sinkW,
		})
		Expect(err).To(MatchError(follow.ErrIncompleteWheelMode))
	})

	It("rejects a chassis consumer mixed with wheel-mode parameters", func() {
		_, err := follow.NewBuilder(follow.Config{
			Pose: pose, Kinematics: kin, Chassis: sinkC,
		})
		Expect(err).To(MatchError(follow.ErrModeConflict))

		_, err = follow.NewBuilder(follow.Config{
			Pose: pose, MaxWheelSpeed: 3, Chassis: sinkC,
		})
		Expect(err).To(MatchError(follow.ErrModeConflict))
	})

	It("rejects a missing pose source", func() {
		_, err := follow.NewBuilder(follow.Config{Chassis: sinkC})
		Expect(err).To(MatchError(follow.ErrNoPoseSource))
	})

	It("re-seeds odometry from the trajectory's initial pose", func() {
		var got geom.Pose
		b, err := follow.NewBuilder(follow.Config{
			Pose:    pose,
			Reset:   func(p geom.Pose) { got = p },
			Chassis: sinkC,
		})
		Expect(err).NotTo(HaveOccurred())

		start := geom.Pose{X: 1.5, Y: -0.5, Heading: math.Pi / 4}
		tr := traj.Linear("seeded", start, geom.Pose{X: 2}, 1.0, 0.1)
		b.ResetPose(tr)
		Expect(got.X).To(BeNumerically("~", start.X, 1e-12))
		Expect(got.Y).To(BeNumerically("~", start.Y, 1e-12))
		Expect(got.Heading).To(BeNumerically("~", start.Heading, 1e-12))
	})
})
