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

const period = 0.02

func deg(d float64) float64 { return d * math.Pi / 180 }

// nanSampler violates the sampler contract on purpose.
type nanSampler struct{}

func (nanSampler) Sample(t float64) traj.State { return traj.State{X: math.NaN()} }
func (nanSampler) Duration() float64           { return 1 }

// hold is a stationary trajectory pinned at one reference state.
func hold(s traj.State) *traj.Trajectory {
	end := s
	end.T = 10
	return &traj.Trajectory{Name: "hold", States: []traj.State{s, end}}
}

var _ = Describe("Follower", func() {
	var cmds []drive.ChassisSpeeds

	chassisBuilder := func(pose follow.PoseSource, translation, rotation pid.Gains) *follow.Builder {
		b, err := follow.NewBuilder(follow.Config{
			Pose:        pose,
			Translation: translation,
			Rotation:    rotation,
			Chassis:     func(c drive.ChassisSpeeds) { cmds = append(cmds, c) },
		})
		Expect(err).NotTo(HaveOccurred())
		return b
	}

	BeforeEach(func() {
		cmds = nil
	})

	Describe("per-cycle correction", func() {
		It("emits the feed-forward alone while tracking is perfect", func() {
			line := traj.Linear("line", geom.Pose{}, geom.Pose{X: 2}, 2.0, 0.1)

			var elapsed float64
			pose := func() geom.Pose { return line.Sample(elapsed).Pose() }
			f := chassisBuilder(pose, pid.Gains{Kp: 2, Ki: 0.5, Kd: 0.1}, pid.Gains{Kp: 3}).Follower(line)

			f.Init()
			for elapsed = 0; !f.IsFinished(elapsed); elapsed += period {
				Expect(f.Step(elapsed)).To(Succeed())
			}

			for _, c := range cmds {
				Expect(c.VX).To(BeNumerically("~", 1.0, 1e-9))
				Expect(c.VY).To(BeNumerically("~", 0.0, 1e-9))
				Expect(c.Omega).To(BeNumerically("~", 0.0, 1e-9))
			}
		})

		It("adds the proportional correction to the feed-forward", func() {
			// constant 1 m/s along +X for 2 s; the pose lags 0.1 m behind
			line := traj.Linear("line", geom.Pose{}, geom.Pose{X: 2}, 2.0, 0.1)

			var elapsed float64
			pose := func() geom.Pose {
				ref := line.Sample(elapsed).Pose()
				ref.X -= 0.1
				return ref
			}
			f := chassisBuilder(pose, pid.Gains{Kp: 1}, pid.Gains{Kp: 1}).Follower(line)

			f.Init()
			for elapsed = 0; !f.IsFinished(elapsed); elapsed += period {
				Expect(f.Step(elapsed)).To(Succeed())
			}

			Expect(cmds).NotTo(BeEmpty())
			for _, c := range cmds {
				Expect(c.VX).To(BeNumerically("~", 1.1, 1e-9))
				Expect(c.VY).To(BeNumerically("~", 0.0, 1e-9))
				Expect(c.Omega).To(BeNumerically("~", 0.0, 1e-9))
			}
		})

		It("wraps the heading error to the shortest arc", func() {
			tr := hold(traj.State{Heading: deg(-170)})
			pose := func() geom.Pose { return geom.Pose{Heading: deg(170)} }
			f := chassisBuilder(pose, pid.Gains{}, pid.Gains{Kp: 1}).Follower(tr)

			f.Init()
			Expect(f.Step(0)).To(Succeed())

			Expect(cmds).To(HaveLen(1))
			Expect(cmds[0].Omega).To(BeNumerically("~", deg(20), 1e-9))
		})

		It("rotates field-frame output into the robot frame", func() {
			// moving along field +X while facing +Y is a strafe to the
			// robot's right
			tr := hold(traj.State{Heading: math.Pi / 2, VX: 1})
			pose := func() geom.Pose { return geom.Pose{Heading: math.Pi / 2} }
			f := chassisBuilder(pose, pid.Gains{Kp: 1}, pid.Gains{Kp: 1}).Follower(tr)

			f.Init()
			Expect(f.Step(0)).To(Succeed())

			Expect(cmds).To(HaveLen(1))
			Expect(cmds[0].VX).To(BeNumerically("~", 0.0, 1e-9))
			Expect(cmds[0].VY).To(BeNumerically("~", -1.0, 1e-9))
		})
	})

	Describe("controller state", func() {
		stationary := func() *traj.Trajectory { return hold(traj.State{X: 1}) }
		behind := func() geom.Pose { return geom.Pose{X: 0.9} }
		integralOnly := pid.Gains{Ki: 1}

		It("accumulates the integral across the steps of one run", func() {
			f := chassisBuilder(behind, integralOnly, pid.Gains{}).Follower(stationary())

			f.Init()
			for _, t := range []float64{0, 0.02, 0.04, 0.06} {
				Expect(f.Step(t)).To(Succeed())
			}

			// constant error 0.1: the output grows every cycle
			Expect(cmds[0].VX).To(BeNumerically("~", 0.0, 1e-12))
			for i := 1; i < len(cmds); i++ {
				Expect(cmds[i].VX).To(BeNumerically(">", cmds[i-1].VX))
			}
			Expect(cmds[3].VX).To(BeNumerically("~", 0.1*0.06, 1e-9))
		})

		It("starts a new follower from a clean accumulator", func() {
			b := chassisBuilder(behind, integralOnly, pid.Gains{})

			first := b.Follower(stationary())
			first.Init()
			for _, t := range []float64{0, 0.02, 0.04} {
				Expect(first.Step(t)).To(Succeed())
			}
			firstRun := append([]drive.ChassisSpeeds(nil), cmds...)

			cmds = nil
			second := b.Follower(stationary())
			second.Init()
			for _, t := range []float64{0, 0.02, 0.04} {
				Expect(second.Step(t)).To(Succeed())
			}

			Expect(cmds).To(HaveLen(len(firstRun)))
			for i := range cmds {
				Expect(cmds[i].VX).To(BeNumerically("~", firstRun[i].VX, 1e-12))
			}
		})

		It("clears the accumulator on Init for instance reuse", func() {
			f := chassisBuilder(behind, integralOnly, pid.Gains{}).Follower(stationary())

			f.Init()
			for _, t := range []float64{0, 0.02, 0.04} {
				Expect(f.Step(t)).To(Succeed())
			}
			firstRun := append([]drive.ChassisSpeeds(nil), cmds...)

			cmds = nil
			f.Init()
			for _, t := range []float64{0, 0.02, 0.04} {
				Expect(f.Step(t)).To(Succeed())
			}

			for i := range cmds {
				Expect(cmds[i].VX).To(BeNumerically("~", firstRun[i].VX, 1e-12))
			}
		})
	})

	Describe("lifecycle", func() {
		It("reports finished once elapsed reaches the duration", func() {
			line := traj.Linear("line", geom.Pose{}, geom.Pose{X: 2}, 2.0, 0.1)
			f := chassisBuilder(func() geom.Pose { return geom.Pose{} }, pid.Gains{}, pid.Gains{}).Follower(line)

			Expect(f.IsFinished(1.99)).To(BeFalse())
			Expect(f.IsFinished(2.0)).To(BeTrue())
			Expect(f.IsFinished(2.5)).To(BeTrue())
		})

		It("emits a zero terminal command exactly once for an at-rest end", func() {
			stop := &traj.Trajectory{Name: "stop", States: []traj.State{
				{T: 0, VX: 1},
				{T: 1, X: 0.75, VX: 0.5},
				{T: 2, X: 1},
			}}
			f := chassisBuilder(func() geom.Pose { return geom.Pose{X: 1} }, pid.Gains{}, pid.Gains{}).Follower(stop)

			f.Init()
			f.End(false)
			f.End(false)
			f.End(true)

			Expect(cmds).To(HaveLen(1))
			Expect(cmds[0]).To(Equal(drive.ChassisSpeeds{}))
		})

		It("carries the final reference velocity when a segment ends at speed", func() {
			line := traj.Linear("line", geom.Pose{}, geom.Pose{X: 2}, 2.0, 0.1)
			f := chassisBuilder(func() geom.Pose { return geom.Pose{X: 2} }, pid.Gains{}, pid.Gains{}).Follower(line)

			f.Init()
			f.End(false)
			f.End(false)

			Expect(cmds).To(HaveLen(1))
			Expect(cmds[0].VX).To(BeNumerically("~", 1.0, 1e-9))
		})

		It("emits a zero terminal command when interrupted mid-run", func() {
			line := traj.Linear("line", geom.Pose{}, geom.Pose{X: 2}, 2.0, 0.1)
			f := chassisBuilder(func() geom.Pose { return geom.Pose{} }, pid.Gains{}, pid.Gains{}).Follower(line)

			f.Init()
			Expect(f.Step(0)).To(Succeed())
			f.End(true)
			f.End(true)

			Expect(cmds).To(HaveLen(2))
			Expect(cmds[1]).To(Equal(drive.ChassisSpeeds{}))
		})

		It("re-arms the terminal latch on Init", func() {
			line := traj.Linear("line", geom.Pose{}, geom.Pose{X: 2}, 2.0, 0.1)
			f := chassisBuilder(func() geom.Pose { return geom.Pose{} }, pid.Gains{}, pid.Gains{}).Follower(line)

			f.Init()
			f.End(true)
			f.Init()
			f.End(true)

			Expect(cmds).To(HaveLen(2))
		})
	})

	Describe("contract violations", func() {
		It("propagates a non-finite sample without emitting", func() {
			f := chassisBuilder(func() geom.Pose { return geom.Pose{} }, pid.Gains{Kp: 1}, pid.Gains{}).Follower(nanSampler{})

			f.Init()
			Expect(f.Step(0.5)).To(MatchError(follow.ErrInvalidSample))
			Expect(cmds).To(BeEmpty())
		})

		It("propagates a non-finite pose without emitting", func() {
			line := traj.Linear("line", geom.Pose{}, geom.Pose{X: 2}, 2.0, 0.1)
			f := chassisBuilder(func() geom.Pose { return geom.Pose{X: math.NaN()} }, pid.Gains{Kp: 1}, pid.Gains{}).Follower(line)

			f.Init()
			Expect(f.Step(0)).To(MatchError(follow.ErrInvalidPose))
			Expect(cmds).To(BeEmpty())
		})
	})

	Describe("wheel mode", func() {
		It("converts to wheel speeds and desaturates uniformly", func() {
			var wheelCmds []drive.WheelSpeeds
			kin := drive.ForFrame(0.5, 0.6)
			b, err := follow.NewBuilder(follow.Config{
				Pose:          func() geom.Pose { return geom.Pose{X: -1} },
				Translation:   pid.Gains{Kp: 4},
				Rotation:      pid.Gains{},
				Kinematics:    kin,
				MaxWheelSpeed: 2,
				Wheels:        func(w drive.WheelSpeeds) { wheelCmds = append(wheelCmds, w) },
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(b.Mode()).To(Equal(follow.ModeWheelSpeeds))

			// stationary reference at the origin, error 1 m, correction
			// 4 m/s: every wheel saturates and scales to the 2 m/s cap
			f := b.Follower(hold(traj.State{}))
			f.Init()
			Expect(f.Step(0)).To(Succeed())

			Expect(wheelCmds).To(HaveLen(1))
			w := wheelCmds[0]
			Expect(w.FrontLeft).To(BeNumerically("~", 2.0, 1e-9))
			Expect(w.FrontRight).To(BeNumerically("~", 2.0, 1e-9))
			Expect(w.RearLeft).To(BeNumerically("~", 2.0, 1e-9))
			Expect(w.RearRight).To(BeNumerically("~", 2.0, 1e-9))
		})

		It("leaves wheel speeds under the cap untouched", func() {
			var wheelCmds []drive.WheelSpeeds
			kin := drive.ForFrame(0.5, 0.6)
			b, err := follow.NewBuilder(follow.Config{
				Pose:          func() geom.Pose { return geom.Pose{X: -0.1} },
				Translation:   pid.Gains{Kp: 1},
				Rotation:      pid.Gains{},
				Kinematics:    kin,
				MaxWheelSpeed: 2,
				Wheels:        func(w drive.WheelSpeeds) { wheelCmds = append(wheelCmds, w) },
			})
			Expect(err).NotTo(HaveOccurred())

			f := b.Follower(hold(traj.State{}))
			f.Init()
			Expect(f.Step(0)).To(Succeed())

			Expect(wheelCmds).To(HaveLen(1))
			Expect(wheelCmds[0].FrontLeft).To(BeNumerically("~", 0.1, 1e-9))
		})
	})

	Describe("diagnostics", func() {
		It("reports AtReference within the configured tolerances", func() {
			withTol := pid.Gains{Kp: 1, Tolerance: 0.05}
			tr := hold(traj.State{X: 1, Y: 1})

			f := chassisBuilder(func() geom.Pose { return geom.Pose{X: 0.98, Y: 1.01} }, withTol, withTol).Follower(tr)
			f.Init()
			Expect(f.Step(0)).To(Succeed())
			Expect(f.AtReference()).To(BeTrue())

			cmds = nil
			far := chassisBuilder(func() geom.Pose { return geom.Pose{X: 0.5} }, withTol, withTol).Follower(tr)
			far.Init()
			Expect(far.Step(0)).To(Succeed())
			Expect(far.AtReference()).To(BeFalse())
		})
	})
})
