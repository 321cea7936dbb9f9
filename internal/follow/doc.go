// Package follow implements closed-loop trajectory following for holonomic
// mecanum drivetrains.
//
// A [Builder] captures the static configuration once: the pose source, the
// PID gains, and exactly one actuation target. Supplying kinematics, a
// wheel speed cap, and a wheel-speed consumer selects [ModeWheelSpeeds];
// supplying a chassis-speed consumer alone selects [ModeChassisSpeeds].
// The resolved [DriveMode] is immutable; ambiguous or incomplete
// configurations are rejected at construction, never defaulted.
//
// Each trajectory run gets a fresh [Follower] from [Builder.Follower]. The
// follower owns the per-run controller state and is driven externally,
// once per control period:
//
//	f := builder.Follower(trajectory)
//	f.Init()
//	for !f.IsFinished(elapsed) {
//		if err := f.Step(elapsed); err != nil {
//			f.End(true)
//			return err
//		}
//		// wait for the next control period
//	}
//	f.End(false)
//
// Per cycle the follower samples the reference state, computes per-axis
// position error and shortest-arc heading error, adds PID corrections to
// the reference velocity feed-forward, rotates the field-frame result into
// the robot frame, and emits it through the configured consumer. In wheel
// mode the command passes through the kinematics and a uniform
// desaturation to the wheel speed cap before emission.
//
// # Thread Safety
//
// A follower is owned and driven by one scheduling context; nothing in
// this package locks. Distinct followers share no mutable state, including
// followers built from the same Builder.
package follow
