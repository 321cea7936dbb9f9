package drive

import (
	"math"
	"testing"

	"github.com/san-kum/mectrack/internal/geom"
)

func approxWheels(t *testing.T, got, expected WheelSpeeds, tol float64) {
	t.Helper()
	for _, c := range []struct {
		name     string
		got, exp float64
	}{
		{"front left", got.FrontLeft, expected.FrontLeft},
		{"front right", got.FrontRight, expected.FrontRight},
		{"rear left", got.RearLeft, expected.RearLeft},
		{"rear right", got.RearRight, expected.RearRight},
	} {
		if math.Abs(c.got-c.exp) > tol {
			t.Errorf("%s: expected %v, got %v", c.name, c.exp, c.got)
		}
	}
}

func TestToWheelSpeedsForward(t *testing.T) {
	k := ForFrame(0.5, 0.6)
	got := k.ToWheelSpeeds(ChassisSpeeds{VX: 1})
	approxWheels(t, got, WheelSpeeds{FrontLeft: 1, FrontRight: 1, RearLeft: 1, RearRight: 1}, 1e-12)
}

func TestToWheelSpeedsStrafeLeft(t *testing.T) {
	// strafing left drives the front-left and rear-right wheels backward
	k := ForFrame(0.5, 0.6)
	got := k.ToWheelSpeeds(ChassisSpeeds{VY: 1})
	approxWheels(t, got, WheelSpeeds{FrontLeft: -1, FrontRight: 1, RearLeft: 1, RearRight: -1}, 1e-12)
}

func TestToWheelSpeedsSpinCCW(t *testing.T) {
	// counterclockwise spin: left side backward, right side forward
	k := ForFrame(0.5, 0.6)
	got := k.ToWheelSpeeds(ChassisSpeeds{Omega: 1})
	approxWheels(t, got, WheelSpeeds{FrontLeft: -0.55, FrontRight: 0.55, RearLeft: -0.55, RearRight: 0.55}, 1e-12)
}

func TestKinematicsRoundTrip(t *testing.T) {
	k := ForFrame(0.48, 0.52)
	in := ChassisSpeeds{VX: 0.8, VY: -0.4, Omega: 1.2}

	wheels := k.ToWheelSpeeds(in)
	out, err := k.ToChassisSpeeds(wheels)
	if err != nil {
		t.Fatalf("forward kinematics failed: %v", err)
	}

	if math.Abs(out.VX-in.VX) > 1e-9 || math.Abs(out.VY-in.VY) > 1e-9 || math.Abs(out.Omega-in.Omega) > 1e-9 {
		t.Errorf("round trip changed the command: in %+v, out %+v", in, out)
	}
}

func TestToChassisSpeedsConsistentSet(t *testing.T) {
	// all wheels forward at the same speed is pure forward motion
	k := ForFrame(0.5, 0.6)
	got, err := k.ToChassisSpeeds(WheelSpeeds{FrontLeft: 2, FrontRight: 2, RearLeft: 2, RearRight: 2})
	if err != nil {
		t.Fatalf("forward kinematics failed: %v", err)
	}
	if math.Abs(got.VX-2) > 1e-9 || math.Abs(got.VY) > 1e-9 || math.Abs(got.Omega) > 1e-9 {
		t.Errorf("expected (2, 0, 0), got %+v", got)
	}
}

func TestAsymmetricWheelPlacement(t *testing.T) {
	// center of rotation shifted toward the rear axle: spinning in place
	// demands more speed from the distant front wheels
	k := NewMecanumKinematics(
		geom.Translation{X: 0.5, Y: 0.25},
		geom.Translation{X: 0.5, Y: -0.25},
		geom.Translation{X: -0.1, Y: 0.25},
		geom.Translation{X: -0.1, Y: -0.25},
	)
	got := k.ToWheelSpeeds(ChassisSpeeds{Omega: 1})
	if math.Abs(got.FrontLeft) <= math.Abs(got.RearLeft) {
		t.Errorf("expected front wheels faster than rear, got front %v rear %v", got.FrontLeft, got.RearLeft)
	}
}

func BenchmarkToWheelSpeeds(b *testing.B) {
	k := ForFrame(0.5, 0.6)
	c := ChassisSpeeds{VX: 1.2, VY: -0.3, Omega: 0.8}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		k.ToWheelSpeeds(c)
	}
}

func BenchmarkToChassisSpeeds(b *testing.B) {
	k := ForFrame(0.5, 0.6)
	w := k.ToWheelSpeeds(ChassisSpeeds{VX: 1.2, VY: -0.3, Omega: 0.8})
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := k.ToChassisSpeeds(w); err != nil {
			b.Fatal(err)
		}
	}
}
