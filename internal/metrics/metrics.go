// Package metrics scores tracking runs frame by frame.
package metrics

import (
	"math"

	"github.com/san-kum/mectrack/internal/sim"
)

// Standard returns the metric set runs are scored with by default.
func Standard() []sim.Metric {
	return []sim.Metric{
		NewTrackingError(),
		NewMaxDeviation(),
		NewHeadingError(),
		NewControlEffort(),
		NewSettling(0.05),
	}
}

func translationError(f sim.Frame) float64 {
	return math.Hypot(f.Ref.X-f.Pose.X, f.Ref.Y-f.Pose.Y)
}
