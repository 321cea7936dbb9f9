package metrics

import (
	"math"

	"github.com/san-kum/mectrack/internal/geom"
	"github.com/san-kum/mectrack/internal/sim"
)

// TrackingError is the root-mean-square translation distance between
// the reference and the chassis.
type TrackingError struct {
	name    string
	sumSq   float64
	samples int
}

func NewTrackingError() *TrackingError {
	return &TrackingError{name: "tracking_rms"}
}

func (m *TrackingError) Name() string { return m.name }

func (m *TrackingError) Observe(f sim.Frame) {
	e := translationError(f)
	m.sumSq += e * e
	m.samples++
}

func (m *TrackingError) Value() float64 {
	if m.samples == 0 {
		return 0
	}
	return math.Sqrt(m.sumSq / float64(m.samples))
}

func (m *TrackingError) Reset() {
	m.sumSq = 0
	m.samples = 0
}

// MaxDeviation is the worst translation distance seen over a run.
type MaxDeviation struct {
	name  string
	worst float64
}

func NewMaxDeviation() *MaxDeviation {
	return &MaxDeviation{name: "tracking_max"}
}

func (m *MaxDeviation) Name() string { return m.name }

func (m *MaxDeviation) Observe(f sim.Frame) {
	if e := translationError(f); e > m.worst {
		m.worst = e
	}
}

func (m *MaxDeviation) Value() float64 {
	return m.worst
}

func (m *MaxDeviation) Reset() {
	m.worst = 0
}

// HeadingError is the root-mean-square heading error, measured along
// the shortest arc.
type HeadingError struct {
	name    string
	sumSq   float64
	samples int
}

func NewHeadingError() *HeadingError {
	return &HeadingError{name: "heading_rms"}
}

func (m *HeadingError) Name() string { return m.name }

func (m *HeadingError) Observe(f sim.Frame) {
	e := geom.WrapAngle(f.Ref.Heading - f.Pose.Heading)
	m.sumSq += e * e
	m.samples++
}

func (m *HeadingError) Value() float64 {
	if m.samples == 0 {
		return 0
	}
	return math.Sqrt(m.sumSq / float64(m.samples))
}

func (m *HeadingError) Reset() {
	m.sumSq = 0
	m.samples = 0
}
