package metrics

import "github.com/san-kum/mectrack/internal/sim"

// Settling is the fraction of cycles the chassis spent within the
// given translation tolerance of the reference.
type Settling struct {
	name      string
	tolerance float64
	settled   int
	samples   int
}

func NewSettling(tolerance float64) *Settling {
	return &Settling{
		name:      "settled_fraction",
		tolerance: tolerance,
	}
}

func (s *Settling) Name() string { return s.name }

func (s *Settling) Observe(f sim.Frame) {
	s.samples++
	if translationError(f) <= s.tolerance {
		s.settled++
	}
}

func (s *Settling) Value() float64 {
	if s.samples == 0 {
		return 0
	}
	return float64(s.settled) / float64(s.samples)
}

func (s *Settling) Reset() {
	s.settled = 0
	s.samples = 0
}
