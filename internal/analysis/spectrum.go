// Package analysis extracts oscillation structure from tracking error
// series. A strong spectral peak in the deviation of a run usually
// means the gains are ringing.
package analysis

import (
	"errors"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/stat"
)

// ErrTooShort is returned for series too small to carry any frequency
// content.
var ErrTooShort = errors.New("analysis: series too short")

// Spectrum is the one-sided magnitude spectrum of a uniformly sampled
// series.
type Spectrum struct {
	// Freqs holds bin center frequencies in hertz, DC first.
	Freqs []float64
	// Mags holds the unnormalized magnitude per bin.
	Mags []float64
}

// PowerSpectrum transforms a series sampled every period seconds. The
// mean is removed first so the DC bin does not swamp real oscillation.
func PowerSpectrum(values []float64, period float64) (*Spectrum, error) {
	if len(values) < 4 {
		return nil, ErrTooShort
	}
	if period <= 0 {
		return nil, errors.New("analysis: non-positive sample period")
	}

	mean := stat.Mean(values, nil)
	centered := make([]float64, len(values))
	for i, v := range values {
		centered[i] = v - mean
	}

	fft := fourier.NewFFT(len(centered))
	coeffs := fft.Coefficients(nil, centered)

	s := &Spectrum{
		Freqs: make([]float64, len(coeffs)),
		Mags:  make([]float64, len(coeffs)),
	}
	for i, c := range coeffs {
		s.Freqs[i] = fft.Freq(i) / period
		s.Mags[i] = cmplx.Abs(c)
	}
	return s, nil
}

// Peak returns the strongest non-DC bin.
func (s *Spectrum) Peak() (freq, mag float64) {
	for i := 1; i < len(s.Mags); i++ {
		if s.Mags[i] > mag {
			mag = s.Mags[i]
			freq = s.Freqs[i]
		}
	}
	return freq, mag
}
