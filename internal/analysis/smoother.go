// SPDX-License-Identifier: MIT
package analysis

import "math"

// SmoothingCoefficient converts an attack or decay time in milliseconds to a
// per-frame blend factor in [0, 1). Zero or negative times disable smoothing.
func SmoothingCoefficient(sampleRate int, ms float64) float64 {
	if ms <= 0 || sampleRate <= 0 {
		return 0
	}
	return math.Exp(math.Log10(0.01) / (float64(sampleRate) * 0.001 * ms * 0.001))
}

// Smoother applies asymmetric exponential smoothing between successive spectra.
// Falling bins blend with the attack coefficient, rising bins with decay.
type Smoother struct {
	attack float64
	decay  float64
	prev   []float64
	seeded bool
}

// NewSmoother converts the attack and decay times to per-frame coefficients.
func NewSmoother(sampleRate int, attackMs, decayMs float64) *Smoother {
	return &Smoother{
		attack: SmoothingCoefficient(sampleRate, attackMs),
		decay:  SmoothingCoefficient(sampleRate, decayMs),
	}
}

// Coefficients returns the attack and decay blend factors.
func (s *Smoother) Coefficients() (attack, decay float64) {
	return s.attack, s.decay
}

// Apply smooths spectrum in place against the previous output. The first
// spectrum, or one whose length differs from the previous, passes through
// unchanged and becomes the new reference.
func (s *Smoother) Apply(spectrum []float64) {
	if !s.seeded || len(s.prev) != len(spectrum) {
		s.prev = append(s.prev[:0], spectrum...)
		s.seeded = true
		return
	}
	for i, nv := range spectrum {
		ov := s.prev[i]
		switch {
		case nv < ov:
			spectrum[i] = nv + s.attack*(ov-nv)
		case nv > ov:
			spectrum[i] = nv + s.decay*(ov-nv)
		}
	}
	copy(s.prev, spectrum)
}

// Reset drops the stored reference so the next spectrum passes through.
func (s *Smoother) Reset() {
	s.prev = s.prev[:0]
	s.seeded = false
}
