// SPDX-License-Identifier: MIT
package analysis

import "math"

// BandEdges returns bands log-spaced upper edges between freqMin and freqMax.
// The first edge is half a step above freqMin and the last one half a step
// below freqMax.
func BandEdges(freqMin, freqMax float64, bands int) []float64 {
	if bands <= 0 {
		return nil
	}
	step := math.Log2(freqMax/freqMin) / float64(bands)
	ratio := math.Exp2(step)
	edges := make([]float64, bands)
	edges[0] = freqMin * math.Exp2(step/2)
	for i := 1; i < bands; i++ {
		edges[i] = edges[i-1] * ratio
	}
	return edges
}

// BandMapper integrates a linear-frequency magnitude spectrum into
// logarithmically spaced bands using a sweep over bin and band boundaries.
type BandMapper struct {
	edges       []float64
	freqMin     float64
	df          float64
	scalar      float64
	lastBin     int
	startBin    int
	sensitivity float64
	logScale    bool
}

// NewBandMapper builds the band table for s. s.Bands must be positive.
func NewBandMapper(s Settings) *BandMapper {
	n := s.bufferSize()
	sr := float64(s.SampleRate)
	df := sr / float64(n)
	return &BandMapper{
		edges:       BandEdges(s.freqMin, s.freqMax, s.Bands),
		freqMin:     s.freqMin,
		df:          df,
		scalar:      2 / sr,
		lastBin:     n / 2,
		startBin:    max(0, int(math.Floor(s.freqMin/df-0.5))),
		sensitivity: s.sensitivity,
		logScale:    s.UseLogScale,
	}
}

// Edges returns the band table. Callers must not modify it.
func (m *BandMapper) Edges() []float64 { return m.edges }

func (m *BandMapper) Bands() int { return len(m.edges) }

// Integrate writes the raw band energies of spectrum into dst[:Bands()].
func (m *BandMapper) Integrate(dst, spectrum []float64) []float64 {
	if cap(dst) < len(m.edges) {
		dst = make([]float64, len(m.edges))
	}
	dst = dst[:len(m.edges)]
	clear(dst)

	last := min(m.lastBin, len(spectrum)-1)
	bin, band, f0 := m.startBin, 0, m.freqMin
	for bin <= last && band < len(m.edges) {
		fLin := (float64(bin) + 0.5) * m.df
		fLog := m.edges[band]
		if fLin <= fLog {
			dst[band] += (fLin - f0) * spectrum[bin] * m.scalar
			f0 = fLin
			bin++
		} else {
			dst[band] += (fLog - f0) * spectrum[bin] * m.scalar
			f0 = fLog
			band++
		}
	}
	return dst
}

// Map integrates spectrum and compresses every band into [0, 1]. With log
// scaling a band b becomes max(0, sensitivity·log10(clamp01(b)) + 1).
// Turning UseLogScale off is an addition to the usual always-compressed
// output: bands are then only clamped, leaving linear energies.
func (m *BandMapper) Map(dst, spectrum []float64) []float64 {
	dst = m.Integrate(dst, spectrum)
	for i, b := range dst {
		b = clamp01(b)
		if m.logScale {
			b = math.Max(0, m.sensitivity*math.Log10(b)+1)
		}
		dst[i] = b
	}
	return dst
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
