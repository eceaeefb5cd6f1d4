// SPDX-License-Identifier: MIT
package analysis

import "gonum.org/v1/gonum/stat"

// LinearAverager summarizes a time-domain block into bands of consecutive
// samples without a transform. Samples are offset into [0, 1] first.
type LinearAverager struct {
	fftSize int
	bands   int
}

// NewLinearAverager groups the first fftSize samples into bands means.
func NewLinearAverager(fftSize, bands int) LinearAverager {
	return LinearAverager{fftSize: fftSize, bands: bands}
}

// Normalize maps raw amplitudes (±32767) onto [0, 1] in place.
func (a LinearAverager) Normalize(frames []float64) {
	for i, x := range frames {
		frames[i] = x/(floatScale*2) + 0.5
	}
}

// Average writes one mean per band into dst. The first fftSize mod bands
// bands take one extra sample; groups starting at or past fftSize are 0.
func (a LinearAverager) Average(dst, frames []float64) []float64 {
	if cap(dst) < a.bands {
		dst = make([]float64, a.bands)
	}
	dst = dst[:a.bands]
	if a.bands == 0 {
		return dst
	}

	per := a.fftSize / a.bands
	extra := a.fftSize % a.bands
	limit := min(a.fftSize, len(frames))
	pos := 0
	for i := range dst {
		n := per
		if i < extra {
			n++
		}
		end := min(pos+n, limit)
		if pos >= limit || end <= pos {
			dst[i] = 0
		} else {
			dst[i] = stat.Mean(frames[pos:end], nil)
		}
		pos += n
	}
	return dst
}
