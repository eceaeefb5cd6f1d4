// SPDX-License-Identifier: MIT
package analysis

import (
	"math"
	"testing"
)

func TestLinearAveragerGroups(t *testing.T) {
	// fftSize 10 over 4 bands: groups of 3, 3, 2, 2.
	a := NewLinearAverager(10, 4)
	frames := []float64{1, 1, 1, 2, 2, 2, 3, 3, 4, 4, 99, 99}
	got := a.Average(nil, frames)
	want := []float64{1, 2, 3, 4}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("band %d = %f, want %f", i, got[i], want[i])
		}
	}
}

func TestLinearAveragerMoreBandsThanSamples(t *testing.T) {
	a := NewLinearAverager(3, 5)
	got := a.Average(nil, []float64{1, 2, 3, 7, 7})
	want := []float64{1, 2, 3, 0, 0}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("band %d = %f, want %f", i, got[i], want[i])
		}
	}
}

func TestLinearAveragerNormalize(t *testing.T) {
	a := NewLinearAverager(4, 2)
	frames := []float64{0, 32767, -32767, 16383.5}
	a.Normalize(frames)
	want := []float64{0.5, 1, 0, 0.75}
	for i := range want {
		if math.Abs(frames[i]-want[i]) > 1e-12 {
			t.Errorf("frame %d = %f, want %f", i, frames[i], want[i])
		}
	}
}
