// SPDX-License-Identifier: MIT
package analysis

import (
	"math"
	"testing"
)

func TestSmoothingCoefficient(t *testing.T) {
	if got := SmoothingCoefficient(48000, 0); got != 0 {
		t.Errorf("zero time coefficient = %f, want 0", got)
	}
	got := SmoothingCoefficient(48000, 100)
	want := math.Exp(math.Log10(0.01) / (48000 * 0.001 * 100 * 0.001))
	if got != want {
		t.Errorf("coefficient = %f, want %f", got, want)
	}
	if got <= 0 || got >= 1 {
		t.Errorf("coefficient %f outside (0, 1)", got)
	}
	if longer := SmoothingCoefficient(48000, 500); longer <= got {
		t.Errorf("longer time should smooth more: %f <= %f", longer, got)
	}
}

func TestSmootherFirstFramePassesThrough(t *testing.T) {
	s := NewSmoother(48000, 100, 100)
	spec := []float64{1, 2, 3}
	s.Apply(spec)
	if spec[0] != 1 || spec[1] != 2 || spec[2] != 3 {
		t.Errorf("first spectrum modified: %v", spec)
	}
}

func TestSmootherStaysBetweenOldAndNew(t *testing.T) {
	s := NewSmoother(48000, 50, 200)
	s.Apply([]float64{1, 1, 1})

	next := []float64{0.2, 1, 3}
	s.Apply(next)

	if !(next[0] > 0.2 && next[0] < 1) {
		t.Errorf("falling bin = %f, want strictly between 0.2 and 1", next[0])
	}
	if next[1] != 1 {
		t.Errorf("unchanged bin = %f, want 1", next[1])
	}
	if !(next[2] > 1 && next[2] < 3) {
		t.Errorf("rising bin = %f, want strictly between 1 and 3", next[2])
	}

	attack, decay := s.Coefficients()
	if want := 0.2 + attack*(1-0.2); math.Abs(next[0]-want) > 1e-12 {
		t.Errorf("falling bin = %f, want %f", next[0], want)
	}
	if want := 3 + decay*(1-3); math.Abs(next[2]-want) > 1e-12 {
		t.Errorf("rising bin = %f, want %f", next[2], want)
	}
}

func TestSmootherReseedsOnLengthChange(t *testing.T) {
	s := NewSmoother(48000, 100, 100)
	s.Apply([]float64{5, 5})

	wider := []float64{1, 1, 1}
	s.Apply(wider)
	for i, v := range wider {
		if v != 1 {
			t.Errorf("bin %d = %f after length change, want passthrough", i, v)
		}
	}
}

func TestSmootherZeroTimesPassThrough(t *testing.T) {
	s := NewSmoother(48000, 0, 0)
	s.Apply([]float64{1, 1})
	next := []float64{0, 2}
	s.Apply(next)
	if next[0] != 0 || next[1] != 2 {
		t.Errorf("zero coefficients should not smooth, got %v", next)
	}
}

func TestSmootherReset(t *testing.T) {
	s := NewSmoother(48000, 100, 100)
	s.Apply([]float64{1})
	s.Reset()
	next := []float64{0}
	s.Apply(next)
	if next[0] != 0 {
		t.Errorf("value after Reset = %f, want passthrough", next[0])
	}
}
