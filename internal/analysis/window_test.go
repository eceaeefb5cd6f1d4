// SPDX-License-Identifier: MIT
package analysis

import (
	"math"
	"testing"
)

func TestWindowTables(t *testing.T) {
	const n = 256
	kinds := []WindowType{
		WindowHamming, WindowHann, WindowBlackmanHarris, WindowBlackman,
		WindowBlackmanNuttall, WindowNuttall, WindowBartlettHann, WindowLanczos,
	}
	for _, kind := range kinds {
		t.Run(kind.String(), func(t *testing.T) {
			w := NewWindow(kind, n)
			c := w.Coefficients()
			if len(c) != n {
				t.Fatalf("len = %d, want %d", len(c), n)
			}
			for i, v := range c {
				if v < -1e-9 || v > 1+1e-9 || math.IsNaN(v) {
					t.Fatalf("coefficient %d = %f outside [0, 1]", i, v)
				}
			}
		})
	}
}

func TestHammingStartsAtZero(t *testing.T) {
	c := NewWindow(WindowHamming, 1024).Coefficients()
	if c[0] != 0 {
		t.Errorf("Hamming[0] = %g, want exactly 0", c[0])
	}
	want := 0.5 * (1 - math.Cos(2*math.Pi*512/1025))
	if math.Abs(c[512]-want) > 1e-12 {
		t.Errorf("Hamming[512] = %f, want %f", c[512], want)
	}
}

func TestHannEndpoints(t *testing.T) {
	c := NewWindow(WindowHann, 65).Coefficients()
	if math.Abs(c[0]) > 1e-12 || math.Abs(c[64]) > 1e-12 {
		t.Errorf("Hann endpoints = %g, %g; want 0", c[0], c[64])
	}
	if math.Abs(c[32]-1) > 1e-12 {
		t.Errorf("Hann center = %f, want 1", c[32])
	}
}

func TestBlackmanHarrisCoefficients(t *testing.T) {
	c := NewWindow(WindowBlackmanHarris, 65).Coefficients()
	if want := 0.35875 - 0.48829 + 0.14128 - 0.01168; math.Abs(c[0]-want) > 1e-12 {
		t.Errorf("BlackmanHarris[0] = %g, want %g", c[0], want)
	}
	if want := 0.35875 + 0.48829 + 0.14128 + 0.01168; math.Abs(c[32]-want) > 1e-12 {
		t.Errorf("BlackmanHarris center = %f, want %f", c[32], want)
	}
}

func TestWindowApplyLeavesPadding(t *testing.T) {
	const n = 64
	w := NewWindow(WindowHann, n)
	frames := make([]float64, 2*n)
	for i := range frames {
		frames[i] = 1
	}
	w.Apply(frames)

	c := w.Coefficients()
	for i := range n {
		if frames[i] != c[i] {
			t.Fatalf("frame %d = %f, want %f", i, frames[i], c[i])
		}
	}
	for i := n; i < 2*n; i++ {
		if frames[i] != 1 {
			t.Fatalf("padding %d modified to %f", i, frames[i])
		}
	}
}

func TestWindowNoneIsNoop(t *testing.T) {
	w := NewWindow(WindowNone, 8)
	if w.Len() != 0 {
		t.Errorf("WindowNone has %d coefficients", w.Len())
	}
	frames := []float64{1, 2, 3}
	w.Apply(frames)
	if frames[0] != 1 || frames[2] != 3 {
		t.Errorf("WindowNone modified frames: %v", frames)
	}
}

func TestParseWindow(t *testing.T) {
	tests := []struct {
		in      string
		want    WindowType
		wantErr bool
	}{
		{"", WindowHamming, false},
		{"Hamming", WindowHamming, false},
		{"hanning", WindowHann, false},
		{"Blackman-Harris", WindowBlackmanHarris, false},
		{"blackman_nuttall", WindowBlackmanNuttall, false},
		{"none", WindowNone, false},
		{"triangle", WindowHamming, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseWindow(tt.in)
			if (err != nil) != tt.wantErr || got != tt.want {
				t.Errorf("ParseWindow(%q) = %v, %v; want %v, err=%v", tt.in, got, err, tt.want, tt.wantErr)
			}
		})
	}
}

func BenchmarkWindowApply(b *testing.B) {
	w := NewWindow(WindowBlackmanHarris, 8192)
	frames := make([]float64, 32768)

	b.ReportAllocs()
	for b.Loop() {
		w.Apply(frames)
	}
}
