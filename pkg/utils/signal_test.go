// SPDX-License-Identifier: MIT
package utils

import (
	"encoding/binary"
	"errors"
	"math"
	"os"
	"testing"
)

const (
	testSize       = 1024
	testSampleRate = 44100
	testFrequency  = 440.0
)

var testMagnitudes []float64

func TestMain(m *testing.M) {
	testMagnitudes = make([]float64, testSize)
	// A "hill" peaking at testSize/4.
	for i := range testMagnitudes {
		testMagnitudes[i] = math.Exp(-0.01 * math.Pow(float64(i-testSize/4), 2))
	}
	os.Exit(m.Run())
}

func TestSine(t *testing.T) {
	tests := []struct {
		name       string
		sampleRate float64
		frequency  float64
	}{
		{"A4 Note", 44100, 440.0},
		{"Middle C", 44100, 261.63},
		{"High Sample Rate", 192000, 440.0},
		{"Low Sample Rate", 8000, 440.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Sine(testSize, tt.sampleRate, tt.frequency, 0.9)
			if len(result) != testSize {
				t.Fatalf("Sine() length = %d, want %d", len(result), testSize)
			}

			samplesPerCycle := tt.sampleRate / tt.frequency
			crossCount := 0
			for i := 1; i < testSize; i++ {
				if (result[i-1] < 0) != (result[i] < 0) {
					crossCount++
				}
			}
			expected := float64(testSize) / (samplesPerCycle / 2)
			if tolerance := 0.2 * expected; math.Abs(float64(crossCount)-expected) > tolerance {
				t.Errorf("zero crossings = %d, expected approximately %.1f±%.1f", crossCount, expected, tolerance)
			}
			for i, v := range result {
				if math.Abs(v) > 0.9+1e-12 {
					t.Fatalf("sample %d = %f exceeds amplitude", i, v)
				}
			}
		})
	}
}

func TestHarmonicsSumsPartials(t *testing.T) {
	h := Harmonics(64, testSampleRate, testFrequency, 0.5, 0.25)
	a := Sine(64, testSampleRate, testFrequency, 0.5)
	b := Sine(64, testSampleRate, 2*testFrequency, 0.25)
	for i := range h {
		if math.Abs(h[i]-(a[i]+b[i])) > 1e-12 {
			t.Fatalf("sample %d: got %f, want %f", i, h[i], a[i]+b[i])
		}
	}
}

func TestInterleave(t *testing.T) {
	got := Interleave([]float64{1, 2}, 3)
	want := []float64{1, 1, 1, 2, 2, 2}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: got %f, want %f", i, got[i], want[i])
		}
	}
}

func TestPCM16(t *testing.T) {
	buf := PCM16([]float64{0, 1, -1, 2})
	want := []int16{0, 32767, -32767, 32767}
	for i, w := range want {
		if got := int16(binary.LittleEndian.Uint16(buf[2*i:])); got != w {
			t.Errorf("sample %d = %d, want %d", i, got, w)
		}
	}
	if raw := PCM16Raw(-32768, 5); int16(binary.LittleEndian.Uint16(raw)) != -32768 {
		t.Errorf("PCM16Raw did not preserve -32768")
	}
}

func TestFloat32LE(t *testing.T) {
	buf := Float32LE([]float64{0.5, -0.25})
	if got := math.Float32frombits(binary.LittleEndian.Uint32(buf[4:])); got != -0.25 {
		t.Errorf("second sample = %f, want -0.25", got)
	}
}

func TestFindPeakBin(t *testing.T) {
	tests := []struct {
		name     string
		mags     []float64
		start    int
		end      int
		expected int
	}{
		{"Full Range", testMagnitudes, 0, testSize - 1, testSize / 4},
		{"Partial Range Start", testMagnitudes, testSize / 8, testSize - 1, testSize / 4},
		{"Partial Range End", testMagnitudes, 0, testSize / 3, testSize / 4},
		{"Negative Start", testMagnitudes, -10, testSize - 1, testSize / 4},
		{"Out of Range End", testMagnitudes, 0, testSize * 2, testSize / 4},
		{"Empty Slice", []float64{}, 0, 10, 0},
		{"Single Value", []float64{1.0}, 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FindPeakBin(tt.mags, tt.start, tt.end); got != tt.expected {
				t.Errorf("FindPeakBin() = %d, want %d", got, tt.expected)
			}
		})
	}
}

func TestMockTransport(t *testing.T) {
	mt := &MockTransport{}
	_ = mt.Send("a")
	_ = mt.Send(2)
	if got := len(mt.Sent()); got != 2 {
		t.Fatalf("Sent() length = %d, want 2", got)
	}

	mt.Err = errors.New("boom")
	if err := mt.Send("c"); err == nil {
		t.Error("expected configured error")
	}
	if got := len(mt.Sent()); got != 2 {
		t.Errorf("failed Send was recorded")
	}

	_ = mt.Close()
	if !mt.Closed() {
		t.Error("Closed() = false after Close")
	}
}

func BenchmarkFindPeakBin(b *testing.B) {
	b.ReportAllocs()
	for b.Loop() {
		_ = FindPeakBin(testMagnitudes, 0, testSize-1)
	}
}
