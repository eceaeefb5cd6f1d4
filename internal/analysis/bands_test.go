// SPDX-License-Identifier: MIT
package analysis

import (
	"math"
	"testing"
)

func bandSettings(t *testing.T, bands int, logScale bool) Settings {
	t.Helper()
	s := DefaultSettings()
	s.SampleRate = 48000
	s.FFTSize = 4096
	s.FFTBufferSize = 8192
	s.Bands = bands
	s.UseLogScale = logScale
	return s
}

func TestBandEdges(t *testing.T) {
	const bands = 10
	edges := BandEdges(20, 20000, bands)
	if len(edges) != bands {
		t.Fatalf("len = %d, want %d", len(edges), bands)
	}

	step := math.Log2(20000.0/20) / bands
	if want := 20 * math.Exp2(step/2); math.Abs(edges[0]-want) > 1e-9 {
		t.Errorf("edge[0] = %f, want %f", edges[0], want)
	}
	if want := 20000 * math.Exp2(-step/2); math.Abs(edges[bands-1]-want) > 1e-6 {
		t.Errorf("last edge = %f, want %f", edges[bands-1], want)
	}
	for i := 1; i < bands; i++ {
		if edges[i] <= edges[i-1] {
			t.Fatalf("edges not strictly increasing at %d: %v", i, edges)
		}
	}
	if BandEdges(20, 200, 0) != nil {
		t.Error("zero bands should produce nil edges")
	}
}

func TestBandMapperConservesEnergy(t *testing.T) {
	s := bandSettings(t, 12, true)
	m := NewBandMapper(s)

	spectrum := make([]float64, s.Bins())
	for i := range spectrum {
		spectrum[i] = 1
	}
	got := m.Integrate(nil, spectrum)

	scalar := 2 / float64(s.SampleRate)
	edges := m.Edges()
	lower := s.FreqMin()
	total := 0.0
	for i, v := range got {
		want := (edges[i] - lower) * scalar
		if math.Abs(v-want) > 1e-9 {
			t.Errorf("band %d = %g, want %g", i, v, want)
		}
		lower = edges[i]
		total += v
	}
	if want := (edges[len(edges)-1] - s.FreqMin()) * scalar; math.Abs(total-want) > 1e-9 {
		t.Errorf("total energy = %g, want %g", total, want)
	}
}

func TestBandMapperMapCompression(t *testing.T) {
	s := bandSettings(t, 8, true)
	m := NewBandMapper(s)

	silent := make([]float64, s.Bins())
	for i, v := range m.Map(nil, silent) {
		if v != 0 {
			t.Errorf("silent band %d = %f, want 0", i, v)
		}
	}

	loud := make([]float64, s.Bins())
	for i := range loud {
		loud[i] = 1e9
	}
	for i, v := range m.Map(nil, loud) {
		if v != 1 {
			t.Errorf("saturated band %d = %f, want 1", i, v)
		}
	}
}

func TestBandMapperLinearScaleClampsOnly(t *testing.T) {
	s := bandSettings(t, 4, false)
	m := NewBandMapper(s)

	spectrum := make([]float64, s.Bins())
	for i := range spectrum {
		spectrum[i] = 1
	}
	raw := m.Integrate(nil, spectrum)
	mapped := m.Map(nil, spectrum)
	for i := range raw {
		if want := clamp01(raw[i]); mapped[i] != want {
			t.Errorf("band %d = %f, want %f", i, mapped[i], want)
		}
	}
}

func TestBandMapperIntegrateZeroAllocs(t *testing.T) {
	s := bandSettings(t, 32, true)
	m := NewBandMapper(s)
	spectrum := make([]float64, s.Bins())
	dst := make([]float64, 32)

	allocs := testing.AllocsPerRun(100, func() {
		dst = m.Map(dst, spectrum)
	})
	if allocs > 0 {
		t.Errorf("Expected zero allocations in Map, got %.1f", allocs)
	}
}
