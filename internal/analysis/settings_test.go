// SPDX-License-Identifier: MIT
package analysis

import (
	"errors"
	"testing"

	"spectral/internal/fft"
)

func TestSetFreqRange(t *testing.T) {
	s := DefaultSettings()

	err := s.SetFreqMin(10)
	var rangeErr *RangeError
	if !errors.As(err, &rangeErr) {
		t.Fatalf("SetFreqMin(10) error = %v, want *RangeError", err)
	}
	if rangeErr.Field != "FreqMin" || rangeErr.Value != 10 {
		t.Errorf("RangeError = %+v", rangeErr)
	}
	if s.FreqMin() != MinFrequency {
		t.Errorf("FreqMin changed to %f after rejected assignment", s.FreqMin())
	}

	if err := s.SetFreqMin(100); err != nil {
		t.Fatalf("SetFreqMin(100) error: %v", err)
	}
	if s.FreqMin() != 100 {
		t.Errorf("FreqMin() = %f, want 100", s.FreqMin())
	}

	if err := s.SetFreqMax(25000); !errors.As(err, &rangeErr) {
		t.Errorf("SetFreqMax(25000) error = %v, want *RangeError", err)
	}
	for _, hz := range []float64{20, 20000} {
		if err := s.SetFreqMax(hz); err != nil {
			t.Errorf("SetFreqMax(%g) at the boundary failed: %v", hz, err)
		}
	}
}

func TestSensitivityRoundTrip(t *testing.T) {
	tests := []struct {
		in, want, stored float64
	}{
		{50, 50, 0.2},
		{1, 1, 10},
		{0.5, 1, 10},
		{-3, 1, 10},
	}
	for _, tt := range tests {
		var s Settings
		s.SetSensitivity(tt.in)
		if got := s.Sensitivity(); got != tt.want {
			t.Errorf("Sensitivity() after Set(%g) = %g, want %g", tt.in, got, tt.want)
		}
		if s.sensitivity != tt.stored {
			t.Errorf("stored factor after Set(%g) = %g, want %g", tt.in, s.sensitivity, tt.stored)
		}
	}
}

func TestSettingsValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Settings)
		ok     bool
	}{
		{"Defaults", func(*Settings) {}, true},
		{"Auto buffer size", func(s *Settings) { s.FFTBufferSize = 0 }, true},
		{"Buffer smaller than fft", func(s *Settings) { s.FFTBufferSize = 4096 }, false},
		{"Bit depth 24", func(s *Settings) { s.BitDepth = 24 }, false},
		{"Channel beyond mix", func(s *Settings) { s.Channel = 3 }, false},
		{"No channels", func(s *Settings) { s.Channels = 0; s.Channel = 0 }, false},
		{"Linear without bands", func(s *Settings) { s.UseFFT = false }, false},
		{"Linear with bands", func(s *Settings) { s.UseFFT = false; s.Bands = 8 }, true},
		{"Inverted range", func(s *Settings) { _ = s.SetFreqMin(5000); _ = s.SetFreqMax(100) }, false},
		{"Negative attack", func(s *Settings) { s.Attack = -1 }, false},
		{"Plan engine power of two", func(s *Settings) { s.Engine = fft.EnginePlan }, true},
		{"Plan engine odd size", func(s *Settings) { s.Engine = fft.EnginePlan; s.FFTBufferSize = 30000 }, false},
		{"Zero sample rate", func(s *Settings) { s.SampleRate = 0 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			tt.mutate(&s)
			err := s.Validate()
			if tt.ok && err != nil {
				t.Errorf("Validate() unexpected error: %v", err)
			}
			if !tt.ok && err == nil {
				t.Error("Validate() expected error, got nil")
			}
		})
	}
}

func TestZeroSettingsInvalid(t *testing.T) {
	if err := (Settings{}).Validate(); err == nil {
		t.Error("zero Settings should not validate")
	}
}

func TestSettingsDerivedSizes(t *testing.T) {
	s := DefaultSettings()
	if got := s.BlockAlign(); got != 8 {
		t.Errorf("BlockAlign() = %d, want 8 for 32-bit stereo", got)
	}
	if got := s.Bins(); got != DefaultFFTBufferSize/2+1 {
		t.Errorf("Bins() = %d, want %d", got, DefaultFFTBufferSize/2+1)
	}
	s.FFTSize = 3000
	s.FFTBufferSize = 0
	if got := s.Bins(); got != 4096/2+1 {
		t.Errorf("Bins() with auto buffer = %d, want %d", got, 4096/2+1)
	}
}
