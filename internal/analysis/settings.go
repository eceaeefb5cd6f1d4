// SPDX-License-Identifier: MIT
package analysis

import (
	"errors"
	"fmt"
	"math"

	"spectral/internal/fft"
	"spectral/pkg/bitint"
)

// Frequency bounds accepted by SetFreqMin and SetFreqMax.
const (
	MinFrequency = 20.0
	MaxFrequency = 20000.0
)

// Defaults applied by DefaultSettings.
const (
	DefaultSampleRate    = 48000
	DefaultBitDepth      = 32
	DefaultChannels      = 2
	DefaultFFTSize       = 8192
	DefaultFFTBufferSize = 32768
	DefaultSensitivity   = 50.0
)

var ErrInvalidSettings = errors.New("invalid analysis settings")

// RangeError is returned when a frequency bound is assigned a value outside
// [MinFrequency, MaxFrequency]. The previous value is kept.
type RangeError struct {
	Field string
	Value float64
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%s %g Hz out of range: must be between %gHz and %gHz",
		e.Field, e.Value, MinFrequency, MaxFrequency)
}

// Settings describes the input format and analysis parameters of a Pipeline.
// A Pipeline copies its Settings on construction, so changes made afterwards
// only take effect on the next Start.
type Settings struct {
	SampleRate int // Hz
	BitDepth   int // 16 (signed int) or 32 (float)
	Channels   int
	// Channel is the zero-based channel to analyze; Channel == Channels mixes all channels.
	Channel int

	FFTSize       int // analysis window length, also the ring capacity
	FFTBufferSize int // zero-padded transform length, >= FFTSize; 0 picks the next power of two
	Bands         int // 0 emits the full magnitude spectrum

	Attack float64 // ms
	Decay  float64 // ms

	Window      WindowType
	Engine      fft.Engine
	UseFFT      bool
	UseLogScale bool

	freqMin     float64
	freqMax     float64
	sensitivity float64 // 10 / max(1, raw)
}

// DefaultSettings returns stereo-mixed 32-bit float analysis of the full
// audible range with a Hamming window.
func DefaultSettings() Settings {
	s := Settings{
		SampleRate:    DefaultSampleRate,
		BitDepth:      DefaultBitDepth,
		Channels:      DefaultChannels,
		Channel:       DefaultChannels,
		FFTSize:       DefaultFFTSize,
		FFTBufferSize: DefaultFFTBufferSize,
		Window:        WindowHamming,
		Engine:        fft.EngineReal,
		UseFFT:        true,
		UseLogScale:   true,
		freqMin:       MinFrequency,
		freqMax:       MaxFrequency,
	}
	s.SetSensitivity(DefaultSensitivity)
	return s
}

// SetFreqMin sets the lowest analyzed frequency. A value outside
// [MinFrequency, MaxFrequency] returns a *RangeError and keeps the old bound.
func (s *Settings) SetFreqMin(hz float64) error {
	if !inAudibleRange(hz) {
		return &RangeError{Field: "FreqMin", Value: hz}
	}
	s.freqMin = hz
	return nil
}

// SetFreqMax is SetFreqMin for the upper bound.
func (s *Settings) SetFreqMax(hz float64) error {
	if !inAudibleRange(hz) {
		return &RangeError{Field: "FreqMax", Value: hz}
	}
	s.freqMax = hz
	return nil
}

// FreqMin and FreqMax return the analyzed range in Hz.
func (s Settings) FreqMin() float64 { return s.freqMin }
func (s Settings) FreqMax() float64 { return s.freqMax }

// SetSensitivity sets the log-compression gain. Values below 1 are treated as 1.
func (s *Settings) SetSensitivity(v float64) {
	s.sensitivity = 10 / math.Max(1, v)
}

// Sensitivity returns the value observed through SetSensitivity, i.e. max(1, v).
func (s Settings) Sensitivity() float64 {
	if s.sensitivity == 0 {
		return 0
	}
	return 10 / s.sensitivity
}

// BlockAlign is the size in bytes of one interleaved frame.
func (s Settings) BlockAlign() int {
	return s.Channels * s.BitDepth / 8
}

// Bins is the number of magnitudes in a full-spectrum frame.
func (s Settings) Bins() int {
	return s.bufferSize()/2 + 1
}

func (s Settings) bufferSize() int {
	if s.FFTBufferSize == 0 {
		return bitint.NextPowerOfTwo(s.FFTSize)
	}
	return s.FFTBufferSize
}

// Validate checks the cross-field constraints a Pipeline relies on.
func (s Settings) Validate() error {
	if s.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate must be positive, got %d", ErrInvalidSettings, s.SampleRate)
	}
	if _, err := SampleWidth(s.BitDepth); err != nil {
		return err
	}
	if s.Channels < 1 {
		return fmt.Errorf("%w: channels must be at least 1, got %d", ErrInvalidSettings, s.Channels)
	}
	if s.Channel < 0 || s.Channel > s.Channels {
		return fmt.Errorf("%w: channel %d outside [0, %d]", ErrInvalidSettings, s.Channel, s.Channels)
	}
	if s.FFTSize < 1 {
		return fmt.Errorf("%w: fft size must be positive, got %d", ErrInvalidSettings, s.FFTSize)
	}
	if n := s.bufferSize(); n < s.FFTSize {
		return fmt.Errorf("%w: fft buffer size %d smaller than fft size %d", ErrInvalidSettings, n, s.FFTSize)
	}
	if !inAudibleRange(s.freqMin) || !inAudibleRange(s.freqMax) {
		return fmt.Errorf("%w: frequency range [%g, %g] not set", ErrInvalidSettings, s.freqMin, s.freqMax)
	}
	if s.freqMin >= s.freqMax {
		return fmt.Errorf("%w: min frequency %g must be below max frequency %g", ErrInvalidSettings, s.freqMin, s.freqMax)
	}
	if s.sensitivity <= 0 {
		return fmt.Errorf("%w: sensitivity not set", ErrInvalidSettings)
	}
	if s.Attack < 0 || s.Decay < 0 {
		return fmt.Errorf("%w: attack and decay must be non-negative", ErrInvalidSettings)
	}
	if s.Bands < 0 {
		return fmt.Errorf("%w: bands must be non-negative, got %d", ErrInvalidSettings, s.Bands)
	}
	if !s.UseFFT && s.Bands == 0 {
		return fmt.Errorf("%w: linear averaging needs at least one band", ErrInvalidSettings)
	}
	if s.UseFFT {
		if err := s.Engine.CheckSize(s.bufferSize()); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidSettings, err)
		}
	}
	return nil
}

func inAudibleRange(hz float64) bool {
	return hz >= MinFrequency && hz <= MaxFrequency
}
