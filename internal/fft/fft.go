// SPDX-License-Identifier: MIT
//
// Package fft provides the interchangeable spectrum transforms used by the
// analysis pipeline. Every engine consumes a real, already windowed and
// normalized block of samples and produces the magnitude of bins 0..N/2.
//
// Three engines are available:
//   - EngineReal uses gonum's real-input FFT (the default).
//   - EngineComplex uses go-dsp's general FFT and accepts any length.
//   - EnginePlan uses a precomputed algo-fft plan, power-of-two sizes only.
//
// Engines own their scratch buffers, so a Transform must not be shared
// between goroutines.
package fft

import (
	"errors"
	"fmt"
	"strings"

	"spectral/pkg/bitint"
)

// Engine selects a Transform implementation.
type Engine int

const (
	EngineReal Engine = iota
	EngineComplex
	EnginePlan
)

var (
	// ErrInvalidSize is returned when a transform cannot be built for the requested size.
	ErrInvalidSize = errors.New("fft: invalid transform size")

	// ErrBufferLength is returned by Compute when src or dst have the wrong length.
	ErrBufferLength = errors.New("fft: buffer length mismatch")
)

// Transform computes a magnitude spectrum from a real input block.
type Transform interface {
	// Compute writes |X[k]| for k in [0, Bins()) into dst. len(src) must equal Size().
	Compute(dst, src []float64) error
	// Size is the number of input samples per transform.
	Size() int
	// Bins is the number of output magnitudes, Size()/2 + 1.
	Bins() int
}

func (e Engine) String() string {
	switch e {
	case EngineReal:
		return "real"
	case EngineComplex:
		return "complex"
	case EnginePlan:
		return "plan"
	default:
		return fmt.Sprintf("Engine(%d)", int(e))
	}
}

// ParseEngine converts a case-insensitive engine name to an Engine.
func ParseEngine(name string) (Engine, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "real", "gonum", "kiss":
		return EngineReal, nil
	case "complex", "dsp", "go-dsp":
		return EngineComplex, nil
	case "plan", "algo", "algo-fft":
		return EnginePlan, nil
	default:
		return EngineReal, fmt.Errorf("unknown fft engine %q", name)
	}
}

// CheckSize reports whether the engine can transform blocks of n samples.
func (e Engine) CheckSize(n int) error {
	if n < 2 {
		return fmt.Errorf("%w: %d", ErrInvalidSize, n)
	}
	switch e {
	case EngineReal, EngineComplex:
		if n%2 != 0 {
			return fmt.Errorf("%w: %s engine needs an even size, got %d", ErrInvalidSize, e, n)
		}
	case EnginePlan:
		if !bitint.IsPowerOfTwo(n) {
			return fmt.Errorf("%w: %s engine needs a power of two, got %d", ErrInvalidSize, e, n)
		}
	default:
		return fmt.Errorf("unknown fft engine %d", int(e))
	}
	return nil
}

// New builds a Transform of the given engine for blocks of size samples.
func New(engine Engine, size int) (Transform, error) {
	if err := engine.CheckSize(size); err != nil {
		return nil, err
	}
	switch engine {
	case EngineComplex:
		return NewComplex(size)
	case EnginePlan:
		return NewPlan(size)
	default:
		return NewReal(size)
	}
}

// BinFrequency returns the center frequency in Hz of bin i for a transform of size samples.
func BinFrequency(i int, sampleRate float64, size int) float64 {
	if i < 0 || size <= 0 || i > size/2 {
		return 0
	}
	return float64(i) * sampleRate / float64(size)
}

func checkLengths(dst, src []float64, size int) error {
	if len(src) != size {
		return fmt.Errorf("%w: src has %d samples, want %d", ErrBufferLength, len(src), size)
	}
	if len(dst) < size/2+1 {
		return fmt.Errorf("%w: dst has %d bins, want %d", ErrBufferLength, len(dst), size/2+1)
	}
	return nil
}
