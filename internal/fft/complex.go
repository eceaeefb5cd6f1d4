// SPDX-License-Identifier: MIT
package fft

import dspfft "github.com/mjibson/go-dsp/fft"

// ComplexTransform runs go-dsp's general complex FFT over the real input.
// It handles any even length (Bluestein for non powers of two) but
// allocates its output on every call.
type ComplexTransform struct {
	size  int
	split splitter
}

var _ Transform = (*ComplexTransform)(nil)

// NewComplex accepts any even size.
func NewComplex(size int) (*ComplexTransform, error) {
	if err := EngineComplex.CheckSize(size); err != nil {
		return nil, err
	}
	return &ComplexTransform{size: size, split: newSplitter(size/2 + 1)}, nil
}

// Compute writes the size/2+1 magnitudes of src into dst.
func (t *ComplexTransform) Compute(dst, src []float64) error {
	if err := checkLengths(dst, src, t.size); err != nil {
		return err
	}
	out := dspfft.FFTReal(src)
	t.split.magnitude(dst, out[:t.size/2+1])
	return nil
}

func (t *ComplexTransform) Size() int { return t.size }

func (t *ComplexTransform) Bins() int { return t.size/2 + 1 }
