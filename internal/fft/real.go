// SPDX-License-Identifier: MIT
package fft

import "gonum.org/v1/gonum/dsp/fourier"

// RealTransform uses gonum's real-input FFT. Compute does not allocate.
type RealTransform struct {
	size   int
	fft    *fourier.FFT
	coeffs []complex128
	split  splitter
}

var _ Transform = (*RealTransform)(nil)

// NewReal plans a transform of size samples. size must be even.
func NewReal(size int) (*RealTransform, error) {
	if err := EngineReal.CheckSize(size); err != nil {
		return nil, err
	}
	bins := size/2 + 1
	return &RealTransform{
		size:   size,
		fft:    fourier.NewFFT(size),
		coeffs: make([]complex128, bins),
		split:  newSplitter(bins),
	}, nil
}

// Compute writes the size/2+1 magnitudes of src into dst.
func (t *RealTransform) Compute(dst, src []float64) error {
	if err := checkLengths(dst, src, t.size); err != nil {
		return err
	}
	t.fft.Coefficients(t.coeffs, src)
	t.split.magnitude(dst, t.coeffs)
	return nil
}

// Size is the input length.
func (t *RealTransform) Size() int { return t.size }

// Bins is the output length.
func (t *RealTransform) Bins() int { return t.size/2 + 1 }
