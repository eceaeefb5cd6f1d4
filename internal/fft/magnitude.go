// SPDX-License-Identifier: MIT
package fft

import "github.com/cwbudde/algo-vecmath"

// splitter holds the real/imaginary scratch used to feed the vectorized magnitude kernel.
type splitter struct {
	re []float64
	im []float64
}

func newSplitter(bins int) splitter {
	return splitter{re: make([]float64, bins), im: make([]float64, bins)}
}

// magnitude writes |c[k]| into dst for every k in c.
func (s *splitter) magnitude(dst []float64, c []complex128) {
	n := len(c)
	re, im := s.re[:n], s.im[:n]
	for i, v := range c {
		re[i] = real(v)
		im[i] = imag(v)
	}
	vecmath.Magnitude(dst[:n], re, im)
}
