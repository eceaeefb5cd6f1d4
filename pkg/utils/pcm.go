// SPDX-License-Identifier: MIT
package utils

import (
	"encoding/binary"
	"math"
)

// PCM16 encodes samples in [-1, 1] as 16-bit little-endian signed integers
// scaled by 32767. Values outside the range are clipped.
func PCM16(samples []float64) []byte {
	out := make([]byte, 2*len(samples))
	for i, v := range samples {
		v = math.Max(-1, math.Min(1, v))
		binary.LittleEndian.PutUint16(out[2*i:], uint16(int16(math.Round(v*32767))))
	}
	return out
}

// Float32LE encodes samples as 32-bit little-endian IEEE floats.
func Float32LE(samples []float64) []byte {
	out := make([]byte, 4*len(samples))
	for i, v := range samples {
		binary.LittleEndian.PutUint32(out[4*i:], math.Float32bits(float32(v)))
	}
	return out
}

// PCM16Raw encodes raw integer sample values without scaling.
func PCM16Raw(values ...int16) []byte {
	out := make([]byte, 2*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint16(out[2*i:], uint16(v))
	}
	return out
}
