// SPDX-License-Identifier: MIT
package analysis

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// floatScale maps normalized float samples onto the 16-bit integer range so
// both bit depths share one amplitude scale downstream.
const floatScale = 32767.0

var (
	ErrUnsupportedBitDepth = errors.New("unsupported bit depth")
	ErrShortBuffer         = errors.New("buffer too short")
	ErrPartialFrame        = errors.New("partial sample frame")
)

// SampleWidth returns the number of bytes per sample for bitDepth.
func SampleWidth(bitDepth int) (int, error) {
	switch bitDepth {
	case 16:
		return 2, nil
	case 32:
		return 4, nil
	default:
		return 0, fmt.Errorf("%w: %d", ErrUnsupportedBitDepth, bitDepth)
	}
}

// Decode converts little-endian PCM bytes to float samples: 16-bit signed
// integers keep their integer value, 32-bit floats are scaled by 32767.
func Decode(buf []byte, bitDepth int) ([]float64, error) {
	return DecodeInto(nil, buf, bitDepth)
}

// DecodeInto appends the decoded samples to dst[:0] and returns the result.
func DecodeInto(dst []float64, buf []byte, bitDepth int) ([]float64, error) {
	width, err := SampleWidth(bitDepth)
	if err != nil {
		return dst[:0], err
	}
	if len(buf)%width != 0 {
		return dst[:0], fmt.Errorf("%w: %d bytes is not a multiple of %d", ErrShortBuffer, len(buf), width)
	}

	n := len(buf) / width
	if cap(dst) < n {
		dst = make([]float64, n)
	}
	dst = dst[:n]

	switch width {
	case 2:
		for i := range n {
			dst[i] = float64(int16(binary.LittleEndian.Uint16(buf[2*i:])))
		}
	case 4:
		for i := range n {
			dst[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))) * floatScale
		}
	}
	return dst, nil
}
