// SPDX-License-Identifier: MIT
package analysis

import "time"

// FrameKind tells consumers how to read Frame.Values.
type FrameKind string

const (
	KindSpectrum FrameKind = "spectrum" // magnitudes of bins 0..FFTBufferSize/2
	KindBands    FrameKind = "bands"    // log-spaced bands in [0, 1]
	KindLinear   FrameKind = "linear"   // time-domain averages in [0, 1]
)

// Frame is one analysis result. Values is never shared with the pipeline's
// scratch buffers; consumers must treat it as read-only since the same Frame
// is handed to every sink.
type Frame struct {
	Values    []float64 `json:"values"`
	Count     int       `json:"count"`
	ElapsedMs float64   `json:"elapsed_ms"`
	Sequence  uint64    `json:"sequence"`
	Timestamp time.Time `json:"timestamp"`
	Kind      FrameKind `json:"kind"`
}
