// SPDX-License-Identifier: MIT
package analysis

import "time"

// FrameSink receives every emitted frame on the analysis goroutine.
// Implementations must return quickly; slow consumers should hand off to
// their own goroutine.
type FrameSink interface {
	Publish(f Frame)
}

// FrameSinkFunc adapts a function to FrameSink.
type FrameSinkFunc func(f Frame)

func (fn FrameSinkFunc) Publish(f Frame) { fn(f) }

// Emitter stamps frames and fans them out to the sinks registered at construction.
type Emitter struct {
	sinks []FrameSink
	seq   uint64
	now   func() time.Time
}

// NewEmitter drops nil sinks. The sequence starts at zero, so the first frame is 1.
func NewEmitter(sinks ...FrameSink) *Emitter {
	kept := make([]FrameSink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			kept = append(kept, s)
		}
	}
	return &Emitter{sinks: kept, now: time.Now}
}

// Emit copies values into a new frame and publishes it. The returned frame
// is the one the sinks received.
func (e *Emitter) Emit(kind FrameKind, values []float64, elapsed time.Duration) Frame {
	e.seq++
	out := make([]float64, len(values))
	copy(out, values)
	f := Frame{
		Values:    out,
		Count:     len(out),
		ElapsedMs: float64(elapsed) / float64(time.Millisecond),
		Sequence:  e.seq,
		Timestamp: e.now(),
		Kind:      kind,
	}
	for _, s := range e.sinks {
		s.Publish(f)
	}
	return f
}

// Sequence returns the number of frames emitted so far.
func (e *Emitter) Sequence() uint64 { return e.seq }
