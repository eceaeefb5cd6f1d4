// SPDX-License-Identifier: MIT
package capture

import (
	"encoding/binary"
	"math"
	"time"
)

// pacer delays delivery so that frames leave no faster than the sample rate.
type pacer struct {
	sampleRate int
	start      time.Time
	frames     int64

	now   func() time.Time
	sleep func(time.Duration)
}

func newPacer(sampleRate int) *pacer {
	return &pacer{sampleRate: sampleRate, now: time.Now, sleep: time.Sleep}
}

// wait blocks until the frames already delivered are due, then accounts for
// the next frames.
func (p *pacer) wait(frames int) {
	if p.start.IsZero() {
		p.start = p.now()
	}
	due := p.start.Add(time.Duration(p.frames) * time.Second / time.Duration(p.sampleRate))
	if d := due.Sub(p.now()); d > 0 {
		p.sleep(d)
	}
	p.frames += int64(frames)
}

// putSample stores v, nominally in [-1, 1], at dst in the given PCM encoding.
func putSample(dst []byte, v float64, bitDepth int) {
	switch bitDepth {
	case 16:
		v = math.Max(-1, math.Min(1, v))
		binary.LittleEndian.PutUint16(dst, uint16(int16(math.Round(v*math.MaxInt16))))
	case 32:
		binary.LittleEndian.PutUint32(dst, math.Float32bits(float32(v)))
	}
}
