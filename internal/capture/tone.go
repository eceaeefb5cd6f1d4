// SPDX-License-Identifier: MIT
package capture

import (
	"fmt"
	"math"
)

// ToneSource synthesizes an endless sine wave, identical on every channel.
type ToneSource struct {
	packets

	freq      float64
	amplitude float64
	phase     float64
	pace      *pacer
}

var _ Source = (*ToneSource)(nil)

// NewToneSource returns a generator of freq Hz at amplitude (0..1 of full
// scale). With realtime set, packets are delivered no faster than the sample
// rate.
func NewToneSource(format Format, framesPerBuffer int, freq, amplitude float64, realtime bool) (*ToneSource, error) {
	if err := format.Validate(); err != nil {
		return nil, err
	}
	if framesPerBuffer < 1 {
		return nil, fmt.Errorf("invalid frames per buffer %d", framesPerBuffer)
	}
	if freq <= 0 || freq >= float64(format.SampleRate)/2 {
		return nil, fmt.Errorf("tone frequency %.1f Hz outside (0, %d)", freq, format.SampleRate/2)
	}

	s := &ToneSource{freq: freq, amplitude: amplitude}
	if realtime {
		s.pace = newPacer(format.SampleRate)
	}
	s.init(format, framesPerBuffer, s.generate)
	return s, nil
}

func (s *ToneSource) generate(dst []byte) (int, error) {
	width := s.format.BitDepth / 8
	frames := len(dst) / s.format.BlockAlign()
	if s.pace != nil {
		s.pace.wait(frames)
	}

	step := 2 * math.Pi * s.freq / float64(s.format.SampleRate)
	off := 0
	for range frames {
		v := s.amplitude * math.Sin(s.phase)
		for range s.format.Channels {
			putSample(dst[off:], v, s.format.BitDepth)
			off += width
		}
		s.phase = math.Mod(s.phase+step, 2*math.Pi)
	}
	return off, nil
}

func (s *ToneSource) Close() error {
	s.markClosed()
	return nil
}
