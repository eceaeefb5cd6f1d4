// SPDX-License-Identifier: MIT
package analysis

import "fmt"

// ChannelSelector reduces interleaved frames to one sample per frame.
// Channel == Channels selects the mix of all channels (their mean).
type ChannelSelector struct {
	Channels int
	Channel  int
}

// MixAll reports whether the selector averages every channel.
func (c ChannelSelector) MixAll() bool {
	return c.Channel == c.Channels
}

// Select appends one sample per frame of interleaved to dst[:0]. A trailing
// partial frame fails before anything is written.
func (c ChannelSelector) Select(dst, interleaved []float64) ([]float64, error) {
	if c.Channels < 1 || c.Channel < 0 || c.Channel > c.Channels {
		return dst[:0], fmt.Errorf("invalid channel %d of %d", c.Channel, c.Channels)
	}
	if len(interleaved)%c.Channels != 0 {
		return dst[:0], fmt.Errorf("%w: %d samples for %d channels", ErrPartialFrame, len(interleaved), c.Channels)
	}

	frames := len(interleaved) / c.Channels
	if cap(dst) < frames {
		dst = make([]float64, frames)
	}
	dst = dst[:frames]

	switch {
	case c.Channels == 1:
		copy(dst, interleaved)
	case !c.MixAll():
		for i := range frames {
			dst[i] = interleaved[i*c.Channels+c.Channel]
		}
	case c.Channels == 2:
		for i := range frames {
			dst[i] = (interleaved[2*i] + interleaved[2*i+1]) / 2
		}
	default:
		inv := 1 / float64(c.Channels)
		for i := range frames {
			var sum float64
			for _, v := range interleaved[i*c.Channels : (i+1)*c.Channels] {
				sum += v
			}
			dst[i] = sum * inv
		}
	}
	return dst, nil
}
