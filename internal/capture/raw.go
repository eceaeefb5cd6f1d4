// SPDX-License-Identifier: MIT
package capture

import (
	"fmt"
	"io"
)

// RawSource reads headerless interleaved PCM from a reader, for example a
// `parec --raw` pipe on stdin.
type RawSource struct {
	packets
	r io.Reader
}

var _ Source = (*RawSource)(nil)

// NewRawSource reads framesPerBuffer frames per packet from r.
func NewRawSource(r io.Reader, format Format, framesPerBuffer int) (*RawSource, error) {
	if err := format.Validate(); err != nil {
		return nil, err
	}
	if framesPerBuffer < 1 {
		return nil, fmt.Errorf("invalid frames per buffer %d", framesPerBuffer)
	}
	s := &RawSource{r: r}
	s.init(format, framesPerBuffer, s.read)
	return s, nil
}

func (s *RawSource) read(dst []byte) (int, error) {
	return readFrames(s.r, dst, s.format.BlockAlign())
}

// Close marks the source closed and closes the reader when it is an io.Closer.
func (s *RawSource) Close() error {
	if s.markClosed() {
		return nil
	}
	if c, ok := s.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
