// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"sync"
)

// FrameStore keeps the most recent frame for readers that poll on their own
// schedule, such as interval publishers and the terminal view.
type FrameStore struct {
	mu     sync.RWMutex
	latest Frame
	ok     bool
}

var _ FrameSink = (*FrameStore)(nil)

// NewFrameStore returns an empty store; Latest reports false until the first Publish.
func NewFrameStore() *FrameStore { return &FrameStore{} }

func (s *FrameStore) Publish(f Frame) {
	s.mu.Lock()
	s.latest = f
	s.ok = true
	s.mu.Unlock()
}

// Latest returns the newest frame and whether one has been published yet.
// Frame values are immutable, so the result can be used without copying.
func (s *FrameStore) Latest() (Frame, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest, s.ok
}

// LatestInto copies the newest values into dst and returns the frame header.
// dst must be at least as long as the frame.
func (s *FrameStore) LatestInto(dst []float64) (Frame, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.ok {
		return Frame{}, fmt.Errorf("no frame available")
	}
	if len(dst) < s.latest.Count {
		return Frame{}, fmt.Errorf("destination length %d shorter than frame length %d", len(dst), s.latest.Count)
	}
	copy(dst, s.latest.Values)
	meta := s.latest
	meta.Values = nil
	return meta, nil
}
