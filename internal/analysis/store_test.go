// SPDX-License-Identifier: MIT
package analysis

import (
	"sync"
	"testing"
)

func TestFrameStoreEmpty(t *testing.T) {
	s := NewFrameStore()
	if _, ok := s.Latest(); ok {
		t.Error("empty store reported a frame")
	}
	if _, err := s.LatestInto(make([]float64, 8)); err == nil {
		t.Error("LatestInto on empty store should fail")
	}
}

func TestFrameStoreLatestInto(t *testing.T) {
	s := NewFrameStore()
	s.Publish(Frame{Values: []float64{1, 2}, Count: 2, Sequence: 1})
	s.Publish(Frame{Values: []float64{3, 4, 5}, Count: 3, Sequence: 2})

	f, ok := s.Latest()
	if !ok || f.Sequence != 2 {
		t.Fatalf("Latest() = %+v, %v", f, ok)
	}

	if _, err := s.LatestInto(make([]float64, 2)); err == nil {
		t.Error("short destination should fail")
	}
	dst := make([]float64, 4)
	meta, err := s.LatestInto(dst)
	if err != nil {
		t.Fatal(err)
	}
	if meta.Values != nil || meta.Count != 3 || meta.Sequence != 2 {
		t.Errorf("header = %+v", meta)
	}
	if dst[0] != 3 || dst[2] != 5 || dst[3] != 0 {
		t.Errorf("dst = %v", dst)
	}
}

func TestFrameStoreConcurrentAccess(t *testing.T) {
	s := NewFrameStore()
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := range 1000 {
			s.Publish(Frame{Values: []float64{float64(i)}, Count: 1, Sequence: uint64(i + 1)})
		}
	}()
	go func() {
		defer wg.Done()
		dst := make([]float64, 1)
		for range 1000 {
			_, _ = s.LatestInto(dst)
		}
	}()
	wg.Wait()

	if f, _ := s.Latest(); f.Sequence != 1000 {
		t.Errorf("final sequence = %d, want 1000", f.Sequence)
	}
}
