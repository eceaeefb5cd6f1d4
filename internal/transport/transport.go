// SPDX-License-Identifier: MIT
// Package transport delivers analysis frames and events to consumers outside
// the process.
package transport

import (
	"context"
	"errors"
	"sync"

	"spectral/internal/analysis"
	"spectral/internal/log"
	"spectral/internal/observe"
)

var ErrClosed = errors.New("transport closed")

// Transport defines a generic interface for sending processed data or events.
// Implementations must be safe for concurrent use.
type Transport interface {
	Send(data any) error
	Close() error
}

// Sink forwards every frame to a Transport. Failed sends are counted as
// dropped frames and never block the analysis goroutine beyond Send itself.
type Sink struct {
	name    string
	t       Transport
	metrics *observe.Metrics
	log     *log.Logger
}

var _ analysis.FrameSink = (*Sink)(nil)

// NewSink uses name for the logger and the dropped-frame metric.
func NewSink(name string, t Transport, m *observe.Metrics) *Sink {
	return &Sink{name: name, t: t, metrics: m, log: log.For(name)}
}

func (s *Sink) Publish(f analysis.Frame) {
	if err := s.t.Send(f); err != nil {
		s.log.Debugf("dropping frame %d: %v", f.Sequence, err)
		s.metrics.RecordDropped(context.Background(), s.name)
	}
}

// Multi fans Send out to several transports. Errors from individual
// transports are joined; a failing transport does not stop the others.
type Multi struct {
	mu         sync.Mutex
	transports []Transport
}

var _ Transport = (*Multi)(nil)

// NewMulti skips nil transports.
func NewMulti(ts ...Transport) *Multi {
	m := &Multi{}
	for _, t := range ts {
		m.Add(t)
	}
	return m
}

// Add appends t. A nil t is ignored.
func (m *Multi) Add(t Transport) {
	if t == nil {
		return
	}
	m.mu.Lock()
	m.transports = append(m.transports, t)
	m.mu.Unlock()
}

func (m *Multi) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.transports)
}

// Send delivers data to every transport and joins their errors.
func (m *Multi) Send(data any) error {
	m.mu.Lock()
	ts := m.transports
	m.mu.Unlock()

	var errs []error
	for _, t := range ts {
		if err := t.Send(data); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every transport in reverse registration order.
func (m *Multi) Close() error {
	m.mu.Lock()
	ts := m.transports
	m.transports = nil
	m.mu.Unlock()

	var errs []error
	for i := len(ts) - 1; i >= 0; i-- {
		if err := ts[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
