// SPDX-License-Identifier: MIT
// Package nats publishes frames and events as JSON on NATS subjects.
package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"spectral/internal/analysis"
	"spectral/internal/log"
)

const (
	DefaultSubject    = "spectrum.frames"
	DefaultAttempts   = 5
	DefaultRetryDelay = 2 * time.Second
)

var ErrClosed = errors.New("nats publisher closed")

// Connection is the part of *nats.Conn the publisher uses.
type Connection interface {
	Publish(subject string, data []byte) error
	Close()
}

// ConnectionAdapter adapts *nats.Conn to Connection.
type ConnectionAdapter struct {
	conn *nats.Conn
}

// NewConnectionAdapter wraps an established connection.
func NewConnectionAdapter(conn *nats.Conn) *ConnectionAdapter {
	return &ConnectionAdapter{conn: conn}
}

func (a *ConnectionAdapter) Publish(subject string, data []byte) error {
	return a.conn.Publish(subject, data)
}

func (a *ConnectionAdapter) Close() {
	a.conn.Close()
}

type Options struct {
	URL string
	// Subject receives frames; events go to Subject + ".events" unless
	// EventSubject is set.
	Subject      string
	EventSubject string
	Attempts     int
	RetryDelay   time.Duration
}

func (o *Options) setDefaults() {
	if o.URL == "" {
		o.URL = nats.DefaultURL
	}
	if o.Subject == "" {
		o.Subject = DefaultSubject
	}
	if o.EventSubject == "" {
		o.EventSubject = o.Subject + ".events"
	}
	if o.Attempts <= 0 {
		o.Attempts = DefaultAttempts
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = DefaultRetryDelay
	}
}

// Publisher implements transport.Transport on top of a NATS connection.
type Publisher struct {
	conn         Connection
	subject      string
	eventSubject string

	mu     sync.Mutex
	closed bool

	log *log.Logger
}

// Connect dials opts.URL, retrying up to opts.Attempts times.
func Connect(ctx context.Context, opts Options) (*Publisher, error) {
	opts.setDefaults()
	l := log.For("transport/nats")

	var (
		nc  *nats.Conn
		err error
	)
	for attempt := 1; attempt <= opts.Attempts; attempt++ {
		nc, err = nats.Connect(opts.URL, nats.Name("spectral"))
		if err == nil {
			break
		}
		l.Warnf("failed to connect to %s (attempt %d/%d): %v", opts.URL, attempt, opts.Attempts, err)
		if attempt == opts.Attempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(opts.RetryDelay):
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS after %d attempts: %w", opts.Attempts, err)
	}

	l.Infof("connected to %s, publishing on %s", opts.URL, opts.Subject)
	return newPublisher(NewConnectionAdapter(nc), opts, l), nil
}

// NewPublisherWithConnection wraps an existing connection.
func NewPublisherWithConnection(conn Connection, opts Options) *Publisher {
	opts.setDefaults()
	return newPublisher(conn, opts, log.For("transport/nats"))
}

func newPublisher(conn Connection, opts Options, l *log.Logger) *Publisher {
	return &Publisher{
		conn:         conn,
		subject:      opts.Subject,
		eventSubject: opts.EventSubject,
		log:          l,
	}
}

// Send publishes data as JSON. Frames go to the frame subject, everything
// else to the event subject.
func (p *Publisher) Send(data any) error {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return ErrClosed
	}

	subject := p.eventSubject
	if _, ok := data.(analysis.Frame); ok {
		subject = p.subject
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode %T: %w", data, err)
	}
	if err := p.conn.Publish(subject, payload); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}
	return nil
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	p.conn.Close()
	p.log.Debugf("connection closed")
	return nil
}
