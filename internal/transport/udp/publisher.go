// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"spectral/internal/analysis"
	"spectral/internal/log"
	"spectral/internal/observe"
)

// DefaultInterval is used when NewPublisher gets a non-positive interval.
const DefaultInterval = 16 * time.Millisecond

// FrameSource is what the publisher polls. analysis.FrameStore satisfies it.
type FrameSource interface {
	LatestInto(dst []float64) (analysis.Frame, error)
}

// Publisher polls a FrameSource on a ticker and sends every new frame as one
// datagram. A frame already sent is not repeated when the analysis worker is
// slower than the ticker.
type Publisher struct {
	sender   PacketSender
	source   FrameSource
	interval time.Duration
	metrics  *observe.Metrics

	mu       sync.Mutex // protects ticker and doneChan during Start/Stop
	ticker   *time.Ticker
	doneChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	lastSeq uint64

	// Reused on every tick.
	values []float64
	f32    []float32
	packet *bytes.Buffer

	log *log.Logger
}

// NewPublisher allocates buffers for frames of up to maxValues values.
func NewPublisher(interval time.Duration, sender PacketSender, source FrameSource, maxValues int, m *observe.Metrics) (*Publisher, error) {
	if sender == nil {
		return nil, errors.New("udp publisher: sender cannot be nil")
	}
	if source == nil {
		return nil, errors.New("udp publisher: frame source cannot be nil")
	}
	if maxValues <= 0 || maxValues > MaxValues {
		return nil, fmt.Errorf("udp publisher: value capacity %d outside (0, %d]", maxValues, MaxValues)
	}

	l := log.For("transport/udp")
	if interval <= 0 {
		interval = DefaultInterval
		l.Warnf("invalid interval, defaulting to %s", interval)
	}
	l.Infof("publisher interval %s, up to %d values", interval, maxValues)

	return &Publisher{
		sender:   sender,
		source:   source,
		interval: interval,
		metrics:  m,
		values:   make([]float64, maxValues),
		f32:      make([]float32, maxValues),
		packet:   new(bytes.Buffer),
		log:      l,
	}, nil
}

// Start launches the publishing goroutine. Calling it while running is a no-op.
func (p *Publisher) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		p.log.Warnf("start called while running")
		return
	}
	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	p.stopOnce = sync.Once{}
	ticker, done := p.ticker, p.doneChan
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for {
			select {
			case <-ticker.C:
				p.publish()
			case <-done:
				return
			}
		}
	}()
}

// Stop signals the goroutine and waits for it. Safe to call repeatedly.
func (p *Publisher) Stop() error {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		return nil
	}
	p.stopOnce.Do(func() {
		close(p.doneChan)
		p.ticker.Stop()
		p.ticker = nil
	})
	p.mu.Unlock()

	p.wg.Wait()
	p.log.Debugf("publisher stopped")
	return nil
}

// publish sends the latest frame if it has not been sent yet. It reports
// whether a packet went out.
func (p *Publisher) publish() bool {
	f, err := p.source.LatestInto(p.values)
	if err != nil {
		p.log.Debugf("no frame: %v", err)
		return false
	}
	if f.Sequence == p.lastSeq {
		return false
	}
	p.lastSeq = f.Sequence

	vals := p.f32[:f.Count]
	for i, v := range p.values[:f.Count] {
		vals[i] = float32(v)
	}
	err = writePacket(p.packet, Packet{
		Sequence:  uint32(f.Sequence),
		Timestamp: f.Timestamp.UnixNano(),
		ElapsedMs: float32(f.ElapsedMs),
		Values:    vals,
	})
	if err != nil {
		p.log.Errorf("packing frame %d: %v", f.Sequence, err)
		return false
	}

	if err := p.sender.Send(p.packet.Bytes()); err != nil {
		p.log.Debugf("sending frame %d: %v", f.Sequence, err)
		p.metrics.RecordDropped(context.Background(), "udp")
		return false
	}
	p.log.Debugf("sent frame %d (%d bytes)", f.Sequence, p.packet.Len())
	return true
}

// Close stops publishing and closes the sender.
func (p *Publisher) Close() error {
	return errors.Join(p.Stop(), p.sender.Close())
}
