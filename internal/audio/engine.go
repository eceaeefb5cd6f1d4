// SPDX-License-Identifier: MIT
/*
Package audio runs the analysis worker and owns the host audio devices.

An Engine pulls packets from a capture.Source on one goroutine and feeds them
through an analysis.Pipeline:

	Start   stop any previous worker, rebuild the pipeline, launch the worker
	worker  poll NextPacketSize, GetBuffer, record, Process, ReleaseBuffer
	Stop    cancel, wait up to StopTimeout, abandon the worker on timeout

Thread Safety:
  - Settings change only while stopped (Configure returns ErrRunning)
  - Process may be called from any goroutine; pipeline access is serialized
  - Pre-allocated pipeline buffers keep the per-packet path allocation free
    apart from the emitted frame
*/
package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"spectral/internal/analysis"
	"spectral/internal/capture"
	"spectral/internal/log"
	"spectral/internal/observe"
)

const (
	DefaultStopTimeout  = 100 * time.Millisecond
	DefaultPollInterval = time.Millisecond
)

var (
	ErrRunning        = errors.New("engine is running")
	ErrNoSource       = errors.New("engine has no capture source")
	ErrFormatMismatch = errors.New("capture format does not match analysis settings")
)

type Option func(*Engine)

// WithSource sets the capture source the worker pulls from. Without one the
// engine only analyzes data passed to Process.
func WithSource(src capture.Source) Option {
	return func(e *Engine) { e.source = src }
}

// WithSinks registers frame consumers. They are fixed for the engine's lifetime.
func WithSinks(sinks ...analysis.FrameSink) Option {
	return func(e *Engine) { e.sinks = append(e.sinks, sinks...) }
}

// WithMetrics records frame, error and worker metrics. nil disables them.
func WithMetrics(m *observe.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithStopTimeout bounds how long Stop waits for the worker. Non-positive values are ignored.
func WithStopTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.stopTimeout = d
		}
	}
}

// WithPollInterval sets the back-off after an empty packet.
func WithPollInterval(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.pollInterval = d
		}
	}
}

type Engine struct {
	// Lifecycle: Start, Stop, Configure and Close run one at a time.
	lifecycle sync.Mutex

	mu       sync.Mutex
	settings analysis.Settings
	cancel   context.CancelFunc
	done     chan struct{}
	err      error // terminal error of the last worker

	source   capture.Source
	sinks    []analysis.FrameSink
	emitter  *analysis.Emitter
	metrics  *observe.Metrics
	recorder *Recorder

	stopTimeout  time.Duration
	pollInterval time.Duration

	// pmu serializes the worker and Process on the current pipeline.
	pmu      sync.Mutex
	pipeline *analysis.Pipeline

	log *log.Logger
}

// NewEngine validates s and builds the first pipeline. The frame sequence
// continues across restarts because the emitter lives as long as the engine.
func NewEngine(s analysis.Settings, opts ...Option) (*Engine, error) {
	e := &Engine{
		settings:     s,
		stopTimeout:  DefaultStopTimeout,
		pollInterval: DefaultPollInterval,
		log:          log.For("engine"),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.emitter = analysis.NewEmitter(e.sinks...)

	if err := e.checkFormat(s); err != nil {
		return nil, err
	}
	p, err := analysis.NewPipeline(s, e.emitter)
	if err != nil {
		return nil, err
	}
	e.pipeline = p
	e.recorder = NewRecorder(formatOf(s))
	return e, nil
}

func formatOf(s analysis.Settings) capture.Format {
	return capture.Format{SampleRate: s.SampleRate, BitDepth: s.BitDepth, Channels: s.Channels}
}

func (e *Engine) checkFormat(s analysis.Settings) error {
	if e.source == nil {
		return nil
	}
	if got, want := e.source.Format(), formatOf(s); got != want {
		return fmt.Errorf("%w: source delivers %s, settings expect %s", ErrFormatMismatch, got, want)
	}
	return nil
}

// Settings returns the settings the next Start will use.
func (e *Engine) Settings() analysis.Settings {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.settings
}

// Configure replaces the settings. It fails with ErrRunning while the worker
// runs and leaves the current settings untouched when s is invalid.
func (e *Engine) Configure(s analysis.Settings) error {
	e.lifecycle.Lock()
	defer e.lifecycle.Unlock()

	if e.Running() {
		return ErrRunning
	}
	if err := e.checkFormat(s); err != nil {
		return err
	}
	p, err := analysis.NewPipeline(s, e.emitter)
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.settings = s
	e.mu.Unlock()

	e.pmu.Lock()
	e.pipeline = p
	e.pmu.Unlock()

	if !e.recorder.Recording() {
		e.recorder = NewRecorder(formatOf(s))
	}
	return nil
}

// Running reports whether a worker is active.
func (e *Engine) Running() bool {
	e.mu.Lock()
	done := e.done
	e.mu.Unlock()
	if done == nil {
		return false
	}
	select {
	case <-done:
		return false
	default:
		return true
	}
}

// Done is closed when the current worker exits, either after Stop or when the
// source is exhausted. Without a worker the returned channel is already closed.
func (e *Engine) Done() <-chan struct{} {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.done == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return e.done
}

// Err returns the error that ended the last worker, if any. Exhausting a
// finite source is not an error.
func (e *Engine) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}

// Start stops any running worker, rebuilds every pipeline table from the
// current settings and launches a new worker.
func (e *Engine) Start() error {
	e.lifecycle.Lock()
	defer e.lifecycle.Unlock()

	e.stop()
	if e.source == nil {
		return ErrNoSource
	}

	e.mu.Lock()
	s := e.settings
	e.mu.Unlock()

	p, err := analysis.NewPipeline(s, e.emitter)
	if err != nil {
		return err
	}
	if err := e.source.Clear(); err != nil {
		return fmt.Errorf("failed to clear capture source: %w", err)
	}

	e.pmu.Lock()
	e.pipeline = p
	e.pmu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	e.mu.Lock()
	e.cancel, e.done, e.err = cancel, done, nil
	e.mu.Unlock()

	e.log.Infof("starting worker: %s, %s frames, fft %d/%d, %d bands",
		formatOf(s), p.Kind(), s.FFTSize, p.Settings().FFTBufferSize, s.Bands)
	go e.run(ctx, p, done)
	return nil
}

// Stop cancels the worker and waits up to the stop timeout for it to exit.
// A worker that does not exit in time is abandoned.
func (e *Engine) Stop() {
	e.lifecycle.Lock()
	defer e.lifecycle.Unlock()
	e.stop()
}

func (e *Engine) stop() {
	e.mu.Lock()
	cancel, done := e.cancel, e.done
	e.cancel = nil
	e.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()

	timer := time.NewTimer(e.stopTimeout)
	defer timer.Stop()
	select {
	case <-done:
	case <-timer.C:
		e.log.Warnf("worker did not stop within %s, abandoning it", e.stopTimeout)
	}

	e.mu.Lock()
	if e.done == done {
		e.done = nil
	}
	e.mu.Unlock()
}

// Close stops the worker, finishes any recording and closes the source.
func (e *Engine) Close() error {
	e.lifecycle.Lock()
	defer e.lifecycle.Unlock()

	e.stop()
	var errs []error
	if err := e.recorder.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("stop recording: %w", err))
	}
	if e.source != nil {
		if err := e.source.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close capture source: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Process analyzes the first count bytes of buf on the caller's goroutine and
// emits one frame. count == 0 is a no-op.
func (e *Engine) Process(buf []byte, count int) error {
	e.pmu.Lock()
	defer e.pmu.Unlock()
	return e.pipeline.Process(buf, count)
}

// ProcessAt analyzes count bytes of buf starting at offset.
func (e *Engine) ProcessAt(buf []byte, offset, count int) error {
	if offset < 0 || offset > len(buf) {
		return fmt.Errorf("%w: offset %d with %d bytes available", analysis.ErrShortBuffer, offset, len(buf))
	}
	return e.Process(buf[offset:], count)
}

// BandFrequencies returns the upper edge in Hz of every log band of the
// current pipeline, or nil when it emits full spectra or linear averages.
func (e *Engine) BandFrequencies() []float64 {
	e.pmu.Lock()
	defer e.pmu.Unlock()
	return e.pipeline.BandEdges()
}

// Sequence returns the number of frames emitted since the engine was created.
func (e *Engine) Sequence() uint64 {
	e.pmu.Lock()
	defer e.pmu.Unlock()
	return e.emitter.Sequence()
}

// StartRecording tees every captured packet, silent ones included, into a WAV file.
func (e *Engine) StartRecording(filename string) error {
	if err := e.recorder.Start(filename); err != nil {
		return err
	}
	e.log.Infof("recording to %s", filename)
	return nil
}

// StopRecording finalizes the WAV file. It is a no-op when not recording.
func (e *Engine) StopRecording() error {
	return e.recorder.Stop()
}

func (e *Engine) run(ctx context.Context, p *analysis.Pipeline, done chan struct{}) {
	defer close(done)

	mctx := context.Background()
	e.metrics.WorkerStarted(mctx)
	defer e.metrics.WorkerStopped(mctx)
	defer e.clearSource()

	blockAlign := p.Settings().BlockAlign()
	kind := string(p.Kind())

	for ctx.Err() == nil {
		n, err := e.source.NextPacketSize()
		switch {
		case errors.Is(err, io.EOF):
			e.log.Infof("capture source exhausted")
			return
		case errors.Is(err, capture.ErrClosed):
			return
		case err != nil:
			e.fail(mctx, fmt.Errorf("failed to read packet size: %w", err))
			return
		}

		if n == 0 {
			if !sleepCtx(ctx, e.pollInterval) {
				return
			}
			continue
		}

		if err := e.consume(mctx, p, blockAlign, kind); err != nil {
			e.fail(mctx, err)
			return
		}
	}
}

// clearSource drops a packet left pending when the worker exits.
func (e *Engine) clearSource() {
	if err := e.source.Clear(); err != nil {
		e.log.Warnf("clearing capture source: %v", err)
	}
}

// consume handles one packet. A packet is always released once fetched; one
// whose bytes do not cover its declared frames is released unanalyzed.
func (e *Engine) consume(ctx context.Context, p *analysis.Pipeline, blockAlign int, kind string) error {
	data, frames, flags, err := e.source.GetBuffer()
	if err != nil {
		return fmt.Errorf("failed to get capture buffer: %w", err)
	}
	count := frames * blockAlign
	if count > len(data) {
		e.log.Errorf("skipping packet: %v", fmt.Errorf("%d frames need %d bytes, got %d: %w",
			frames, count, len(data), analysis.ErrShortBuffer))
		e.metrics.RecordError(ctx, "process")
		return e.release(frames)
	}

	if err := e.recorder.Write(data[:count]); err != nil {
		e.log.Warnf("recording: %v", err)
		e.metrics.RecordError(ctx, "recording")
	}

	if flags.Silent() {
		e.metrics.RecordSkipped(ctx)
	} else {
		start := time.Now()
		e.pmu.Lock()
		err := p.Process(data, count)
		e.pmu.Unlock()
		if err != nil {
			e.log.Errorf("processing %d bytes: %v", count, err)
			e.metrics.RecordError(ctx, "process")
		} else {
			e.metrics.RecordFrame(ctx, kind, time.Since(start), count)
			e.log.Debugf("frame from %d frames in %s", frames, time.Since(start))
		}
	}

	return e.release(frames)
}

func (e *Engine) release(frames int) error {
	if err := e.source.ReleaseBuffer(frames); err != nil {
		return fmt.Errorf("failed to release capture buffer: %w", err)
	}
	return nil
}

func (e *Engine) fail(ctx context.Context, err error) {
	e.log.Errorf("worker stopped: %v", err)
	e.metrics.RecordError(ctx, "capture")
	e.mu.Lock()
	e.err = err
	e.mu.Unlock()
}

// sleepCtx waits for d and reports false if ctx ended first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
