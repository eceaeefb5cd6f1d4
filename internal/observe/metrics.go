// SPDX-License-Identifier: MIT

// Package observe provides OpenTelemetry metrics for the analyzer and a
// Prometheus bridge so they can be scraped from /metrics.
//
// Components take a *Metrics and treat a nil value as "metrics disabled";
// every Record method is nil-safe. Tests should use [NewMetrics] with a
// manual reader instead of the global provider.
package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "spectral"

type Metrics struct {
	// FrameDuration tracks the time from chunk arrival to frame emission.
	// Use with attribute.String("kind", ...).
	FrameDuration metric.Float64Histogram

	// Frames counts emitted frames by kind.
	Frames metric.Int64Counter

	// SkippedPackets counts capture packets flagged silent.
	SkippedPackets metric.Int64Counter

	// CapturedBytes counts PCM bytes handed to the pipeline.
	CapturedBytes metric.Int64Counter

	// Errors counts failures by stage ("capture", "process", "transport").
	Errors metric.Int64Counter

	// DroppedFrames counts frames a transport could not deliver.
	// Use with attribute.String("transport", ...).
	DroppedFrames metric.Int64Counter

	// ActiveWorkers is 1 while the analysis worker runs.
	ActiveWorkers metric.Int64UpDownCounter

	// ActiveClients tracks connected websocket clients.
	ActiveClients metric.Int64UpDownCounter

	// Onsets counts detected energy onsets.
	Onsets metric.Int64Counter
}

// frameBuckets (seconds) cover a single FFT of up to a few hundred thousand points.
var frameBuckets = []float64{
	0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1,
}

// NewMetrics creates every instrument on a meter from mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.FrameDuration, err = m.Float64Histogram("spectral.frame.duration",
		metric.WithDescription("Time spent turning one capture chunk into a frame."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(frameBuckets...),
	); err != nil {
		return nil, err
	}
	if met.Frames, err = m.Int64Counter("spectral.frames",
		metric.WithDescription("Total emitted frames by kind."),
	); err != nil {
		return nil, err
	}
	if met.SkippedPackets, err = m.Int64Counter("spectral.capture.skipped",
		metric.WithDescription("Capture packets skipped because they were flagged silent."),
	); err != nil {
		return nil, err
	}
	if met.CapturedBytes, err = m.Int64Counter("spectral.capture.bytes",
		metric.WithDescription("PCM bytes analyzed."),
		metric.WithUnit("By"),
	); err != nil {
		return nil, err
	}
	if met.Errors, err = m.Int64Counter("spectral.errors",
		metric.WithDescription("Errors by stage."),
	); err != nil {
		return nil, err
	}
	if met.DroppedFrames, err = m.Int64Counter("spectral.transport.dropped",
		metric.WithDescription("Frames dropped by a transport."),
	); err != nil {
		return nil, err
	}
	if met.ActiveWorkers, err = m.Int64UpDownCounter("spectral.active_workers",
		metric.WithDescription("Number of running analysis workers."),
	); err != nil {
		return nil, err
	}
	if met.ActiveClients, err = m.Int64UpDownCounter("spectral.active_clients",
		metric.WithDescription("Number of connected websocket clients."),
	); err != nil {
		return nil, err
	}
	if met.Onsets, err = m.Int64Counter("spectral.onsets",
		metric.WithDescription("Detected energy onsets."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// Attr is a convenience alias for [attribute.String].
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordFrame records one emitted frame of the given kind.
func (m *Metrics) RecordFrame(ctx context.Context, kind string, elapsed time.Duration, bytes int) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(Attr("kind", kind))
	m.FrameDuration.Record(ctx, elapsed.Seconds(), attrs)
	m.Frames.Add(ctx, 1, attrs)
	m.CapturedBytes.Add(ctx, int64(bytes))
}

// RecordSkipped counts a packet the gate flagged as silent.
func (m *Metrics) RecordSkipped(ctx context.Context) {
	if m == nil {
		return
	}
	m.SkippedPackets.Add(ctx, 1)
}

// RecordError counts a failure in stage, e.g. "capture", "process" or "recording".
func (m *Metrics) RecordError(ctx context.Context, stage string) {
	if m == nil {
		return
	}
	m.Errors.Add(ctx, 1, metric.WithAttributes(Attr("stage", stage)))
}

// RecordDropped counts a frame a transport failed to send.
func (m *Metrics) RecordDropped(ctx context.Context, transport string) {
	if m == nil {
		return
	}
	m.DroppedFrames.Add(ctx, 1, metric.WithAttributes(Attr("transport", transport)))
}

// RecordOnset counts a detected onset.
func (m *Metrics) RecordOnset(ctx context.Context) {
	if m == nil {
		return
	}
	m.Onsets.Add(ctx, 1)
}

// WorkerStarted and WorkerStopped bracket the lifetime of an analysis worker.
func (m *Metrics) WorkerStarted(ctx context.Context) {
	if m == nil {
		return
	}
	m.ActiveWorkers.Add(ctx, 1)
}

func (m *Metrics) WorkerStopped(ctx context.Context) {
	if m == nil {
		return
	}
	m.ActiveWorkers.Add(ctx, -1)
}

// ClientConnected and ClientDisconnected track websocket clients.
func (m *Metrics) ClientConnected(ctx context.Context) {
	if m == nil {
		return
	}
	m.ActiveClients.Add(ctx, 1)
}

func (m *Metrics) ClientDisconnected(ctx context.Context) {
	if m == nil {
		return
	}
	m.ActiveClients.Add(ctx, -1)
}
