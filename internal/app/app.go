// SPDX-License-Identifier: MIT
// Package app assembles a capture source, the analysis engine and the
// configured frame consumers, and runs them until the context ends.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"spectral/internal/analysis"
	"spectral/internal/audio"
	"spectral/internal/config"
	"spectral/internal/log"
	"spectral/internal/observe"
	"spectral/internal/transport"
	natstransport "spectral/internal/transport/nats"
	"spectral/internal/transport/udp"
	"spectral/internal/tui"
	"spectral/pkg/build"
)

var logger = log.For("app")

const shutdownTimeout = 2 * time.Second

// Options carry runtime inputs that are not part of the configuration file.
type Options struct {
	// Stdin feeds the raw source when audio.file is "-".
	Stdin io.Reader
	// Duration stops the run after this long. Zero runs until the context
	// ends or a finite source is exhausted.
	Duration time.Duration
	// RecordTo overrides the generated recording file name.
	RecordTo string
}

// App owns every component of one run.
type App struct {
	cfg     *config.Config
	opts    Options
	engine  *audio.Engine
	store   *analysis.FrameStore
	onsets  *analysis.OnsetDetector
	events  *transport.Multi
	closers []io.Closer

	provider   *observe.Provider
	metrics    *observe.Metrics
	metricsSrv *http.Server
	metricsLn  net.Listener

	websocket *transport.WebSocketTransport
	udp       *udp.Publisher
	frames    tui.FrameChannel

	releaseSource func()
}

// New opens the capture source, creates the transports and builds the
// engine. Nothing runs until Run. On error everything opened so far is
// closed.
func New(ctx context.Context, cfg *config.Config, opts Options) (a *App, err error) {
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	a = &App{
		cfg:           cfg,
		opts:          opts,
		store:         analysis.NewFrameStore(),
		events:        transport.NewMulti(),
		releaseSource: func() {},
	}
	defer func() {
		if err != nil {
			err = errors.Join(err, a.Close())
			a = nil
		}
	}()

	if err := a.initMetrics(ctx); err != nil {
		return a, err
	}

	src, release, err := openSource(cfg, opts.Stdin)
	if err != nil {
		return a, fmt.Errorf("failed to open %s source: %w", cfg.Audio.Source, err)
	}
	a.releaseSource = release

	settings, err := cfg.AnalysisSettingsFor(src.Format())
	if err != nil {
		_ = src.Close()
		return a, err
	}

	sinks, err := a.initSinks(ctx, settings)
	if err != nil {
		_ = src.Close()
		return a, err
	}

	a.engine, err = audio.NewEngine(settings,
		audio.WithSource(src),
		audio.WithSinks(sinks...),
		audio.WithMetrics(a.metrics),
		audio.WithStopTimeout(cfg.Spectrum.StopTimeout),
		audio.WithPollInterval(cfg.Spectrum.PollInterval),
	)
	if err != nil {
		_ = src.Close()
		return a, err
	}
	return a, nil
}

func (a *App) initMetrics(ctx context.Context) error {
	mc := a.cfg.Metrics
	if !mc.Enabled {
		return nil
	}
	p, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    build.GetBuildFlags().Name,
		ServiceVersion: build.GetBuildFlags().Version,
	})
	if err != nil {
		return fmt.Errorf("failed to init metrics provider: %w", err)
	}
	a.provider = p
	if a.metrics, err = observe.NewMetrics(p.MeterProvider); err != nil {
		return fmt.Errorf("failed to create metrics: %w", err)
	}

	ln, err := net.Listen("tcp", mc.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen for metrics on %s: %w", mc.Addr, err)
	}
	mux := http.NewServeMux()
	mux.Handle(mc.Path, p.Handler())
	a.metricsLn = ln
	a.metricsSrv = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	return nil
}

// initSinks creates every configured consumer. The frame store is always
// first so interval publishers see a frame before any network sink runs.
func (a *App) initSinks(ctx context.Context, s analysis.Settings) ([]analysis.FrameSink, error) {
	tc := a.cfg.Transport
	sinks := []analysis.FrameSink{a.store}

	if tc.Logging {
		lt := transport.NewLoggingTransport()
		a.closers = append(a.closers, lt)
		a.events.Add(lt)
		sinks = append(sinks, transport.NewSink("logging", lt, a.metrics))
	}

	if tc.WebSocket.Enabled {
		a.websocket = transport.NewWebSocketTransport(transport.WebSocketOptions{
			Addr:    tc.WebSocket.Addr,
			Path:    tc.WebSocket.Path,
			MaxRate: tc.WebSocket.MaxRate,
			Metrics: a.metrics,
		})
		a.closers = append(a.closers, a.websocket)
		if err := a.websocket.Start(); err != nil {
			return nil, err
		}
		a.events.Add(a.websocket)
		sinks = append(sinks, transport.NewSink("websocket", a.websocket, a.metrics))
	}

	if tc.NATS.Enabled {
		np, err := natstransport.Connect(ctx, natstransport.Options{
			URL:        tc.NATS.URL,
			Subject:    tc.NATS.Subject,
			Attempts:   tc.NATS.Attempts,
			RetryDelay: tc.NATS.RetryDelay,
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, np)
		a.events.Add(np)
		sinks = append(sinks, transport.NewSink("nats", np, a.metrics))
	}

	if tc.UDP.Enabled {
		sender, err := udp.NewUDPSender(tc.UDP.TargetAddress)
		if err != nil {
			return nil, err
		}
		a.udp, err = udp.NewPublisher(tc.UDP.SendInterval, sender, a.store, min(s.Bins(), udp.MaxValues), a.metrics)
		if err != nil {
			_ = sender.Close()
			return nil, err
		}
		a.closers = append(a.closers, a.udp)
	}

	if a.cfg.Onset.Enabled {
		oc := a.cfg.Onset
		a.onsets = analysis.NewOnsetDetector(oc.Threshold, oc.MinRatio, oc.Cooldown, a.events)
		sinks = append(sinks, &onsetSink{detector: a.onsets, metrics: a.metrics})
	}

	if a.cfg.TUI.Enabled {
		a.frames = tui.NewFrameChannel(4)
		sinks = append(sinks, a.frames)
	}
	return sinks, nil
}

// onsetSink counts detections in the onset metric.
type onsetSink struct {
	detector *analysis.OnsetDetector
	metrics  *observe.Metrics
}

func (o *onsetSink) Publish(f analysis.Frame) {
	before := o.detector.Count()
	o.detector.Publish(f)
	if o.detector.Count() > before {
		o.metrics.RecordOnset(context.Background())
	}
}

// Engine exposes the analysis engine, mainly for tests and one-off commands.
func (a *App) Engine() *audio.Engine { return a.engine }

// Run starts the worker and every background component and blocks until ctx
// ends, the source is exhausted, the terminal view quits or a component
// fails.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if a.opts.Duration > 0 {
		ctx, cancel = context.WithTimeout(ctx, a.opts.Duration)
		defer cancel()
	}

	if a.cfg.Recording.Enabled {
		if err := a.startRecording(); err != nil {
			return err
		}
	}
	if err := a.engine.Start(); err != nil {
		return fmt.Errorf("failed to start engine: %w", err)
	}
	if a.udp != nil {
		a.udp.Start()
	}

	g, gctx := errgroup.WithContext(ctx)

	workerDone := a.engine.Done()
	g.Go(func() error {
		select {
		case <-gctx.Done():
			return nil
		case <-workerDone:
			cancel()
			return a.engine.Err()
		}
	})

	if a.metricsSrv != nil {
		g.Go(func() error {
			logger.Infof("serving metrics on http://%s%s", a.metricsLn.Addr(), a.cfg.Metrics.Path)
			if err := a.metricsSrv.Serve(a.metricsLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			sctx, scancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer scancel()
			return a.metricsSrv.Shutdown(sctx)
		})
	}

	if a.frames != nil {
		g.Go(func() error {
			defer cancel()
			s := a.engine.Settings()
			header := fmt.Sprintf("%s • %d Hz • fft %d • %s", build.GetBuildFlags().Name, s.SampleRate, s.FFTSize, s.Window)
			return tui.RunSpectrum(gctx, a.frames, header, a.engine.BandFrequencies())
		})
	}

	err := g.Wait()
	a.engine.Stop()
	logger.Infof("emitted %d frames", a.engine.Sequence())
	if a.onsets != nil {
		logger.Infof("detected %d onsets", a.onsets.Count())
	}
	return err
}

func (a *App) startRecording() error {
	rc := a.cfg.Recording
	if err := os.MkdirAll(rc.OutputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create recording directory: %w", err)
	}
	name := a.opts.RecordTo
	if name == "" {
		name = rc.Filename
	}
	if name == "" {
		name = "recording-" + time.Now().UTC().Format("02-01-2006-150405") + ".wav"
	}
	return a.engine.StartRecording(filepath.Join(rc.OutputDir, name))
}

// Close releases everything New opened, in reverse order of creation.
func (a *App) Close() error {
	var errs []error
	if a.udp != nil {
		// Stop polling before the engine goes away.
		errs = append(errs, a.udp.Stop())
	}
	if a.engine != nil {
		errs = append(errs, a.engine.Close())
	}
	a.releaseSource()
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i].Close())
	}
	if a.metricsLn != nil && a.metricsSrv != nil {
		_ = a.metricsLn.Close()
	}
	if a.provider != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		errs = append(errs, a.provider.Shutdown(ctx))
	}
	return errors.Join(errs...)
}

// Run builds an App from cfg, runs it and closes it.
func Run(ctx context.Context, cfg *config.Config, opts Options) error {
	a, err := New(ctx, cfg, opts)
	if err != nil {
		return err
	}
	return errors.Join(a.Run(ctx), a.Close())
}
