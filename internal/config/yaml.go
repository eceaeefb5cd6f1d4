// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"spectral/internal/analysis"
	"spectral/internal/capture"
	"spectral/internal/fft"
	"spectral/internal/log"
)

// DefaultPaths are searched in order when LoadConfig gets an empty path.
var DefaultPaths = []string{"config.yaml", "spectral.yaml"}

// LoadConfig loads configuration from the YAML file at path. With an empty
// path the first existing entry of DefaultPaths is used, or the built-in
// defaults when none exists. Environment overrides are applied last and the
// result is validated.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		for _, candidate := range DefaultPaths {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		log.Debugf("configuration: loaded %s", path)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks every section. All problems are reported together.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	a := c.Audio
	switch a.Source {
	case SourcePortAudio:
		if a.InputDevice < MinDeviceID {
			add("audio.input_device %d is invalid", a.InputDevice)
		}
	case SourceWAV, SourceRaw:
		if a.File == "" {
			add("audio.file must be set for the %s source", a.Source)
		}
	case SourceTone:
		if a.ToneFrequency <= 0 || a.ToneFrequency >= float64(a.SampleRate)/2 {
			add("audio.tone_frequency %g must be in (0, %d)", a.ToneFrequency, a.SampleRate/2)
		}
		if a.ToneAmplitude < 0 || a.ToneAmplitude > 1 {
			add("audio.tone_amplitude %g outside [0, 1]", a.ToneAmplitude)
		}
	default:
		add("audio.source %q is not one of portaudio, wav, tone, raw", a.Source)
	}
	if a.SampleRate < MinSampleRate || a.SampleRate > MaxSampleRate {
		add("audio.sample_rate %d outside [%d, %d]", a.SampleRate, MinSampleRate, MaxSampleRate)
	}
	if a.FramesPerBuffer < 1 || a.FramesPerBuffer > MaxBufferFrames {
		add("audio.frames_per_buffer %d outside [1, %d]", a.FramesPerBuffer, MaxBufferFrames)
	}
	if a.Channel < MixChannels || a.Channel >= a.Channels {
		add("audio.channel %d outside [-1, %d)", a.Channel, a.Channels)
	}
	if a.GateThreshold < 0 || a.GateThreshold > 1 {
		add("audio.gate_threshold %g outside [0, 1]", a.GateThreshold)
	}

	s := c.Spectrum
	if s.StopTimeout <= 0 {
		add("spectrum.stop_timeout must be positive")
	}
	if s.PollInterval <= 0 {
		add("spectrum.poll_interval must be positive")
	}
	if _, err := c.AnalysisSettings(); err != nil {
		errs = append(errs, err)
	}

	t := c.Transport
	if t.WebSocket.Enabled && t.WebSocket.Addr == "" {
		add("transport.websocket.addr must be set when the websocket transport is enabled")
	}
	if t.WebSocket.MaxRate < 0 {
		add("transport.websocket.max_rate must not be negative")
	}
	if t.UDP.Enabled {
		if !strings.Contains(t.UDP.TargetAddress, ":") {
			add("transport.udp.target_address %q appears invalid (missing port?)", t.UDP.TargetAddress)
		}
		if t.UDP.SendInterval <= 0 {
			add("transport.udp.send_interval must be positive when UDP is enabled")
		}
	}
	if t.NATS.Enabled && t.NATS.URL == "" {
		add("transport.nats.url must be set when NATS is enabled")
	}

	if c.Onset.Enabled && c.Onset.MinRatio < 1 {
		add("onset.min_ratio %g must be at least 1", c.Onset.MinRatio)
	}
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		add("metrics.addr must be set when metrics are enabled")
	}
	if c.Recording.Enabled && c.Recording.OutputDir == "" {
		add("recording.output_dir must be set when recording is enabled")
	}

	return errors.Join(errs...)
}

// CaptureFormat is the PCM layout requested from the capture source.
func (c *Config) CaptureFormat() capture.Format {
	return capture.Format{
		SampleRate: c.Audio.SampleRate,
		BitDepth:   c.Audio.BitDepth,
		Channels:   c.Audio.Channels,
	}
}

// AnalysisSettings converts the audio and spectrum sections. Frequency bounds
// go through the range-checked setters, so out-of-range values fail here.
func (c *Config) AnalysisSettings() (analysis.Settings, error) {
	return c.AnalysisSettingsFor(c.CaptureFormat())
}

// AnalysisSettingsFor is AnalysisSettings for a source whose format differs
// from the configured one, such as a WAV file.
func (c *Config) AnalysisSettingsFor(f capture.Format) (analysis.Settings, error) {
	sp := c.Spectrum
	s := analysis.DefaultSettings()
	s.SampleRate = f.SampleRate
	s.BitDepth = f.BitDepth
	s.Channels = f.Channels
	s.Channel = c.Audio.Channel
	if s.Channel == MixChannels || s.Channel >= f.Channels {
		s.Channel = f.Channels
	}
	s.FFTSize = sp.FFTSize
	s.FFTBufferSize = sp.FFTBufferSize
	s.Bands = sp.Bands
	s.Attack = sp.Attack
	s.Decay = sp.Decay
	s.UseFFT = sp.UseFFT
	s.UseLogScale = sp.UseLogScale
	s.SetSensitivity(sp.Sensitivity)

	window, err := analysis.ParseWindow(sp.Window)
	if err != nil {
		return s, fmt.Errorf("spectrum.window: %w", err)
	}
	s.Window = window
	engine, err := fft.ParseEngine(sp.Engine)
	if err != nil {
		return s, fmt.Errorf("spectrum.engine: %w", err)
	}
	s.Engine = engine

	// Lower the minimum first so a range above the default maximum can be set.
	if err := s.SetFreqMin(analysis.MinFrequency); err != nil {
		return s, err
	}
	if err := s.SetFreqMax(sp.FreqMax); err != nil {
		return s, fmt.Errorf("spectrum.freq_max: %w", err)
	}
	if err := s.SetFreqMin(sp.FreqMin); err != nil {
		return s, fmt.Errorf("spectrum.freq_min: %w", err)
	}

	if err := s.Validate(); err != nil {
		return s, fmt.Errorf("spectrum: %w", err)
	}
	return s, nil
}

// applyEnvOverrides applies ENV_* variables on top of the file values.
// Unparseable values are ignored with a warning.
func (c *Config) applyEnvOverrides() {
	// ENV_{...}
	// General overrides.
	envBool("ENV_DEBUG", &c.Debug)
	envString("ENV_LOG_LEVEL", &c.LogLevel)

	// ENV_AUDIO_{...}
	envString("ENV_AUDIO_SOURCE", &c.Audio.Source)
	envInt("ENV_AUDIO_DEVICE", &c.Audio.InputDevice)
	envString("ENV_AUDIO_FILE", &c.Audio.File)
	envInt("ENV_AUDIO_SAMPLE_RATE", &c.Audio.SampleRate)

	// ENV_SPECTRUM_{...}
	envInt("ENV_SPECTRUM_BANDS", &c.Spectrum.Bands)
	envString("ENV_SPECTRUM_ENGINE", &c.Spectrum.Engine)

	// ENV_WS_{...}, ENV_UDP_{...}, ENV_NATS_{...}
	// Transport layer.
	envBool("ENV_WS_ENABLED", &c.Transport.WebSocket.Enabled)
	envString("ENV_WS_ADDR", &c.Transport.WebSocket.Addr)
	envBool("ENV_UDP_ENABLED", &c.Transport.UDP.Enabled)
	envString("ENV_UDP_TARGET_ADDRESS", &c.Transport.UDP.TargetAddress)
	envDuration("ENV_UDP_SEND_INTERVAL", &c.Transport.UDP.SendInterval)
	envBool("ENV_NATS_ENABLED", &c.Transport.NATS.Enabled)
	envString("ENV_NATS_URL", &c.Transport.NATS.URL)

	// ENV_METRICS_{...}
	envBool("ENV_METRICS_ENABLED", &c.Metrics.Enabled)
	envString("ENV_METRICS_ADDR", &c.Metrics.Addr)
}

func envString(key string, dst *string) {
	if val, ok := os.LookupEnv(key); ok {
		*dst = val
		log.Infof("configuration: overriding from %s: %s", key, val)
	}
}

func envBool(key string, dst *bool) {
	envParse(key, dst, strconv.ParseBool)
}

func envInt(key string, dst *int) {
	envParse(key, dst, strconv.Atoi)
}

func envDuration(key string, dst *time.Duration) {
	envParse(key, dst, time.ParseDuration)
}

func envParse[T any](key string, dst *T, parse func(string) (T, error)) {
	val, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	v, err := parse(val)
	if err != nil {
		log.Warnf("configuration: ignoring %s=%q: %v", key, val, err)
		return
	}
	*dst = v
	log.Infof("configuration: overriding from %s: %v", key, v)
}
