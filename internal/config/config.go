// SPDX-License-Identifier: MIT
package config

import "time"

// Capture source names accepted in audio.source.
const (
	SourcePortAudio = "portaudio"
	SourceWAV       = "wav"
	SourceTone      = "tone"
	SourceRaw       = "raw"
)

// Hardware and processing limits.
const (
	MinDeviceID     = -1     // -1 is the system default input device
	MinSampleRate   = 8000   // Hz
	MaxSampleRate   = 192000 // Hz
	MaxBufferFrames = 8192

	// MixChannels in audio.channel averages every channel.
	MixChannels = -1
)

// Config is the application configuration, loaded from YAML.
type Config struct {
	Debug     bool            `yaml:"debug"`     // Forces debug logging.
	LogLevel  string          `yaml:"log_level"` // debug, info, warn, error.
	Audio     AudioConfig     `yaml:"audio"`
	Spectrum  SpectrumConfig  `yaml:"spectrum"`
	Recording RecordingConfig `yaml:"recording"`
	Transport TransportConfig `yaml:"transport"`
	Onset     OnsetConfig     `yaml:"onset"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	TUI       TUIConfig       `yaml:"tui"`
}

// AudioConfig selects the capture source and its PCM format.
type AudioConfig struct {
	Source          string  `yaml:"source"`            // portaudio, wav, tone or raw.
	InputDevice     int     `yaml:"input_device"`      // PortAudio device index (-1 for default).
	File            string  `yaml:"file"`              // WAV path, or raw PCM path ("-" for stdin).
	SampleRate      int     `yaml:"sample_rate"`       // Hz. Ignored for WAV files, which carry their own.
	BitDepth        int     `yaml:"bit_depth"`         // 16 or 32.
	Channels        int     `yaml:"channels"`          // Interleaved channels delivered by the source.
	Channel         int     `yaml:"channel"`           // Channel to analyze, -1 mixes all.
	FramesPerBuffer int     `yaml:"frames_per_buffer"` // Frames per capture packet.
	LowLatency      bool    `yaml:"low_latency"`       // Request low latency from PortAudio.
	GateThreshold   float64 `yaml:"gate_threshold"`    // Peak in [0, 1] below which packets are skipped, 0 disables.
	Loop            bool    `yaml:"loop"`              // Restart WAV files at the end.
	Realtime        bool    `yaml:"realtime"`          // Pace file and tone sources at the sample rate.
	ToneFrequency   float64 `yaml:"tone_frequency"`    // Hz.
	ToneAmplitude   float64 `yaml:"tone_amplitude"`    // Full scale is 1.
}

// SpectrumConfig maps onto analysis.Settings.
type SpectrumConfig struct {
	FFTSize       int           `yaml:"fft_size"`
	FFTBufferSize int           `yaml:"fft_buffer_size"` // 0 picks the next power of two.
	Bands         int           `yaml:"bands"`           // 0 emits the full spectrum.
	FreqMin       float64       `yaml:"freq_min"`
	FreqMax       float64       `yaml:"freq_max"`
	Sensitivity   float64       `yaml:"sensitivity"`
	Attack        float64       `yaml:"attack_ms"`
	Decay         float64       `yaml:"decay_ms"`
	Window        string        `yaml:"window"`
	Engine        string        `yaml:"engine"` // real, complex or plan.
	UseFFT        bool          `yaml:"use_fft"`
	UseLogScale   bool          `yaml:"use_log_scale"`
	StopTimeout   time.Duration `yaml:"stop_timeout"`
	PollInterval  time.Duration `yaml:"poll_interval"`
}

// RecordingConfig tees captured PCM to a WAV file.
type RecordingConfig struct {
	Enabled   bool   `yaml:"enabled"`
	OutputDir string `yaml:"output_dir"`
	Filename  string `yaml:"filename"` // Generated from the start time when empty.
}

type TransportConfig struct {
	WebSocket WebSocketConfig `yaml:"websocket"`
	UDP       UDPConfig       `yaml:"udp"`
	NATS      NATSConfig      `yaml:"nats"`
	Logging   bool            `yaml:"logging"` // Log a summary of every frame at debug level.
}

type WebSocketConfig struct {
	Enabled bool    `yaml:"enabled"`
	Addr    string  `yaml:"addr"`
	Path    string  `yaml:"path"`
	MaxRate float64 `yaml:"max_rate"` // Broadcasts per second, 0 for unlimited.
}

type UDPConfig struct {
	Enabled       bool          `yaml:"enabled"`
	TargetAddress string        `yaml:"target_address"`
	SendInterval  time.Duration `yaml:"send_interval"`
}

type NATSConfig struct {
	Enabled    bool          `yaml:"enabled"`
	URL        string        `yaml:"url"`
	Subject    string        `yaml:"subject"`
	Attempts   int           `yaml:"attempts"`
	RetryDelay time.Duration `yaml:"retry_delay"`
}

// OnsetConfig drives the energy onset detector.
type OnsetConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Threshold float64       `yaml:"threshold"`
	MinRatio  float64       `yaml:"min_ratio"`
	Cooldown  time.Duration `yaml:"cooldown"`
}

// MetricsConfig exposes Prometheus metrics over HTTP.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Path    string `yaml:"path"`
}

type TUIConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Default returns the built-in configuration: a stereo 32-bit PortAudio
// capture analyzed into 64 log bands with only the websocket transport on.
func Default() Config {
	return Config{
		LogLevel: "info",
		Audio: AudioConfig{
			Source:          SourcePortAudio,
			InputDevice:     MinDeviceID,
			SampleRate:      48000,
			BitDepth:        32,
			Channels:        2,
			Channel:         MixChannels,
			FramesPerBuffer: 512,
			ToneFrequency:   440,
			ToneAmplitude:   0.5,
			Realtime:        true,
		},
		Spectrum: SpectrumConfig{
			FFTSize:       8192,
			FFTBufferSize: 32768,
			Bands:         64,
			FreqMin:       20,
			FreqMax:       20000,
			Sensitivity:   50,
			Attack:        50,
			Decay:         300,
			Window:        "hamming",
			Engine:        "real",
			UseFFT:        true,
			UseLogScale:   true,
			StopTimeout:   100 * time.Millisecond,
			PollInterval:  time.Millisecond,
		},
		Recording: RecordingConfig{
			OutputDir: "./recordings",
		},
		Transport: TransportConfig{
			WebSocket: WebSocketConfig{
				Enabled: true,
				Addr:    "127.0.0.1:8080",
				Path:    "/ws",
				MaxRate: 60,
			},
			UDP: UDPConfig{
				TargetAddress: "127.0.0.1:9090",
				SendInterval:  33 * time.Millisecond, // ~30Hz
			},
			NATS: NATSConfig{
				URL:        "nats://127.0.0.1:4222",
				Subject:    "spectrum.frames",
				Attempts:   5,
				RetryDelay: 2 * time.Second,
			},
		},
		Onset: OnsetConfig{
			Threshold: 0.1,
			MinRatio:  1.5,
			Cooldown:  150 * time.Millisecond,
		},
		Metrics: MetricsConfig{
			Addr: "127.0.0.1:9464",
			Path: "/metrics",
		},
	}
}
