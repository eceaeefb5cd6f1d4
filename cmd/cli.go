// SPDX-License-Identifier: MIT
// Package cmd defines the command line interface.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"spectral/internal/analysis"
	"spectral/internal/app"
	"spectral/internal/audio"
	"spectral/internal/config"
	"spectral/internal/fft"
	"spectral/internal/log"
	"spectral/internal/tui"
	"spectral/pkg/build"
)

// options are flag values layered on top of the configuration file.
type options struct {
	configPath string
	logFile    string
	verbose    bool
	duration   time.Duration

	source          string
	file            string
	deviceID        int
	channels        int
	sampleRate      int
	framesPerBuffer int
	lowLatency      bool

	bands  int
	engine string
	tui    bool

	record bool
	output string

	wsAddr    string
	udpTarget string
	natsURL   string
	metrics   string
}

// NewRootCommand builds the command tree. ctx is cancelled on SIGINT/SIGTERM.
func NewRootCommand(ctx context.Context, stdout io.Writer) *cobra.Command {
	rootCmd, _ := newRootCommand(ctx, stdout)
	return rootCmd
}

func newRootCommand(ctx context.Context, stdout io.Writer) (*cobra.Command, *options) {
	buildInfo := build.GetBuildFlags()
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         build.Description,
		Version:       buildInfo.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			return app.Run(ctx, cfg, app.Options{
				Stdin:    cmd.InOrStdin(),
				Duration: opts.duration,
				RecordTo: opts.output,
			})
		},
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "f", "", "Configuration file (default: ./config.yaml if present)")
	flags.StringVar(&opts.logFile, "log-file", "", "Write logs to this file instead of stderr")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Show verbose output")

	// Capture
	flags.StringVar(&opts.source, "source", config.SourcePortAudio, "Capture source: portaudio, wav, tone or raw")
	flags.StringVar(&opts.file, "file", "", "WAV file, or raw PCM file ('-' for stdin)")
	flags.IntVarP(&opts.deviceID, "device", "d", config.MinDeviceID,
		"Specify input device ID. Use 'devices' command to see available devices.")
	flags.IntVarP(&opts.channels, "channels", "c", 2, "Number of channels to capture (1=mono, 2=stereo)")
	flags.IntVarP(&opts.sampleRate, "sample-rate", "s", 48000, "Sample rate, measured in Hertz (Hz)")
	flags.IntVarP(&opts.framesPerBuffer, "frames-per-buffer", "b", 512, "The number of frames per buffer (affects latency)")
	flags.BoolVarP(&opts.lowLatency, "low-latency", "l", false, "Use low latency mode for real-time processing")

	// Analysis and output
	flags.IntVarP(&opts.bands, "bands", "n", 64, "Number of log bands, 0 for the full spectrum")
	flags.StringVar(&opts.engine, "engine", "real", "FFT engine: real, complex or plan")
	rootCmd.Flags().BoolVarP(&opts.tui, "tui", "t", false, "Show the spectrum in the terminal")
	rootCmd.Flags().DurationVar(&opts.duration, "duration", 0, "Stop after this long (0 runs until interrupted)")
	rootCmd.Flags().BoolVarP(&opts.record, "record", "r", false, "Record captured audio to a WAV file")
	rootCmd.Flags().StringVarP(&opts.output, "output", "o", "",
		"Recording file name. Default is recording-DD-MM-YYYY-HHMMSS.wav")
	rootCmd.Flags().StringVar(&opts.wsAddr, "ws", "", "Serve frames over websocket on this address")
	rootCmd.Flags().StringVar(&opts.udpTarget, "udp", "", "Send frames as UDP packets to host:port")
	rootCmd.Flags().StringVar(&opts.natsURL, "nats", "", "Publish frames to this NATS server")
	rootCmd.Flags().StringVar(&opts.metrics, "metrics", "", "Serve Prometheus metrics on this address")

	rootCmd.AddCommand(
		newDevicesCommand(),
		newBandsCommand(opts),
		newVersionCommand(),
	)
	return rootCmd, opts
}

// Execute runs the CLI with args.
func Execute(ctx context.Context, args []string) error {
	rootCmd := NewRootCommand(ctx, os.Stdout)
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}

func newDevicesCommand() *cobra.Command {
	var interactive bool
	c := &cobra.Command{
		Use:     "devices",
		Aliases: []string{"list"},
		Short:   "List available audio devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := audio.Initialize(); err != nil {
				return err
			}
			defer audio.Terminate()

			if !interactive {
				return audio.ListDevices(cmd.OutOrStdout())
			}
			sel, err := tui.PickDevice(audio.HostDevices)
			if err != nil || sel == nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "--device %d --sample-rate %.0f  # %s\n", sel.DeviceID, sel.SampleRate, sel.DeviceName)
			return nil
		},
	}
	c.Flags().BoolVarP(&interactive, "interactive", "i", false, "Pick a device and sample rate interactively")
	return c
}

func newBandsCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "bands",
		Short: "Print the log band table for the current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			s, err := cfg.AnalysisSettings()
			if err != nil {
				return err
			}
			p, err := analysis.NewPipeline(s, nil)
			if err != nil {
				return err
			}
			return printBands(cmd.OutOrStdout(), s, p.BandEdges())
		},
	}
}

func printBands(w io.Writer, s analysis.Settings, edges []float64) error {
	if len(edges) == 0 {
		size := 2 * (s.Bins() - 1)
		_, err := fmt.Fprintf(w, "No log bands: %d bins of %.2f Hz\n", s.Bins(), fft.BinFrequency(1, float64(s.SampleRate), size))
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "band\tfrom Hz\tto Hz\t")
	lower := s.FreqMin()
	for i, upper := range edges {
		fmt.Fprintf(tw, "%d\t%.1f\t%.1f\t\n", i, lower, upper)
		lower = upper
	}
	return tw.Flush()
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), build.GetBuildFlags())
		},
	}
}

// loadConfig reads the configuration file and applies the flags the user set
// explicitly. It also configures logging.
func loadConfig(cmd *cobra.Command, opts *options) (*config.Config, error) {
	cfg, err := config.LoadConfig(opts.configPath)
	if err != nil {
		return nil, err
	}

	set := func(name string) bool {
		f := cmd.Flags().Lookup(name)
		return f != nil && f.Changed
	}
	if set("source") {
		cfg.Audio.Source = opts.source
	}
	if set("file") {
		cfg.Audio.File = opts.file
		if !set("source") && cfg.Audio.Source == config.SourcePortAudio {
			cfg.Audio.Source = config.SourceWAV
			if opts.file == "-" {
				cfg.Audio.Source = config.SourceRaw
			}
		}
	}
	if set("device") {
		cfg.Audio.InputDevice = opts.deviceID
	}
	if set("channels") {
		cfg.Audio.Channels = opts.channels
		if cfg.Audio.Channel >= opts.channels {
			cfg.Audio.Channel = config.MixChannels
		}
	}
	if set("sample-rate") {
		cfg.Audio.SampleRate = opts.sampleRate
	}
	if set("frames-per-buffer") {
		cfg.Audio.FramesPerBuffer = opts.framesPerBuffer
	}
	if set("low-latency") {
		cfg.Audio.LowLatency = opts.lowLatency
	}
	if set("bands") {
		cfg.Spectrum.Bands = opts.bands
	}
	if set("engine") {
		cfg.Spectrum.Engine = opts.engine
	}
	if set("tui") {
		cfg.TUI.Enabled = opts.tui
	}
	if set("record") {
		cfg.Recording.Enabled = opts.record
	}
	if set("output") {
		cfg.Recording.Enabled = true
	}
	if set("ws") {
		cfg.Transport.WebSocket.Enabled = true
		cfg.Transport.WebSocket.Addr = opts.wsAddr
	}
	if set("udp") {
		cfg.Transport.UDP.Enabled = true
		cfg.Transport.UDP.TargetAddress = opts.udpTarget
	}
	if set("nats") {
		cfg.Transport.NATS.Enabled = true
		cfg.Transport.NATS.URL = opts.natsURL
	}
	if set("metrics") {
		cfg.Metrics.Enabled = true
		cfg.Metrics.Addr = opts.metrics
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := configureLogging(cfg, opts); err != nil {
		return nil, err
	}
	return cfg, nil
}

func configureLogging(cfg *config.Config, opts *options) error {
	log.Configure(cfg.LogLevel, opts.verbose || cfg.Debug)
	switch {
	case opts.logFile != "":
		f, err := os.OpenFile(opts.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		log.SetOutput(f)
	case cfg.TUI.Enabled:
		// The terminal belongs to the spectrum view.
		log.SetOutput(io.Discard)
	}
	return nil
}
