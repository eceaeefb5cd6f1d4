// SPDX-License-Identifier: MIT
package app

import (
	"fmt"
	"io"
	"os"

	"spectral/internal/audio"
	"spectral/internal/capture"
	"spectral/internal/config"
)

// openSource builds the capture source named in the audio section and wraps
// it in a noise gate when a threshold is configured. The returned release
// func undoes any global setup (PortAudio) and must run after the source is
// closed.
func openSource(cfg *config.Config, stdin io.Reader) (capture.Source, func(), error) {
	a := cfg.Audio
	format := cfg.CaptureFormat()
	release := func() {}

	var (
		src capture.Source
		err error
	)
	switch a.Source {
	case config.SourcePortAudio:
		src, release, err = openPortAudio(a, format)
	case config.SourceWAV:
		src, err = capture.OpenWAV(a.File, capture.WAVOptions{
			FramesPerBuffer: a.FramesPerBuffer,
			Loop:            a.Loop,
			Realtime:        a.Realtime,
		})
	case config.SourceTone:
		src, err = capture.NewToneSource(format, a.FramesPerBuffer, a.ToneFrequency, a.ToneAmplitude, a.Realtime)
	case config.SourceRaw:
		src, err = openRaw(a, format, stdin)
	default:
		err = fmt.Errorf("unknown capture source %q", a.Source)
	}
	if err != nil {
		release()
		return nil, nil, err
	}

	if a.GateThreshold > 0 {
		src = capture.NewGate(src, a.GateThreshold)
	}
	return src, release, nil
}

func openPortAudio(a config.AudioConfig, format capture.Format) (capture.Source, func(), error) {
	if err := audio.Initialize(); err != nil {
		return nil, func() {}, err
	}
	release := func() {
		if err := audio.Terminate(); err != nil {
			logger.Warnf("%v", err)
		}
	}

	device, err := audio.InputDevice(a.InputDevice)
	if err != nil {
		return nil, release, err
	}
	src, err := capture.OpenPortAudio(device, format, capture.PortAudioOptions{
		FramesPerBuffer: a.FramesPerBuffer,
		LowLatency:      a.LowLatency,
	})
	if err != nil {
		return nil, release, err
	}
	logger.Infof("capturing from %q (%s)", device.Name, format)
	return src, release, nil
}

// openRaw reads interleaved PCM from a file, or from stdin when the path is "-".
func openRaw(a config.AudioConfig, format capture.Format, stdin io.Reader) (capture.Source, error) {
	if a.File == "-" {
		// Hide any Close method so closing the source leaves stdin open.
		return capture.NewRawSource(struct{ io.Reader }{stdin}, format, a.FramesPerBuffer)
	}
	f, err := os.Open(a.File)
	if err != nil {
		return nil, fmt.Errorf("failed to open raw input: %w", err)
	}
	src, err := capture.NewRawSource(f, format, a.FramesPerBuffer)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return src, nil
}
