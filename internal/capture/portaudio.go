// SPDX-License-Identifier: MIT
package capture

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gordonklaus/portaudio"
)

// PortAudioSource captures live input with a blocking PortAudio stream.
// NextPacketSize blocks for at most one buffer period.
type PortAudioSource struct {
	packets

	stream  *portaudio.Stream
	device  *portaudio.DeviceInfo
	ints    []int16
	floats  []float32
	started bool
}

var _ Source = (*PortAudioSource)(nil)

// PortAudioOptions configure the input stream.
type PortAudioOptions struct {
	FramesPerBuffer int
	LowLatency      bool
}

// OpenPortAudio opens (but does not start) an input stream on device.
// PortAudio must already be initialized.
func OpenPortAudio(device *portaudio.DeviceInfo, format Format, opts PortAudioOptions) (*PortAudioSource, error) {
	if err := format.Validate(); err != nil {
		return nil, err
	}
	if device == nil {
		return nil, fmt.Errorf("no input device")
	}
	if format.Channels > device.MaxInputChannels {
		return nil, fmt.Errorf("device %q supports %d input channels, %d requested",
			device.Name, device.MaxInputChannels, format.Channels)
	}

	latency := device.DefaultHighInputLatency
	if opts.LowLatency {
		latency = device.DefaultLowInputLatency
	}
	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   device,
			Channels: format.Channels,
			Latency:  latency,
		},
		FramesPerBuffer: opts.FramesPerBuffer,
		SampleRate:      float64(format.SampleRate),
	}

	s := &PortAudioSource{device: device}
	n := opts.FramesPerBuffer * format.Channels
	var (
		stream *portaudio.Stream
		err    error
	)
	if format.BitDepth == 16 {
		s.ints = make([]int16, n)
		stream, err = portaudio.OpenStream(params, s.ints)
	} else {
		s.floats = make([]float32, n)
		stream, err = portaudio.OpenStream(params, s.floats)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open input stream: %w", err)
	}
	s.stream = stream
	s.init(format, opts.FramesPerBuffer, s.read)
	return s, nil
}

// Device is the input device the stream was opened on.
func (s *PortAudioSource) Device() *portaudio.DeviceInfo { return s.device }

func (s *PortAudioSource) read(dst []byte) (int, error) {
	if !s.started {
		if err := s.stream.Start(); err != nil {
			return 0, fmt.Errorf("failed to start input stream: %w", err)
		}
		s.started = true
	}
	// Overflow only means samples were dropped before this read.
	if err := s.stream.Read(); err != nil && err != portaudio.InputOverflowed {
		return 0, err
	}

	if s.ints != nil {
		for i, v := range s.ints {
			binary.LittleEndian.PutUint16(dst[2*i:], uint16(v))
		}
		return 2 * len(s.ints), nil
	}
	for i, v := range s.floats {
		binary.LittleEndian.PutUint32(dst[4*i:], math.Float32bits(v))
	}
	return 4 * len(s.floats), nil
}

func (s *PortAudioSource) Close() error {
	if s.markClosed() {
		return nil
	}
	if s.started {
		if err := s.stream.Stop(); err != nil {
			s.stream.Close()
			return err
		}
	}
	return s.stream.Close()
}
