// SPDX-License-Identifier: MIT
package capture

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WAVSource plays back an integer PCM WAV file as 16-bit little-endian
// packets. Samples of other depths are rescaled to 16 bits.
type WAVSource struct {
	packets

	file    *os.File
	dec     *wav.Decoder
	bits    int
	loop    bool
	pace    *pacer
	samples *audio.IntBuffer
}

var _ Source = (*WAVSource)(nil)

// WAVOptions control playback of a WAVSource.
type WAVOptions struct {
	FramesPerBuffer int
	Loop            bool // restart at the end instead of returning io.EOF
	Realtime        bool // deliver no faster than the file's sample rate
}

// OpenWAV opens a WAV file. Its packets are always 16-bit whatever the file depth.
func OpenWAV(path string, opts WAVOptions) (*WAVSource, error) {
	if opts.FramesPerBuffer < 1 {
		return nil, fmt.Errorf("invalid frames per buffer %d", opts.FramesPerBuffer)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open wav file: %w", err)
	}
	dec, err := newWAVDecoder(file)
	if err != nil {
		file.Close()
		return nil, err
	}

	format := Format{
		SampleRate: int(dec.SampleRate),
		BitDepth:   16,
		Channels:   int(dec.NumChans),
	}
	if err := format.Validate(); err != nil {
		file.Close()
		return nil, fmt.Errorf("invalid wav file %s: %w", path, err)
	}

	s := &WAVSource{
		file: file,
		dec:  dec,
		bits: int(dec.BitDepth),
		loop: opts.Loop,
		samples: &audio.IntBuffer{
			Format: &audio.Format{NumChannels: format.Channels, SampleRate: format.SampleRate},
			Data:   make([]int, opts.FramesPerBuffer*format.Channels),
		},
	}
	if opts.Realtime {
		s.pace = newPacer(format.SampleRate)
	}
	s.init(format, opts.FramesPerBuffer, s.read)
	return s, nil
}

func newWAVDecoder(r io.ReadSeeker) (*wav.Decoder, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, errors.New("invalid WAV file")
	}
	if dec.WavAudioFormat != 1 {
		return nil, fmt.Errorf("unsupported WAV encoding %d, only integer PCM is supported", dec.WavAudioFormat)
	}
	switch dec.BitDepth {
	case 8, 16, 24, 32:
	default:
		return nil, fmt.Errorf("unsupported WAV bit depth %d", dec.BitDepth)
	}
	return dec, nil
}

func (s *WAVSource) read(dst []byte) (int, error) {
	s.samples.Data = s.samples.Data[:cap(s.samples.Data)]
	n, err := s.dec.PCMBuffer(s.samples)
	if err != nil {
		return 0, fmt.Errorf("failed to decode wav samples: %w", err)
	}
	if n == 0 {
		if !s.loop {
			return 0, io.EOF
		}
		if err := s.rewind(); err != nil {
			return 0, err
		}
		if n, err = s.dec.PCMBuffer(s.samples); err != nil || n == 0 {
			return 0, io.EOF
		}
	}
	n -= n % s.format.Channels

	for i, v := range s.samples.Data[:n] {
		binary.LittleEndian.PutUint16(dst[2*i:], uint16(to16(v, s.bits)))
	}
	if s.pace != nil {
		s.pace.wait(n / s.format.Channels)
	}
	return 2 * n, nil
}

func (s *WAVSource) rewind() error {
	if _, err := s.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to rewind wav file: %w", err)
	}
	dec, err := newWAVDecoder(s.file)
	if err != nil {
		return err
	}
	s.dec = dec
	return nil
}

// to16 rescales an integer sample of the given depth to 16 bits. 8-bit WAV
// samples are unsigned.
func to16(v, bits int) int16 {
	switch bits {
	case 8:
		return int16((v - 128) << 8)
	case 24:
		return int16(v >> 8)
	case 32:
		return int16(v >> 16)
	default:
		return int16(v)
	}
}

func (s *WAVSource) Close() error {
	if s.markClosed() {
		return nil
	}
	return s.file.Close()
}
