// SPDX-License-Identifier: MIT
package audio

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"sync"
	"sync/atomic"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"spectral/internal/capture"
)

// Recorder tees captured PCM into a WAV file. 16-bit input is written as
// 16-bit PCM; 32-bit float input is converted to 32-bit integer PCM.
type Recorder struct {
	format capture.Format

	mu          sync.Mutex
	isRecording int32 // atomic flag, checked without the lock on the hot path
	outputFile  *os.File
	wavEncoder  *wav.Encoder
	sampleBuf   *audio.IntBuffer // reusable buffer for format conversion
}

// NewRecorder returns an idle recorder for packets of the given format.
func NewRecorder(format capture.Format) *Recorder {
	return &Recorder{format: format}
}

// Recording is safe to call from the worker without taking the lock.
func (r *Recorder) Recording() bool {
	return atomic.LoadInt32(&r.isRecording) == 1
}

// Start creates filename and begins recording. It fails if already recording.
func (r *Recorder) Start(filename string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if atomic.LoadInt32(&r.isRecording) == 1 {
		return fmt.Errorf("already recording")
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create recording file: %w", err)
	}
	r.outputFile = file
	r.wavEncoder = wav.NewEncoder(file, r.format.SampleRate, r.format.BitDepth, r.format.Channels, 1)
	r.sampleBuf = &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: r.format.Channels,
			SampleRate:  r.format.SampleRate,
		},
		SourceBitDepth: r.format.BitDepth,
	}

	atomic.StoreInt32(&r.isRecording, 1)
	return nil
}

// Write appends one packet of captured PCM. It is a no-op while not recording.
func (r *Recorder) Write(data []byte) error {
	if atomic.LoadInt32(&r.isRecording) == 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.wavEncoder == nil {
		return nil
	}

	width := r.format.BitDepth / 8
	n := len(data) / width
	if cap(r.sampleBuf.Data) < n {
		r.sampleBuf.Data = make([]int, n)
	}
	r.sampleBuf.Data = r.sampleBuf.Data[:n]

	switch r.format.BitDepth {
	case 16:
		for i := range n {
			r.sampleBuf.Data[i] = int(int16(binary.LittleEndian.Uint16(data[2*i:])))
		}
	case 32:
		for i := range n {
			f := float64(math.Float32frombits(binary.LittleEndian.Uint32(data[4*i:])))
			r.sampleBuf.Data[i] = int(math.Max(-1, math.Min(1, f)) * math.MaxInt32)
		}
	}

	if err := r.wavEncoder.Write(r.sampleBuf); err != nil {
		return fmt.Errorf("failed to write wav samples: %w", err)
	}
	return nil
}

// Stop closes the encoder and the file.
func (r *Recorder) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if atomic.LoadInt32(&r.isRecording) == 0 {
		return nil
	}
	atomic.StoreInt32(&r.isRecording, 0)

	if r.wavEncoder != nil {
		if err := r.wavEncoder.Close(); err != nil {
			return err
		}
		r.wavEncoder = nil
	}

	if r.outputFile != nil {
		if err := r.outputFile.Close(); err != nil {
			return err
		}
		r.outputFile = nil
	}
	return nil
}
