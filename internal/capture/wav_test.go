// SPDX-License-Identifier: MIT
package capture

import (
	"encoding/binary"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestWAV(t *testing.T, bitDepth, channels int, samples []int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.wav")
	f, err := os.Create(path)
	require.NoError(t, err)

	enc := wav.NewEncoder(f, 8000, bitDepth, channels, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: 8000},
		Data:           samples,
		SourceBitDepth: bitDepth,
	}
	require.NoError(t, enc.Write(buf))
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())
	return path
}

// drain reads every packet and returns the decoded 16-bit samples.
func drain(t *testing.T, src Source, limit int) []int16 {
	t.Helper()
	var out []int16
	for len(out) < limit {
		n, err := src.NextPacketSize()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		data, frames, _, err := src.GetBuffer()
		require.NoError(t, err)
		require.Equal(t, n, frames)
		for i := 0; i < len(data); i += 2 {
			out = append(out, int16(binary.LittleEndian.Uint16(data[i:])))
		}
		require.NoError(t, src.ReleaseBuffer(frames))
	}
	return out
}

func TestWAVSource16Bit(t *testing.T) {
	samples := []int{0, 100, -100, 32767, -32768, 5, 6, 7, 8, 9}
	path := writeTestWAV(t, 16, 2, samples)

	src, err := OpenWAV(path, WAVOptions{FramesPerBuffer: 2})
	require.NoError(t, err)
	defer src.Close()

	assert.Equal(t, Format{SampleRate: 8000, BitDepth: 16, Channels: 2}, src.Format())

	got := drain(t, src, 1000)
	require.Len(t, got, len(samples))
	for i, v := range samples {
		assert.Equal(t, int16(v), got[i], "sample %d", i)
	}
}

func TestWAVSourceRescales24Bit(t *testing.T) {
	samples := []int{0, 256, -256, 8388607, -8388608}
	path := writeTestWAV(t, 24, 1, samples)

	src, err := OpenWAV(path, WAVOptions{FramesPerBuffer: 8})
	require.NoError(t, err)
	defer src.Close()

	got := drain(t, src, 1000)
	assert.Equal(t, []int16{0, 1, -1, 32767, -32768}, got)
}

func TestWAVSourceLoop(t *testing.T) {
	path := writeTestWAV(t, 16, 1, []int{1, 2, 3})

	src, err := OpenWAV(path, WAVOptions{FramesPerBuffer: 2, Loop: true})
	require.NoError(t, err)
	defer src.Close()

	got := drain(t, src, 7)
	assert.Equal(t, []int16{1, 2, 3, 1, 2, 3, 1, 2}, got)
}

func TestOpenWAVErrors(t *testing.T) {
	_, err := OpenWAV(filepath.Join(t.TempDir(), "missing.wav"), WAVOptions{FramesPerBuffer: 8})
	assert.ErrorContains(t, err, "failed to open wav file")

	garbage := filepath.Join(t.TempDir(), "garbage.wav")
	require.NoError(t, os.WriteFile(garbage, []byte("not a wav file at all"), 0o644))
	_, err = OpenWAV(garbage, WAVOptions{FramesPerBuffer: 8})
	assert.Error(t, err)

	_, err = OpenWAV(garbage, WAVOptions{})
	assert.Error(t, err)
}
