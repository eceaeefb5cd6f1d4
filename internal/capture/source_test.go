// SPDX-License-Identifier: MIT
package capture

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spectral/pkg/utils"
)

var mono16 = Format{SampleRate: 48000, BitDepth: 16, Channels: 1}

func TestFormat(t *testing.T) {
	f := Format{SampleRate: 44100, BitDepth: 32, Channels: 2}
	assert.Equal(t, 8, f.BlockAlign())
	assert.NoError(t, f.Validate())
	assert.Equal(t, "44100 Hz, 32-bit, 2 ch", f.String())

	for _, bad := range []Format{
		{SampleRate: 0, BitDepth: 16, Channels: 1},
		{SampleRate: 48000, BitDepth: 24, Channels: 1},
		{SampleRate: 48000, BitDepth: 16, Channels: 0},
	} {
		assert.Error(t, bad.Validate(), "format %+v", bad)
	}
}

func TestRawSourcePacketProtocol(t *testing.T) {
	pcm := utils.PCM16Raw(1, 2, 3, 4, 5, 6, 7, 8, 9, 10)
	src, err := NewRawSource(bytes.NewReader(pcm), mono16, 4)
	require.NoError(t, err)

	_, _, _, err = src.GetBuffer()
	assert.ErrorIs(t, err, ErrNoPacket, "GetBuffer before NextPacketSize")

	var got []byte
	var sizes []int
	for {
		n, err := src.NextPacketSize()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		sizes = append(sizes, n)

		data, frames, flags, err := src.GetBuffer()
		require.NoError(t, err)
		assert.Equal(t, n, frames)
		assert.False(t, flags.Silent())
		got = append(got, data...)

		assert.ErrorIs(t, src.ReleaseBuffer(frames+1), ErrFrameMismatch)
		require.NoError(t, src.ReleaseBuffer(frames))
	}

	assert.Equal(t, []int{4, 4, 2}, sizes)
	assert.Equal(t, pcm, got)
}

func TestRawSourceTruncatesPartialFrame(t *testing.T) {
	stereo := Format{SampleRate: 48000, BitDepth: 16, Channels: 2}
	// One whole frame plus a dangling sample.
	src, err := NewRawSource(bytes.NewReader(utils.PCM16Raw(1, 2, 3)), stereo, 8)
	require.NoError(t, err)

	n, err := src.NextPacketSize()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.NoError(t, src.ReleaseBuffer(1))

	_, err = src.NextPacketSize()
	assert.ErrorIs(t, err, io.EOF)
}

func TestRawSourceClearAndClose(t *testing.T) {
	src, err := NewRawSource(bytes.NewReader(make([]byte, 64)), mono16, 8)
	require.NoError(t, err)

	n, err := src.NextPacketSize()
	require.NoError(t, err)
	require.Equal(t, 8, n)

	// Repeated calls report the same pending packet.
	n, err = src.NextPacketSize()
	require.NoError(t, err)
	assert.Equal(t, 8, n)

	require.NoError(t, src.Clear())
	assert.ErrorIs(t, src.ReleaseBuffer(8), ErrNoPacket)

	require.NoError(t, src.Close())
	require.NoError(t, src.Close(), "second Close is a no-op")
	_, err = src.NextPacketSize()
	assert.ErrorIs(t, err, ErrClosed)
	_, _, _, err = src.GetBuffer()
	assert.ErrorIs(t, err, ErrClosed)
}

func TestRawSourceRejectsBadArguments(t *testing.T) {
	_, err := NewRawSource(bytes.NewReader(nil), Format{SampleRate: 48000, BitDepth: 8, Channels: 1}, 8)
	assert.Error(t, err)
	_, err = NewRawSource(bytes.NewReader(nil), mono16, 0)
	assert.Error(t, err)
}
