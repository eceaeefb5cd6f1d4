// SPDX-License-Identifier: MIT
/*
Package capture provides pull-style PCM sources for the analysis worker.

Every Source follows the same packet protocol:

	n, err := src.NextPacketSize()    // 0 means nothing ready yet, poll again
	data, frames, flags, err := src.GetBuffer()
	...                               // consume frames*BlockAlign bytes of data
	err = src.ReleaseBuffer(frames)

A packet flagged FlagSilent must still be released. NextPacketSize returns
io.EOF once a finite source is exhausted and ErrClosed after Close.

Sources are driven by a single goroutine; Close may be called from another.
*/
package capture

import (
	"errors"
	"fmt"
	"io"
	"sync"
)

var (
	ErrClosed        = errors.New("capture: source closed")
	ErrNoPacket      = errors.New("capture: no packet pending")
	ErrFrameMismatch = errors.New("capture: released frame count does not match packet")
)

// Flags describe a captured packet.
type Flags uint32

const (
	// FlagSilent marks a packet the consumer should skip.
	FlagSilent Flags = 1 << iota
)

func (f Flags) Silent() bool { return f&FlagSilent != 0 }

// Format is the PCM layout of every packet a Source delivers. BitDepth 16
// means signed little-endian integers, 32 means little-endian IEEE floats.
type Format struct {
	SampleRate int
	BitDepth   int
	Channels   int
}

// BlockAlign is the size in bytes of one interleaved frame.
func (f Format) BlockAlign() int {
	return f.BitDepth / 8 * f.Channels
}

// Validate accepts positive rates, 16 or 32 bit samples and at least one channel.
func (f Format) Validate() error {
	if f.SampleRate <= 0 {
		return fmt.Errorf("invalid sample rate %d", f.SampleRate)
	}
	if f.BitDepth != 16 && f.BitDepth != 32 {
		return fmt.Errorf("unsupported bit depth %d", f.BitDepth)
	}
	if f.Channels < 1 {
		return fmt.Errorf("invalid channel count %d", f.Channels)
	}
	return nil
}

func (f Format) String() string {
	return fmt.Sprintf("%d Hz, %d-bit, %d ch", f.SampleRate, f.BitDepth, f.Channels)
}

type Source interface {
	// NextPacketSize returns the number of frames in the next packet.
	NextPacketSize() (int, error)
	// GetBuffer returns the pending packet. data stays valid until ReleaseBuffer.
	GetBuffer() (data []byte, frames int, flags Flags, err error)
	ReleaseBuffer(frames int) error
	// Clear drops any pending packet.
	Clear() error
	Format() Format
	Close() error
}

// fillFunc reads the next packet into dst and returns the number of bytes
// written, always a whole number of frames. It returns io.EOF when the
// stream is exhausted and (0, nil) when nothing is ready yet.
type fillFunc func(dst []byte) (int, error)

// packets implements the packet protocol on top of a fillFunc. Concrete
// sources embed it, call init and provide their own Close.
type packets struct {
	format Format
	fill   fillFunc

	buf     []byte
	pending int // bytes

	mu     sync.Mutex
	closed bool
}

func (p *packets) init(format Format, framesPerBuffer int, fill fillFunc) {
	p.format = format
	p.fill = fill
	p.buf = make([]byte, framesPerBuffer*format.BlockAlign())
}

func (p *packets) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *packets) markClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	was := p.closed
	p.closed = true
	return was
}

func (p *packets) NextPacketSize() (int, error) {
	if p.isClosed() {
		return 0, ErrClosed
	}
	if p.pending == 0 {
		n, err := p.fill(p.buf)
		if err != nil {
			return 0, err
		}
		p.pending = n
	}
	return p.pending / p.format.BlockAlign(), nil
}

func (p *packets) GetBuffer() ([]byte, int, Flags, error) {
	if p.isClosed() {
		return nil, 0, 0, ErrClosed
	}
	if p.pending == 0 {
		return nil, 0, 0, ErrNoPacket
	}
	return p.buf[:p.pending], p.pending / p.format.BlockAlign(), 0, nil
}

func (p *packets) ReleaseBuffer(frames int) error {
	if p.pending == 0 {
		return ErrNoPacket
	}
	if frames != p.pending/p.format.BlockAlign() {
		return fmt.Errorf("%w: released %d of %d", ErrFrameMismatch, frames, p.pending/p.format.BlockAlign())
	}
	p.pending = 0
	return nil
}

func (p *packets) Clear() error {
	p.pending = 0
	return nil
}

func (p *packets) Format() Format { return p.format }

// readFrames fills dst from r with whole frames. A short final read is
// truncated to a frame boundary; io.EOF is returned only when no frame is left.
func readFrames(r io.Reader, dst []byte, blockAlign int) (int, error) {
	n, err := io.ReadFull(r, dst)
	switch {
	case err == nil:
		return n, nil
	case errors.Is(err, io.ErrUnexpectedEOF):
		n -= n % blockAlign
		if n == 0 {
			return 0, io.EOF
		}
		return n, nil
	default:
		return 0, err
	}
}
