// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spectral/internal/analysis"
)

// recordingSender keeps a copy of every datagram.
type recordingSender struct {
	mu      sync.Mutex
	packets [][]byte
	err     error
	closed  bool
}

func (s *recordingSender) Send(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.packets = append(s.packets, bytes.Clone(data))
	return nil
}

func (s *recordingSender) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *recordingSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.packets)
}

func publishFrame(store *analysis.FrameStore, seq uint64, values ...float64) analysis.Frame {
	f := analysis.Frame{
		Values:    values,
		Count:     len(values),
		ElapsedMs: 1.25,
		Sequence:  seq,
		Timestamp: time.Unix(1700000000, 42),
		Kind:      analysis.KindSpectrum,
	}
	store.Publish(f)
	return f
}

func TestPacketEncoding(t *testing.T) {
	var buf bytes.Buffer
	in := Packet{Sequence: 9, Timestamp: 1234567890123, ElapsedMs: 0.75, Values: []float32{0, 0.5, 1}}
	require.NoError(t, writePacket(&buf, in))
	assert.Equal(t, HeaderSize+3*4, buf.Len())

	b := buf.Bytes()
	assert.Equal(t, []byte{0, 0, 0, 9}, b[:4], "sequence is big endian")
	assert.Equal(t, []byte{0, 3}, b[12:14], "count is big endian")

	out, err := DecodePacket(b)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	_, err = DecodePacket(b[:HeaderSize-1])
	assert.ErrorIs(t, err, ErrShortPacket)
	_, err = DecodePacket(b[:len(b)-1])
	assert.ErrorIs(t, err, ErrShortPacket)

	assert.Error(t, writePacket(&buf, Packet{Values: make([]float32, MaxValues+1)}))
}

func TestNewPublisherValidation(t *testing.T) {
	store := analysis.NewFrameStore()
	s := &recordingSender{}

	_, err := NewPublisher(time.Millisecond, nil, store, 4, nil)
	assert.Error(t, err)
	_, err = NewPublisher(time.Millisecond, s, nil, 4, nil)
	assert.Error(t, err)
	_, err = NewPublisher(time.Millisecond, s, store, 0, nil)
	assert.Error(t, err)

	p, err := NewPublisher(0, s, store, 4, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultInterval, p.interval)
}

func TestPublisherSendsEachFrameOnce(t *testing.T) {
	store := analysis.NewFrameStore()
	s := &recordingSender{}
	p, err := NewPublisher(time.Millisecond, s, store, 8, nil)
	require.NoError(t, err)

	assert.False(t, p.publish(), "nothing to send before the first frame")

	want := publishFrame(store, 5, 0.1, 0.2, 0.3)
	assert.True(t, p.publish())
	assert.False(t, p.publish(), "unchanged frame must not be resent")

	require.Equal(t, 1, s.count())
	got, err := DecodePacket(s.packets[0])
	require.NoError(t, err)
	assert.Equal(t, uint32(want.Sequence), got.Sequence)
	assert.Equal(t, want.Timestamp.UnixNano(), got.Timestamp)
	assert.Equal(t, float32(1.25), got.ElapsedMs)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, got.Values)

	publishFrame(store, 6, 1)
	assert.True(t, p.publish())
	got, err = DecodePacket(s.packets[1])
	require.NoError(t, err)
	assert.Len(t, got.Values, 1)
}

func TestPublisherSendFailure(t *testing.T) {
	store := analysis.NewFrameStore()
	s := &recordingSender{err: errors.New("unreachable")}
	p, err := NewPublisher(time.Millisecond, s, store, 8, nil)
	require.NoError(t, err)

	publishFrame(store, 1, 0.5)
	assert.False(t, p.publish())
}

func TestPublisherStartStop(t *testing.T) {
	store := analysis.NewFrameStore()
	s := &recordingSender{}
	p, err := NewPublisher(time.Millisecond, s, store, 8, nil)
	require.NoError(t, err)

	publishFrame(store, 1, 0.5, 0.5)
	p.Start()
	p.Start()
	require.Eventually(t, func() bool { return s.count() == 1 }, time.Second, time.Millisecond)

	publishFrame(store, 2, 0.25)
	require.Eventually(t, func() bool { return s.count() == 2 }, time.Second, time.Millisecond)

	require.NoError(t, p.Stop())
	require.NoError(t, p.Stop())
	require.NoError(t, p.Close())
	assert.True(t, s.closed)
}

func TestUDPSenderDeliversDatagrams(t *testing.T) {
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer conn.Close()

	sender, err := NewUDPSender(conn.LocalAddr().String())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, writePacket(&buf, Packet{Sequence: 3, Values: []float32{0.5}}))
	require.NoError(t, sender.Send(buf.Bytes()))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	in := make([]byte, 1500)
	n, _, err := conn.ReadFrom(in)
	require.NoError(t, err)
	got, err := DecodePacket(in[:n])
	require.NoError(t, err)
	assert.Equal(t, uint32(3), got.Sequence)
	assert.Equal(t, []float32{0.5}, got.Values)

	require.NoError(t, sender.Close())
	require.NoError(t, sender.Close())
	assert.ErrorIs(t, sender.Send([]byte{1}), ErrSenderClosed)
}

func TestNewUDPSenderBadAddress(t *testing.T) {
	_, err := NewUDPSender("not an address")
	assert.Error(t, err)
}

func BenchmarkPublish(b *testing.B) {
	store := analysis.NewFrameStore()
	p, err := NewPublisher(time.Millisecond, &discardSender{}, store, 4097, nil)
	if err != nil {
		b.Fatal(err)
	}
	f := analysis.Frame{Values: make([]float64, 4097), Count: 4097, Timestamp: time.Now()}

	b.ReportAllocs()
	for b.Loop() {
		f.Sequence++
		store.Publish(f)
		p.publish()
	}
}

type discardSender struct{}

func (discardSender) Send([]byte) error { return nil }
func (discardSender) Close() error      { return nil }
