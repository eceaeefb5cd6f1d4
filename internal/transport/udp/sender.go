// SPDX-License-Identifier: MIT
package udp

import (
	"errors"
	"fmt"
	"net"
	"sync"

	"spectral/internal/log"
)

var ErrSenderClosed = errors.New("UDP sender is closed")

// PacketSender delivers one datagram per call.
type PacketSender interface {
	Send(data []byte) error
	Close() error
}

// UDPSender handles sending data packets over UDP.
type UDPSender struct {
	mu     sync.Mutex // protects conn during Close
	conn   *net.UDPConn
	closed bool
	log    *log.Logger
}

var _ PacketSender = (*UDPSender)(nil)

// NewUDPSender dials targetAddress ("host:port"). No local port is bound.
func NewUDPSender(targetAddress string) (*UDPSender, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", targetAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve UDP target address '%s': %w", targetAddress, err)
	}
	conn, err := net.DialUDP("udp", nil, udpAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to dial UDP for target '%s': %w", targetAddress, err)
	}

	s := &UDPSender{conn: conn, log: log.For("transport/udp")}
	s.log.Infof("sending to %s", conn.RemoteAddr())
	return s, nil
}

// Send writes one datagram. It returns ErrSenderClosed after Close.
func (s *UDPSender) Send(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSenderClosed
	}
	if _, err := s.conn.Write(data); err != nil {
		return fmt.Errorf("failed to send UDP packet: %w", err)
	}
	return nil
}

func (s *UDPSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.log.Debugf("closing connection to %s", s.conn.RemoteAddr())
	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("failed to close UDP connection: %w", err)
	}
	return nil
}
