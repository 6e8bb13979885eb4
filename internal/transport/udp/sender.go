// SPDX-License-Identifier: MIT

// Package udp streams live analysis packets to a visualiser over UDP.
package udp

import (
	"errors"
	"fmt"
	"net"
	"sync"

	applog "spectro/internal/log"
)

var ErrSenderClosed = errors.New("udp: sender is closed")

var logger = applog.Named("udp")

// UDPSender handles sending data packets over UDP.
type UDPSender struct {
	conn       *net.UDPConn
	targetAddr *net.UDPAddr
	mu         sync.Mutex // Protects conn during Close.
	closed     bool
}

// NewUDPSender dials targetAddress ("host:port").
func NewUDPSender(targetAddress string) (*UDPSender, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", targetAddress)
	if err != nil {
		return nil, fmt.Errorf("udp: resolving %q: %w", targetAddress, err)
	}
	// Sending only; the local address is left to the kernel.
	conn, err := net.DialUDP("udp", nil, udpAddr)
	if err != nil {
		return nil, fmt.Errorf("udp: dialing %q: %w", targetAddress, err)
	}
	logger.Infof("sending to %s", conn.RemoteAddr())
	return &UDPSender{conn: conn, targetAddr: udpAddr}, nil
}

// Send transmits data as one datagram. It is safe for concurrent use.
func (s *UDPSender) Send(data []byte) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSenderClosed
	}
	_, err := s.conn.Write(data)
	s.mu.Unlock()

	if err != nil {
		logger.Warnf("send: %v", err)
		return fmt.Errorf("udp: sending packet: %w", err)
	}
	return nil
}

// Close closes the connection. Later calls are no-ops.
func (s *UDPSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	logger.Debugf("closing connection to %s", s.targetAddr)
	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("udp: closing connection: %w", err)
	}
	return nil
}

var _ interface{ Close() error } = (*UDPSender)(nil)
