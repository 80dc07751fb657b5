// SPDX-License-Identifier: MIT
package udp

import (
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"clapper/internal/log"
)

// Sender writes whole packets to one UDP peer. Every write carries a
// deadline so a stalled socket cannot hold up the rendering goroutine for
// longer than one frame.
type Sender struct {
	mu           sync.Mutex // guards conn against Close
	conn         *net.UDPConn
	target       *net.UDPAddr
	writeTimeout time.Duration
	errors       uint64
}

// Dial resolves target ("host:port", e.g. "192.168.1.50:21324") and
// connects a socket to it. A zero writeTimeout disables the deadline.
func Dial(target string, writeTimeout time.Duration) (*Sender, error) {
	addr, err := net.ResolveUDPAddr("udp", target)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve UDP target %q: %w", target, err)
	}
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("failed to dial UDP target %q: %w", target, err)
	}
	log.Debugf("UDP Sender: connected %s -> %s", conn.LocalAddr(), addr)
	return &Sender{conn: conn, target: addr, writeTimeout: writeTimeout}, nil
}

// Send writes packet as one datagram.
func (s *Sender) Send(packet []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return net.ErrClosed
	}
	if s.writeTimeout > 0 {
		if err := s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout)); err != nil {
			s.errors++
			return err
		}
	}
	n, err := s.conn.Write(packet)
	if err == nil && n != len(packet) {
		err = io.ErrShortWrite
	}
	if err != nil {
		s.errors++
		return fmt.Errorf("failed to send UDP packet to %s: %w", s.target, err)
	}
	return nil
}

// Target returns the resolved destination.
func (s *Sender) Target() *net.UDPAddr {
	return s.target
}

// Errors returns how many sends failed.
func (s *Sender) Errors() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errors
}

// Close releases the socket. Later calls are no-ops.
func (s *Sender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}

var _ io.Closer = (*Sender)(nil)
