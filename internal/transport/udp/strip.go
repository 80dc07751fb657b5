// SPDX-License-Identifier: MIT
package udp

import (
	"encoding/binary"
	"fmt"
	"time"

	"clapper/internal/animation"
	"clapper/internal/log"
)

/*
Realtime UDP frames as understood by WLED and compatible LED controllers.

Strips of up to 490 pixels go out as one DRGB packet:

	+----------+-------------+---------------------------+
	| Protocol | Timeout (s) | R G B, R G B, ...         |
	| 2        | uint8       | 3 bytes per pixel         |
	+----------+-------------+---------------------------+

Longer strips are split into DNRGB packets that carry their start index:

	+----------+-------------+------------------+--------------------+
	| Protocol | Timeout (s) | Start (uint16BE) | R G B, ...         |
	| 4        | uint8       | first pixel      | up to 489 pixels   |
	+----------+-------------+------------------+--------------------+

The controller falls back to its own effect when no packet arrives for
Timeout seconds; 255 keeps realtime mode forever.
*/
const (
	protoDRGB  = 2
	protoDNRGB = 4

	maxDRGBPixels  = 490
	maxDNRGBPixels = 489

	// writeTimeout bounds one datagram write.
	writeTimeout = 50 * time.Millisecond
)

// Strip drives an LED controller over UDP. It implements animation.Strip.
type Strip struct {
	target  string
	timeout byte
	sender  *Sender
	packet  []byte // reused for every packet
	sent    uint64
}

// NewStrip prepares a strip for target. timeout is rounded up to whole
// seconds and clamped to the protocol's 1-255 range.
func NewStrip(target string, timeout time.Duration, pixels int) *Strip {
	secs := (timeout + time.Second - 1) / time.Second
	secs = min(max(secs, 1), 255)
	size := 2 + 3*pixels
	if pixels > maxDRGBPixels {
		size = 4 + 3*maxDNRGBPixels
	}
	return &Strip{
		target:  target,
		timeout: byte(secs),
		packet:  make([]byte, 0, size),
	}
}

// Open dials the controller.
func (s *Strip) Open() error {
	if s.sender != nil {
		return nil
	}
	sender, err := Dial(s.target, writeTimeout)
	if err != nil {
		return err
	}
	s.sender = sender
	log.Infof("UDP Strip: streaming to %s (timeout %ds)", sender.Target(), s.timeout)
	return nil
}

// Push sends f as one or more packets.
func (s *Strip) Push(f *animation.Frame) error {
	if s.sender == nil {
		return fmt.Errorf("UDP strip not open")
	}
	n := f.Len()
	if n <= maxDRGBPixels {
		s.packet = append(s.packet[:0], protoDRGB, s.timeout)
		s.packet = appendRGB(s.packet, f, 0, n)
		return s.send()
	}
	for start := 0; start < n; start += maxDNRGBPixels {
		end := min(start+maxDNRGBPixels, n)
		s.packet = append(s.packet[:0], protoDNRGB, s.timeout)
		s.packet = binary.BigEndian.AppendUint16(s.packet, uint16(start))
		s.packet = appendRGB(s.packet, f, start, end)
		if err := s.send(); err != nil {
			return err
		}
	}
	return nil
}

func (s *Strip) send() error {
	if err := s.sender.Send(s.packet); err != nil {
		return err
	}
	s.sent++
	return nil
}

// appendRGB appends pixels [from, to) in RGB order.
func appendRGB(dst []byte, f *animation.Frame, from, to int) []byte {
	for i := from; i < to; i++ {
		c := f.At(i)
		dst = append(dst, c.R, c.G, c.B)
	}
	return dst
}

// Sent returns the number of packets sent.
func (s *Strip) Sent() uint64 {
	return s.sent
}

// Close releases the socket.
func (s *Strip) Close() error {
	if s.sender == nil {
		return nil
	}
	err := s.sender.Close()
	s.sender = nil
	return err
}

var _ animation.Strip = (*Strip)(nil)
