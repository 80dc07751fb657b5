// SPDX-License-Identifier: MIT
package device

import (
	"context"
	"errors"
	"fmt"
	"time"

	"clapper/internal/audio"
	"clapper/internal/log"

	"github.com/gordonklaus/portaudio"
)

// MicSource reads one channel of a PortAudio input device through a
// blocking stream and hands it on as converter codes.
type MicSource struct {
	deviceID        int
	sampleBits      int
	framesPerBuffer int
	lowLatency      bool

	channel  int
	channels int
	stream   *portaudio.Stream
	in       []int16 // interleaved frames from the last Read
	next     int     // first unread frame in in
	overruns uint64
}

// NewMicSource returns an unopened source. framesPerBuffer is normally the
// pipeline batch size so one Read fills one burst.
func NewMicSource(deviceID, sampleBits, framesPerBuffer int, lowLatency bool) *MicSource {
	return &MicSource{
		deviceID:        deviceID,
		sampleBits:      sampleBits,
		framesPerBuffer: framesPerBuffer,
		lowLatency:      lowLatency,
	}
}

// Configure opens and starts the input stream at the rate implied by the
// clock divisor, capturing enough channels to reach the requested one.
func (m *MicSource) Configure(channel int, clockDiv float64) error {
	if m.stream != nil {
		return errors.New("microphone already configured")
	}
	inputDevice, err := InputDevice(m.deviceID)
	if err != nil {
		return err
	}
	if channel < 0 || channel >= inputDevice.MaxInputChannels {
		return fmt.Errorf("channel %d not available on %s (%d inputs)",
			channel, inputDevice.Name, inputDevice.MaxInputChannels)
	}

	m.channel = channel
	m.channels = channel + 1
	m.in = make([]int16, m.framesPerBuffer*m.channels)
	m.next = m.framesPerBuffer

	latency := inputDevice.DefaultHighInputLatency
	if m.lowLatency {
		latency = inputDevice.DefaultLowInputLatency
	}

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: m.channels,
			Device:   inputDevice,
			Latency:  latency,
		},
		Output: portaudio.StreamDeviceParameters{
			Channels: 0, // No output device
			Device:   nil,
		},
		FramesPerBuffer: m.framesPerBuffer,
		SampleRate:      audio.SampleRateForDivisor(clockDiv),
	}

	stream, err := portaudio.OpenStream(params, m.in)
	if err != nil {
		return fmt.Errorf("failed to open input stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return fmt.Errorf("failed to start input stream: %w", err)
	}
	m.stream = stream

	log.Infof("Device: capturing %q channel %d at %.0f Hz (latency %s)",
		inputDevice.Name, channel, params.SampleRate, latency.Round(time.Millisecond))
	return nil
}

// Acquire blocks until len(dst) codes have been read.
// Performance Critical: no allocations.
func (m *MicSource) Acquire(ctx context.Context, dst []audio.Sample) error {
	if m.stream == nil {
		return audio.ErrSourceClosed
	}

	filled := 0
	for filled < len(dst) {
		if m.next == m.framesPerBuffer {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := m.stream.Read(); err != nil {
				if !errors.Is(err, portaudio.InputOverflowed) {
					return fmt.Errorf("failed to read input stream: %w", err)
				}
				// Samples are still valid; the converter simply fell behind.
				m.overruns++
				log.Debugf("Device: input overflow (%d so far)", m.overruns)
			}
			m.next = 0
		}

		for ; m.next < m.framesPerBuffer && filled < len(dst); m.next++ {
			dst[filled] = audio.CodeFromPCM16(m.in[m.next*m.channels+m.channel], m.sampleBits)
			filled++
		}
	}
	return nil
}

// Overruns reports how many reads found the input buffer overflowed.
func (m *MicSource) Overruns() uint64 {
	return m.overruns
}

func (m *MicSource) Close() error {
	if m.stream == nil {
		return nil
	}

	stream := m.stream
	m.stream = nil
	if err := stream.Stop(); err != nil {
		stream.Close()
		return err
	}
	return stream.Close()
}
