// SPDX-License-Identifier: MIT
/*
Package audio implements the sampling side of the clapper pipeline:
- A sliding acquisition window refreshed in fixed-size bursts
- Acquisition collaborators (synthetic signal, file replay)
- WAV recording of acquired bursts
- An amplitude gate in front of the detector

Thread Safety:
- A Buffer and its Source are owned by the detection goroutine
- All buffers are allocated once in the constructors; Refresh does not allocate
*/
package audio

import (
	"context"
	"errors"
	"fmt"
)

// ErrSourceClosed is returned by sources that have been closed or have
// run out of input.
var ErrSourceClosed = errors.New("acquisition source closed")

var errNotConfigured = errors.New("acquisition source not configured")

// Source is the acquisition collaborator: a converter plus a transfer
// engine that fills a destination with exactly len(dst) samples.
type Source interface {
	// Configure selects the input channel and the clock divisor. It is
	// called once before the first Acquire; width and rate are fixed
	// for the rest of the run.
	Configure(channel int, clockDiv float64) error
	// Acquire blocks until len(dst) samples have been written to dst.
	Acquire(ctx context.Context, dst []Sample) error
	Close() error
}

// Buffer holds the most recent WindowSize samples in chronological order.
// Each Refresh evicts the oldest BatchSize samples and appends a new burst.
type Buffer struct {
	src     Source
	window  []Sample // chronological, oldest first
	scratch []Sample // landing zone for one burst
	batches uint64
}

// NewBuffer allocates the window and burst scratch space. The window starts
// zero-filled, like the firmware's static buffers.
func NewBuffer(src Source, windowSize, batchSize int) (*Buffer, error) {
	if src == nil {
		return nil, fmt.Errorf("acquisition source cannot be nil")
	}
	if windowSize <= 0 || batchSize <= 0 || batchSize > windowSize {
		return nil, fmt.Errorf("batch size %d must be in (0, %d]", batchSize, windowSize)
	}
	return &Buffer{
		src:     src,
		window:  make([]Sample, windowSize),
		scratch: make([]Sample, batchSize),
	}, nil
}

// Refresh blocks until one burst has been delivered, then slides the window.
// If the source fails the window is left untouched.
func (b *Buffer) Refresh(ctx context.Context) error {
	if err := b.src.Acquire(ctx, b.scratch); err != nil {
		return err
	}
	b.slide(b.scratch)
	return nil
}

// slide moves the newest WindowSize-BatchSize samples to the front and
// appends the burst. This is the O(WindowSize) move the firmware performs.
func (b *Buffer) slide(burst []Sample) {
	keep := len(b.window) - len(burst)
	copy(b.window[:keep], b.window[len(burst):])
	copy(b.window[keep:], burst)
	b.batches++
}

// Samples returns the window. The slice is owned by the Buffer and is only
// valid until the next Refresh.
func (b *Buffer) Samples() []Sample {
	return b.window
}

// Latest returns the most recent burst.
func (b *Buffer) Latest() []Sample {
	return b.scratch
}

// Batches returns how many bursts have been acquired.
func (b *Buffer) Batches() uint64 {
	return b.batches
}

// WindowSize returns the window length.
func (b *Buffer) WindowSize() int { return len(b.window) }

// BatchSize returns the burst length.
func (b *Buffer) BatchSize() int { return len(b.scratch) }
