// SPDX-License-Identifier: MIT
package animation

import (
	"errors"
	"sync"
)

// Strip is the LED driver collaborator. Open acquires whatever the driver
// needs, Push transmits one full frame and blocks until it is out, Close
// releases the driver. The frame buffer is reused after Push returns.
type Strip interface {
	Open() error
	Push(f *Frame) error
	Close() error
}

// Multi fans one frame out to several strips.
type Multi []Strip

func (m Multi) Open() error {
	for i, s := range m {
		if err := s.Open(); err != nil {
			for _, opened := range m[:i] {
				opened.Close()
			}
			return err
		}
	}
	return nil
}

// Push sends the frame to every strip, even if an earlier one fails.
func (m Multi) Push(f *Frame) error {
	var errs []error
	for _, s := range m {
		if err := s.Push(f); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, s := range m {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// MemoryStrip keeps copies of pushed frames. It backs tests and the
// headless mode where no driver is configured.
type MemoryStrip struct {
	mu     sync.Mutex
	keep   int
	frames [][]byte
	pushes int
	open   bool
}

// NewMemoryStrip keeps at most keep frames; older ones are dropped.
func NewMemoryStrip(keep int) *MemoryStrip {
	if keep < 1 {
		keep = 1
	}
	return &MemoryStrip{keep: keep}
}

func (m *MemoryStrip) Open() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.open = true
	return nil
}

func (m *MemoryStrip) Push(f *Frame) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.frames) == m.keep {
		copy(m.frames, m.frames[1:])
		m.frames = m.frames[:m.keep-1]
	}
	m.frames = append(m.frames, append([]byte(nil), f.Bytes()...))
	m.pushes++
	return nil
}

func (m *MemoryStrip) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.open = false
	return nil
}

// Last returns the most recent frame, or nil.
func (m *MemoryStrip) Last() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.frames) == 0 {
		return nil
	}
	return m.frames[len(m.frames)-1]
}

// Frames returns the kept frames, oldest first.
func (m *MemoryStrip) Frames() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]byte(nil), m.frames...)
}

// Pushes returns how many frames have been pushed in total.
func (m *MemoryStrip) Pushes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pushes
}

// IsOpen reports whether the strip is between Open and Close.
func (m *MemoryStrip) IsOpen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.open
}
