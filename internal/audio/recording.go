// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ErrAlreadyRecording is returned by Start while a recording is open.
var ErrAlreadyRecording = errors.New("already recording")

// Recorder appends acquired bursts to a 16-bit mono WAV file.
type Recorder struct {
	sampleRate int
	sampleBits int

	isRecording atomic.Bool
	mu          sync.Mutex // guards file and encoder against Stop racing Write
	outputFile  *os.File
	wavEncoder  *wav.Encoder
	sampleBuf   *audio.IntBuffer // Reusable buffer for format conversion
	written     int
}

// NewRecorder prepares a recorder for bursts of batchSize codes.
func NewRecorder(sampleRate float64, sampleBits, batchSize int) *Recorder {
	return &Recorder{
		sampleRate: int(sampleRate),
		sampleBits: sampleBits,
		sampleBuf: &audio.IntBuffer{
			Format: &audio.Format{
				NumChannels: 1,
				SampleRate:  int(sampleRate),
			},
			SourceBitDepth: 16,
			Data:           make([]int, batchSize),
		},
	}
}

// Start opens filename for writing, creating parent directories.
func (r *Recorder) Start(filename string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.isRecording.Load() {
		return ErrAlreadyRecording
	}

	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create recording directory: %w", err)
		}
	}

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	r.outputFile = file
	r.wavEncoder = wav.NewEncoder(file, r.sampleRate, 16, 1, 1)
	r.written = 0

	r.isRecording.Store(true)
	return nil
}

// Write appends one burst. It is a no-op when not recording.
func (r *Recorder) Write(codes []Sample) error {
	if !r.isRecording.Load() {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.wavEncoder == nil {
		return nil
	}

	if cap(r.sampleBuf.Data) < len(codes) {
		r.sampleBuf.Data = make([]int, len(codes))
	}
	r.sampleBuf.Data = r.sampleBuf.Data[:len(codes)]
	for i, c := range codes {
		r.sampleBuf.Data[i] = int(PCM16FromCode(c, r.sampleBits))
	}

	if err := r.wavEncoder.Write(r.sampleBuf); err != nil {
		return fmt.Errorf("error writing to WAV file: %w", err)
	}
	r.written += len(codes)
	return nil
}

// Stop finalizes the WAV header and closes the file.
func (r *Recorder) Stop() error {
	if !r.isRecording.Load() {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.isRecording.Store(false)

	if r.wavEncoder != nil {
		if err := r.wavEncoder.Close(); err != nil {
			return err
		}
		r.wavEncoder = nil
	}

	if r.outputFile != nil {
		if err := r.outputFile.Close(); err != nil {
			return err
		}
		r.outputFile = nil
	}

	return nil
}

// Recording reports whether a file is open.
func (r *Recorder) Recording() bool {
	return r.isRecording.Load()
}

// Written returns the number of samples written to the current or last file.
func (r *Recorder) Written() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.written
}
