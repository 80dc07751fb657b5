// SPDX-License-Identifier: MIT
package config

import (
	"path/filepath"
	"time"
)

// BatchDuration is how long one acquisition burst takes, the
// suspension time of the sampling context per iteration.
func (c *Config) BatchDuration() time.Duration {
	if c.Acquisition.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(c.Acquisition.BatchSize) / c.Acquisition.SampleRate * float64(time.Second))
}

// WindowDuration is the span of audio the detector sees per pass.
func (c *Config) WindowDuration() time.Duration {
	if c.Acquisition.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(c.Acquisition.WindowSize) / c.Acquisition.SampleRate * float64(time.Second))
}

// RecordingPath returns the WAV path for a recording started at t.
// An explicit recording.file wins over the generated name.
func (c *Config) RecordingPath(t time.Time) string {
	if c.Recording.File != "" {
		return c.Recording.File
	}
	name := "recording-" + t.UTC().Format("02-01-2006-150405") + ".wav"
	return filepath.Join(c.Recording.OutputDir, name)
}
