// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	tmp := t.TempDir()
	path := filepath.Join(tmp, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	return path
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	t.Parallel()
	cfg, err := LoadConfig("")
	if err != nil {
		t.Errorf("expected nil error, got %v", err)
	}
	if cfg == nil {
		t.Fatal("expected default config, got nil")
	}
	if cfg.Acquisition.WindowSize != DefaultWindowSize || cfg.Acquisition.BatchSize != DefaultBatchSize {
		t.Errorf("unexpected window/batch defaults: %d/%d", cfg.Acquisition.WindowSize, cfg.Acquisition.BatchSize)
	}
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	t.Parallel()
	cfg, err := LoadConfig("nonexistent.yaml")
	if err == nil {
		t.Errorf("expected error for missing file, got nil")
	}
	if cfg != nil {
		t.Errorf("expected nil config on error, got %+v", cfg)
	}
}

func TestLoadConfig_UnmarshalError(t *testing.T) {
	t.Parallel()
	path := writeTempConfig(t, ":\n:bad")
	_, err := LoadConfig(path)
	if err == nil || !strings.Contains(err.Error(), "failed to parse config file") {
		t.Error("expected unmarshal error, got nil or wrong error")
	}
}

func TestLoadConfig_FileValues(t *testing.T) {
	t.Parallel()
	path := writeTempConfig(t, `
log_level: debug
acquisition:
  source: synthetic
  sample_rate: 8000
  window_size: 4000
  batch_size: 2000
detector:
  normalize: mean
  min_delta: 100ms
  max_delta: 300ms
  cooldown: 2s
strip:
  pixels: 144
  drivers: [udp]
  patterns: [solid, rainbow]
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Acquisition.Source != SourceSynthetic {
		t.Errorf("source = %q", cfg.Acquisition.Source)
	}
	if cfg.Detector.MinDelta != 100*time.Millisecond || cfg.Detector.MaxDelta != 300*time.Millisecond {
		t.Errorf("delta band = %s..%s", cfg.Detector.MinDelta, cfg.Detector.MaxDelta)
	}
	if cfg.Detector.Cooldown != 2*time.Second {
		t.Errorf("cooldown = %s", cfg.Detector.Cooldown)
	}
	if cfg.Strip.Pixels != 144 || len(cfg.Strip.Patterns) != 2 {
		t.Errorf("strip = %+v", cfg.Strip)
	}
	// Untouched sections keep their defaults.
	if cfg.Detector.SearchWindow != DefaultSearchWindow {
		t.Errorf("search window = %d", cfg.Detector.SearchWindow)
	}
	if got := cfg.BatchDuration(); got != 250*time.Millisecond {
		t.Errorf("BatchDuration() = %s, want 250ms", got)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		mutate func(c *Config)
		field  string
	}{
		{"batch larger than window", func(c *Config) { c.Acquisition.BatchSize = c.Acquisition.WindowSize + 1 }, "batch_size"},
		{"zero batch", func(c *Config) { c.Acquisition.BatchSize = 0 }, "batch_size"},
		{"rate too low", func(c *Config) { c.Acquisition.SampleRate = 10 }, "sample_rate"},
		{"odd sample bits", func(c *Config) { c.Acquisition.SampleBits = 10 }, "sample_bits"},
		{"file source without file", func(c *Config) { c.Acquisition.Source = SourceFile }, "acquisition.file"},
		{"unknown source", func(c *Config) { c.Acquisition.Source = "dma" }, "acquisition.source"},
		{"inverted band", func(c *Config) { c.Detector.MinDelta = c.Detector.MaxDelta }, "min_delta"},
		{"classifier without url", func(c *Config) { c.Detector.Kind = DetectorClassifier }, "classifier.url"},
		{"unknown normalize", func(c *Config) { c.Detector.Normalize = "zscore" }, "normalize"},
		{"gate out of range", func(c *Config) { c.Gate.Threshold = 1.5 }, "gate.threshold"},
		{"no pixels", func(c *Config) { c.Strip.Pixels = 0 }, "strip.pixels"},
		{"bad color order", func(c *Config) { c.Strip.ColorOrder = "bgr" }, "color_order"},
		{"unknown driver", func(c *Config) { c.Strip.Drivers = []string{"spi"} }, "strip driver"},
		{"websocket driver without server", func(c *Config) { c.Strip.Drivers = []string{DriverWebSocket} }, "websocket_enabled"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected validation error mentioning %q", tt.field)
			}
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("error %v does not wrap ErrInvalidConfig", err)
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Errorf("error %q does not mention %q", err.Error(), tt.field)
			}
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ENV_SOURCE", SourceSynthetic)
	t.Setenv("ENV_UDP_TARGET_ADDRESS", "10.0.0.7:21324")
	t.Setenv("ENV_UDP_TIMEOUT", "5s")
	t.Setenv("ENV_LOG_LEVEL", "warn")

	cfg := Default()
	cfg.applyEnvOverrides()

	if cfg.Acquisition.Source != SourceSynthetic {
		t.Errorf("source = %q", cfg.Acquisition.Source)
	}
	if cfg.Transport.UDPTargetAddress != "10.0.0.7:21324" {
		t.Errorf("udp target = %q", cfg.Transport.UDPTargetAddress)
	}
	if cfg.Transport.UDPTimeout != 5*time.Second {
		t.Errorf("udp timeout = %s", cfg.Transport.UDPTimeout)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("log level = %q", cfg.LogLevel)
	}
}

func TestRecordingPath(t *testing.T) {
	t.Parallel()
	cfg := Default()
	at := time.Date(2025, 4, 13, 9, 30, 5, 0, time.UTC)
	want := filepath.Join(DefaultRecordingDir, "recording-13-04-2025-093005.wav")
	if got := cfg.RecordingPath(at); got != want {
		t.Errorf("RecordingPath() = %q, want %q", got, want)
	}

	cfg.Recording.File = "take.wav"
	if got := cfg.RecordingPath(at); got != "take.wav" {
		t.Errorf("explicit RecordingPath() = %q", got)
	}
}
