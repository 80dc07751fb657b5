// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// LoadConfig loads configuration from a YAML file specified by path. If path is empty,
// it searches default locations ("config.yaml"). If no file is found, it uses built-in
// defaults.  After loading defaults or from file, it applies environment variable
// overrides and validates the final configuration.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		candidates := []string{
			"config.yaml",
			"clapper.yaml",
		}
		for _, candidate := range candidates {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
		if path == "" {
			cfg.applyEnvOverrides()
			if err := cfg.Validate(); err != nil {
				return nil, fmt.Errorf("invalid default configuration: %w", err)
			}
			return &cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Apply environment variable overrides AFTER loading from file.
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks the cross-field constraints the pipeline relies on.
func (c *Config) Validate() error {
	a := c.Acquisition
	switch a.Source {
	case SourcePortAudio, SourceSynthetic:
	case SourceFile:
		if a.File == "" {
			return fmt.Errorf("%w: acquisition.file must be set for the file source", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown acquisition.source %q", ErrInvalidConfig, a.Source)
	}
	if a.SampleRate < MinSampleRate || a.SampleRate > MaxSampleRate {
		return fmt.Errorf("%w: acquisition.sample_rate %.0f outside [%d, %d]",
			ErrInvalidConfig, a.SampleRate, MinSampleRate, MaxSampleRate)
	}
	if a.WindowSize <= 0 || a.WindowSize > MaxWindowSize {
		return fmt.Errorf("%w: acquisition.window_size %d outside (0, %d]", ErrInvalidConfig, a.WindowSize, MaxWindowSize)
	}
	if a.BatchSize <= 0 || a.BatchSize > a.WindowSize {
		return fmt.Errorf("%w: acquisition.batch_size %d must be in (0, window_size=%d]",
			ErrInvalidConfig, a.BatchSize, a.WindowSize)
	}
	switch a.SampleBits {
	case 8, 12, 16:
	default:
		return fmt.Errorf("%w: acquisition.sample_bits must be 8, 12 or 16, got %d", ErrInvalidConfig, a.SampleBits)
	}
	if a.Channel < 0 {
		return fmt.Errorf("%w: acquisition.channel must not be negative", ErrInvalidConfig)
	}

	d := c.Detector
	switch d.Kind {
	case DetectorPeak:
		if d.SmoothingWindow <= 0 || d.SearchWindow <= 0 || d.MaxPeaks <= 0 {
			return fmt.Errorf("%w: detector windows and max_peaks must be positive", ErrInvalidConfig)
		}
		if d.MinDelta >= d.MaxDelta {
			return fmt.Errorf("%w: detector.min_delta %s must be below max_delta %s", ErrInvalidConfig, d.MinDelta, d.MaxDelta)
		}
		if d.RatioThreshold <= 0 {
			return fmt.Errorf("%w: detector.ratio_threshold must be positive", ErrInvalidConfig)
		}
	case DetectorClassifier:
		if d.Classifier.URL == "" {
			return fmt.Errorf("%w: detector.classifier.url must be set", ErrInvalidConfig)
		}
		if d.Classifier.Labels <= 0 {
			return fmt.Errorf("%w: detector.classifier.labels must be positive", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown detector.kind %q", ErrInvalidConfig, d.Kind)
	}
	switch d.Normalize {
	case NormalizeRaw, NormalizeMean, NormalizeMinMax:
	default:
		return fmt.Errorf("%w: unknown detector.normalize %q", ErrInvalidConfig, d.Normalize)
	}
	if d.Cooldown < 0 {
		return fmt.Errorf("%w: detector.cooldown must not be negative", ErrInvalidConfig)
	}

	if c.Gate.Threshold < 0 || c.Gate.Threshold > 1 {
		return fmt.Errorf("%w: gate.threshold must be within [0, 1]", ErrInvalidConfig)
	}

	s := c.Strip
	if s.Pixels <= 0 {
		return fmt.Errorf("%w: strip.pixels must be positive", ErrInvalidConfig)
	}
	if s.ColorOrder != "grb" && s.ColorOrder != "rgb" {
		return fmt.Errorf("%w: strip.color_order must be grb or rgb", ErrInvalidConfig)
	}
	if s.Brightness < 0 || s.Brightness > 255 {
		return fmt.Errorf("%w: strip.brightness must be within [0, 255]", ErrInvalidConfig)
	}
	if len(s.Patterns) == 0 {
		return fmt.Errorf("%w: strip.patterns must name at least one pattern", ErrInvalidConfig)
	}
	for _, drv := range s.Drivers {
		switch drv {
		case DriverUDP, DriverWebSocket, DriverMonitor:
		default:
			return fmt.Errorf("%w: unknown strip driver %q", ErrInvalidConfig, drv)
		}
	}
	if c.HasDriver(DriverWebSocket) && !c.Transport.WebSocketEnabled {
		return fmt.Errorf("%w: the websocket strip driver needs transport.websocket_enabled", ErrInvalidConfig)
	}

	return nil
}

// applyEnvOverrides lets deployments flip the common knobs without editing YAML.
func (cfg *Config) applyEnvOverrides() {
	// ENV_{...}
	// These are general overrides.

	// ENV_DEBUG
	if val, ok := os.LookupEnv("ENV_DEBUG"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			cfg.Debug = bVal
		}
	}
	// ENV_LOG_LEVEL
	if val, ok := os.LookupEnv("ENV_LOG_LEVEL"); ok {
		cfg.LogLevel = val
	}
	// ENV_SOURCE
	if val, ok := os.LookupEnv("ENV_SOURCE"); ok {
		cfg.Acquisition.Source = val
	}

	// ENV_UDP_{...} and ENV_HTTP_{...}
	// These are specific to the transport layer.

	// ENV_UDP_TARGET_ADDRESS
	if val, ok := os.LookupEnv("ENV_UDP_TARGET_ADDRESS"); ok {
		cfg.Transport.UDPTargetAddress = val
	}
	// ENV_UDP_TIMEOUT
	if val, ok := os.LookupEnv("ENV_UDP_TIMEOUT"); ok {
		if dur, err := time.ParseDuration(val); err == nil {
			cfg.Transport.UDPTimeout = dur
		}
	}
	// ENV_HTTP_ADDRESS
	if val, ok := os.LookupEnv("ENV_HTTP_ADDRESS"); ok {
		cfg.Transport.HTTPAddress = val
	}
}
