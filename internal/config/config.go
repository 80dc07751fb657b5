// SPDX-License-Identifier: MIT
package config

import "time"

// Core configuration constants that define the boundaries and defaults
// for the clapper pipeline. Defaults mirror the original board firmware.
const (
	// Acquisition defaults
	DefaultSource       = SourcePortAudio
	DefaultDeviceID     = MinDeviceID // Default to system default device
	DefaultChannel      = 0           // ADC channel 0 / first input channel
	DefaultSampleRate   = 4000        // Hz, clock divisor 11999
	DefaultWindowSize   = 2000        // INSIZE, half a second at 4 kHz
	DefaultBatchSize    = 1000        // NSAMP, detector runs every quarter second
	DefaultSampleBits   = 12          // RP2040 ADC resolution
	DefaultHTTPAddress  = ":8080"
	DefaultUDPTarget    = "127.0.0.1:21324" // WLED realtime UDP port
	DefaultPixelCount   = 60
	DefaultColorOrder   = "grb"
	DefaultBrightness   = 255
	DefaultServiceName  = "clapper"
	DefaultRecordingDir = "./recordings"

	// Detector defaults
	DefaultDetector        = DetectorPeak
	DefaultSmoothingWindow = 50
	DefaultSearchWindow    = 400
	DefaultMaxPeaks        = 100
	DefaultRatioThreshold  = 1.7
	DefaultClassThreshold  = 0.9
	DefaultClassOnLabel    = 0
	DefaultClassOffLabel   = 2

	// Hardware and processing limits
	MinDeviceID   = -1     // -1 represents system default device
	MinSampleRate = 500    // Slowest useful ADC rate (Hz)
	MaxSampleRate = 500000 // ADC ceiling with clock divisor 0 (Hz)
	MaxWindowSize = 1 << 16
)

// Duration defaults, kept apart because untyped constants cannot carry time.Duration arithmetic nicely.
const (
	DefaultMinDelta    = 150 * time.Millisecond
	DefaultMaxDelta    = 250 * time.Millisecond
	DefaultCooldown    = time.Second
	DefaultOffInterval = 200 * time.Millisecond
	DefaultUDPTimeout  = 2 * time.Second
)

// Acquisition source names.
const (
	SourcePortAudio = "portaudio"
	SourceFile      = "file"
	SourceSynthetic = "synthetic"
)

// Detector names.
const (
	DetectorPeak       = "peak"
	DetectorClassifier = "classifier"
)

// Feature normalization policy names.
const (
	NormalizeRaw    = "raw"
	NormalizeMean   = "mean"
	NormalizeMinMax = "minmax"
)

// Strip driver names.
const (
	DriverUDP       = "udp"
	DriverWebSocket = "websocket"
	DriverMonitor   = "monitor"
)

// Config represents the main application configuration structure, loaded from YAML.
type Config struct {
	Debug       bool              `yaml:"debug"`             // Enable debug mode (verbose logging).
	LogLevel    string            `yaml:"log_level"`         // Logging level ("debug", "info", "warn", "error").
	Command     string            `yaml:"command,omitempty"` // A one-off command to execute instead of running the pipeline (e.g., "list").
	Acquisition AcquisitionConfig `yaml:"acquisition"`
	Detector    DetectorConfig    `yaml:"detector"`
	Gate        GateConfig        `yaml:"gate"`
	Spectrum    SpectrumConfig    `yaml:"spectrum"`
	Strip       StripConfig       `yaml:"strip"`
	Recording   RecordingConfig   `yaml:"recording"`
	Transport   TransportConfig   `yaml:"transport"`
	Discovery   DiscoveryConfig   `yaml:"discovery"`
	Monitor     bool              `yaml:"monitor"` // Run the terminal monitor.
}

// AcquisitionConfig holds settings for the sampling context.
type AcquisitionConfig struct {
	Source     string  `yaml:"source"`      // "portaudio", "file" or "synthetic".
	Device     int     `yaml:"device"`      // PortAudio device index (-1 for default).
	Channel    int     `yaml:"channel"`     // Input channel to sample.
	SampleRate float64 `yaml:"sample_rate"` // Sample rate in Hz; drives the clock divisor.
	WindowSize int     `yaml:"window_size"` // Samples kept in the sliding window (INSIZE).
	BatchSize  int     `yaml:"batch_size"`  // Samples delivered per burst (NSAMP).
	SampleBits int     `yaml:"sample_bits"` // Code width: 8, 12 or 16.
	File       string  `yaml:"file"`        // Replay file for the "file" source.
	Loop       bool    `yaml:"loop"`        // Restart replay at end of file.
	LowLatency bool    `yaml:"low_latency"` // Ask PortAudio for its low input latency.
}

// DetectorConfig holds the event detector parameters.
type DetectorConfig struct {
	Kind            string           `yaml:"kind"`             // "peak" or "classifier".
	Normalize       string           `yaml:"normalize"`        // "raw", "mean" or "minmax".
	SmoothingWindow int              `yaml:"smoothing_window"` // Envelope window width in samples.
	SearchWindow    int              `yaml:"search_window"`    // Peak search window width in samples.
	MaxPeaks        int              `yaml:"max_peaks"`        // Peak container capacity.
	MinDelta        time.Duration    `yaml:"min_delta"`        // Lower (exclusive) bound of the peak spacing band.
	MaxDelta        time.Duration    `yaml:"max_delta"`        // Upper (exclusive) bound of the peak spacing band.
	RatioThreshold  float64          `yaml:"ratio_threshold"`  // Peak average over noise floor must exceed this.
	Cooldown        time.Duration    `yaml:"cooldown"`         // Minimum time between published triggers.
	Classifier      ClassifierConfig `yaml:"classifier"`
}

// ClassifierConfig binds the external inference engine.
type ClassifierConfig struct {
	URL       string  `yaml:"url"`        // WebSocket endpoint of the inference engine.
	InputSize int     `yaml:"input_size"` // Feature length the model expects.
	Labels    int     `yaml:"labels"`     // Number of labels in the probability vector.
	Threshold float64 `yaml:"threshold"`  // Probability a label must exceed.
	OnLabel   int     `yaml:"on_label"`   // Label index mapped to TriggerOn (-1 disables).
	OffLabel  int     `yaml:"off_label"`  // Label index mapped to TriggerOff (-1 disables).
}

// GateConfig configures the amplitude gate in front of the detector.
type GateConfig struct {
	Enabled   bool    `yaml:"enabled"`
	Threshold float64 `yaml:"threshold"` // Fraction of full-scale deviation, 0.0-1.0.
}

// SpectrumConfig enables the per-burst spectrum stage.
type SpectrumConfig struct {
	Enabled bool   `yaml:"enabled"`
	Window  string `yaml:"window"` // "hann", "hamming", "blackman", ... or "none".
}

// StripConfig configures the LED strip and animation timing.
type StripConfig struct {
	Pixels      int           `yaml:"pixels"`
	ColorOrder  string        `yaml:"color_order"` // "grb" or "rgb".
	Brightness  int           `yaml:"brightness"`  // 0-255.
	Drivers     []string      `yaml:"drivers"`     // Any of "udp", "websocket", "monitor".
	Patterns    []string      `yaml:"patterns"`    // Pattern order, e.g. ["rainbow", "solid", "pulse"].
	OffInterval time.Duration `yaml:"off_interval"`
}

// RecordingConfig holds settings related to audio recording functionality.
type RecordingConfig struct {
	Enabled   bool   `yaml:"enabled"`    // Append every acquired batch to a WAV file.
	OutputDir string `yaml:"output_dir"` // Directory to save recorded audio files.
	File      string `yaml:"file"`       // Explicit file name; generated when empty.
}

// TransportConfig holds settings related to sending frames and events over the network.
type TransportConfig struct {
	HTTPAddress      string        `yaml:"http_address"`       // Listen address for /ws and /metrics.
	WebSocketEnabled bool          `yaml:"websocket_enabled"`  // Serve events and frames on /ws.
	MetricsEnabled   bool          `yaml:"metrics_enabled"`    // Serve Prometheus metrics on /metrics.
	UDPTargetAddress string        `yaml:"udp_target_address"` // LED controller for the "udp" driver.
	UDPTimeout       time.Duration `yaml:"udp_timeout"`        // Controller falls back to its own effect after this.
}

// DiscoveryConfig controls mDNS advertisement of the HTTP endpoint.
type DiscoveryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LogLevel: "info",
		Acquisition: AcquisitionConfig{
			Source:     DefaultSource,
			Device:     DefaultDeviceID,
			Channel:    DefaultChannel,
			SampleRate: DefaultSampleRate,
			WindowSize: DefaultWindowSize,
			BatchSize:  DefaultBatchSize,
			SampleBits: DefaultSampleBits,
			Loop:       true,
		},
		Detector: DetectorConfig{
			Kind:            DefaultDetector,
			Normalize:       NormalizeMean,
			SmoothingWindow: DefaultSmoothingWindow,
			SearchWindow:    DefaultSearchWindow,
			MaxPeaks:        DefaultMaxPeaks,
			MinDelta:        DefaultMinDelta,
			MaxDelta:        DefaultMaxDelta,
			RatioThreshold:  DefaultRatioThreshold,
			Cooldown:        DefaultCooldown,
			Classifier: ClassifierConfig{
				Labels:    3,
				Threshold: DefaultClassThreshold,
				OnLabel:   DefaultClassOnLabel,
				OffLabel:  DefaultClassOffLabel,
			},
		},
		Gate: GateConfig{
			Enabled:   false,
			Threshold: 0.001,
		},
		Spectrum: SpectrumConfig{
			Enabled: false,
			Window:  "hann",
		},
		Strip: StripConfig{
			Pixels:      DefaultPixelCount,
			ColorOrder:  DefaultColorOrder,
			Brightness:  DefaultBrightness,
			Drivers:     []string{DriverUDP},
			Patterns:    []string{"rainbow", "solid", "pulse"},
			OffInterval: DefaultOffInterval,
		},
		Recording: RecordingConfig{
			Enabled:   false,
			OutputDir: DefaultRecordingDir,
		},
		Transport: TransportConfig{
			HTTPAddress:      DefaultHTTPAddress,
			WebSocketEnabled: false,
			MetricsEnabled:   true,
			UDPTargetAddress: DefaultUDPTarget,
			UDPTimeout:       DefaultUDPTimeout,
		},
		Discovery: DiscoveryConfig{
			Enabled:     false,
			ServiceName: DefaultServiceName,
		},
	}
}

// HTTPEnabled reports whether anything needs the shared HTTP listener.
func (c *Config) HTTPEnabled() bool {
	return c.Transport.WebSocketEnabled || c.Transport.MetricsEnabled
}

// HasDriver reports whether the named strip driver is configured.
func (c *Config) HasDriver(name string) bool {
	for _, d := range c.Strip.Drivers {
		if d == name {
			return true
		}
	}
	return false
}
