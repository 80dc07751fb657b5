// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"sync"
	"time"

	"clapper/internal/animation"
	"clapper/internal/audio"
	"clapper/internal/config"
	"clapper/internal/detect"
	"clapper/internal/device"
	"clapper/internal/discovery"
	"clapper/internal/fft"
	"clapper/internal/log"
	"clapper/internal/mailbox"
	"clapper/internal/pipeline"
	"clapper/internal/transport"
	"clapper/internal/transport/udp"
	"clapper/internal/tui"
	"clapper/pkg/build"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const shutdownTimeout = 5 * time.Second

// app owns every long-lived component of a detection run.
type app struct {
	cfg   *config.Config
	runID string

	source        audio.Source
	model         io.Closer // remote classifier connection, if any
	recorder      *audio.Recorder
	recordingPath string

	pipeline   *pipeline.Pipeline
	controller *animation.Controller
	transports transport.Multi
	monitor    *tui.Monitor
	logFile    *os.File

	registry  *prometheus.Registry
	server    *transport.Server
	discovery *discovery.Manager
}

// newApp builds the pipeline, the renderer and their collaborators from cfg.
// Network listeners are started here so bind errors surface before the hot
// loops begin.
func newApp(ctx context.Context, cfg *config.Config) (_ *app, err error) {
	a := &app{cfg: cfg, runID: uuid.NewString()}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()
	version := build.GetBuildFlags().Version
	log.Infof("Run %s: source %s, detector %s, %.0f Hz, window %s, burst %s",
		a.runID, cfg.Acquisition.Source, cfg.Detector.Kind, cfg.Acquisition.SampleRate,
		cfg.WindowDuration(), cfg.BatchDuration())

	// Acquisition
	a.source, err = newSource(cfg)
	if err != nil {
		return nil, err
	}
	buffer, err := audio.NewBuffer(a.source, cfg.Acquisition.WindowSize, cfg.Acquisition.BatchSize)
	if err != nil {
		return nil, err
	}

	// Detection
	normalizer, err := detect.NewNormalizer(cfg.Detector.Normalize, cfg.Acquisition.WindowSize)
	if err != nil {
		return nil, err
	}
	detector, model, err := newDetector(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.model = model

	gate := audio.NewGate(cfg.Acquisition.SampleBits, cfg.Gate.Threshold)
	if cfg.Gate.Enabled {
		gate.Enable()
	}

	if cfg.Recording.Enabled {
		a.recorder = audio.NewRecorder(cfg.Acquisition.SampleRate, cfg.Acquisition.SampleBits, cfg.Acquisition.BatchSize)
		a.recordingPath = cfg.RecordingPath(time.Now())
		if err := a.recorder.Start(a.recordingPath); err != nil {
			return nil, err
		}
	}

	// Status transports and strip drivers
	a.transports = transport.Multi{transport.NewLoggingTransport()}
	var strips animation.Multi

	var wst *transport.WebSocketTransport
	if cfg.Transport.WebSocketEnabled {
		wst = transport.NewWebSocketTransport(transport.HelloEvent{
			RunID:   a.runID,
			Version: version,
			Pixels:  cfg.Strip.Pixels,
		})
		a.transports = append(a.transports, wst)
		if cfg.HasDriver(config.DriverWebSocket) {
			strips = append(strips, wst)
		}
	}
	if cfg.HasDriver(config.DriverUDP) {
		strips = append(strips, udp.NewStrip(cfg.Transport.UDPTargetAddress, cfg.Transport.UDPTimeout, cfg.Strip.Pixels))
	}
	if cfg.Monitor || cfg.HasDriver(config.DriverMonitor) {
		// The monitor owns the terminal; logs go to a file meanwhile.
		if a.logFile, err = os.Create("clapper.log"); err != nil {
			return nil, err
		}
		log.SetOutput(a.logFile)
		a.monitor = tui.NewMonitor(ctx, fmt.Sprintf("clapper %s", version), cfg.Strip.Pixels)
		a.transports = append(a.transports, a.monitor)
		strips = append(strips, a.monitor)
	}
	var strip animation.Strip = strips
	if len(strips) == 0 {
		log.Warnf("No strip drivers configured, frames are kept in memory only")
		strip = animation.NewMemoryStrip(1)
	}

	// Rendering
	order, err := animation.ParseColorOrder(cfg.Strip.ColorOrder)
	if err != nil {
		return nil, err
	}
	frame := animation.NewFrame(cfg.Strip.Pixels, order)
	frame.SetBrightness(uint8(cfg.Strip.Brightness))
	patterns, err := animation.NewPatterns(cfg.Strip.Patterns)
	if err != nil {
		return nil, err
	}

	box := mailbox.New()
	a.controller, err = animation.NewController(box.Consumer(), strip, frame, patterns, cfg.Strip.OffInterval)
	if err != nil {
		return nil, err
	}
	a.controller.OnStateChange(func(s animation.State) {
		ev := transport.StateEvent{Type: "state", Time: time.Now(), On: s.On, Pattern: s.Pattern, Name: s.Name}
		if err := a.transports.Send(ev); err != nil {
			log.Warnf("Animation: error sending state event: %v", err)
		}
	})

	// Metrics
	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := pipeline.NewMetrics(a.registry)
	pipeline.WatchRenderer(a.registry, a.controller)

	spectrum, err := newSpectrum(cfg)
	if err != nil {
		return nil, err
	}

	a.pipeline, err = pipeline.New(pipeline.Options{
		Buffer:     buffer,
		Normalizer: normalizer,
		Detector:   detector,
		Outbox:     box.Producer(),
		Cooldown:   cfg.Detector.Cooldown,
		Gate:       gate,
		Recorder:   a.recorder,
		Spectrum:   spectrum,
		Transport:  a.transports,
		Metrics:    metrics,
	})
	if err != nil {
		return nil, err
	}

	// HTTP and discovery
	if cfg.HTTPEnabled() {
		a.server = transport.NewServer(cfg.Transport.HTTPAddress)
		if cfg.Transport.MetricsEnabled {
			a.server.HandleMetrics(a.registry)
		}
		if wst != nil {
			a.server.HandleWebSocket(wst)
		}
		if err := a.server.Start(); err != nil {
			return nil, fmt.Errorf("failed to start HTTP server: %w", err)
		}
		if cfg.Discovery.Enabled {
			a.discovery = discovery.NewManager(discovery.Config{
				ServiceName: cfg.Discovery.ServiceName,
				Port:        a.server.Port(),
				RunID:       a.runID,
				Version:     version,
			})
			if err := a.discovery.Advertise(); err != nil {
				log.Warnf("Discovery: %v", err)
				a.discovery = nil
			}
		}
	}

	return a, nil
}

// newSource creates and configures the acquisition source.
func newSource(cfg *config.Config) (audio.Source, error) {
	acq := cfg.Acquisition
	var src audio.Source
	switch acq.Source {
	case config.SourcePortAudio:
		src = device.NewMicSource(acq.Device, acq.SampleBits, acq.BatchSize, acq.LowLatency)
	case config.SourceFile:
		src = audio.NewReplaySource(acq.File, acq.SampleBits, acq.Loop, true)
	case config.SourceSynthetic:
		src = audio.NewSyntheticSource(audio.DefaultSyntheticConfig(acq.SampleBits))
	default:
		return nil, fmt.Errorf("unknown acquisition source %q", acq.Source)
	}
	if err := src.Configure(acq.Channel, audio.ClockDivisor(acq.SampleRate)); err != nil {
		return nil, fmt.Errorf("failed to configure %s source: %w", acq.Source, err)
	}
	return src, nil
}

// newSpectrum builds the optional spectrum stage; nil when disabled.
func newSpectrum(cfg *config.Config) (*fft.Processor, error) {
	if !cfg.Spectrum.Enabled {
		return nil, nil
	}
	win, err := fft.ParseWindowFunc(cfg.Spectrum.Window)
	if err != nil {
		return nil, err
	}
	return fft.NewProcessor(cfg.Acquisition.BatchSize, cfg.Acquisition.SampleRate, cfg.Acquisition.SampleBits, win)
}

// newDetector builds the configured detector. The returned closer is the
// classifier connection, nil for the peak detector.
func newDetector(ctx context.Context, cfg *config.Config) (detect.Detector, io.Closer, error) {
	d := cfg.Detector
	window := cfg.Acquisition.WindowSize
	switch d.Kind {
	case config.DetectorPeak:
		det, err := detect.NewPeakDetector(detect.PeakConfig{
			SampleRate:      cfg.Acquisition.SampleRate,
			SmoothingWindow: d.SmoothingWindow,
			SearchWindow:    d.SearchWindow,
			MaxPeaks:        d.MaxPeaks,
			MinDelta:        d.MinDelta,
			MaxDelta:        d.MaxDelta,
			RatioThreshold:  d.RatioThreshold,
		}, window)
		return det, nil, err

	case config.DetectorClassifier:
		inputSize := d.Classifier.InputSize
		if inputSize == 0 {
			inputSize = window
		}
		model, err := detect.DialRemoteModel(ctx, d.Classifier.URL, inputSize, d.Classifier.Labels)
		if err != nil {
			return nil, nil, err
		}
		det, err := detect.NewClassifierDetector(model, window, detect.LabelMapping{
			Threshold: d.Classifier.Threshold,
			OnLabel:   d.Classifier.OnLabel,
			OffLabel:  d.Classifier.OffLabel,
		})
		if err != nil {
			model.Close()
			return nil, nil, err
		}
		return det, model, nil
	}
	return nil, nil, fmt.Errorf("unknown detector %q", d.Kind)
}

// Run starts the detection and rendering goroutines and blocks until ctx is
// cancelled, the monitor quits, or the pipeline stops. A fatal pipeline
// error is returned.
func (a *app) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg          sync.WaitGroup
		pipelineErr error
		renderErr   error
	)

	if a.monitor != nil {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if err := a.monitor.Run(); err != nil {
				log.Errorf("Monitor: %v", err)
			}
			cancel()
		}()
		// The controller closes the monitor with the rest of the strip,
		// but not when the strip failed to open.
		go func() {
			defer wg.Done()
			<-ctx.Done()
			a.monitor.Close()
		}()
	}

	wg.Add(2)
	go func() {
		defer wg.Done()
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		renderErr = a.controller.Run(ctx)
		cancel()
	}()
	go func() {
		defer wg.Done()
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		pipelineErr = a.pipeline.Run(ctx)
		cancel()
	}()

	wg.Wait()
	log.Infof("Run %s stopped after %d published events", a.runID, a.pipeline.Published())
	return errors.Join(pipelineErr, renderErr)
}

// Close releases everything newApp acquired. It is safe on a partially
// built app.
func (a *app) Close() error {
	var errs []error
	if a.discovery != nil {
		errs = append(errs, a.discovery.Stop())
	}
	if a.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		errs = append(errs, a.server.Shutdown(ctx))
		cancel()
	}
	if a.transports != nil {
		errs = append(errs, a.transports.Close())
	}
	if a.recorder != nil && a.recorder.Recording() {
		if err := a.recorder.Stop(); err != nil {
			errs = append(errs, err)
		} else {
			log.Infof("Recording saved to: %s", a.recordingPath)
		}
	}
	if a.model != nil {
		errs = append(errs, a.model.Close())
	}
	if a.source != nil {
		errs = append(errs, a.source.Close())
	}
	if a.logFile != nil {
		log.SetOutput(nil)
		errs = append(errs, a.logFile.Close())
	}
	return errors.Join(errs...)
}

// record captures input to a WAV file without running detection.
func record(ctx context.Context, cfg *config.Config, duration time.Duration) error {
	src, err := newSource(cfg)
	if err != nil {
		return err
	}
	defer src.Close()

	buffer, err := audio.NewBuffer(src, cfg.Acquisition.WindowSize, cfg.Acquisition.BatchSize)
	if err != nil {
		return err
	}
	recorder := audio.NewRecorder(cfg.Acquisition.SampleRate, cfg.Acquisition.SampleBits, cfg.Acquisition.BatchSize)
	path := cfg.RecordingPath(time.Now())
	if err := recorder.Start(path); err != nil {
		return err
	}

	if duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, duration)
		defer cancel()
	}
	log.Infof("Recording to %s, press Ctrl+C to stop", path)

	var runErr error
	for {
		if err := buffer.Refresh(ctx); err != nil {
			if ctx.Err() == nil && !errors.Is(err, io.EOF) && !errors.Is(err, audio.ErrSourceClosed) {
				runErr = err
			}
			break
		}
		if err := recorder.Write(buffer.Latest()); err != nil {
			runErr = err
			break
		}
	}

	written := recorder.Written()
	if err := recorder.Stop(); err != nil {
		return errors.Join(runErr, err)
	}
	log.Infof("Recording saved to: %s (%d samples, %.1fs)", path, written, float64(written)/cfg.Acquisition.SampleRate)
	return runErr
}
