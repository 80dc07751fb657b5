// SPDX-License-Identifier: MIT

// Package pipeline runs the detection goroutine: acquire a burst, derive
// features, classify, apply the cooldown and hand the result to the
// renderer through the mailbox.
//
// Every buffer is allocated in New; Step does not allocate unless it has
// an event to report.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"clapper/internal/audio"
	"clapper/internal/detect"
	"clapper/internal/fft"
	"clapper/internal/log"
	"clapper/internal/transport"

	"github.com/prometheus/client_golang/prometheus"
)

// Outbox is the detection end of the mailbox.
type Outbox interface {
	// Publish hands word to the renderer if it has asked for news.
	Publish(word uint32) bool
}

// Options wires a Pipeline. Buffer, Normalizer, Detector and Outbox are
// required; everything else may be nil.
type Options struct {
	Buffer     *audio.Buffer
	Normalizer *detect.Normalizer
	Detector   detect.Detector
	Outbox     Outbox
	Cooldown   time.Duration

	Gate      *audio.Gate
	Recorder  *audio.Recorder
	Spectrum  *fft.Processor // analyses every burst before the gate
	Transport transport.Transport
	Metrics   *Metrics
	Now       func() time.Time // defaults to time.Now
}

// Result describes one Step.
type Result struct {
	Classification detect.Classification
	Gated          bool   // the amplitude gate kept the detector from running
	Published      bool   // the renderer received the classification
	Reason         string // why a non-empty classification was not published
	DominantHz     float64
}

// Pipeline owns the acquisition window, the feature window and the
// cooldown gate. It is driven by a single goroutine.
type Pipeline struct {
	buffer     *audio.Buffer
	normalizer *detect.Normalizer
	detector   detect.Detector
	outbox     Outbox
	cooldown   *Cooldown

	gate      *audio.Gate
	recorder  *audio.Recorder
	spectrum  *fft.Processor
	bandGauge []prometheus.Gauge // one per spectrum band, resolved in New
	transport transport.Transport
	metrics   *Metrics
	now       func() time.Time

	analyzer  interface{ Last() detect.Analysis } // set for the peak detector
	published uint64
}

// New validates the wiring.
func New(opts Options) (*Pipeline, error) {
	if opts.Buffer == nil || opts.Normalizer == nil || opts.Detector == nil || opts.Outbox == nil {
		return nil, errors.New("pipeline: buffer, normalizer, detector and outbox are required")
	}
	if opts.Cooldown < 0 {
		return nil, fmt.Errorf("pipeline: negative cooldown %s", opts.Cooldown)
	}
	p := &Pipeline{
		buffer:     opts.Buffer,
		normalizer: opts.Normalizer,
		detector:   opts.Detector,
		outbox:     opts.Outbox,
		cooldown:   NewCooldown(opts.Cooldown),
		gate:       opts.Gate,
		recorder:   opts.Recorder,
		spectrum:   opts.Spectrum,
		transport:  opts.Transport,
		metrics:    opts.Metrics,
		now:        opts.Now,
	}
	if p.now == nil {
		p.now = time.Now
	}
	if a, ok := opts.Detector.(interface{ Last() detect.Analysis }); ok {
		p.analyzer = a
	}
	if p.spectrum != nil && p.metrics != nil {
		for _, b := range p.spectrum.Bands() {
			p.bandGauge = append(p.bandGauge, p.metrics.BandEnergy.WithLabelValues(b.Name))
		}
	}
	return p, nil
}

// Step runs one acquire/detect/publish iteration. Acquisition errors and
// classifier failures are returned; everything else is handled here.
func (p *Pipeline) Step(ctx context.Context) (Result, error) {
	if err := p.buffer.Refresh(ctx); err != nil {
		return Result{}, err
	}
	if p.metrics != nil {
		p.metrics.Batches.Inc()
	}

	if p.recorder != nil {
		if err := p.recorder.Write(p.buffer.Latest()); err != nil {
			log.Errorf("Pipeline: recording failed, stopping it: %v", err)
			if err := p.recorder.Stop(); err != nil {
				log.Errorf("Pipeline: error closing recording: %v", err)
			}
		}
	}

	var dominant float64
	if p.spectrum != nil {
		spec := p.spectrum.Process(p.buffer.Latest())
		dominant = spec.DominantHz
		if p.metrics != nil {
			p.metrics.DominantFrequency.Set(spec.DominantHz)
			p.metrics.InputLevel.Set(spec.RMS)
			for i, b := range spec.Bands {
				p.bandGauge[i].Set(b.Energy)
			}
		}
	}

	if p.gate != nil && !p.gate.Open(p.buffer.Latest()) {
		if p.metrics != nil {
			p.metrics.Gated.Inc()
		}
		return Result{Gated: true, DominantHz: dominant}, nil
	}

	start := time.Now()
	features := p.normalizer.Apply(p.buffer.Samples())
	cls, err := p.detector.Classify(features)
	if err != nil {
		return Result{}, fmt.Errorf("pipeline: %w", err)
	}
	if p.metrics != nil {
		p.metrics.DetectDuration.Observe(time.Since(start).Seconds())
	}

	var analysis detect.Analysis
	if p.analyzer != nil {
		analysis = p.analyzer.Last()
		if analysis.Truncated {
			log.Debugf("Pipeline: peak capacity reached, collection truncated at %d", analysis.Peaks)
			if p.metrics != nil {
				p.metrics.Truncated.Inc()
			}
		}
		if p.metrics != nil {
			p.metrics.Ratio.Set(analysis.Ratio)
		}
	}

	res := Result{Classification: cls, DominantHz: dominant}
	if cls.Kind == detect.NoEvent {
		return res, nil
	}
	if p.metrics != nil {
		p.metrics.Detections.WithLabelValues(cls.Kind.String()).Inc()
	}

	now := p.now()
	gated := cls.Kind != detect.TriggerOff
	switch {
	case gated && !p.cooldown.Ready(now):
		res.Reason = transport.ReasonCooldown
		log.Debugf("Pipeline: %s held back, cooldown %s remaining", cls, p.cooldown.Remaining(now))
	case p.outbox.Publish(cls.Word()):
		res.Published = true
		p.published++
		if gated {
			p.cooldown.Mark(now)
		}
	default:
		res.Reason = transport.ReasonNoRequest
	}

	if p.metrics != nil {
		if res.Published {
			p.metrics.Published.WithLabelValues(cls.Kind.String()).Inc()
		} else {
			p.metrics.Suppressed.WithLabelValues(res.Reason).Inc()
		}
	}
	if p.transport != nil {
		event := transport.DetectionEvent{
			Type:      "detection",
			Time:      now,
			Event:     cls.String(),
			Word:      cls.Word(),
			Published: res.Published,
			Reason:    res.Reason,
			Ratio:     analysis.Ratio,
			Delta:     analysis.Delta,
			Dominant:  dominant,
		}
		if err := p.transport.Send(event); err != nil {
			log.Warnf("Pipeline: error sending detection event: %v", err)
		}
	}
	return res, nil
}

// Run steps until ctx is cancelled or the input runs out. It returns
// nil on either; any other error is fatal and returned as is.
func (p *Pipeline) Run(ctx context.Context) error {
	log.Infof("Pipeline: running, window %d, burst %d", p.buffer.WindowSize(), p.buffer.BatchSize())
	for {
		_, err := p.Step(ctx)
		switch {
		case err == nil:
			continue
		case ctx.Err() != nil:
			return nil
		case errors.Is(err, io.EOF), errors.Is(err, audio.ErrSourceClosed):
			log.Infof("Pipeline: input exhausted after %d bursts", p.buffer.Batches())
			return nil
		default:
			return err
		}
	}
}

// Published returns how many classifications reached the renderer.
func (p *Pipeline) Published() uint64 {
	return p.published
}
