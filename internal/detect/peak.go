// SPDX-License-Identifier: MIT
package detect

import (
	"fmt"
	"math"
	"time"
)

// PeakConfig parameterizes the double-clap heuristic.
type PeakConfig struct {
	SampleRate      float64       // Hz, converts peak spacing to time
	SmoothingWindow int           // envelope window width in samples
	SearchWindow    int           // local-maximum search window width in samples
	MaxPeaks        int           // peak container capacity
	MinDelta        time.Duration // exclusive lower bound on peak spacing
	MaxDelta        time.Duration // exclusive upper bound on peak spacing
	RatioThreshold  float64       // peak average over noise floor must exceed this
}

// Peak is a local maximum of the window.
type Peak struct {
	Value float64
	Index int // -1 when unassigned
}

// Analysis is everything one detection pass computed, kept for logging and
// metrics.
type Analysis struct {
	PeakOne, PeakTwo Peak
	OverallAvg       float64 // mean of the smoothed envelope, the noise floor
	Ratio            float64 // ((PeakOne+PeakTwo)/2) / OverallAvg, 0 when undefined
	Delta            float64 // seconds between the two peaks
	Peaks            int     // peaks collected
	Truncated        bool    // collection stopped at MaxPeaks
	Result           Classification
}

// PeakDetector finds two comparably loud transients a plausible double-clap
// interval apart. It is a pure function of its input apart from scratch
// buffers.
type PeakDetector struct {
	cfg      PeakConfig
	minDelta float64
	maxDelta float64
	envelope []float64
	peaks    []Peak // fixed capacity MaxPeaks
	last     Analysis
}

// NewPeakDetector allocates scratch space for windows of windowSize samples.
func NewPeakDetector(cfg PeakConfig, windowSize int) (*PeakDetector, error) {
	switch {
	case cfg.SampleRate <= 0:
		return nil, fmt.Errorf("peak detector: sample rate must be positive")
	case cfg.SmoothingWindow <= 0 || cfg.SearchWindow <= 0:
		return nil, fmt.Errorf("peak detector: window widths must be positive")
	case cfg.MaxPeaks < 2:
		return nil, fmt.Errorf("peak detector: need room for at least two peaks")
	case cfg.MinDelta >= cfg.MaxDelta:
		return nil, fmt.Errorf("peak detector: min delta %s must be below max delta %s", cfg.MinDelta, cfg.MaxDelta)
	}
	return &PeakDetector{
		cfg:      cfg,
		minDelta: cfg.MinDelta.Seconds(),
		maxDelta: cfg.MaxDelta.Seconds(),
		envelope: make([]float64, windowSize),
		peaks:    make([]Peak, 0, cfg.MaxPeaks),
	}, nil
}

// Classify implements Detector. It never fails.
func (d *PeakDetector) Classify(window []float64) (Classification, error) {
	return d.Analyze(window).Result, nil
}

// Last returns the analysis of the most recent pass.
func (d *PeakDetector) Last() Analysis {
	return d.last
}

// Analyze runs one detection pass.
// Hot path: no allocations once the envelope fits the window.
func (d *PeakDetector) Analyze(window []float64) Analysis {
	a := Analysis{
		PeakOne: Peak{Index: -1},
		PeakTwo: Peak{Index: -1},
	}
	if len(window) == 0 {
		d.last = a
		return a
	}

	a.OverallAvg = d.smooth(window)
	a.Truncated = d.findPeaks(window)
	a.Peaks = len(d.peaks)

	// Single pass running max / second max starting from zero, so only
	// positive peaks are ever selected. Ties keep the earlier peak as
	// PeakOne.
	for _, p := range d.peaks {
		if p.Value > a.PeakOne.Value {
			a.PeakTwo = a.PeakOne
			a.PeakOne = p
		} else if p.Value > a.PeakTwo.Value {
			a.PeakTwo = p
		}
	}

	a.Result = Classification{Kind: NoEvent}
	if a.PeakTwo.Index < 0 || a.OverallAvg == 0 {
		d.last = a
		return a
	}

	spacing := a.PeakOne.Index - a.PeakTwo.Index
	if spacing < 0 {
		spacing = -spacing
	}
	a.Delta = float64(spacing) / d.cfg.SampleRate
	a.Ratio = ((a.PeakOne.Value + a.PeakTwo.Value) / 2) / a.OverallAvg
	if math.IsNaN(a.Ratio) || math.IsInf(a.Ratio, 0) {
		a.Ratio = 0
		d.last = a
		return a
	}

	if a.Delta > d.minDelta && a.Delta < d.maxDelta && a.Ratio > d.cfg.RatioThreshold {
		a.Result = Classification{Kind: TriggerOn}
	}
	d.last = a
	return a
}

// smooth fills the rectified moving-average envelope and returns its mean.
// Edge windows are clipped and divide by the samples actually used.
func (d *PeakDetector) smooth(window []float64) float64 {
	n := len(window)
	if cap(d.envelope) < n {
		d.envelope = make([]float64, n)
	}
	env := d.envelope[:n]
	half := d.cfg.SmoothingWindow / 2

	var total float64
	for i := range n {
		lo := max(0, i-half)
		hi := min(n, i+d.cfg.SmoothingWindow-half)
		var sum float64
		for _, v := range window[lo:hi] {
			sum += math.Abs(v)
		}
		env[i] = sum / float64(hi-lo)
		total += env[i]
	}
	return total / float64(n)
}

// plateau reports whether every sample in run equals v.
func plateau(run []float64, v float64) bool {
	for _, w := range run {
		if w != v {
			return false
		}
	}
	return true
}

// findPeaks collects samples no neighbour within the search window strictly
// exceeds. A sample joined to the previous peak by a run of equal samples
// is the same plateau and is not collected again. Returns true when the
// container filled up and collection stopped early.
func (d *PeakDetector) findPeaks(window []float64) bool {
	n := len(window)
	half := d.cfg.SearchWindow / 2
	d.peaks = d.peaks[:0]

	for i, v := range window {
		lo := max(0, i-half)
		hi := min(n, i+d.cfg.SearchWindow-half)

		largest := true
		for _, w := range window[lo:hi] {
			if w > v {
				largest = false
				break
			}
		}
		if !largest {
			continue
		}

		if k := len(d.peaks); k > 0 {
			prev := d.peaks[k-1]
			if prev.Value == v && plateau(window[prev.Index:i], v) {
				continue
			}
		}

		if len(d.peaks) == cap(d.peaks) {
			return true
		}
		d.peaks = append(d.peaks, Peak{Value: v, Index: i})
	}
	return false
}
