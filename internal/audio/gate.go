// SPDX-License-Identifier: MIT
package audio

import (
	"math"
	"sync/atomic"
)

// Gate skips detection on bursts that never leave the noise floor.
// Enable, Disable and SetThreshold may be called from any goroutine while
// the detection goroutine calls Open.
type Gate struct {
	enabled   atomic.Bool
	threshold atomic.Uint64 // math.Float64bits of the 0.0-1.0 setting
	limit     atomic.Int32  // threshold expressed as a code deviation
	mid       int32
}

// NewGate returns a disabled gate for codes of the given width.
func NewGate(bits int, threshold float64) *Gate {
	g := &Gate{mid: int32(Midpoint(bits))}
	g.SetThreshold(threshold)
	return g
}

func (g *Gate) Enable() {
	g.enabled.Store(true)
}

func (g *Gate) Disable() {
	g.enabled.Store(false)
}

// Enabled reports whether the gate is filtering.
func (g *Gate) Enabled() bool {
	return g.enabled.Load()
}

// SetThreshold adjusts the gate threshold.
// The value is in the range of 0.0-1.0 where 0=always open, 1=always closed.
func (g *Gate) SetThreshold(threshold float64) {
	if threshold < 0.0 {
		threshold = 0.0
	}
	if threshold > 1.0 {
		threshold = 1.0
	}

	g.threshold.Store(math.Float64bits(threshold))
	g.limit.Store(int32(threshold * float64(g.mid)))
}

// GetThreshold returns the current gate threshold.
func (g *Gate) GetThreshold() float64 {
	return math.Float64frombits(g.threshold.Load())
}

// Open reports whether the burst should reach the detector: true when the
// gate is disabled or the largest deviation from mid-rail exceeds the limit.
// Hot path: no allocations, branchless max.
func (g *Gate) Open(samples []Sample) bool {
	if !g.enabled.Load() {
		return true
	}

	var peak int32
	for _, s := range samples {
		d := int32(s) - g.mid
		mask := d >> 31
		amplitude := (d ^ mask) - mask
		diff := amplitude - peak
		peak += diff &^ (diff >> 31)
	}
	return peak > g.limit.Load()
}
