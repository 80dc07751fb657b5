// SPDX-License-Identifier: MIT
package fft

import "math"

// Band is a frequency range whose energy is reported per burst.
type Band struct {
	Name   string
	LowHz  float64
	HighHz float64 // exclusive
	Energy float64 // RMS magnitude of the bins in range, last burst
}

// DefaultBands returns the standard audio bands cut off at the Nyquist
// frequency of sampleRate. Bands lying wholly above Nyquist are dropped.
func DefaultBands(sampleRate float64) []Band {
	nyquist := sampleRate / 2
	all := []Band{
		{Name: "sub", LowHz: 20, HighHz: 60},
		{Name: "bass", LowHz: 60, HighHz: 250},
		{Name: "low_mid", LowHz: 250, HighHz: 500},
		{Name: "mid", LowHz: 500, HighHz: 2000},
		{Name: "high_mid", LowHz: 2000, HighHz: 4000},
		{Name: "treble", LowHz: 4000, HighHz: math.Inf(1)},
	}
	bands := all[:0]
	for _, b := range all {
		if b.LowHz >= nyquist {
			break
		}
		b.HighHz = min(b.HighHz, nyquist)
		bands = append(bands, b)
	}
	return bands
}

// accumulateBands fills each band's energy from the current magnitudes.
// The Nyquist bin belongs to the top band.
func (p *Processor) accumulateBands() {
	nyquist := p.sampleRate / 2
	last := len(p.bands) - 1
	for bi := range p.bands {
		b := &p.bands[bi]
		var energy float64
		var bins int
		for i, m := range p.workspace.magnitude {
			f := p.GetFrequencyBin(i)
			if f >= b.LowHz && (f < b.HighHz || (bi == last && f == nyquist)) {
				energy += m * m
				bins++
			}
		}
		b.Energy = 0
		if bins > 0 {
			b.Energy = math.Sqrt(energy / float64(bins))
		}
	}
}
