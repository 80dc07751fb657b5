// SPDX-License-Identifier: MIT
package fft

import (
	"math"
	"testing"

	"clapper/internal/audio"
)

const (
	testBurst      = 1000
	testSampleRate = 4000
	testBits       = 12
)

func sineCodes(n int, freq, amplitude float64) []audio.Sample {
	codes := make([]audio.Sample, n)
	for i := range codes {
		x := amplitude * math.Sin(2*math.Pi*freq*float64(i)/testSampleRate)
		codes[i] = audio.CodeFromFloat(x, testBits)
	}
	return codes
}

func newTestProcessor(t testing.TB) *Processor {
	t.Helper()
	p, err := NewProcessor(testBurst, testSampleRate, testBits, Hann)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestProcessDominantFrequency(t *testing.T) {
	p := newTestProcessor(t)
	if p.Size() != 1024 {
		t.Fatalf("Size() = %d, want 1024", p.Size())
	}

	for _, freq := range []float64{250, 1000, 1500} {
		res := p.Process(sineCodes(testBurst, freq, 0.5))
		resolution := testSampleRate / float64(p.Size())
		if math.Abs(res.DominantHz-freq) > resolution {
			t.Errorf("DominantHz = %.1f, want %.1f ± %.1f", res.DominantHz, freq, resolution)
		}
	}
}

func TestProcessLevelAndBands(t *testing.T) {
	p := newTestProcessor(t)
	res := p.Process(sineCodes(testBurst, 1000, 0.5))

	if want := 0.5 / math.Sqrt2; math.Abs(res.RMS-want) > 0.01 {
		t.Errorf("RMS = %.4f, want %.4f", res.RMS, want)
	}

	loudest := ""
	best := -1.0
	for _, b := range res.Bands {
		if b.Energy > best {
			loudest, best = b.Name, b.Energy
		}
	}
	if loudest != "mid" {
		t.Errorf("loudest band = %q, want mid", loudest)
	}
}

func TestProcessRemovesBias(t *testing.T) {
	p := newTestProcessor(t)
	codes := make([]audio.Sample, testBurst)
	for i := range codes {
		codes[i] = audio.Midpoint(testBits) + 300
	}
	res := p.Process(codes)
	if res.RMS != 0 {
		t.Errorf("RMS = %f, want 0 for a constant burst", res.RMS)
	}
	if res.DominantHz != 0 {
		t.Errorf("DominantHz = %f, want 0 for a constant burst", res.DominantHz)
	}
	for _, m := range p.Magnitudes() {
		if m > 1e-9 {
			t.Fatalf("magnitude %g left after bias removal", m)
		}
	}
}

func TestProcessEmpty(t *testing.T) {
	p := newTestProcessor(t)
	res := p.Process(nil)
	if res.DominantHz != 0 || res.RMS != 0 || len(res.Bands) != len(p.Bands()) {
		t.Errorf("Process(nil) = %+v", res)
	}
}

func TestDefaultBands(t *testing.T) {
	tests := []struct {
		rate      float64
		names     []string
		topHighHz float64
	}{
		{4000, []string{"sub", "bass", "low_mid", "mid"}, 2000},
		{8000, []string{"sub", "bass", "low_mid", "mid", "high_mid"}, 4000},
		{48000, []string{"sub", "bass", "low_mid", "mid", "high_mid", "treble"}, 24000},
	}
	for _, tt := range tests {
		bands := DefaultBands(tt.rate)
		if len(bands) != len(tt.names) {
			t.Fatalf("DefaultBands(%.0f) returned %d bands, want %d", tt.rate, len(bands), len(tt.names))
		}
		for i, b := range bands {
			if b.Name != tt.names[i] {
				t.Errorf("DefaultBands(%.0f)[%d] = %s, want %s", tt.rate, i, b.Name, tt.names[i])
			}
		}
		if top := bands[len(bands)-1].HighHz; top != tt.topHighHz {
			t.Errorf("DefaultBands(%.0f) top edge = %.0f, want %.0f", tt.rate, top, tt.topHighHz)
		}
	}
}

func TestParseWindowFunc(t *testing.T) {
	tests := []struct {
		name    string
		want    WindowFunc
		wantErr bool
	}{
		{"", Hann, false},
		{"Hanning", Hann, false},
		{"hamming", Hamming, false},
		{"BLACKMAN", Blackman, false},
		{"none", Rectangular, false},
		{"kaiser", Hann, true},
	}
	for _, tt := range tests {
		got, err := ParseWindowFunc(tt.name)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseWindowFunc(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseWindowFunc(%q) = %s, want %s", tt.name, got, tt.want)
		}
	}
}

func TestNewProcessorErrors(t *testing.T) {
	if _, err := NewProcessor(0, testSampleRate, testBits, Hann); err == nil {
		t.Error("expected error for empty burst")
	}
	if _, err := NewProcessor(testBurst, 0, testBits, Hann); err == nil {
		t.Error("expected error for zero sample rate")
	}
}

func TestFFTHotPath(t *testing.T) {
	// Isolate Process allocations after a warm-up call.
	processor := newTestProcessor(t)
	codes := sineCodes(testBurst, 440, 0.3)
	processor.Process(codes)

	allocs := testing.AllocsPerRun(100, func() {
		processor.Process(codes)
	})
	if allocs > 0 {
		t.Errorf("Expected zero allocations in FFT Process hot path, got %.1f", allocs)
	}
}

func TestGetFrequencyBinZeroAllocs(t *testing.T) {
	processor := newTestProcessor(t)

	allocs := testing.AllocsPerRun(100, func() {
		_ = processor.GetFrequencyBin(0)                    // DC component
		_ = processor.GetFrequencyBin(10)                   // Low frequency
		_ = processor.GetFrequencyBin(processor.Size() / 4) // Mid frequency
		_ = processor.GetFrequencyBin(processor.Size() / 2) // Nyquist frequency
	})
	if allocs > 0 {
		t.Errorf("Expected zero allocations in GetFrequencyBin, got %.1f", allocs)
	}
	if got := processor.GetFrequencyBin(processor.Size() / 2); got != testSampleRate/2 {
		t.Errorf("Nyquist bin = %.1f Hz, want %d", got, testSampleRate/2)
	}
	if got := processor.GetFrequencyBin(-1); got != 0 {
		t.Errorf("GetFrequencyBin(-1) = %.1f, want 0", got)
	}
}

func BenchmarkProcess(b *testing.B) {
	processor := newTestProcessor(b)
	codes := sineCodes(testBurst, 440, 0.3)

	b.ReportAllocs()
	for b.Loop() {
		processor.Process(codes)
	}
}
