// SPDX-License-Identifier: MIT

// Package fft computes a magnitude spectrum of each acquired burst: the
// dominant frequency component, per-band energy and the burst level. It
// runs on the detection goroutine and never allocates after construction.
package fft

import (
	"fmt"
	"math"
	"math/cmplx"

	"clapper/internal/audio"
	"clapper/internal/log"
	"clapper/pkg/bitint"

	"gonum.org/v1/gonum/dsp/fourier"
)

// FFTWorkspace holds pre-allocated buffers for FFT calculations.
type FFTWorkspace struct {
	input     []float64    // ...for real input samples (DC removed, windowed, scaled)
	fftOutput []complex128 // ...for FFT complex output
	magnitude []float64    // ...for raw magnitude output
	window    []float64    // ...for window function coefficients
}

// Result is what one Process call computed. Bands aliases the processor's
// storage and is overwritten by the next call.
type Result struct {
	DominantHz float64 // centre frequency of the strongest bin below Nyquist
	RMS        float64 // burst level after DC removal, fraction of full scale
	Bands      []Band
}

// Processor holds the FFT processor state and configuration.
type Processor struct {
	fftSize    int
	sampleRate float64
	fullScale  float64
	workspace  FFTWorkspace
	fftObj     *fourier.FFT
	bands      []Band
}

// NewProcessor pre-allocates every buffer for bursts of up to burst codes
// of the given width. The transform length is burst rounded up to a power
// of two; shorter input is zero-padded.
func NewProcessor(burst int, sampleRate float64, bits int, windowType WindowFunc) (*Processor, error) {
	if burst <= 0 {
		return nil, fmt.Errorf("burst size must be positive, got %d", burst)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %f", sampleRate)
	}
	fftSize := bitint.NextPowerOfTwo(burst)
	window := make([]float64, fftSize)
	applyWindow(window[:min(burst, fftSize)], windowType)

	// Pre-compute the size of the output buffer
	outputSize := fftSize/2 + 1

	log.Infof("Spectrum: Initializing processor (Size: %d, SampleRate: %.1f Hz, Window: %s)", fftSize, sampleRate, windowType)

	return &Processor{
		fftSize:    fftSize,
		sampleRate: sampleRate,
		fullScale:  float64(audio.Midpoint(bits)),
		fftObj:     fourier.NewFFT(fftSize),
		bands:      DefaultBands(sampleRate),

		// Pre-allocate buffers for FFT processing
		workspace: FFTWorkspace{
			input:     make([]float64, fftSize),
			fftOutput: make([]complex128, outputSize),
			magnitude: make([]float64, outputSize),
			window:    window,
		},
	}, nil
}

// Process analyses one burst. The mean is subtracted first so the
// mid-rail bias does not swamp bin zero.
func (p *Processor) Process(codes []audio.Sample) Result {
	n := min(len(codes), p.fftSize)
	if n == 0 {
		return Result{Bands: p.bands}
	}

	var sum float64
	for _, c := range codes[:n] {
		sum += float64(c)
	}
	mean := sum / float64(n)

	var sumSquare float64
	for i := range p.fftSize {
		if i < n {
			v := (float64(codes[i]) - mean) / p.fullScale
			sumSquare += v * v
			p.workspace.input[i] = v * p.workspace.window[i]
		} else {
			p.workspace.input[i] = 0 // 0pad up to the transform length
		}
	}

	// Perform FFT on the input buffer, and calculate the magnitude
	_ = p.fftObj.Coefficients(p.workspace.fftOutput, p.workspace.input)
	for i := range p.workspace.fftOutput {
		p.workspace.magnitude[i] = cmplx.Abs(p.workspace.fftOutput[i])
	}

	// Any bin at or over fftSize/2 is aliased.
	maxPower, maxIdx := 0.0, 0
	for i := 0; i < p.fftSize/2; i++ {
		if power := p.workspace.magnitude[i] * p.workspace.magnitude[i]; power > maxPower {
			maxPower, maxIdx = power, i
		}
	}

	p.accumulateBands()
	return Result{
		DominantHz: p.GetFrequencyBin(maxIdx),
		RMS:        math.Sqrt(sumSquare / float64(n)),
		Bands:      p.bands,
	}
}

// Magnitudes returns the spectrum from the last Process call. The slice
// is owned by the processor.
func (p *Processor) Magnitudes() []float64 {
	return p.workspace.magnitude
}

// GetFrequencyBin returns the frequency in Hz for a given FFT bin index.
func (p *Processor) GetFrequencyBin(i int) float64 {
	if i < 0 || i >= len(p.workspace.fftOutput) {
		return 0
	}
	return p.fftObj.Freq(i) * p.sampleRate
}

// Size returns the transform length.
func (p *Processor) Size() int {
	return p.fftSize
}

// Bands returns the bands the processor reports, in order.
func (p *Processor) Bands() []Band {
	return p.bands
}
