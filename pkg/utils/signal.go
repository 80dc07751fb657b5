// SPDX-License-Identifier: MIT

// Package utils holds synthetic signal generators shared by the synthetic
// acquisition source, tests and benchmarks. Generated samples are floats in
// [-1, 1].
package utils

import (
	"math"
	"math/rand/v2"
	"time"
)

// GenerateSineWave returns size samples of a sine at 90% of full scale.
func GenerateSineWave(size int, sampleRate, frequency float64) []float64 {
	buffer := make([]float64, size)
	for i := range buffer {
		t := float64(i) / sampleRate
		buffer[i] = math.Sin(2*math.Pi*frequency*t) * 0.9
	}
	return buffer
}

// GenerateNoise returns size samples of uniform noise in [-amplitude, amplitude].
// The same seed always yields the same samples.
func GenerateNoise(size int, amplitude float64, seed uint64) []float64 {
	buffer := make([]float64, size)
	FillNoise(buffer, amplitude, rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)))
	return buffer
}

// FillNoise overwrites buf with uniform noise drawn from rng.
func FillNoise(buf []float64, amplitude float64, rng *rand.Rand) {
	for i := range buf {
		buf[i] = (rng.Float64()*2 - 1) * amplitude
	}
}

// AddClap mixes a clap into buf starting at index at: an alternating-sign
// burst whose amplitude decays by 1/e every decay samples. Samples past the
// end of buf are dropped and the sum is clipped to [-1, 1].
func AddClap(buf []float64, at int, amplitude float64, decay int) {
	if decay <= 0 {
		decay = 1
	}
	sign := 1.0
	for k := 0; k < 4*decay; k++ {
		i := at + k
		if i < 0 {
			continue
		}
		if i >= len(buf) {
			break
		}
		v := buf[i] + sign*amplitude*math.Exp(-float64(k)/float64(decay))
		buf[i] = math.Max(-1, math.Min(1, v))
		sign = -sign
	}
}

// GenerateDoubleClap returns noise with two claps gap apart, the first at
// index first. It is the signal shape the peak-ratio detector triggers on.
func GenerateDoubleClap(size int, sampleRate float64, first int, gap time.Duration, amplitude, floor float64) []float64 {
	buffer := GenerateNoise(size, floor, uint64(first))
	second := first + int(gap.Seconds()*sampleRate)
	decay := int(sampleRate / 200) // ~5ms
	AddClap(buffer, first, amplitude, decay)
	AddClap(buffer, second, amplitude, decay)
	return buffer
}

// FindPeakIndex returns the index of the largest absolute value in
// values[startIdx:endIdx+1]. Bounds are clamped.
func FindPeakIndex(values []float64, startIdx, endIdx int) int {
	if len(values) == 0 {
		return 0
	}

	if startIdx < 0 {
		startIdx = 0
	}

	if endIdx >= len(values) {
		endIdx = len(values) - 1
	}

	peakIdx := startIdx
	peakValue := math.Abs(values[startIdx])

	for i := startIdx + 1; i <= endIdx; i++ {
		if v := math.Abs(values[i]); v > peakValue {
			peakValue = v
			peakIdx = i
		}
	}

	return peakIdx
}
