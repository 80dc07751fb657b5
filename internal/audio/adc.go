// SPDX-License-Identifier: MIT
package audio

import "math"

// Sample is one raw, unsigned ADC code. Codes are mid-rail biased: silence
// sits at 1<<(bits-1).
type Sample = uint16

// ADCClockHz is the conversion clock feeding the sampler. One sample is
// taken every (1 + divisor) clock cycles.
const ADCClockHz = 48_000_000

// MinClockDivisor is where the 96-cycle conversion time takes over: any
// smaller divisor runs back-to-back conversions at 500 kHz.
const MinClockDivisor = 95

// SampleRateForDivisor converts an ADC clock divisor into a sample rate.
func SampleRateForDivisor(div float64) float64 {
	if div < MinClockDivisor {
		div = MinClockDivisor
	}
	return ADCClockHz / (1 + div)
}

// ClockDivisor returns the divisor that yields rate, the inverse of
// SampleRateForDivisor.
func ClockDivisor(rate float64) float64 {
	if rate <= 0 {
		return 0
	}
	div := ADCClockHz/rate - 1
	if div < MinClockDivisor {
		div = MinClockDivisor
	}
	return div
}

// Midpoint returns the silence code for the given code width.
func Midpoint(bits int) Sample {
	return Sample(1) << (bits - 1)
}

// FullScale returns the largest code for the given code width.
func FullScale(bits int) Sample {
	return Sample((uint32(1) << bits) - 1)
}

// CodeFromPCM16 maps a signed 16-bit PCM sample onto an unsigned code of
// the given width, the way a biased microphone front-end presents audio
// to the converter.
func CodeFromPCM16(s int16, bits int) Sample {
	return Sample((int32(s) + 32768) >> (16 - bits))
}

// PCM16FromCode is the inverse of CodeFromPCM16, used when recording.
func PCM16FromCode(c Sample, bits int) int16 {
	return int16(int32(c)<<(16-bits) - 32768)
}

// CodeFromFloat maps a float sample in [-1, 1] onto a code.
func CodeFromFloat(x float64, bits int) Sample {
	if x > 1 {
		x = 1
	} else if x < -1 {
		x = -1
	}
	mid := float64(Midpoint(bits))
	v := math.Round(mid + x*(mid-1))
	return Sample(v)
}
