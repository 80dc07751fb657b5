// SPDX-License-Identifier: MIT
package audio

import (
	"math"
	"testing"
)

func TestSampleRateForDivisor(t *testing.T) {
	tests := []struct {
		name string
		div  float64
		want float64
	}{
		{"Board default", 11999, 4000},
		{"8 kHz", 5999, 8000},
		{"Ceiling", MinClockDivisor, 500000},
		{"Below ceiling clamps", 0, 500000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SampleRateForDivisor(tt.div); got != tt.want {
				t.Errorf("SampleRateForDivisor(%v) = %v, want %v", tt.div, got, tt.want)
			}
		})
	}
}

func TestClockDivisorRoundTrip(t *testing.T) {
	for _, rate := range []float64{500, 4000, 16000, 44100, 500000} {
		div := ClockDivisor(rate)
		if got := SampleRateForDivisor(div); math.Abs(got-rate) > 1e-6 {
			t.Errorf("rate %v -> divisor %v -> rate %v", rate, div, got)
		}
	}
	if got := ClockDivisor(4000); got != 11999 {
		t.Errorf("ClockDivisor(4000) = %v, want 11999", got)
	}
	if got := ClockDivisor(0); got != 0 {
		t.Errorf("ClockDivisor(0) = %v, want 0", got)
	}
}

func TestCodeWidths(t *testing.T) {
	tests := []struct {
		bits      int
		mid, full Sample
	}{
		{8, 128, 255},
		{12, 2048, 4095},
		{16, 32768, 65535},
	}
	for _, tt := range tests {
		if got := Midpoint(tt.bits); got != tt.mid {
			t.Errorf("Midpoint(%d) = %d, want %d", tt.bits, got, tt.mid)
		}
		if got := FullScale(tt.bits); got != tt.full {
			t.Errorf("FullScale(%d) = %d, want %d", tt.bits, got, tt.full)
		}
		if got := CodeFromPCM16(0, tt.bits); got != tt.mid {
			t.Errorf("CodeFromPCM16(0, %d) = %d, want %d", tt.bits, got, tt.mid)
		}
		if got := CodeFromPCM16(math.MinInt16, tt.bits); got != 0 {
			t.Errorf("CodeFromPCM16(min, %d) = %d, want 0", tt.bits, got)
		}
		if got := CodeFromPCM16(math.MaxInt16, tt.bits); got != tt.full {
			t.Errorf("CodeFromPCM16(max, %d) = %d, want %d", tt.bits, got, tt.full)
		}
	}
}

func TestPCM16RoundTrip(t *testing.T) {
	for _, bits := range []int{8, 12, 16} {
		for c := 0; c <= int(FullScale(bits)); c += 7 {
			code := Sample(c)
			if got := CodeFromPCM16(PCM16FromCode(code, bits), bits); got != code {
				t.Fatalf("bits %d: code %d round-tripped to %d", bits, code, got)
			}
		}
	}
}

func TestCodeFromFloat(t *testing.T) {
	tests := []struct {
		x    float64
		want Sample
	}{
		{0, 2048},
		{1, 4095},
		{-1, 1},
		{2, 4095},
		{-2, 1},
		{0.5, 3072},
	}
	for _, tt := range tests {
		if got := CodeFromFloat(tt.x, 12); got != tt.want {
			t.Errorf("CodeFromFloat(%v) = %d, want %d", tt.x, got, tt.want)
		}
	}
}
