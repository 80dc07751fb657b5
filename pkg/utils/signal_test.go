// SPDX-License-Identifier: MIT
package utils

import (
	"math"
	"os"
	"testing"
	"time"
)

const (
	testSize       = 2000
	testSampleRate = 4000
	testFrequency  = 440.0
)

var testMagnitudes []float64

func TestMain(m *testing.M) {
	testMagnitudes = make([]float64, testSize)
	for i := range testMagnitudes {
		// Creates a "hill" with peak at position testSize/4.
		testMagnitudes[i] = math.Exp(-0.01 * math.Pow(float64(i-testSize/4), 2))
	}

	os.Exit(m.Run())
}

func TestMockTransport(t *testing.T) {
	mt := &MockTransport{}
	for i := range 3 {
		if err := mt.Send(i); err != nil {
			t.Fatalf("Send() error = %v", err)
		}
	}

	events := mt.Events()
	if len(events) != 3 {
		t.Fatalf("Events() len = %d, want 3", len(events))
	}
	events[0] = "mutated"
	if mt.Events()[0] != 0 {
		t.Error("Events() returned a reference instead of a copy")
	}

	if mt.Closed() {
		t.Error("transport closed before Close()")
	}
	_ = mt.Close()
	if !mt.Closed() {
		t.Error("transport not closed after Close()")
	}
}

func TestGenerateSineWave(t *testing.T) {
	tests := []struct {
		name       string
		size       int
		sampleRate float64
		frequency  float64
	}{
		{"A4 Note", 1024, 44100, 440.0},
		{"Board Rate", 2000, 4000, 440.0},
		{"Low Tone", 2000, 4000, 50.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := GenerateSineWave(tt.size, tt.sampleRate, tt.frequency)

			if len(result) != tt.size {
				t.Fatalf("GenerateSineWave() buffer size = %d, want %d", len(result), tt.size)
			}

			samplesPerCycle := tt.sampleRate / tt.frequency
			crossCount := 0
			for i := 1; i < tt.size; i++ {
				if (result[i-1] < 0 && result[i] >= 0) ||
					(result[i-1] >= 0 && result[i] < 0) {
					crossCount++
				}
			}

			expectedCrossings := float64(tt.size) / (samplesPerCycle / 2)
			tolerance := 0.2*expectedCrossings + 1

			if math.Abs(float64(crossCount)-expectedCrossings) > tolerance {
				t.Errorf("zero crossings = %d, expected approximately %.1f±%.1f",
					crossCount, expectedCrossings, tolerance)
			}
		})
	}
}

func TestGenerateNoiseDeterministic(t *testing.T) {
	a := GenerateNoise(testSize, 0.1, 7)
	b := GenerateNoise(testSize, 0.1, 7)
	c := GenerateNoise(testSize, 0.1, 8)

	same := true
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("sample %d differs for equal seeds", i)
		}
		if a[i] != c[i] {
			same = false
		}
		if math.Abs(a[i]) > 0.1 {
			t.Fatalf("sample %d = %f exceeds amplitude", i, a[i])
		}
	}
	if same {
		t.Error("different seeds produced identical noise")
	}
}

func TestAddClap(t *testing.T) {
	buf := make([]float64, 100)
	AddClap(buf, 10, 0.8, 5)

	if buf[9] != 0 {
		t.Errorf("sample before clap = %f, want 0", buf[9])
	}
	if buf[10] != 0.8 {
		t.Errorf("clap onset = %f, want 0.8", buf[10])
	}
	if buf[11] >= 0 {
		t.Errorf("clap does not alternate sign: %f", buf[11])
	}
	if math.Abs(buf[20]) >= math.Abs(buf[10]) {
		t.Error("clap does not decay")
	}
	if buf[30] != 0 {
		t.Errorf("clap tail past 4 decay constants = %f, want 0", buf[30])
	}

	// Clipping and out-of-range onsets.
	AddClap(buf, 10, 0.8, 5)
	if buf[10] != 1 {
		t.Errorf("clipped onset = %f, want 1", buf[10])
	}
	AddClap(buf, 98, 0.5, 5)
	AddClap(buf, -3, 0.5, 5)
}

func TestGenerateDoubleClap(t *testing.T) {
	buf := GenerateDoubleClap(testSize, testSampleRate, 200, 200*time.Millisecond, 0.9, 0.01)
	if len(buf) != testSize {
		t.Fatalf("len = %d", len(buf))
	}
	if got := FindPeakIndex(buf, 0, 600); got != 200 {
		t.Errorf("first clap at %d, want 200", got)
	}
	if got := FindPeakIndex(buf, 600, testSize-1); got != 1000 {
		t.Errorf("second clap at %d, want 1000", got)
	}
}

func TestFindPeakIndex(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		start    int
		end      int
		expected int
	}{
		{"Full Range", testMagnitudes, 0, testSize - 1, testSize / 4},
		{"Partial Range Start", testMagnitudes, testSize / 8, testSize - 1, testSize / 4},
		{"Partial Range End", testMagnitudes, 0, testSize / 3, testSize / 4},
		{"Negative Start", testMagnitudes, -10, testSize - 1, testSize / 4},
		{"Out of Range End", testMagnitudes, 0, testSize * 2, testSize / 4},
		{"Negative Peak", []float64{0.1, -0.9, 0.5}, 0, 2, 1},
		{"Empty Slice", []float64{}, 0, 10, 0},
		{"Single Value", []float64{1.0}, 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := FindPeakIndex(tt.values, tt.start, tt.end); result != tt.expected {
				t.Errorf("FindPeakIndex() = %d, want %d", result, tt.expected)
			}
		})
	}

	allocs := testing.AllocsPerRun(100, func() {
		FindPeakIndex(testMagnitudes, 0, len(testMagnitudes)-1)
	})
	if allocs > 0 {
		t.Errorf("FindPeakIndex allocated memory: got %.1f allocs, want 0", allocs)
	}
}

func BenchmarkGenerateDoubleClap(b *testing.B) {
	b.ReportAllocs()
	for b.Loop() {
		GenerateDoubleClap(testSize, testSampleRate, 200, 200*time.Millisecond, 0.9, 0.01)
	}
}

func BenchmarkFindPeakIndex(b *testing.B) {
	benchmarks := []struct {
		name string
		size int
	}{
		{"Small", 64},
		{"Standard", 2000},
		{"Large", 8192},
	}

	for _, bm := range benchmarks {
		b.Run(bm.name, func(b *testing.B) {
			vals := make([]float64, bm.size)
			peakPos := bm.size / 2
			for i := range vals {
				vals[i] = math.Exp(-0.01 * math.Pow(float64(i-peakPos), 2))
			}

			b.ReportAllocs()
			b.ResetTimer()

			for b.Loop() {
				FindPeakIndex(vals, 0, bm.size-1)
			}
		})
	}
}
