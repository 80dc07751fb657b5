// SPDX-License-Identifier: MIT
package audio

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestSynthetic(t *testing.T) *SyntheticSource {
	t.Helper()
	cfg := DefaultSyntheticConfig(12)
	cfg.Paced = false
	src := NewSyntheticSource(cfg)
	if err := src.Configure(0, ClockDivisor(testSampleRate)); err != nil {
		t.Fatal(err)
	}
	return src
}

func TestSyntheticClapSchedule(t *testing.T) {
	src := newTestSynthetic(t)
	if src.SampleRate() != testSampleRate {
		t.Fatalf("SampleRate() = %v", src.SampleRate())
	}

	// First pair starts at 1s (4000) and 1.2s (4800).
	codes := make([]Sample, 6000)
	if err := src.Acquire(context.Background(), codes); err != nil {
		t.Fatal(err)
	}

	if idx := peakDeviation(codes[:4400], 12); idx != 4000 {
		t.Errorf("first clap at %d, want 4000", idx)
	}
	if idx := peakDeviation(codes[4400:], 12) + 4400; idx != 4800 {
		t.Errorf("second clap at %d, want 4800", idx)
	}

	// The floor stays close to mid-rail.
	mid := int(Midpoint(12))
	for i := range 3900 {
		if d := int(codes[i]) - mid; d > 25 || d < -25 {
			t.Fatalf("floor sample %d deviates by %d", i, d)
		}
	}
}

func TestSyntheticDeterministic(t *testing.T) {
	a, b := newTestSynthetic(t), newTestSynthetic(t)
	x := make([]Sample, testBatchSize)
	y := make([]Sample, testBatchSize)
	for range 3 {
		_ = a.Acquire(context.Background(), x)
		_ = b.Acquire(context.Background(), y)
		for i := range x {
			if x[i] != y[i] {
				t.Fatalf("sample %d differs between identical sources", i)
			}
		}
	}
}

func TestSyntheticPacing(t *testing.T) {
	cfg := DefaultSyntheticConfig(12)
	src := NewSyntheticSource(cfg)
	// 500 kHz so a 1000 sample burst takes 2ms.
	if err := src.Configure(0, MinClockDivisor); err != nil {
		t.Fatal(err)
	}

	dst := make([]Sample, 1000)
	start := time.Now()
	for range 5 {
		if err := src.Acquire(context.Background(), dst); err != nil {
			t.Fatal(err)
		}
	}
	if elapsed := time.Since(start); elapsed < 8*time.Millisecond {
		t.Errorf("5 paced bursts took %s, want at least ~10ms", elapsed)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := src.Acquire(ctx, dst); !errors.Is(err, context.Canceled) {
		t.Errorf("Acquire with cancelled context = %v", err)
	}
}

func TestSyntheticLifecycle(t *testing.T) {
	src := NewSyntheticSource(DefaultSyntheticConfig(12))
	dst := make([]Sample, 10)
	if err := src.Acquire(context.Background(), dst); err == nil {
		t.Error("expected error before Configure")
	}
	_ = src.Configure(0, 11999)
	_ = src.Close()
	if err := src.Acquire(context.Background(), dst); !errors.Is(err, ErrSourceClosed) {
		t.Errorf("Acquire after Close = %v, want ErrSourceClosed", err)
	}
}

func TestSyntheticAcquireAllocations(t *testing.T) {
	src := newTestSynthetic(t)
	dst := make([]Sample, testBatchSize)
	_ = src.Acquire(context.Background(), dst)

	allocs := testing.AllocsPerRun(50, func() {
		_ = src.Acquire(context.Background(), dst)
	})
	if allocs > 0 {
		t.Errorf("Acquire allocated memory: got %.1f allocs, want 0", allocs)
	}
}
