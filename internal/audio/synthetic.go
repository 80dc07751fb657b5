// SPDX-License-Identifier: MIT
package audio

import (
	"context"
	"math"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"clapper/pkg/utils"
)

// SyntheticConfig describes the generated signal: a noise floor with a
// double clap repeated every Every.
type SyntheticConfig struct {
	SampleBits int
	Floor      float64       // noise amplitude, fraction of full scale
	Amplitude  float64       // clap onset amplitude, fraction of full scale
	Gap        time.Duration // spacing between the two claps of a pair
	Every      time.Duration // schedule period; zero disables claps
	Offset     time.Duration // position of the first clap pair
	Seed       uint64
	Paced      bool // sleep so bursts arrive in real time
}

// DefaultSyntheticConfig claps twice, 200ms apart, every three seconds.
func DefaultSyntheticConfig(bits int) SyntheticConfig {
	return SyntheticConfig{
		SampleBits: bits,
		Floor:      0.01,
		Amplitude:  0.8,
		Gap:        200 * time.Millisecond,
		Every:      3 * time.Second,
		Offset:     time.Second,
		Seed:       1,
		Paced:      true,
	}
}

// SyntheticSource generates audio without hardware. Used for demos, the
// monitor and end-to-end tests.
type SyntheticSource struct {
	cfg        SyntheticConfig
	sampleRate float64
	rng        *rand.Rand
	noise      []float64
	pos        int64 // samples produced so far

	every, gap, offset, decay int64

	timer    *time.Timer
	deadline time.Time
	closed   atomic.Bool
}

// NewSyntheticSource returns an unconfigured source.
func NewSyntheticSource(cfg SyntheticConfig) *SyntheticSource {
	return &SyntheticSource{
		cfg: cfg,
		rng: rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)),
	}
}

// Configure derives the sample rate from the clock divisor. The channel
// is ignored: there is only one.
func (s *SyntheticSource) Configure(channel int, clockDiv float64) error {
	s.sampleRate = SampleRateForDivisor(clockDiv)
	toSamples := func(d time.Duration) int64 { return int64(math.Round(d.Seconds() * s.sampleRate)) }
	s.every = toSamples(s.cfg.Every)
	s.gap = toSamples(s.cfg.Gap)
	s.offset = toSamples(s.cfg.Offset)
	s.decay = max(1, int64(s.sampleRate/200))
	return nil
}

// SampleRate returns the configured rate.
func (s *SyntheticSource) SampleRate() float64 {
	return s.sampleRate
}

func (s *SyntheticSource) Acquire(ctx context.Context, dst []Sample) error {
	if s.closed.Load() {
		return ErrSourceClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.sampleRate == 0 {
		return errNotConfigured
	}

	if cap(s.noise) < len(dst) {
		s.noise = make([]float64, len(dst))
	}
	noise := s.noise[:len(dst)]
	utils.FillNoise(noise, s.cfg.Floor, s.rng)

	for i := range dst {
		dst[i] = CodeFromFloat(noise[i]+s.clap(s.pos), s.cfg.SampleBits)
		s.pos++
	}

	if s.cfg.Paced {
		return s.wait(ctx, time.Duration(float64(len(dst))/s.sampleRate*float64(time.Second)))
	}
	return nil
}

// clap returns the clap component at absolute sample position pos.
func (s *SyntheticSource) clap(pos int64) float64 {
	if s.every <= 0 || pos < s.offset {
		return 0
	}
	k := (pos - s.offset) % s.every
	if k >= s.gap {
		k -= s.gap
	}
	if k >= 4*s.decay {
		return 0
	}
	v := s.cfg.Amplitude * math.Exp(-float64(k)/float64(s.decay))
	if k%2 == 1 {
		v = -v
	}
	return v
}

// wait blocks until the burst would have finished arriving in real time.
func (s *SyntheticSource) wait(ctx context.Context, burst time.Duration) error {
	now := time.Now()
	if s.deadline.IsZero() || now.Sub(s.deadline) > burst {
		s.deadline = now
	}
	s.deadline = s.deadline.Add(burst)

	d := time.Until(s.deadline)
	if d <= 0 {
		return nil
	}
	if s.timer == nil {
		s.timer = time.NewTimer(d)
	} else {
		s.timer.Reset(d)
	}
	select {
	case <-ctx.Done():
		s.timer.Stop()
		return ctx.Err()
	case <-s.timer.C:
		return nil
	}
}

func (s *SyntheticSource) Close() error {
	s.closed.Store(true)
	return nil
}
