// SPDX-License-Identifier: MIT
package audio

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/ik5/audpbx"
	pbx "github.com/ik5/audpbx/audio"
	"github.com/ik5/audpbx/formats/mp3"
	"github.com/ik5/audpbx/formats/vorbis"
)

// resampleBufSize is the read size used while converting a file.
const resampleBufSize = 4096

// decoders maps file extensions to decoders. WAV goes through go-audio/wav,
// compressed formats through audpbx.
var decoders = func() *pbx.Registry {
	r := pbx.NewRegistry()
	r.Register(".wav", wavDecoder{})
	r.Register(".mp3", mp3.Decoder{})
	r.Register(".ogg", vorbis.Decoder{})
	return r
}()

// ReplaySource feeds a recorded file through the pipeline as if it were
// coming off the converter. The file is decoded, mixed to mono and
// resampled once, in Configure.
type ReplaySource struct {
	path  string
	bits  int
	loop  bool
	paced bool

	pcm        []int16
	pos        int
	sampleRate float64

	timer    *time.Timer
	deadline time.Time
	closed   atomic.Bool
}

// NewReplaySource returns a source for path. With loop set, playback
// restarts at the end of the file; otherwise Acquire returns io.EOF.
func NewReplaySource(path string, bits int, loop, paced bool) *ReplaySource {
	return &ReplaySource{path: path, bits: bits, loop: loop, paced: paced}
}

// Configure decodes the file at the rate implied by the clock divisor.
func (r *ReplaySource) Configure(channel int, clockDiv float64) error {
	r.sampleRate = SampleRateForDivisor(clockDiv)

	ext := strings.ToLower(filepath.Ext(r.path))
	dec, ok := decoders.Get(ext)
	if !ok {
		return fmt.Errorf("unsupported replay format %q", ext)
	}

	f, err := os.Open(r.path)
	if err != nil {
		return fmt.Errorf("failed to open replay file: %w", err)
	}
	defer f.Close()

	src, err := dec.Decode(f)
	if err != nil {
		return fmt.Errorf("failed to decode %s: %w", r.path, err)
	}
	defer src.Close()

	pcm, _, err := audpbx.ResampleToMono16(src, int(r.sampleRate), resampleBufSize)
	if err != nil && err != io.EOF {
		return fmt.Errorf("failed to resample %s: %w", r.path, err)
	}
	if len(pcm) == 0 {
		return fmt.Errorf("replay file %s holds no samples", r.path)
	}
	r.pcm = pcm
	r.pos = 0
	return nil
}

// Len returns the number of decoded samples.
func (r *ReplaySource) Len() int {
	return len(r.pcm)
}

func (r *ReplaySource) Acquire(ctx context.Context, dst []Sample) error {
	if r.closed.Load() {
		return ErrSourceClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.pcm == nil {
		return errNotConfigured
	}

	for i := range dst {
		if r.pos == len(r.pcm) {
			if !r.loop {
				return io.EOF
			}
			r.pos = 0
		}
		dst[i] = CodeFromPCM16(r.pcm[r.pos], r.bits)
		r.pos++
	}

	if r.paced {
		return r.wait(ctx, time.Duration(float64(len(dst))/r.sampleRate*float64(time.Second)))
	}
	return nil
}

func (r *ReplaySource) wait(ctx context.Context, burst time.Duration) error {
	now := time.Now()
	if r.deadline.IsZero() || now.Sub(r.deadline) > burst {
		r.deadline = now
	}
	r.deadline = r.deadline.Add(burst)

	d := time.Until(r.deadline)
	if d <= 0 {
		return nil
	}
	if r.timer == nil {
		r.timer = time.NewTimer(d)
	} else {
		r.timer.Reset(d)
	}
	select {
	case <-ctx.Done():
		r.timer.Stop()
		return ctx.Err()
	case <-r.timer.C:
		return nil
	}
}

func (r *ReplaySource) Close() error {
	r.closed.Store(true)
	return nil
}

// wavDecoder adapts go-audio/wav to the audpbx decoder contract.
type wavDecoder struct{}

func (wavDecoder) Decode(rd io.Reader) (pbx.Source, error) {
	rs, ok := rd.(io.ReadSeeker)
	if !ok {
		return nil, fmt.Errorf("wav decoding needs a seekable reader")
	}
	dec := wav.NewDecoder(rs)
	if !dec.IsValidFile() {
		if err := dec.Err(); err != nil {
			return nil, fmt.Errorf("not a valid WAV file: %w", err)
		}
		return nil, fmt.Errorf("not a valid WAV file")
	}
	format := dec.Format()
	if format == nil || format.NumChannels == 0 || format.SampleRate == 0 {
		return nil, fmt.Errorf("WAV file has no usable format")
	}

	depth := int(dec.BitDepth)
	s := &wavSource{
		dec:        dec,
		sampleRate: format.SampleRate,
		channels:   format.NumChannels,
		scale:      1 / float32(int(1)<<(depth-1)),
		unsigned:   depth == 8,
		buf: &goaudio.IntBuffer{
			Format: format,
			Data:   make([]int, resampleBufSize),
		},
	}
	return s, nil
}

type wavSource struct {
	dec        *wav.Decoder
	sampleRate int
	channels   int
	scale      float32
	unsigned   bool // 8-bit WAV stores unsigned samples
	buf        *goaudio.IntBuffer
	pending    []int // decoded but not yet handed out
	eof        bool
}

func (s *wavSource) SampleRate() int { return s.sampleRate }
func (s *wavSource) Channels() int   { return s.channels }
func (s *wavSource) BufSize() int    { return cap(s.buf.Data) }
func (s *wavSource) Close() error    { return nil }

// ReadSamples serves dst from blocks decoded resampleBufSize at a time; the
// resampler asks for one frame per call.
func (s *wavSource) ReadSamples(dst []float32) (int, error) {
	if len(dst) == 0 {
		return 0, nil
	}
	if len(s.pending) == 0 {
		if s.eof {
			return 0, io.EOF
		}
		s.buf.Data = s.buf.Data[:cap(s.buf.Data)]
		n, err := s.dec.PCMBuffer(s.buf)
		if err != nil {
			return 0, err
		}
		if n == 0 {
			s.eof = true
			return 0, io.EOF
		}
		s.pending = s.buf.Data[:n]
	}

	n := copy32(dst, s.pending, s.scale, s.unsigned)
	s.pending = s.pending[n:]
	return n, nil
}

func copy32(dst []float32, src []int, scale float32, unsigned bool) int {
	n := min(len(dst), len(src))
	for i := 0; i < n; i++ {
		v := src[i]
		if unsigned {
			v -= 128
		}
		dst[i] = float32(v) * scale
	}
	return n
}
