// SPDX-License-Identifier: MIT
package animation

import (
	"fmt"
	"time"
)

// Frame delays for the built-in patterns.
const (
	RainbowInterval = 10 * time.Millisecond
	SolidInterval   = 100 * time.Millisecond
	PulseInterval   = 20 * time.Millisecond
)

// WarmWhite is the dim colour of the solid pattern.
var WarmWhite = Color{R: 10, G: 10, B: 5}

// Pattern draws one step of an animation. Render must be short: the
// controller polls the mailbox between steps, so a step is the longest a
// new trigger can wait.
type Pattern interface {
	Name() string
	// Reset rewinds progress counters; called whenever the pattern is entered.
	Reset()
	// Render draws the next step into f and returns how long to show it.
	Render(f *Frame) time.Duration
}

// NewPattern builds a pattern by name.
func NewPattern(name string) (Pattern, error) {
	switch name {
	case "rainbow":
		return &Rainbow{}, nil
	case "solid":
		return &Solid{Color: WarmWhite}, nil
	case "pulse":
		return &Pulse{Color: Color{R: 255, G: 96, B: 0}}, nil
	}
	return nil, fmt.Errorf("unknown pattern %q", name)
}

// NewPatterns builds patterns in the given order.
func NewPatterns(names []string) ([]Pattern, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("at least one pattern is required")
	}
	patterns := make([]Pattern, 0, len(names))
	for _, name := range names {
		p, err := NewPattern(name)
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, p)
	}
	return patterns, nil
}

// Wheel maps a position on the 256-step colour wheel to a colour,
// going red to blue to green and back.
func Wheel(pos uint8) Color {
	pos = 255 - pos
	switch {
	case pos < 85:
		return Color{R: 255 - pos*3, G: 0, B: pos * 3}
	case pos < 170:
		pos -= 85
		return Color{R: 0, G: pos * 3, B: 255 - pos*3}
	default:
		pos -= 170
		return Color{R: pos * 3, G: 255 - pos*3, B: 0}
	}
}

// Rainbow spreads the whole wheel across the strip and rotates it one
// step per frame.
type Rainbow struct {
	phase uint8
}

func (r *Rainbow) Name() string { return "rainbow" }

func (r *Rainbow) Reset() { r.phase = 0 }

// Phase returns the hue offset of the next frame.
func (r *Rainbow) Phase() uint8 { return r.phase }

func (r *Rainbow) Render(f *Frame) time.Duration {
	n := f.Len()
	for i := range n {
		f.Set(i, Wheel(uint8(i*256/n+int(r.phase))))
	}
	r.phase++
	return RainbowInterval
}

// Solid holds one colour on every pixel.
type Solid struct {
	Color Color
}

func (s *Solid) Name() string { return "solid" }

func (s *Solid) Reset() {}

func (s *Solid) Render(f *Frame) time.Duration {
	f.Fill(s.Color)
	return SolidInterval
}

// Pulse grows a lit band outwards from the middle of the strip until it
// covers both ends, then shrinks it back to the middle, one pixel per side
// per step.
type Pulse struct {
	Color  Color
	radius int
	down   bool
}

func (p *Pulse) Name() string { return "pulse" }

func (p *Pulse) Reset() {
	p.radius = 0
	p.down = false
}

func (p *Pulse) Render(f *Frame) time.Duration {
	n := f.Len()
	centre := n / 2
	f.Clear()
	for i := centre - p.radius; i <= centre+p.radius; i++ {
		f.Set(i, p.Color)
	}

	full := centre - p.radius <= 0 && centre+p.radius >= n-1
	switch {
	case p.down && p.radius == 0:
		p.down = false
	case p.down:
		p.radius--
	case full:
		p.down = true
		if p.radius > 0 {
			p.radius--
		}
	default:
		p.radius++
	}
	return PulseInterval
}
