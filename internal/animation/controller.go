// SPDX-License-Identifier: MIT
package animation

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"clapper/internal/detect"
	"clapper/internal/log"
)

// Inbox is the rendering end of the mailbox.
type Inbox interface {
	// Poll returns a word if one has arrived and never blocks.
	Poll() (uint32, bool)
}

// State is the animation state: off, or on with a pattern index.
type State struct {
	On      bool
	Pattern int
	Name    string
}

func (s State) String() string {
	if !s.On {
		return "off"
	}
	return fmt.Sprintf("%s(%d)", s.Name, s.Pattern)
}

// Controller is the rendering state machine. It starts Off. Transitions
// happen only on words taken from the inbox:
//   - TriggerOn turns the strip on with the last pattern, or advances to
//     the next pattern if it is already on
//   - TriggerOff turns it off
//   - Select(n) turns it on with pattern n modulo the pattern count
type Controller struct {
	inbox       Inbox
	strip       Strip
	frame       *Frame
	patterns    []Pattern
	offInterval time.Duration
	onChange    func(State)

	on      bool
	current int

	frames     atomic.Uint64
	pushErrors atomic.Uint64
	state      atomic.Uint32 // snapshot for other goroutines: bit 31 on, low bits pattern
}

// NewController wires a controller. It does not open the strip.
func NewController(inbox Inbox, strip Strip, frame *Frame, patterns []Pattern, offInterval time.Duration) (*Controller, error) {
	if inbox == nil || strip == nil || frame == nil {
		return nil, errors.New("inbox, strip and frame are required")
	}
	if len(patterns) == 0 {
		return nil, errors.New("at least one pattern is required")
	}
	if offInterval <= 0 {
		return nil, fmt.Errorf("off interval must be positive, got %s", offInterval)
	}
	return &Controller{
		inbox:       inbox,
		strip:       strip,
		frame:       frame,
		patterns:    patterns,
		offInterval: offInterval,
	}, nil
}

// OnStateChange registers fn to be called from the rendering goroutine
// after every transition. Set it before Run.
func (c *Controller) OnStateChange(fn func(State)) {
	c.onChange = fn
}

// State returns the current state. Safe from any goroutine.
func (c *Controller) State() State {
	v := c.state.Load()
	s := State{On: v&(1<<31) != 0, Pattern: int(v &^ (1 << 31))}
	s.Name = c.patterns[s.Pattern].Name()
	return s
}

// Apply performs the transition for cls and reports whether the state
// changed. TriggerOff while off and NoEvent are no-ops.
func (c *Controller) Apply(cls detect.Classification) bool {
	on, current := c.on, c.current
	switch cls.Kind {
	case detect.TriggerOn:
		if !on {
			on = true
		} else {
			current = (current + 1) % len(c.patterns)
		}
	case detect.TriggerOff:
		on = false
	case detect.Select:
		on = true
		current = int(cls.StateID % uint32(len(c.patterns)))
	default:
		return false
	}
	if on == c.on && current == c.current {
		return false
	}

	c.on, c.current = on, current
	if on {
		c.patterns[current].Reset()
	}
	v := uint32(current)
	if on {
		v |= 1 << 31
	}
	c.state.Store(v)

	s := c.State()
	log.Debugf("Animation: %s -> %s", cls, s)
	if c.onChange != nil {
		c.onChange(s)
	}
	return true
}

// Tick polls the inbox once, renders and pushes one frame, and returns
// how long that frame should stay up before the next Tick.
func (c *Controller) Tick() time.Duration {
	if word, ok := c.inbox.Poll(); ok {
		c.Apply(detect.FromWord(word))
	}

	delay := c.offInterval
	if c.on {
		delay = c.patterns[c.current].Render(c.frame)
	} else {
		c.frame.Clear()
	}
	c.push()
	return delay
}

func (c *Controller) push() {
	c.frames.Add(1)
	if err := c.strip.Push(c.frame); err != nil {
		n := c.pushErrors.Add(1)
		if n == 1 || n%100 == 0 {
			log.Warnf("Animation: strip push failed (%d so far): %v", n, err)
		}
	}
}

// Run opens the strip and ticks until ctx is cancelled, then pushes a
// dark frame and closes the strip.
func (c *Controller) Run(ctx context.Context) error {
	if err := c.strip.Open(); err != nil {
		return fmt.Errorf("failed to open strip: %w", err)
	}
	defer func() {
		c.frame.Clear()
		c.push()
		if err := c.strip.Close(); err != nil {
			log.Errorf("Animation: error closing strip: %v", err)
		}
	}()

	timer := time.NewTimer(0)
	defer timer.Stop()
	<-timer.C

	for {
		timer.Reset(c.Tick())
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		}
	}
}

// Frames returns how many frames have been pushed.
func (c *Controller) Frames() uint64 {
	return c.frames.Load()
}

// PushErrors returns how many pushes the strip rejected.
func (c *Controller) PushErrors() uint64 {
	return c.pushErrors.Load()
}

// Patterns returns the configured pattern count.
func (c *Controller) Patterns() int {
	return len(c.patterns)
}
