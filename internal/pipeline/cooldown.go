// SPDX-License-Identifier: MIT
package pipeline

import "time"

// Cooldown suppresses repeated triggers from one physical event. It only
// moves when a trigger is actually published, never on detection alone.
type Cooldown struct {
	period time.Duration
	last   time.Time
	fired  bool
}

// NewCooldown returns a gate that has never fired.
func NewCooldown(period time.Duration) *Cooldown {
	return &Cooldown{period: period}
}

// Ready reports whether a trigger may be published at now. The first
// trigger is never held back.
func (c *Cooldown) Ready(now time.Time) bool {
	return !c.fired || now.Sub(c.last) >= c.period
}

// Remaining returns how long until Ready, zero if already ready.
func (c *Cooldown) Remaining(now time.Time) time.Duration {
	if c.Ready(now) {
		return 0
	}
	return c.period - now.Sub(c.last)
}

// Mark records a published trigger.
func (c *Cooldown) Mark(now time.Time) {
	c.last = now
	c.fired = true
}
