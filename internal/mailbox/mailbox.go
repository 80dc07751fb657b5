// SPDX-License-Identifier: MIT

// Package mailbox is the only shared state between the detection and
// rendering goroutines: two one-word, one-direction channels with the
// firmware's request/response handshake.
//
// The renderer asks for news by pushing a request token; the detector
// answers only when it has something to say and a request is pending.
// Neither side ever blocks.
package mailbox

import "sync/atomic"

// fullBit marks a channel slot as occupied; the low 32 bits carry the word.
const fullBit = uint64(1) << 32

// Channel holds at most one in-flight word. One goroutine pushes, one pops.
type Channel struct {
	slot atomic.Uint64
}

// Valid reports whether a word is waiting.
func (c *Channel) Valid() bool {
	return c.slot.Load()&fullBit != 0
}

// TryPush stores w if the slot is empty.
func (c *Channel) TryPush(w uint32) bool {
	return c.slot.CompareAndSwap(0, fullBit|uint64(w))
}

// TryPop takes the waiting word, if any.
func (c *Channel) TryPop() (uint32, bool) {
	for {
		v := c.slot.Load()
		if v&fullBit == 0 {
			return 0, false
		}
		if c.slot.CompareAndSwap(v, 0) {
			return uint32(v), true
		}
	}
}

// Request is the token the renderer sends when idle.
const Request uint32 = 0

// Mailbox pairs the two channels.
type Mailbox struct {
	toRenderer Channel
	toDetector Channel
}

// New returns an empty mailbox.
func New() *Mailbox {
	return &Mailbox{}
}

// Producer returns the detector's end.
func (m *Mailbox) Producer() *Producer {
	return &Producer{m: m}
}

// Consumer returns the renderer's end.
func (m *Mailbox) Consumer() *Consumer {
	return &Consumer{m: m}
}

// Producer is owned by the detection goroutine.
type Producer struct {
	m *Mailbox
}

// RequestPending reports whether the renderer is waiting for news.
func (p *Producer) RequestPending() bool {
	return p.m.toDetector.Valid()
}

// Publish hands word to the renderer. It succeeds only when word is not
// the request token and a request is pending; the request is then
// consumed. Otherwise nothing changes and any request stays pending.
func (p *Producer) Publish(word uint32) bool {
	if word == Request || !p.m.toDetector.Valid() {
		return false
	}
	if _, ok := p.m.toDetector.TryPop(); !ok {
		return false
	}
	// The renderer only requests with its inbox empty, so this cannot fail.
	return p.m.toRenderer.TryPush(word)
}

// Consumer is owned by the rendering goroutine.
type Consumer struct {
	m           *Mailbox
	outstanding bool
}

// Poll is called between animation frames. It returns a word if one has
// arrived; otherwise it sends a request unless one is already outstanding.
func (c *Consumer) Poll() (uint32, bool) {
	if w, ok := c.m.toRenderer.TryPop(); ok {
		c.outstanding = false
		return w, true
	}
	if !c.outstanding && c.m.toDetector.TryPush(Request) {
		c.outstanding = true
	}
	return 0, false
}

// Outstanding reports whether a request is waiting on the detector.
func (c *Consumer) Outstanding() bool {
	return c.outstanding
}
