// SPDX-License-Identifier: MIT

// Package detect turns a window of converter codes into an event
// classification. Two detectors share one capability: a peak-ratio
// heuristic for double claps and an adapter over an external classifier.
package detect

import (
	"errors"
	"fmt"
)

var (
	// ErrInputSizeMismatch is returned when the feature window and the
	// bound classifier disagree on input length.
	ErrInputSizeMismatch = errors.New("feature window does not match classifier input size")
	// ErrClassifierFailed wraps any error reported by the classifier.
	ErrClassifierFailed = errors.New("classifier failed")
)

// Kind is the event class crossing from detection to rendering.
type Kind uint8

const (
	NoEvent Kind = iota
	TriggerOn
	TriggerOff
	Select // jump straight to pattern StateID
)

func (k Kind) String() string {
	switch k {
	case NoEvent:
		return "none"
	case TriggerOn:
		return "on"
	case TriggerOff:
		return "off"
	case Select:
		return "select"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Classification is a detector verdict. StateID is only meaningful for Select.
type Classification struct {
	Kind    Kind
	StateID uint32
}

// Mailbox words. Zero doubles as the consumer's request token.
const (
	wordNone   = 0
	wordOn     = 1
	wordOff    = 2
	wordSelect = 3
)

// Word encodes c for the mailbox.
func (c Classification) Word() uint32 {
	switch c.Kind {
	case TriggerOn:
		return wordOn
	case TriggerOff:
		return wordOff
	case Select:
		return wordSelect + c.StateID
	}
	return wordNone
}

// FromWord decodes a mailbox word.
func FromWord(w uint32) Classification {
	switch {
	case w == wordNone:
		return Classification{}
	case w == wordOn:
		return Classification{Kind: TriggerOn}
	case w == wordOff:
		return Classification{Kind: TriggerOff}
	}
	return Classification{Kind: Select, StateID: w - wordSelect}
}

func (c Classification) String() string {
	if c.Kind == Select {
		return fmt.Sprintf("select(%d)", c.StateID)
	}
	return c.Kind.String()
}

// Detector classifies one feature window. Implementations keep scratch
// buffers and are not safe for concurrent use.
type Detector interface {
	Classify(window []float64) (Classification, error)
}
