// SPDX-License-Identifier: MIT

// Package transport carries status events out of the process: detections
// from the pipeline and state changes from the animation controller.
package transport

import "time"

// Transport defines a generic interface for sending status events.
// Implementations should be thread-safe and must not block the caller
// for long: both the detection and rendering goroutines call Send.
type Transport interface {
	Send(data any) error
	Close() error
}

// DetectionEvent reports a non-empty classification and what became of it.
type DetectionEvent struct {
	Type      string    `json:"type"` // always "detection"
	Time      time.Time `json:"time"`
	Event     string    `json:"event"`
	Word      uint32    `json:"word"`
	Published bool      `json:"published"`
	Reason    string    `json:"reason,omitempty"` // why it was not published
	Ratio     float64   `json:"ratio,omitempty"`
	Delta     float64   `json:"delta_seconds,omitempty"`
	Dominant  float64   `json:"dominant_hz,omitempty"` // strongest frequency of the last burst
}

// Reasons a detection was not published.
const (
	ReasonCooldown  = "cooldown"
	ReasonNoRequest = "no_request"
)

// StateEvent reports an animation state change.
type StateEvent struct {
	Type    string    `json:"type"` // always "state"
	Time    time.Time `json:"time"`
	On      bool      `json:"on"`
	Pattern int       `json:"pattern"`
	Name    string    `json:"name"`
}

// HelloEvent greets a newly connected monitor.
type HelloEvent struct {
	Type    string `json:"type"` // always "hello"
	RunID   string `json:"run_id"`
	Version string `json:"version"`
	Pixels  int    `json:"pixels"`
}

// Multi sends to every transport in turn.
type Multi []Transport

func (m Multi) Send(data any) error {
	var first error
	for _, t := range m {
		if err := t.Send(data); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m Multi) Close() error {
	var first error
	for _, t := range m {
		if err := t.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

var _ Transport = Multi(nil)
