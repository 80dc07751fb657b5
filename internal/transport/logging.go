// SPDX-License-Identifier: MIT
package transport

import (
	"clapper/internal/log"
)

// LoggingTransport implements the Transport interface by writing one
// human-readable status line per event.
type LoggingTransport struct{}

// NewLoggingTransport creates a new LoggingTransport instance.
func NewLoggingTransport() *LoggingTransport {
	log.Debugf("Transport: Using LoggingTransport")
	return &LoggingTransport{}
}

// Send logs the received event. Unknown payloads are logged at debug.
func (lt *LoggingTransport) Send(data any) error {
	switch e := data.(type) {
	case DetectionEvent:
		if e.Published {
			log.Infof("Pipeline: event fired: %s (ratio %.2f, delta %.3fs)", e.Event, e.Ratio, e.Delta)
		} else {
			log.Infof("Pipeline: event %s not published (%s)", e.Event, e.Reason)
		}
	case StateEvent:
		if e.On {
			log.Infof("Animation: state changed: %s (%d)", e.Name, e.Pattern)
		} else {
			log.Infof("Animation: state changed: off")
		}
	default:
		log.Debugf("Transport: %T %+v", data, data)
	}
	return nil // Logging transport never fails to "send"
}

// Close is a no-op for LoggingTransport.
func (lt *LoggingTransport) Close() error {
	return nil
}

// Ensure LoggingTransport satisfies the interface at compile time.
var _ Transport = (*LoggingTransport)(nil)
