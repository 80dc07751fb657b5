// SPDX-License-Identifier: MIT
package detect

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"clapper/internal/log"

	"github.com/gorilla/websocket"
)

// DefaultInferenceTimeout bounds one request/response round trip.
const DefaultInferenceTimeout = 2 * time.Second

type inferenceRequest struct {
	Features []float32 `json:"features"`
}

type inferenceResponse struct {
	Probabilities []float32 `json:"probabilities"`
	Error         string    `json:"error,omitempty"`
}

// RemoteModel is a Model served by an inference engine over a WebSocket.
// Each Run sends {"features": [...]} and waits for {"probabilities": [...]}.
type RemoteModel struct {
	url       string
	inputSize int
	labels    int
	timeout   time.Duration

	mu   sync.Mutex
	conn *websocket.Conn
	req  inferenceRequest
	resp inferenceResponse
}

// DialRemoteModel connects to the inference engine at url.
func DialRemoteModel(ctx context.Context, url string, inputSize, labels int) (*RemoteModel, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to inference engine %s: %w", url, err)
	}
	return &RemoteModel{
		url:       url,
		inputSize: inputSize,
		labels:    labels,
		timeout:   DefaultInferenceTimeout,
		conn:      conn,
		resp:      inferenceResponse{Probabilities: make([]float32, 0, labels)},
	}, nil
}

func (m *RemoteModel) InputSize() int { return m.inputSize }
func (m *RemoteModel) Labels() int    { return m.labels }

// SetTimeout changes the per-request deadline.
func (m *RemoteModel) SetTimeout(d time.Duration) {
	m.mu.Lock()
	m.timeout = d
	m.mu.Unlock()
}

func (m *RemoteModel) Run(features, probs []float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conn == nil {
		return errors.New("inference connection closed")
	}
	defer log.Timing("Classifier: inference round trip", time.Now())

	deadline := time.Now().Add(m.timeout)
	m.req.Features = features
	_ = m.conn.SetWriteDeadline(deadline)
	if err := m.conn.WriteJSON(&m.req); err != nil {
		return fmt.Errorf("send features: %w", err)
	}

	m.resp.Probabilities = m.resp.Probabilities[:0]
	m.resp.Error = ""
	_ = m.conn.SetReadDeadline(deadline)
	if err := m.conn.ReadJSON(&m.resp); err != nil {
		return fmt.Errorf("read probabilities: %w", err)
	}
	if m.resp.Error != "" {
		return fmt.Errorf("inference engine: %s", m.resp.Error)
	}
	if len(m.resp.Probabilities) != len(probs) {
		return fmt.Errorf("inference engine returned %d probabilities, want %d", len(m.resp.Probabilities), len(probs))
	}
	copy(probs, m.resp.Probabilities)
	return nil
}

// Close sends a close frame and drops the connection.
func (m *RemoteModel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conn == nil {
		return nil
	}
	_ = m.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	err := m.conn.Close()
	m.conn = nil
	return err
}
