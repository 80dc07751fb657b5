// SPDX-License-Identifier: MIT
package transport

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"clapper/internal/animation"
	"clapper/internal/log"

	"github.com/gorilla/websocket"
)

// DefaultFrameInterval limits how often strip frames are broadcast.
const DefaultFrameInterval = 40 * time.Millisecond

const writeTimeout = time.Second

// FrameEvent carries one strip frame in RGB order to browser monitors.
type FrameEvent struct {
	Type string `json:"type"` // always "frame"
	RGB  []byte `json:"rgb"`  // base64 in JSON
}

// WebSocketTransport implements the Transport interface for WebSocket
// connections. It is an http.Handler for the /ws route and doubles as a
// strip driver that mirrors frames to every client.
type WebSocketTransport struct {
	upgrader  websocket.Upgrader
	hello     HelloEvent
	clients   map[*websocket.Conn]bool
	clientsMu sync.Mutex
	broadcast chan any
	done      chan struct{}
	closeOnce sync.Once

	frameInterval time.Duration
	lastFrame     time.Time
	dropped       atomic.Uint64
}

// NewWebSocketTransport creates a new WebSocketTransport instance and
// starts its broadcast goroutine. hello is sent to each client on connect.
func NewWebSocketTransport(hello HelloEvent) *WebSocketTransport {
	hello.Type = "hello"
	wst := &WebSocketTransport{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // monitors are served from anywhere on the LAN
			},
		},
		hello:         hello,
		clients:       make(map[*websocket.Conn]bool),
		broadcast:     make(chan any, 256),
		done:          make(chan struct{}),
		frameInterval: DefaultFrameInterval,
	}
	go wst.handleBroadcasts()
	return wst
}

// SetFrameInterval changes the frame throttle. Zero sends every frame.
func (wst *WebSocketTransport) SetFrameInterval(d time.Duration) {
	wst.frameInterval = d
}

// ServeHTTP upgrades HTTP connections to WebSocket.
func (wst *WebSocketTransport) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := wst.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warnf("WebSocketTransport: Upgrade error: %v", err)
		return
	}

	// Hello goes out before the client joins the broadcast set so it is
	// always the first message.
	wst.clientsMu.Lock()
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteJSON(wst.hello); err != nil {
		wst.clientsMu.Unlock()
		log.Warnf("WebSocketTransport: Error greeting client: %v", err)
		conn.Close()
		return
	}
	wst.clients[conn] = true
	total := len(wst.clients)
	wst.clientsMu.Unlock()
	log.Infof("WebSocketTransport: Client connected, total: %d", total)

	// Handle disconnect
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
		wst.clientsMu.Lock()
		_, known := wst.clients[conn]
		delete(wst.clients, conn)
		total := len(wst.clients)
		wst.clientsMu.Unlock()
		conn.Close()
		if known {
			log.Infof("WebSocketTransport: Client disconnected, total: %d", total)
		}
	}()
}

// handleBroadcasts sends messages to all connected clients
func (wst *WebSocketTransport) handleBroadcasts() {
	for {
		select {
		case <-wst.done:
			return
		case data := <-wst.broadcast:
			wst.clientsMu.Lock()
			for client := range wst.clients {
				client.SetWriteDeadline(time.Now().Add(writeTimeout))
				if err := client.WriteJSON(data); err != nil {
					log.Warnf("WebSocketTransport: Error sending to client: %v", err)
					client.Close()
					delete(wst.clients, client)
				}
			}
			wst.clientsMu.Unlock()
		}
	}
}

// Send queues data for every connected client. When the queue is full the
// message is dropped; a slow monitor never stalls the pipeline.
func (wst *WebSocketTransport) Send(data any) error {
	select {
	case <-wst.done:
		return nil
	default:
	}
	select {
	case wst.broadcast <- data:
	default:
		wst.dropped.Add(1)
	}
	return nil
}

// Clients returns the number of connected clients.
func (wst *WebSocketTransport) Clients() int {
	wst.clientsMu.Lock()
	defer wst.clientsMu.Unlock()
	return len(wst.clients)
}

// Dropped returns how many messages were dropped on a full queue.
func (wst *WebSocketTransport) Dropped() uint64 {
	return wst.dropped.Load()
}

// Close disconnects every client and stops broadcasting. The HTTP server
// is owned by the caller.
func (wst *WebSocketTransport) Close() error {
	wst.closeOnce.Do(func() {
		close(wst.done)
		wst.clientsMu.Lock()
		for client := range wst.clients {
			client.Close()
		}
		wst.clients = make(map[*websocket.Conn]bool)
		wst.clientsMu.Unlock()
	})
	return nil
}

// Open implements animation.Strip.
func (wst *WebSocketTransport) Open() error {
	return nil
}

// Push implements animation.Strip. Frames are throttled to the frame
// interval and skipped entirely while nobody is watching.
func (wst *WebSocketTransport) Push(f *animation.Frame) error {
	now := time.Now()
	if now.Sub(wst.lastFrame) < wst.frameInterval || wst.Clients() == 0 {
		return nil
	}
	wst.lastFrame = now
	return wst.Send(FrameEvent{Type: "frame", RGB: f.AppendRGB(make([]byte, 0, 3*f.Len()))})
}

// Ensure WebSocketTransport satisfies both interfaces
var (
	_ Transport       = (*WebSocketTransport)(nil)
	_ animation.Strip = (*WebSocketTransport)(nil)
)
