// SPDX-License-Identifier: MIT
package transport

import (
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	applog "spectro/internal/log"

	"github.com/gorilla/websocket"
)

// DefaultPositionInterval bounds how often position updates are broadcast.
const DefaultPositionInterval = 33 * time.Millisecond

// WebSocketTransport broadcasts every message as JSON to the clients
// connected on /ws. Position updates are rate limited; other messages are
// always queued. Messages are dropped when the queue is full.
type WebSocketTransport struct {
	upgrader  websocket.Upgrader
	clients   map[*websocket.Conn]bool
	clientsMu sync.Mutex
	broadcast chan any
	listener  net.Listener
	server    *http.Server
	log       *applog.Logger

	lastPosition     time.Time
	positionInterval time.Duration
	sendMu           sync.Mutex // Guards lastPosition.

	closeOnce sync.Once
	done      chan struct{}
}

// NewWebSocketTransport listens on addr and starts serving.
func NewWebSocketTransport(addr string) (*WebSocketTransport, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	wst := &WebSocketTransport{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Visualisers are served from anywhere.
			},
		},
		clients:          make(map[*websocket.Conn]bool),
		broadcast:        make(chan any, 256),
		listener:         ln,
		log:              applog.Named("websocket"),
		positionInterval: DefaultPositionInterval,
		done:             make(chan struct{}),
	}
	wst.start()
	return wst, nil
}

// Addr returns the address the server is listening on.
func (wst *WebSocketTransport) Addr() net.Addr {
	return wst.listener.Addr()
}

// SetPositionInterval changes the minimum spacing of position broadcasts.
// Zero disables rate limiting.
func (wst *WebSocketTransport) SetPositionInterval(d time.Duration) {
	wst.sendMu.Lock()
	wst.positionInterval = d
	wst.sendMu.Unlock()
}

func (wst *WebSocketTransport) start() {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wst.handleWebSocket)
	wst.server = &http.Server{Handler: mux}

	go func() {
		wst.log.Infof("serving on %s", wst.listener.Addr())
		if err := wst.server.Serve(wst.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			wst.log.Errorf("server: %v", err)
		}
	}()
	go wst.handleBroadcasts()
}

func (wst *WebSocketTransport) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := wst.upgrader.Upgrade(w, r, nil)
	if err != nil {
		wst.log.Warnf("upgrade: %v", err)
		return
	}

	wst.clientsMu.Lock()
	wst.clients[conn] = true
	n := len(wst.clients)
	wst.clientsMu.Unlock()
	wst.log.Infof("client connected, total: %d", n)

	// Clients only listen; a read error means they went away.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
		wst.clientsMu.Lock()
		delete(wst.clients, conn)
		n := len(wst.clients)
		wst.clientsMu.Unlock()
		conn.Close()
		wst.log.Infof("client disconnected, total: %d", n)
	}()
}

// ClientCount returns the number of connected clients.
func (wst *WebSocketTransport) ClientCount() int {
	wst.clientsMu.Lock()
	defer wst.clientsMu.Unlock()
	return len(wst.clients)
}

func (wst *WebSocketTransport) handleBroadcasts() {
	for {
		select {
		case data := <-wst.broadcast:
			wst.clientsMu.Lock()
			for client := range wst.clients {
				if err := client.WriteJSON(data); err != nil {
					wst.log.Warnf("write: %v", err)
					client.Close()
					delete(wst.clients, client)
				}
			}
			wst.clientsMu.Unlock()
		case <-wst.done:
			return
		}
	}
}

// Send queues data for broadcast. It never blocks.
func (wst *WebSocketTransport) Send(data any) error {
	if _, ok := data.(PositionMessage); ok {
		now := time.Now()
		wst.sendMu.Lock()
		if now.Sub(wst.lastPosition) < wst.positionInterval {
			wst.sendMu.Unlock()
			return nil
		}
		wst.lastPosition = now
		wst.sendMu.Unlock()
	}

	select {
	case <-wst.done:
		return errors.New("websocket: transport closed")
	default:
	}
	select {
	case wst.broadcast <- data:
	default:
		wst.log.Debugf("queue full, dropping %T", data)
	}
	return nil
}

// Close disconnects every client and shuts the server down.
func (wst *WebSocketTransport) Close() error {
	var err error
	wst.closeOnce.Do(func() {
		wst.log.Infof("closing server")
		close(wst.done)

		wst.clientsMu.Lock()
		for client := range wst.clients {
			client.Close()
		}
		clear(wst.clients)
		wst.clientsMu.Unlock()

		err = wst.server.Close()
	})
	return err
}

var _ Transport = (*WebSocketTransport)(nil)
