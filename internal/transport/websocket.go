// SPDX-License-Identifier: MIT
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"spectral/internal/log"
	"spectral/internal/observe"
)

const (
	DefaultWebSocketPath = "/ws"
	broadcastQueue       = 256
	writeTimeout         = time.Second
)

type WebSocketOptions struct {
	Addr string
	Path string
	// MaxRate caps broadcasts per second. Messages arriving faster are
	// dropped. Zero disables the limit.
	MaxRate float64
	Metrics *observe.Metrics
}

// WebSocketTransport broadcasts JSON messages to every connected client.
// Send never blocks: when the queue is full or the rate limit applies the
// message is dropped.
type WebSocketTransport struct {
	opts     WebSocketOptions
	upgrader websocket.Upgrader

	clientsMu sync.Mutex
	clients   map[*websocket.Conn]struct{}

	broadcast chan any
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup

	rateMu      sync.Mutex
	minInterval time.Duration
	lastSend    time.Time

	server   *http.Server
	listener net.Listener

	log *log.Logger
}

var _ Transport = (*WebSocketTransport)(nil)

// NewWebSocketTransport starts the broadcast loop. Call Start to listen on
// opts.Addr, or mount Handler on an existing server.
func NewWebSocketTransport(opts WebSocketOptions) *WebSocketTransport {
	if opts.Path == "" {
		opts.Path = DefaultWebSocketPath
	}
	wst := &WebSocketTransport{
		opts: opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		clients:   make(map[*websocket.Conn]struct{}),
		broadcast: make(chan any, broadcastQueue),
		done:      make(chan struct{}),
		log:       log.For("transport/websocket"),
	}
	if opts.MaxRate > 0 {
		wst.minInterval = time.Duration(float64(time.Second) / opts.MaxRate)
	}

	wst.wg.Add(1)
	go wst.handleBroadcasts()
	return wst
}

// Handler serves the websocket endpoint at the configured path.
func (wst *WebSocketTransport) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(wst.opts.Path, wst.handleWebSocket)
	return mux
}

// Start listens on the configured address and serves in the background.
// Listen errors are returned directly.
func (wst *WebSocketTransport) Start() error {
	ln, err := net.Listen("tcp", wst.opts.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", wst.opts.Addr, err)
	}
	wst.listener = ln
	wst.server = &http.Server{
		Handler:           wst.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		wst.log.Infof("serving ws://%s%s", ln.Addr(), wst.opts.Path)
		if err := wst.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			wst.log.Errorf("server error: %v", err)
		}
	}()
	return nil
}

// Addr returns the bound address after Start, or the configured one.
func (wst *WebSocketTransport) Addr() string {
	if wst.listener != nil {
		return wst.listener.Addr().String()
	}
	return wst.opts.Addr
}

// ClientCount is the number of connected clients.
func (wst *WebSocketTransport) ClientCount() int {
	wst.clientsMu.Lock()
	defer wst.clientsMu.Unlock()
	return len(wst.clients)
}

func (wst *WebSocketTransport) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	select {
	case <-wst.done:
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	default:
	}

	conn, err := wst.upgrader.Upgrade(w, r, nil)
	if err != nil {
		wst.log.Warnf("upgrade error: %v", err)
		return
	}

	wst.clientsMu.Lock()
	wst.clients[conn] = struct{}{}
	total := len(wst.clients)
	wst.clientsMu.Unlock()
	wst.opts.Metrics.ClientConnected(r.Context())
	wst.log.Infof("client %s connected, total: %d", conn.RemoteAddr(), total)

	// Clients never send anything meaningful; reading detects the disconnect.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				wst.drop(conn)
				return
			}
		}
	}()
}

// drop unregisters and closes conn once.
func (wst *WebSocketTransport) drop(conn *websocket.Conn) {
	wst.clientsMu.Lock()
	_, ok := wst.clients[conn]
	delete(wst.clients, conn)
	total := len(wst.clients)
	wst.clientsMu.Unlock()
	if !ok {
		return
	}
	_ = conn.Close()
	wst.opts.Metrics.ClientDisconnected(context.Background())
	wst.log.Infof("client %s disconnected, total: %d", conn.RemoteAddr(), total)
}

func (wst *WebSocketTransport) handleBroadcasts() {
	defer wst.wg.Done()
	for {
		select {
		case <-wst.done:
			return
		case data := <-wst.broadcast:
			payload, err := json.Marshal(data)
			if err != nil {
				wst.log.Errorf("encoding %T: %v", data, err)
				continue
			}
			wst.writeAll(payload)
		}
	}
}

func (wst *WebSocketTransport) writeAll(payload []byte) {
	wst.clientsMu.Lock()
	clients := make([]*websocket.Conn, 0, len(wst.clients))
	for c := range wst.clients {
		clients = append(clients, c)
	}
	wst.clientsMu.Unlock()

	for _, c := range clients {
		_ = c.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.WriteMessage(websocket.TextMessage, payload); err != nil {
			wst.log.Debugf("write to %s: %v", c.RemoteAddr(), err)
			wst.drop(c)
		}
	}
}

// allow applies the rate limit.
func (wst *WebSocketTransport) allow(now time.Time) bool {
	if wst.minInterval == 0 {
		return true
	}
	wst.rateMu.Lock()
	defer wst.rateMu.Unlock()
	if !wst.lastSend.IsZero() && now.Sub(wst.lastSend) < wst.minInterval {
		return false
	}
	wst.lastSend = now
	return true
}

// Send queues data for broadcast. Dropped messages are counted, not reported
// as errors; only a closed transport returns one.
func (wst *WebSocketTransport) Send(data any) error {
	select {
	case <-wst.done:
		return ErrClosed
	default:
	}
	if !wst.allow(time.Now()) {
		wst.opts.Metrics.RecordDropped(context.Background(), "websocket")
		return nil
	}
	select {
	case wst.broadcast <- data:
	default:
		wst.opts.Metrics.RecordDropped(context.Background(), "websocket")
	}
	return nil
}

// Close disconnects every client and shuts the server down.
func (wst *WebSocketTransport) Close() error {
	var err error
	wst.closeOnce.Do(func() {
		wst.log.Infof("closing")
		close(wst.done)
		wst.wg.Wait()

		wst.clientsMu.Lock()
		clients := wst.clients
		wst.clients = make(map[*websocket.Conn]struct{})
		wst.clientsMu.Unlock()
		for c := range clients {
			_ = c.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server closing"),
				time.Now().Add(writeTimeout))
			_ = c.Close()
			wst.opts.Metrics.ClientDisconnected(context.Background())
		}

		if wst.server != nil {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			err = wst.server.Shutdown(ctx)
		}
	})
	return err
}
