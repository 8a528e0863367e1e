package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"nhooyr.io/websocket"

	"github.com/skylane-game/skylane/pkg/log"
	"github.com/skylane-game/skylane/pkg/queue"
)

const wsEventQueueSize = 4096

// WebSocketTransport implements the transport contract over binary
// websocket messages. Useful for browser-hosted clients and networks that
// block UDP; ordering comes from the underlying stream, so only whole-
// connection loss is possible.
type WebSocketTransport struct {
	events *queue.InMemoryQueue

	mu         sync.Mutex
	httpServer *http.Server
	clientConn *websocket.Conn
	server     bool
	closed     bool
	nextConn   uint64
	conns      map[uint64]*websocket.Conn

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

var _ Transport = &WebSocketTransport{}

// NewWebSocketTransport creates an unstarted websocket transport.
func NewWebSocketTransport() *WebSocketTransport {
	ctx, cancel := context.WithCancel(context.Background())
	return &WebSocketTransport{
		events:   queue.NewInMemoryQueue(wsEventQueueSize),
		nextConn: 1,
		conns:    make(map[uint64]*websocket.Conn),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// StartServer serves websocket upgrades on the given port.
func (t *WebSocketTransport) StartServer(port int) error {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return fmt.Errorf("failed to listen on port %d: %w", port, err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", t.handleUpgrade)

	t.mu.Lock()
	t.server = true
	t.httpServer = &http.Server{Handler: mux}
	server := t.httpServer
	t.mu.Unlock()

	log.Info("WebSocket server listening on %s", listener.Addr())

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("WebSocket server error: %v", err)
		}
	}()
	return nil
}

// StartClient dials the server.
func (t *WebSocketTransport) StartClient(host string, port int) error {
	ctx, cancel := context.WithTimeout(t.ctx, 10*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, fmt.Sprintf("ws://%s:%d/", host, port), nil)
	if err != nil {
		return fmt.Errorf("failed to dial websocket: %w", err)
	}
	conn.SetReadLimit(1 << 20)

	t.mu.Lock()
	t.server = false
	t.clientConn = conn
	t.mu.Unlock()

	t.enqueue(Event{Type: EventConnected, Conn: 0})

	t.wg.Add(1)
	go t.readLoop(conn, 0)
	return nil
}

// Shutdown closes every connection and stops the listener.
func (t *WebSocketTransport) Shutdown() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	httpServer := t.httpServer
	clientConn := t.clientConn
	conns := make([]*websocket.Conn, 0, len(t.conns))
	for _, conn := range t.conns {
		conns = append(conns, conn)
	}
	t.mu.Unlock()

	t.cancel()
	for _, conn := range conns {
		conn.Close(websocket.StatusNormalClosure, "server shutting down")
	}
	if clientConn != nil {
		clientConn.Close(websocket.StatusNormalClosure, "client shutting down")
	}
	if httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpServer.Shutdown(ctx)
	}

	t.wg.Wait()
	return nil
}

// Send transmits one binary message to the peer.
func (t *WebSocketTransport) Send(connID uint64, data []byte) error {
	t.mu.Lock()
	var conn *websocket.Conn
	if t.server {
		conn = t.conns[connID]
	} else {
		conn = t.clientConn
	}
	closed := t.closed
	t.mu.Unlock()

	if closed {
		return fmt.Errorf("transport is shut down")
	}
	if conn == nil {
		return fmt.Errorf("unknown connection %d", connID)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.Write(ctx, websocket.MessageBinary, data); err != nil {
		return fmt.Errorf("failed to write websocket message: %w", err)
	}
	return nil
}

// PollEvents drains the pending event queue.
func (t *WebSocketTransport) PollEvents() []Event {
	items, _ := t.events.ReadAllMessages()
	if len(items) == 0 {
		return nil
	}
	events := make([]Event, 0, len(items))
	for _, item := range items {
		events = append(events, item.(Event))
	}
	return events
}

func (t *WebSocketTransport) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		log.Error("Failed to accept websocket connection: %v", err)
		return
	}
	conn.SetReadLimit(1 << 20)

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		conn.Close(websocket.StatusGoingAway, "server shutting down")
		return
	}
	connID := t.nextConn
	t.nextConn++
	t.conns[connID] = conn
	t.mu.Unlock()

	t.enqueue(Event{Type: EventConnected, Conn: connID})

	t.wg.Add(1)
	t.readLoop(conn, connID)
}

func (t *WebSocketTransport) readLoop(conn *websocket.Conn, connID uint64) {
	defer t.wg.Done()
	for {
		_, data, err := conn.Read(t.ctx)
		if err != nil {
			t.mu.Lock()
			delete(t.conns, connID)
			closed := t.closed
			t.mu.Unlock()
			if !closed {
				t.enqueue(Event{Type: EventDisconnected, Conn: connID})
			}
			return
		}
		t.enqueue(Event{Type: EventPacket, Conn: connID, Data: data})
	}
}

func (t *WebSocketTransport) enqueue(event Event) {
	if err := t.events.Enqueue(event); err != nil {
		log.Warn("Dropping transport event: %v", err)
	}
}
