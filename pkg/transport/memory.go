package transport

import (
	"fmt"
	"sync"

	"github.com/skylane-game/skylane/pkg/queue"
)

const memoryEventQueueSize = 4096

// MemoryTransport is an in-process transport used by tests and the
// single-machine embedding path: a server end and any number of client
// ends exchanging packets through queues, with no sockets involved.
type MemoryTransport struct {
	events *queue.InMemoryQueue

	mu       sync.Mutex
	server   bool
	started  bool
	nextConn uint64
	peers    map[uint64]*MemoryTransport // server: conn id -> client end
	serverTr *MemoryTransport            // client: the server end
	connID   uint64                      // client: id assigned by the server
}

var _ Transport = &MemoryTransport{}

// NewMemoryTransport creates an unconnected in-process transport end.
func NewMemoryTransport() *MemoryTransport {
	return &MemoryTransport{
		events:   queue.NewInMemoryQueue(memoryEventQueueSize),
		nextConn: 1,
		peers:    make(map[uint64]*MemoryTransport),
	}
}

// StartServer marks this end as the server. The port is ignored.
func (t *MemoryTransport) StartServer(port int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.server = true
	t.started = true
	return nil
}

// StartClient is not used for memory transports; connect with ConnectTo.
func (t *MemoryTransport) StartClient(host string, port int) error {
	return fmt.Errorf("memory transport connects with ConnectTo, not StartClient")
}

// ConnectTo attaches this end as a client of the given server end.
func (t *MemoryTransport) ConnectTo(server *MemoryTransport) error {
	server.mu.Lock()
	if !server.server || !server.started {
		server.mu.Unlock()
		return fmt.Errorf("server transport is not started")
	}
	connID := server.nextConn
	server.nextConn++
	server.peers[connID] = t
	server.mu.Unlock()

	t.mu.Lock()
	t.started = true
	t.serverTr = server
	t.connID = connID
	t.mu.Unlock()

	server.enqueue(Event{Type: EventConnected, Conn: connID})
	t.enqueue(Event{Type: EventConnected, Conn: 0})
	return nil
}

// Shutdown detaches this end and notifies peers.
func (t *MemoryTransport) Shutdown() error {
	t.mu.Lock()
	if !t.started {
		t.mu.Unlock()
		return nil
	}
	t.started = false
	server := t.serverTr
	connID := t.connID
	peers := t.peers
	t.peers = make(map[uint64]*MemoryTransport)
	t.mu.Unlock()

	if server != nil {
		server.mu.Lock()
		delete(server.peers, connID)
		server.mu.Unlock()
		server.enqueue(Event{Type: EventDisconnected, Conn: connID})
	}
	for _, peer := range peers {
		peer.enqueue(Event{Type: EventDisconnected, Conn: 0})
	}
	return nil
}

// Send delivers a packet to the peer's event queue.
func (t *MemoryTransport) Send(connID uint64, data []byte) error {
	t.mu.Lock()
	started := t.started
	server := t.server
	var peer *MemoryTransport
	if server {
		peer = t.peers[connID]
	} else {
		peer = t.serverTr
		connID = t.connID
	}
	t.mu.Unlock()

	if !started {
		return fmt.Errorf("transport is not started")
	}
	if peer == nil {
		return fmt.Errorf("unknown connection %d", connID)
	}

	packet := make([]byte, len(data))
	copy(packet, data)
	if server {
		peer.enqueue(Event{Type: EventPacket, Conn: 0, Data: packet})
	} else {
		peer.enqueue(Event{Type: EventPacket, Conn: connID, Data: packet})
	}
	return nil
}

// PollEvents drains the pending event queue.
func (t *MemoryTransport) PollEvents() []Event {
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

func (t *MemoryTransport) enqueue(event Event) {
	_ = t.events.Enqueue(event)
}
