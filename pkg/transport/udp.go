package transport

import (
	"fmt"
	"net"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/skylane-game/skylane/pkg/log"
	"github.com/skylane-game/skylane/pkg/queue"
)

const (
	// udpBufferSize bounds a single datagram.
	udpBufferSize = 65507
	// udpEventQueueSize bounds pending events between reads.
	udpEventQueueSize = 4096
	// udpPeerTimeout is how long a silent peer stays registered.
	udpPeerTimeout = 15 * time.Second

	// datagram framing: one control byte ahead of the payload.
	udpFrameHello byte = 0x01
	udpFrameBye   byte = 0x02
	udpFrameData  byte = 0x03
)

// udpPeer is one known remote address on the server side.
type udpPeer struct {
	conn     uint64
	addr     *net.UDPAddr
	lastSeen time.Time
}

// UDPTransport implements the transport contract over UDP datagrams. A
// one-byte frame header distinguishes hello/bye control frames from data.
// New peers are admitted on hello; silent peers age out. Hellos are
// throttled per source IP and capped by MaxConnsPerIP.
type UDPTransport struct {
	events *queue.InMemoryQueue

	// MaxConnsPerIP caps simultaneous peers per remote IP. Zero means
	// unlimited.
	MaxConnsPerIP int

	mu       sync.Mutex
	conn     *net.UDPConn
	server   bool
	closed   bool
	nextConn uint64
	byAddr   map[string]*udpPeer
	byConn   map[uint64]*udpPeer
	perIP    map[string]int
	limiters map[string]*rate.Limiter

	wg sync.WaitGroup
}

var _ Transport = &UDPTransport{}

// NewUDPTransport creates an unstarted UDP transport.
func NewUDPTransport() *UDPTransport {
	return &UDPTransport{
		events:   queue.NewInMemoryQueue(udpEventQueueSize),
		nextConn: 1,
		byAddr:   make(map[string]*udpPeer),
		byConn:   make(map[uint64]*udpPeer),
		perIP:    make(map[string]int),
		limiters: make(map[string]*rate.Limiter),
	}
}

// StartServer binds the listen socket and starts the reader goroutine.
func (t *UDPTransport) StartServer(port int) error {
	addr, err := net.ResolveUDPAddr("udp", fmt.Sprintf(":%d", port))
	if err != nil {
		return fmt.Errorf("failed to resolve UDP address: %w", err)
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on UDP address: %w", err)
	}

	t.mu.Lock()
	t.conn = conn
	t.server = true
	t.mu.Unlock()

	log.Info("UDP server listening on %s", addr)

	t.wg.Add(1)
	go t.serverReadLoop(conn)
	return nil
}

// StartClient dials the server and sends the hello frame.
func (t *UDPTransport) StartClient(host string, port int) error {
	addr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", host, port))
	if err != nil {
		return fmt.Errorf("failed to resolve UDP address: %w", err)
	}
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return fmt.Errorf("failed to dial UDP address: %w", err)
	}

	t.mu.Lock()
	t.conn = conn
	t.server = false
	t.mu.Unlock()

	if _, err := conn.Write([]byte{udpFrameHello}); err != nil {
		conn.Close()
		return fmt.Errorf("failed to send hello: %w", err)
	}

	t.wg.Add(1)
	go t.clientReadLoop(conn)
	return nil
}

// Shutdown sends bye frames, closes the socket and waits for the reader.
func (t *UDPTransport) Shutdown() error {
	t.mu.Lock()
	if t.closed || t.conn == nil {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	conn := t.conn

	if t.server {
		for _, peer := range t.byConn {
			conn.WriteToUDP([]byte{udpFrameBye}, peer.addr)
		}
	} else {
		conn.Write([]byte{udpFrameBye})
	}
	t.mu.Unlock()

	conn.Close()
	t.wg.Wait()
	return nil
}

// Send transmits one data frame to the peer.
func (t *UDPTransport) Send(connID uint64, data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed || t.conn == nil {
		return fmt.Errorf("transport is not started")
	}

	frame := make([]byte, 0, len(data)+1)
	frame = append(frame, udpFrameData)
	frame = append(frame, data...)

	if !t.server {
		if _, err := t.conn.Write(frame); err != nil {
			return fmt.Errorf("failed to write datagram: %w", err)
		}
		return nil
	}

	peer, ok := t.byConn[connID]
	if !ok {
		return fmt.Errorf("unknown connection %d", connID)
	}
	if _, err := t.conn.WriteToUDP(frame, peer.addr); err != nil {
		return fmt.Errorf("failed to write datagram to %s: %w", peer.addr, err)
	}
	return nil
}

// PollEvents drains the pending event queue.
func (t *UDPTransport) PollEvents() []Event {
	t.expirePeers()

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

func (t *UDPTransport) serverReadLoop(conn *net.UDPConn) {
	defer t.wg.Done()
	buf := make([]byte, udpBufferSize)
	for {
		n, addr, err := conn.ReadFromUDP(buf)
		if err != nil {
			if !t.isClosed() {
				log.Error("Failed to read from UDP socket: %v", err)
			}
			return
		}
		if n < 1 {
			continue
		}

		frame := buf[0]
		payload := make([]byte, n-1)
		copy(payload, buf[1:n])

		switch frame {
		case udpFrameHello:
			t.handleHello(addr)
		case udpFrameBye:
			t.handleBye(addr)
		case udpFrameData:
			t.handleData(addr, payload)
		default:
			log.Trace("Dropping unknown UDP frame 0x%02x from %s", frame, addr)
		}
	}
}

func (t *UDPTransport) clientReadLoop(conn *net.UDPConn) {
	defer t.wg.Done()

	t.enqueue(Event{Type: EventConnected, Conn: 0})

	buf := make([]byte, udpBufferSize)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			if !t.isClosed() {
				log.Error("Failed to read from UDP socket: %v", err)
				t.enqueue(Event{Type: EventDisconnected, Conn: 0})
			}
			return
		}
		if n < 1 {
			continue
		}

		switch buf[0] {
		case udpFrameBye:
			t.enqueue(Event{Type: EventDisconnected, Conn: 0})
			return
		case udpFrameData:
			payload := make([]byte, n-1)
			copy(payload, buf[1:n])
			t.enqueue(Event{Type: EventPacket, Conn: 0, Data: payload})
		}
	}
}

func (t *UDPTransport) handleHello(addr *net.UDPAddr) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.byAddr[addr.String()]; ok {
		return
	}

	ip := addr.IP.String()
	limiter, ok := t.limiters[ip]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(time.Second), 4)
		t.limiters[ip] = limiter
	}
	if !limiter.Allow() {
		log.Warn("Throttling connection attempts from %s", ip)
		return
	}
	if t.MaxConnsPerIP > 0 && t.perIP[ip] >= t.MaxConnsPerIP {
		log.Warn("Rejecting connection from %s: per-IP limit reached", ip)
		return
	}

	peer := &udpPeer{
		conn:     t.nextConn,
		addr:     addr,
		lastSeen: time.Now(),
	}
	t.nextConn++
	t.byAddr[addr.String()] = peer
	t.byConn[peer.conn] = peer
	t.perIP[ip]++

	t.conn.WriteToUDP([]byte{udpFrameHello}, addr)
	t.enqueue(Event{Type: EventConnected, Conn: peer.conn})
}

func (t *UDPTransport) handleBye(addr *net.UDPAddr) {
	t.mu.Lock()
	peer, ok := t.byAddr[addr.String()]
	if ok {
		t.dropPeerLocked(peer)
	}
	t.mu.Unlock()

	if ok {
		t.enqueue(Event{Type: EventDisconnected, Conn: peer.conn})
	}
}

func (t *UDPTransport) handleData(addr *net.UDPAddr, payload []byte) {
	t.mu.Lock()
	peer, ok := t.byAddr[addr.String()]
	if ok {
		peer.lastSeen = time.Now()
	}
	t.mu.Unlock()

	if !ok {
		log.Trace("Dropping datagram from unknown peer %s", addr)
		return
	}
	t.enqueue(Event{Type: EventPacket, Conn: peer.conn, Data: payload})
}

func (t *UDPTransport) expirePeers() {
	t.mu.Lock()
	var expired []*udpPeer
	for _, peer := range t.byConn {
		if time.Since(peer.lastSeen) > udpPeerTimeout {
			expired = append(expired, peer)
		}
	}
	for _, peer := range expired {
		t.dropPeerLocked(peer)
	}
	t.mu.Unlock()

	for _, peer := range expired {
		t.enqueue(Event{Type: EventDisconnected, Conn: peer.conn})
	}
}

func (t *UDPTransport) dropPeerLocked(peer *udpPeer) {
	delete(t.byAddr, peer.addr.String())
	delete(t.byConn, peer.conn)
	ip := peer.addr.IP.String()
	if t.perIP[ip] > 1 {
		t.perIP[ip]--
	} else {
		delete(t.perIP, ip)
	}
}

func (t *UDPTransport) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

func (t *UDPTransport) enqueue(event Event) {
	if err := t.events.Enqueue(event); err != nil {
		log.Warn("Dropping transport event: %v", err)
	}
}
