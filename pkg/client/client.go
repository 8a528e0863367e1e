package client

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/skylane-game/skylane/pkg/command"
	"github.com/skylane-game/skylane/pkg/game/types"
	"github.com/skylane-game/skylane/pkg/log"
	"github.com/skylane-game/skylane/pkg/projectiles"
	"github.com/skylane-game/skylane/pkg/statesync"
	"github.com/skylane-game/skylane/pkg/transport"
	"github.com/skylane-game/skylane/pkg/wire"
)

// State is the client connection state machine.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateDisconnecting
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnecting:
		return "disconnecting"
	default:
		return "unknown"
	}
}

// pingInterval is how often the client measures round-trip time.
const pingInterval = 2 * time.Second

// Statistics is the client-side diagnostic view.
type Statistics struct {
	ConnectionState      State
	Ping                 uint32
	PacketLoss           float64
	Jitter               uint32
	CommandsSent         uint64
	StateUpdatesReceived uint64
	PredictionErrors     uint64
	InterpolatedEntities int
}

// Client is the multiplayer client facade: it connects the transport,
// sends commands with immediate local prediction, rebases on authoritative
// updates, interpolates remote entities and smooths residual error.
type Client struct {
	transport transport.Transport
	state     State

	playerID uuid.UUID

	// world is the predicted local copy; serverView is the last known
	// authoritative state that updates are applied onto.
	world      *types.World
	serverView *types.World

	predictor      *Predictor
	reconciliation *Reconciliation
	interpolator   *EntityInterpolator
	monitor        *ConnectionMonitor
	stateSync      *statesync.Sync
	projectiles    *projectiles.Sync

	// roster maps known players to their names for display.
	roster map[uuid.UUID]string

	sequence             uint32
	commandsSent         uint64
	stateUpdatesReceived uint64
	nextPingID           uint64
	lastPingSent         time.Time

	onMessage func(text string)
}

// NewClient creates a disconnected client over the given transport.
func NewClient(tr transport.Transport) *Client {
	return &Client{
		transport:      tr,
		state:          StateDisconnected,
		predictor:      NewPredictor(),
		reconciliation: NewReconciliation(),
		interpolator:   NewEntityInterpolator(),
		monitor:        NewConnectionMonitor(),
		stateSync:      statesync.NewSync(nil),
		projectiles:    projectiles.NewSync(),
		roster:         make(map[uuid.UUID]string),
	}
}

// SetMessageHandler installs a handler for server chat/MOTD messages.
func (c *Client) SetMessageHandler(fn func(text string)) {
	c.onMessage = fn
}

// Connect starts the transport towards the server. The connection
// completes asynchronously; Update drives the state machine.
func (c *Client) Connect(host string, port int) error {
	if c.state != StateDisconnected {
		return fmt.Errorf("already connected or connecting")
	}

	log.Info("Connecting to %s:%d...", host, port)
	c.state = StateConnecting

	if err := c.transport.StartClient(host, port); err != nil {
		c.state = StateDisconnected
		return fmt.Errorf("failed to start transport: %w", err)
	}
	return nil
}

// Disconnect tears the session down.
func (c *Client) Disconnect() {
	if c.state == StateDisconnected {
		return
	}
	c.state = StateDisconnecting

	if err := c.transport.Shutdown(); err != nil {
		log.Error("Failed to shut down transport: %v", err)
	}

	c.state = StateDisconnected
	c.world = nil
	c.serverView = nil
	c.playerID = uuid.Nil
	c.predictor.Clear()
	c.interpolator.Clear()
	c.projectiles.Clear()
	c.stateSync.ClearReckoners()
	log.Info("Disconnected")
}

// State returns the connection state.
func (c *Client) State() State {
	return c.state
}

// PlayerID returns the server-assigned player id.
func (c *Client) PlayerID() uuid.UUID {
	return c.playerID
}

// World returns the predicted local world, nil before the welcome.
func (c *Client) World() *types.World {
	return c.world
}

// PlayerShip resolves the local ship by identity in the current world; the
// pointer is never cached across world swaps.
func (c *Client) PlayerShip() *types.Ship {
	if c.world == nil {
		return nil
	}
	return c.world.ShipByOwner(c.playerID)
}

// RenderState returns the interpolated render state of a remote entity.
func (c *Client) RenderState(entityId uuid.UUID) *EntityState {
	return c.interpolator.GetInterpolatedState(entityId)
}

// Statistics returns the diagnostic view.
func (c *Client) Statistics() Statistics {
	return Statistics{
		ConnectionState:      c.state,
		Ping:                 c.monitor.Ping(),
		PacketLoss:           c.monitor.PacketLoss(),
		Jitter:               c.monitor.Jitter(),
		CommandsSent:         c.commandsSent,
		StateUpdatesReceived: c.stateUpdatesReceived,
		PredictionErrors:     c.predictor.PredictionErrors(),
		InterpolatedEntities: c.interpolator.TrackedEntityCount(),
	}
}

// Update runs one client frame: drain transport events, tick the
// interpolator, reconciler and monitor, and disconnect on timeout. It
// never blocks; all waiting happens inside the transport.
func (c *Client) Update() {
	if c.state == StateDisconnected {
		return
	}

	c.processEvents()

	if c.state != StateConnected {
		return
	}

	c.interpolator.Update()
	c.reconciliation.Update()
	c.monitor.Update()
	c.maybePing()

	if c.monitor.IsTimedOut() {
		log.Warn("Connection timed out")
		c.Disconnect()
	}
}

// SendCommand wraps the control word in a command stamped with the next
// sequence number, sends it upstream, predicts its effect locally and
// records it for replay.
func (c *Client) SendCommand(controls command.Control, target *types.Point) error {
	if c.state != StateConnected || c.world == nil {
		return fmt.Errorf("not connected")
	}

	c.sequence++
	cmd := command.PlayerCommand{
		Player:   c.playerID,
		Tick:     c.world.Tick,
		Controls: controls,
		Sequence: c.sequence,
	}
	if target != nil {
		cmd.HasTargetPoint = true
		cmd.TargetPoint = *target
	}

	w := wire.NewWriter()
	wire.WriteCommand(w, cmd)
	if err := c.transport.Send(0, wire.Seal(wire.TagClientCommand, w.Bytes())); err != nil {
		return fmt.Errorf("failed to send command: %w", err)
	}
	c.commandsSent++

	c.world = c.predictor.PredictNextState(c.world, cmd)
	c.predictor.RecordCommand(cmd)
	return nil
}

func (c *Client) processEvents() {
	for _, event := range c.transport.PollEvents() {
		switch event.Type {
		case transport.EventConnected:
			c.onConnected()
		case transport.EventDisconnected:
			c.onDisconnected()
		case transport.EventPacket:
			c.onPacket(event.Data)
		}
	}
}

func (c *Client) onConnected() {
	c.state = StateConnected
	log.Info("Connected to server, waiting for welcome")
}

func (c *Client) onDisconnected() {
	log.Info("Server closed the connection")
	c.state = StateDisconnected
	c.world = nil
	c.serverView = nil
	c.playerID = uuid.Nil
	c.predictor.Clear()
	c.interpolator.Clear()
	c.projectiles.Clear()
	c.stateSync.ClearReckoners()
}

func (c *Client) onPacket(data []byte) {
	tag, payload, err := wire.Open(data)
	if err != nil {
		log.Debug("Dropping undecodable packet: %v", err)
		return
	}

	switch tag {
	case wire.TagServerWelcome:
		c.onServerWelcome(payload)
	case wire.TagStateUpdate:
		c.onStateUpdate(payload)
	case wire.TagPlayerJoined:
		c.onPlayerJoined(payload)
	case wire.TagPlayerLeft:
		c.onPlayerLeft(payload)
	case wire.TagServerMessage:
		c.onServerMessage(payload)
	case wire.TagServerPong:
		c.onPong(payload)
	default:
		log.Debug("Unexpected %s packet from server", tag)
	}
}

func (c *Client) onServerWelcome(payload []byte) {
	welcome, err := wire.DecodeWelcome(payload)
	if err != nil {
		log.Error("Failed to decode welcome: %v", err)
		return
	}

	c.playerID = welcome.Player
	c.serverView = welcome.World
	c.world = welcome.World.Clone()
	c.monitor.RecordPacketReceived(0)

	log.Info("Welcome received: player %s, world %q at tick %d",
		c.playerID, c.world.Region, c.world.Tick)
}

func (c *Client) onStateUpdate(payload []byte) {
	update, err := wire.DecodeStateUpdate(payload)
	if err != nil {
		log.Error("Failed to decode state update: %v", err)
		return
	}
	if c.serverView == nil {
		return
	}

	c.stateUpdatesReceived++
	c.monitor.RecordPacketReceived(c.stateUpdatesReceived)

	c.applyAuthoritativeUpdate(update)

	// Rebase the predicted world: replay unconfirmed input on top of the
	// authoritative view, then smooth the residual error on the local ship.
	prevShip := shipState(c.world, c.playerID)
	reconciled := c.predictor.ReconcileWithServer(c.serverView, update.Tick)
	if prevShip != nil {
		if newShip := reconciled.ShipByOwner(c.playerID); newShip != nil {
			c.reconciliation.ReconcilePosition(prevShip.Position, newShip.Position)
			c.reconciliation.ReconcileVelocity(prevShip.Velocity, newShip.Velocity)
			c.reconciliation.ReconcileFacing(prevShip.Facing, newShip.Facing)
		}
	}
	c.world = reconciled

	// Remote entities render from the buffered timeline, not prediction.
	nowMs := time.Now().UnixMilli()
	for _, u := range update.Ships {
		if ship := c.serverView.ShipByID(u.Ship); ship != nil && ship.Owner == c.playerID {
			continue
		}
		c.interpolator.AddSnapshot(u.Ship, EntityState{
			Tick:        u.Tick,
			Position:    u.Position,
			Velocity:    u.Velocity,
			Facing:      u.Facing,
			TimestampMs: nowMs,
		})
	}
}

// applyAuthoritativeUpdate folds a state update into the authoritative view.
func (c *Client) applyAuthoritativeUpdate(update wire.StateUpdate) {
	c.serverView.Tick = update.Tick
	c.stateSync.SetCurrentTick(update.Tick)

	for _, u := range update.Ships {
		ship := c.serverView.ShipByID(u.Ship)
		if ship == nil {
			// A ship we have not met yet; materialize a shell and let the
			// scoped fields fill it in.
			ship = &types.Ship{ID: u.Ship}
			c.serverView.AddShip(ship)
		}
		c.stateSync.Apply(ship, u)
	}

	for _, spawn := range update.Spawns {
		c.projectiles.ApplySpawn(c.serverView, spawn)
	}
	for _, impact := range update.Impacts {
		c.projectiles.ApplyImpact(c.serverView, impact)
	}
	for _, death := range update.Deaths {
		c.projectiles.ApplyDeath(c.serverView, death)
	}
	c.serverView.CompactProjectiles()
}

func (c *Client) onPlayerJoined(payload []byte) {
	info, err := wire.DecodePlayerJoined(payload)
	if err != nil {
		log.Error("Failed to decode player joined: %v", err)
		return
	}
	c.roster[info.ID] = info.Name
	log.Info("Player joined: %s", info.Name)
}

func (c *Client) onPlayerLeft(payload []byte) {
	id, err := wire.DecodePlayerLeft(payload)
	if err != nil {
		log.Error("Failed to decode player left: %v", err)
		return
	}
	name := c.roster[id]
	delete(c.roster, id)

	for _, w := range []*types.World{c.serverView, c.world} {
		if w == nil {
			continue
		}
		if ship := w.ShipByOwner(id); ship != nil {
			c.interpolator.RemoveEntity(ship.ID)
			c.stateSync.RemoveShip(ship.ID)
			w.RemoveShip(ship.ID)
		}
	}

	log.Info("Player left: %s", name)
}

func (c *Client) onServerMessage(payload []byte) {
	text, err := wire.DecodeServerMessage(payload)
	if err != nil {
		log.Error("Failed to decode server message: %v", err)
		return
	}
	if c.onMessage != nil {
		c.onMessage(text)
	} else {
		log.Info("[server] %s", text)
	}
}

func (c *Client) maybePing() {
	if time.Since(c.lastPingSent) < pingInterval {
		return
	}
	c.lastPingSent = time.Now()
	c.nextPingID++

	ping := wire.Ping{ID: c.nextPingID, SentMs: time.Now().UnixMilli()}
	if err := c.transport.Send(0, wire.Seal(wire.TagClientPing, wire.EncodePing(ping))); err != nil {
		log.Debug("Failed to send ping: %v", err)
		return
	}
	c.monitor.RecordPacketSent(ping.ID)
}

func (c *Client) onPong(payload []byte) {
	pong, err := wire.DecodePing(payload)
	if err != nil {
		log.Debug("Failed to decode pong: %v", err)
		return
	}
	rtt := time.Now().UnixMilli() - pong.SentMs
	if rtt < 0 {
		rtt = 0
	}
	c.monitor.RecordPing(uint32(rtt))
	c.monitor.RecordPacketReceived(pong.ID)
}

// shipState captures a copy of the owner's ship, or nil.
func shipState(w *types.World, owner uuid.UUID) *types.Ship {
	if w == nil {
		return nil
	}
	ship := w.ShipByOwner(owner)
	if ship == nil {
		return nil
	}
	return ship.Clone()
}
