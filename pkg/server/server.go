package server

import (
	"context"
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/skylane-game/skylane/pkg/command"
	"github.com/skylane-game/skylane/pkg/game"
	"github.com/skylane-game/skylane/pkg/game/types"
	"github.com/skylane-game/skylane/pkg/interest"
	"github.com/skylane-game/skylane/pkg/log"
	"github.com/skylane-game/skylane/pkg/players"
	"github.com/skylane-game/skylane/pkg/projectiles"
	"github.com/skylane-game/skylane/pkg/queue"
	"github.com/skylane-game/skylane/pkg/repositories"
	"github.com/skylane-game/skylane/pkg/snapshot"
	"github.com/skylane-game/skylane/pkg/statesync"
	"github.com/skylane-game/skylane/pkg/transport"
	"github.com/skylane-game/skylane/pkg/wire"
)

// Statistics is the aggregate operator view of the server.
type Statistics struct {
	Running            bool
	ConnectedPlayers   int
	MaxPlayers         int
	GameTick           uint64
	TotalTicks         uint64
	TotalBroadcasts    uint64
	ActualSimulationHz float64
	ActualBroadcastHz  float64
	AverageTickTimeMs  float64
	CommandsProcessed  uint64
	CommandsRejected   uint64
	SnapshotCount      int
	SnapshotMemory     int
}

// operator ops are enqueued by the console thread and drained on the
// simulation thread during the input phase.
type opKick struct{ name string }
type opSay struct{ text string }
type opStop struct{}

// Server wires the loop, command pipeline, snapshot manager and transport
// into the authoritative game host. All simulation state is touched only
// from the loop's goroutine; the console and admin API interact through
// thread-safe statistics, the player registry and the operator op queue.
type Server struct {
	config ServerConfig

	world       *types.World
	transport   transport.Transport
	registry    *players.Registry
	buffer      *command.Buffer
	validator   *command.Validator
	snapshots   *snapshot.Manager
	interest    *interest.Manager
	stateSync   *statesync.Sync
	projectiles *projectiles.Sync
	collisions  *projectiles.Authority
	loop        *Loop
	repository  repositories.Repository

	opQueue *queue.InMemoryQueue

	initialized bool
	running     atomic.Bool

	commandsProcessed atomic.Uint64
	commandsRejected  atomic.Uint64
	snapshotCount     atomic.Int64
	snapshotMemory    atomic.Int64

	nextPilot int
}

// NewServerOptions contains the collaborators of a new Server. Repository
// is optional; without one, player records simply do not persist.
type NewServerOptions struct {
	Config     ServerConfig
	Transport  transport.Transport
	Repository repositories.Repository
}

// NewServer validates the configuration and wires the subsystems: world,
// transport, registry, command pipeline, snapshot manager and loop, in
// that order.
func NewServer(opts NewServerOptions) (*Server, error) {
	if err := opts.Config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid server configuration: %w", err)
	}
	if opts.Transport == nil {
		return nil, fmt.Errorf("transport is required")
	}

	s := &Server{
		config:     opts.Config,
		transport:  opts.Transport,
		repository: opts.Repository,
		opQueue:    queue.NewInMemoryQueue(256),
	}

	s.world = game.NewStartingWorld(opts.Config.StartingSystem, time.Now().UnixNano())

	s.registry = players.NewRegistry()
	s.buffer = command.NewBuffer(opts.Config.CommandBuffer)
	s.validator = command.NewValidator(command.ValidatorOptions{
		KnownPlayer: s.registry.Has,
	})
	s.snapshots = snapshot.NewManager(opts.Config.SnapshotHistory)
	s.interest = interest.NewManager(interest.DefaultConfig())
	s.stateSync = statesync.NewSync(s.interest)
	s.projectiles = projectiles.NewSync()
	s.collisions = projectiles.NewAuthority(s.projectiles)

	loop, err := NewLoop(opts.Config.SimulationHz, opts.Config.BroadcastHz)
	if err != nil {
		return nil, fmt.Errorf("failed to create server loop: %w", err)
	}
	s.loop = loop

	s.initialized = true
	return s, nil
}

// Start opens the transport.
func (s *Server) Start() error {
	if !s.initialized {
		return fmt.Errorf("server not initialized")
	}
	if s.running.Load() {
		return fmt.Errorf("server already running")
	}

	if err := s.transport.StartServer(s.config.Port); err != nil {
		return fmt.Errorf("failed to start transport: %w", err)
	}

	s.running.Store(true)
	log.Info("Server %q started on port %d (%d Hz sim, %d Hz broadcast)",
		s.config.ServerName, s.config.Port, s.config.SimulationHz, s.config.BroadcastHz)
	return nil
}

// Run blocks in the server loop until Stop is called or the simulation
// fails an invariant.
func (s *Server) Run() error {
	if !s.running.Load() {
		return fmt.Errorf("server not started")
	}

	s.loop.SetInputCallback(s.onInput)
	s.loop.SetSimulateCallback(s.onSimulate)
	s.loop.SetBroadcastCallback(s.onBroadcast)

	err := s.loop.Run()
	s.shutdown()
	if err != nil {
		return fmt.Errorf("server loop failed: %w", err)
	}
	return nil
}

// Stop requests a graceful shutdown. Safe to call from any goroutine or a
// signal handler.
func (s *Server) Stop() {
	s.loop.Stop()
}

// IsRunning reports whether the server accepts traffic.
func (s *Server) IsRunning() bool {
	return s.running.Load()
}

// GameTick returns the current simulation tick.
func (s *Server) GameTick() uint64 {
	return s.loop.GameTick()
}

// PlayerCount returns the number of connected players.
func (s *Server) PlayerCount() int {
	return s.registry.Count()
}

// Config returns the active configuration.
func (s *Server) Config() ServerConfig {
	return s.config
}

// Registry exposes the connected-player roster to the console and API.
func (s *Server) Registry() *players.Registry {
	return s.registry
}

// Repository exposes the optional player-record store.
func (s *Server) Repository() repositories.Repository {
	return s.repository
}

// Statistics returns the operator view. Safe from any goroutine.
func (s *Server) Statistics() Statistics {
	loopStats := s.loop.Stats()
	return Statistics{
		Running:            s.running.Load(),
		ConnectedPlayers:   s.registry.Count(),
		MaxPlayers:         s.config.MaxPlayers,
		GameTick:           s.loop.GameTick(),
		TotalTicks:         loopStats.TotalTicks,
		TotalBroadcasts:    loopStats.TotalBroadcasts,
		ActualSimulationHz: loopStats.ActualSimulationHz,
		ActualBroadcastHz:  loopStats.ActualBroadcastHz,
		AverageTickTimeMs:  loopStats.AverageTickTimeMs,
		CommandsProcessed:  s.commandsProcessed.Load(),
		CommandsRejected:   s.commandsRejected.Load(),
		SnapshotCount:      int(s.snapshotCount.Load()),
		SnapshotMemory:     int(s.snapshotMemory.Load()),
	}
}

// onInput drains transport events and operator ops. Runs every loop
// iteration on the simulation goroutine.
func (s *Server) onInput() {
	for _, event := range s.transport.PollEvents() {
		switch event.Type {
		case transport.EventConnected:
			s.handleJoin(event.Conn)
		case transport.EventDisconnected:
			s.handleLeave(event.Conn)
		case transport.EventPacket:
			s.handlePacket(event.Conn, event.Data)
		}
	}

	ops, _ := s.opQueue.ReadAllMessages()
	for _, op := range ops {
		switch op := op.(type) {
		case opKick:
			s.kickByName(op.name)
		case opSay:
			s.broadcastMessage(op.text)
		case opStop:
			s.loop.Stop()
		}
	}
}

// onSimulate advances the world by one tick: apply this tick's commands in
// (player, sequence) order, fire weapons, resolve collisions, step, then
// record a snapshot.
func (s *Server) onSimulate(tick uint64) error {
	s.stateSync.SetCurrentTick(tick)
	s.projectiles.SetCurrentTick(tick)

	cmds := s.buffer.CommandsForTick(tick)
	sortForApply(cmds)
	for _, cmd := range cmds {
		verdict := s.validator.Validate(cmd, tick)
		if verdict != command.Valid {
			s.commandsRejected.Add(1)
			if s.config.VerboseLogging {
				log.Debug("Rejected command from %s at tick %d: %s", cmd.Player, cmd.Tick, verdict)
			}
			continue
		}
		if err := game.ApplyCommand(s.world, cmd); err != nil {
			s.commandsRejected.Add(1)
			log.Debug("Failed to apply command from %s: %v", cmd.Player, err)
			continue
		}
		s.commandsProcessed.Add(1)
	}

	pruneWindow := uint64(2 * s.config.SimulationHz)
	if tick > pruneWindow {
		s.buffer.PruneOlderThan(tick - pruneWindow)
	}

	game.RunWeapons(s.world, s.projectiles)
	s.collisions.Resolve(s.world)
	s.world.Step()
	s.world.CompactProjectiles()

	if err := s.world.Validate(); err != nil {
		return fmt.Errorf("world invariant breached at tick %d: %w", tick, err)
	}

	s.snapshots.Create(s.world, s.world.Tick, false)
	s.snapshotCount.Store(int64(s.snapshots.Count()))
	s.snapshotMemory.Store(int64(s.snapshots.MemoryUsage()))
	return nil
}

// onBroadcast sends each connected observer its filtered view of the
// latest snapshot, folding in the tick's projectile events. Broadcasts
// always follow the snapshot of the tick they describe.
func (s *Server) onBroadcast(tick uint64) {
	entry := s.snapshots.Latest()
	if entry == nil {
		return
	}

	spawns := s.projectiles.PendingSpawns()
	impacts := s.projectiles.PendingImpacts()
	deaths := s.projectiles.PendingDeaths()

	for _, player := range s.registry.All() {
		if ship := entry.World.ShipByOwner(player.ID); ship != nil {
			s.interest.SetCenter(player.ID, ship.Position)
		}

		update := wire.StateUpdate{
			Tick:    entry.Tick,
			Ships:   s.stateSync.UpdatesFor(player.ID, entry.World.Ships),
			Spawns:  s.relevantSpawns(player.ID, spawns),
			Impacts: impacts,
			Deaths:  deaths,
		}
		packet := wire.Seal(wire.TagStateUpdate, wire.EncodeStateUpdate(update))
		if err := s.transport.Send(player.Conn, packet); err != nil {
			log.Debug("Failed to send state update to %s: %v", player.Name, err)
		}
	}
}

// relevantSpawns filters spawn events by projectile interest. Impacts and
// deaths go to everyone; a client that never saw the spawn drops them by
// network id.
func (s *Server) relevantSpawns(observer uuid.UUID, spawns []projectiles.Spawn) []projectiles.Spawn {
	relevant := make([]projectiles.Spawn, 0, len(spawns))
	for _, spawn := range spawns {
		p := types.Projectile{Position: spawn.Position}
		if s.interest.ProjectileInterest(observer, &p) != interest.None {
			relevant = append(relevant, spawn)
		}
	}
	return relevant
}

func (s *Server) handleJoin(conn uint64) {
	if s.registry.Count() >= s.config.MaxPlayers {
		log.Warn("Rejecting connection %d: server full (%d players)", conn, s.config.MaxPlayers)
		packet := wire.Seal(wire.TagServerMessage, wire.EncodeServerMessage("Server is full."))
		s.transport.Send(conn, packet)
		return
	}

	s.nextPilot++
	player := players.NewNetworkPlayer(uuid.New(), fmt.Sprintf("Pilot-%d", s.nextPilot), conn)
	player.Credits = s.config.StartingCredits
	player.System = s.config.StartingSystem
	player.Planet = s.config.StartingPlanet

	government := "players"
	if s.config.EnablePvP {
		government = player.Name
	}

	ship := types.NewShip(player.Name, government, spawnPosition())
	ship.Owner = player.ID
	s.world.AddShip(ship)
	player.AddShip(ship.ID)

	s.registry.Add(player)
	s.interest.SetCenter(player.ID, ship.Position)
	s.savePlayerRecord(player)

	log.Info("Player %s joined on connection %d (%d/%d)",
		player.Name, conn, s.registry.Count(), s.config.MaxPlayers)

	welcome := wire.Welcome{Player: player.ID, World: s.world}
	s.transport.Send(conn, wire.Seal(wire.TagServerWelcome, wire.EncodeWelcome(welcome)))
	if s.config.MOTD != "" {
		s.transport.Send(conn, wire.Seal(wire.TagServerMessage, wire.EncodeServerMessage(s.config.MOTD)))
	}

	joined := wire.Seal(wire.TagPlayerJoined, wire.EncodePlayerJoined(wire.PlayerInfo{
		ID:       player.ID,
		Name:     player.Name,
		Flagship: ship.ID,
	}))
	for _, other := range s.registry.All() {
		if other.ID != player.ID {
			s.transport.Send(other.Conn, joined)
		}
	}
}

func (s *Server) handleLeave(conn uint64) {
	player := s.registry.ByConn(conn)
	if player == nil {
		return
	}
	s.removePlayer(player)
}

func (s *Server) removePlayer(player *players.NetworkPlayer) {
	player.Touch()
	s.savePlayerRecord(player)

	for _, shipID := range player.Ships {
		s.world.RemoveShip(shipID)
		s.stateSync.RemoveShip(shipID)
	}
	s.registry.Remove(player.ID)
	s.interest.RemoveObserver(player.ID)
	s.validator.ClearPlayer(player.ID)

	log.Info("Player %s left (%d/%d)", player.Name, s.registry.Count(), s.config.MaxPlayers)

	left := wire.Seal(wire.TagPlayerLeft, wire.EncodePlayerLeft(player.ID))
	for _, other := range s.registry.All() {
		s.transport.Send(other.Conn, left)
	}
}

func (s *Server) handlePacket(conn uint64, data []byte) {
	tag, payload, err := wire.Open(data)
	if err != nil {
		log.Debug("Dropping undecodable packet on connection %d: %v", conn, err)
		return
	}

	switch tag {
	case wire.TagClientCommand:
		s.handleCommand(conn, payload)
	case wire.TagClientPing:
		s.transport.Send(conn, wire.Seal(wire.TagServerPong, payload))
	default:
		log.Debug("Unexpected %s packet on connection %d", tag, conn)
	}
}

func (s *Server) handleCommand(conn uint64, payload []byte) {
	r := wire.NewReader(payload)
	cmd := wire.ReadCommand(r)
	if err := r.Err(); err != nil {
		log.Debug("Dropping malformed command on connection %d: %v", conn, err)
		return
	}

	player := s.registry.ByConn(conn)
	if player == nil || player.ID != cmd.Player {
		s.commandsRejected.Add(1)
		log.Debug("Dropping command with mismatched player id on connection %d", conn)
		return
	}
	player.Touch()

	if err := s.buffer.AddCommand(cmd); err != nil {
		s.commandsRejected.Add(1)
		if s.config.VerboseLogging {
			log.Debug("Failed to buffer command from %s: %v", player.Name, err)
		}
	}
}

// ExecuteConsoleCommand runs one operator command and returns its output.
// Safe to call from the console goroutine: reads go through thread-safe
// views, mutations are queued onto the simulation thread.
func (s *Server) ExecuteConsoleCommand(line string) string {
	return s.runConsoleCommand(line)
}

func (s *Server) kickByName(name string) {
	player := s.registry.ByName(name)
	if player == nil {
		log.Warn("Kick: player %q not found", name)
		return
	}
	s.transport.Send(player.Conn, wire.Seal(wire.TagServerMessage,
		wire.EncodeServerMessage("You have been kicked from the server.")))
	s.removePlayer(player)
}

func (s *Server) broadcastMessage(text string) {
	log.Info("[broadcast] %s", text)
	packet := wire.Seal(wire.TagServerMessage, wire.EncodeServerMessage(text))
	for _, player := range s.registry.All() {
		s.transport.Send(player.Conn, packet)
	}
}

func (s *Server) savePlayerRecord(player *players.NetworkPlayer) {
	if s.repository == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	record := &repositories.PlayerRecord{
		ID:       player.ID,
		Name:     player.Name,
		Credits:  player.Credits,
		System:   player.System,
		Planet:   player.Planet,
		LastSeen: player.LastSeen,
	}
	if err := s.repository.SavePlayer(ctx, record); err != nil {
		log.Error("Failed to save player record for %s: %v", player.Name, err)
	}
}

func (s *Server) shutdown() {
	if !s.running.Load() {
		return
	}

	for _, player := range s.registry.All() {
		player.Touch()
		s.savePlayerRecord(player)
	}

	if err := s.transport.Shutdown(); err != nil {
		log.Error("Failed to shut down transport: %v", err)
	}
	s.running.Store(false)
	log.Info("Server stopped")
}

// sortForApply orders commands by (player uuid, sequence) so concurrent
// input within a tick resolves deterministically.
func sortForApply(cmds []command.PlayerCommand) {
	for i := 1; i < len(cmds); i++ {
		for j := i; j > 0; j-- {
			a, b := cmds[j-1], cmds[j]
			c := command.ComparePlayers(a.Player, b.Player)
			if c < 0 || (c == 0 && a.Sequence <= b.Sequence) {
				break
			}
			cmds[j-1], cmds[j] = b, a
		}
	}
}

func spawnPosition() types.Point {
	return types.Point{
		X: (rand.Float64() - 0.5) * 1200,
		Y: (rand.Float64() - 0.5) * 1200,
	}
}
