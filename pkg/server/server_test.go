package server

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skylane-game/skylane/pkg/command"
	"github.com/skylane-game/skylane/pkg/transport"
	"github.com/skylane-game/skylane/pkg/wire"
)

func testConfig() ServerConfig {
	config := DefaultConfig()
	config.MaxPlayers = 2
	config.EnablePvP = false
	return config
}

// serverHarness drives the server's loop callbacks directly against an
// in-process transport, with one scripted client attached.
type serverHarness struct {
	srv       *Server
	serverEnd *transport.MemoryTransport
	clientEnd *transport.MemoryTransport
}

func newServerHarness(t *testing.T, config ServerConfig) *serverHarness {
	t.Helper()

	serverEnd := transport.NewMemoryTransport()
	srv, err := NewServer(NewServerOptions{
		Config:    config,
		Transport: serverEnd,
	})
	require.NoError(t, err)
	require.NoError(t, srv.Start())

	return &serverHarness{srv: srv, serverEnd: serverEnd}
}

func (h *serverHarness) connectClient(t *testing.T) *transport.MemoryTransport {
	t.Helper()
	clientEnd := transport.NewMemoryTransport()
	require.NoError(t, clientEnd.ConnectTo(h.serverEnd))
	if h.clientEnd == nil {
		h.clientEnd = clientEnd
	}
	h.srv.onInput()
	return clientEnd
}

// drain returns the client's received packets, decoded into tag/payload.
func drain(t *testing.T, end *transport.MemoryTransport) map[wire.Tag][][]byte {
	t.Helper()
	packets := make(map[wire.Tag][][]byte)
	for _, ev := range end.PollEvents() {
		if ev.Type != transport.EventPacket {
			continue
		}
		tag, payload, err := wire.Open(ev.Data)
		require.NoError(t, err)
		packets[tag] = append(packets[tag], payload)
	}
	return packets
}

func TestNewServerRejectsInvalidConfig(t *testing.T) {
	config := DefaultConfig()
	config.BroadcastHz = config.SimulationHz + 1
	_, err := NewServer(NewServerOptions{
		Config:    config,
		Transport: transport.NewMemoryTransport(),
	})
	assert.Error(t, err)

	_, err = NewServer(NewServerOptions{Config: DefaultConfig()})
	assert.Error(t, err)
}

func TestJoinSendsWelcomeAndSpawnsShip(t *testing.T) {
	h := newServerHarness(t, testConfig())
	clientEnd := h.connectClient(t)

	assert.Equal(t, 1, h.srv.PlayerCount())
	require.Len(t, h.srv.world.Ships, 1)

	packets := drain(t, clientEnd)
	require.Len(t, packets[wire.TagServerWelcome], 1)

	welcome, err := wire.DecodeWelcome(packets[wire.TagServerWelcome][0])
	require.NoError(t, err)
	assert.NotEqual(t, welcome.Player.String(), "")
	require.Len(t, welcome.World.Ships, 1)
	assert.Equal(t, welcome.Player, welcome.World.Ships[0].Owner)

	// The MOTD rides along as a server message.
	require.Len(t, packets[wire.TagServerMessage], 1)
	motd, err := wire.DecodeServerMessage(packets[wire.TagServerMessage][0])
	require.NoError(t, err)
	assert.Equal(t, h.srv.Config().MOTD, motd)
}

func TestJoinNotifiesExistingPlayers(t *testing.T) {
	h := newServerHarness(t, testConfig())
	first := h.connectClient(t)
	drain(t, first)

	h.connectClient(t)

	packets := drain(t, first)
	require.Len(t, packets[wire.TagPlayerJoined], 1)
	info, err := wire.DecodePlayerJoined(packets[wire.TagPlayerJoined][0])
	require.NoError(t, err)
	assert.NotEmpty(t, info.Name)
}

func TestServerFullRejectsJoin(t *testing.T) {
	config := testConfig()
	config.MaxPlayers = 1
	h := newServerHarness(t, config)
	h.connectClient(t)

	extra := h.connectClient(t)

	assert.Equal(t, 1, h.srv.PlayerCount())
	packets := drain(t, extra)
	assert.Empty(t, packets[wire.TagServerWelcome])
	require.Len(t, packets[wire.TagServerMessage], 1)
}

func TestCommandMovesShipAndBroadcasts(t *testing.T) {
	h := newServerHarness(t, testConfig())
	clientEnd := h.connectClient(t)

	packets := drain(t, clientEnd)
	welcome, err := wire.DecodeWelcome(packets[wire.TagServerWelcome][0])
	require.NoError(t, err)
	player := welcome.Player

	ship := h.srv.world.ShipByOwner(player)
	require.NotNil(t, ship)
	start := ship.Position

	// Send a thrust command for tick 0 and run two ticks.
	cmd := command.PlayerCommand{
		Player:   player,
		Tick:     0,
		Controls: command.ControlThrust,
		Sequence: 1,
	}
	w := wire.NewWriter()
	wire.WriteCommand(w, cmd)
	require.NoError(t, clientEnd.Send(0, wire.Seal(wire.TagClientCommand, w.Bytes())))

	h.srv.onInput()
	require.NoError(t, h.srv.onSimulate(0))
	require.NoError(t, h.srv.onSimulate(1))

	assert.Equal(t, uint64(2), h.srv.world.Tick)
	assert.Equal(t, uint64(1), h.srv.commandsProcessed.Load())
	// Thrust applied at tick 0 moves the ship on tick 1.
	assert.NotEqual(t, start, ship.Position)

	h.srv.onBroadcast(2)
	packets = drain(t, clientEnd)
	require.NotEmpty(t, packets[wire.TagStateUpdate])
	update, err := wire.DecodeStateUpdate(packets[wire.TagStateUpdate][0])
	require.NoError(t, err)
	assert.Equal(t, uint64(2), update.Tick)
	require.NotEmpty(t, update.Ships)
	// The observer's own ship is always critical, hence full scope.
	assert.Equal(t, ship.ID, update.Ships[0].Ship)
}

func TestCommandFromWrongConnectionIsDropped(t *testing.T) {
	h := newServerHarness(t, testConfig())
	first := h.connectClient(t)
	second := h.connectClient(t)
	drain(t, first)

	packets := drain(t, second)
	welcome, err := wire.DecodeWelcome(packets[wire.TagServerWelcome][0])
	require.NoError(t, err)

	// The first connection tries to speak as the second player.
	cmd := command.PlayerCommand{
		Player:   welcome.Player,
		Tick:     0,
		Controls: command.ControlThrust,
		Sequence: 1,
	}
	w := wire.NewWriter()
	wire.WriteCommand(w, cmd)
	require.NoError(t, first.Send(0, wire.Seal(wire.TagClientCommand, w.Bytes())))

	h.srv.onInput()
	assert.Equal(t, 0, h.srv.buffer.Len())
	assert.Equal(t, uint64(1), h.srv.commandsRejected.Load())
}

func TestLeaveRemovesShipAndNotifies(t *testing.T) {
	h := newServerHarness(t, testConfig())
	first := h.connectClient(t)
	second := h.connectClient(t)
	drain(t, first)
	drain(t, second)

	require.NoError(t, second.Shutdown())
	h.srv.onInput()

	assert.Equal(t, 1, h.srv.PlayerCount())
	assert.Len(t, h.srv.world.Ships, 1)

	packets := drain(t, first)
	require.Len(t, packets[wire.TagPlayerLeft], 1)
}

func TestSnapshotsRecordedEachTick(t *testing.T) {
	h := newServerHarness(t, testConfig())

	for tick := uint64(0); tick < 5; tick++ {
		require.NoError(t, h.srv.onSimulate(tick))
	}

	assert.Equal(t, 5, h.srv.snapshots.Count())
	latest := h.srv.snapshots.Latest()
	require.NotNil(t, latest)
	assert.Equal(t, h.srv.world.Tick, latest.Tick)
}

func TestConsoleCommands(t *testing.T) {
	h := newServerHarness(t, testConfig())
	clientEnd := h.connectClient(t)
	drain(t, clientEnd)

	status := h.srv.ExecuteConsoleCommand("status")
	assert.Contains(t, status, "Players: 1 / 2")

	playersOut := h.srv.ExecuteConsoleCommand("players")
	assert.Contains(t, playersOut, "Pilot-1")

	help := h.srv.ExecuteConsoleCommand("help")
	assert.Contains(t, help, "kick <player>")

	assert.Contains(t, h.srv.ExecuteConsoleCommand("bogus"), "Unknown command")
	assert.Contains(t, h.srv.ExecuteConsoleCommand("kick"), "Usage")
	assert.Contains(t, h.srv.ExecuteConsoleCommand("kick Nobody"), "not found")

	// say is queued and broadcast on the next input phase.
	out := h.srv.ExecuteConsoleCommand("say hello pilots")
	assert.True(t, strings.Contains(out, "hello pilots"))
	h.srv.onInput()
	packets := drain(t, clientEnd)
	require.Len(t, packets[wire.TagServerMessage], 1)
	text, err := wire.DecodeServerMessage(packets[wire.TagServerMessage][0])
	require.NoError(t, err)
	assert.Equal(t, "hello pilots", text)
}

func TestConsoleKickAndShutdown(t *testing.T) {
	h := newServerHarness(t, testConfig())
	clientEnd := h.connectClient(t)
	drain(t, clientEnd)

	out := h.srv.ExecuteConsoleCommand("kick Pilot-1")
	assert.Contains(t, out, "Kicking")
	h.srv.onInput()
	assert.Equal(t, 0, h.srv.PlayerCount())
	assert.Empty(t, h.srv.world.Ships)

	h.srv.loop.running.Store(true)
	h.srv.ExecuteConsoleCommand("shutdown")
	h.srv.onInput()
	assert.False(t, h.srv.loop.IsRunning())
}

func TestPingPong(t *testing.T) {
	h := newServerHarness(t, testConfig())
	clientEnd := h.connectClient(t)
	drain(t, clientEnd)

	ping := wire.Ping{ID: 7, SentMs: 12345}
	require.NoError(t, clientEnd.Send(0, wire.Seal(wire.TagClientPing, wire.EncodePing(ping))))
	h.srv.onInput()

	packets := drain(t, clientEnd)
	require.Len(t, packets[wire.TagServerPong], 1)
	pong, err := wire.DecodePing(packets[wire.TagServerPong][0])
	require.NoError(t, err)
	assert.Equal(t, ping, pong)
}
