package client

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skylane-game/skylane/pkg/command"
	"github.com/skylane-game/skylane/pkg/game/types"
	"github.com/skylane-game/skylane/pkg/statesync"
	"github.com/skylane-game/skylane/pkg/transport"
	"github.com/skylane-game/skylane/pkg/wire"
)

// testHarness wires a client to an in-process transport pair with a fake
// server end we can script packets through.
type testHarness struct {
	client    *Client
	serverEnd *transport.MemoryTransport
	clientEnd *transport.MemoryTransport
	conn      uint64
	playerID  uuid.UUID
}

func newTestHarness(t *testing.T) *testHarness {
	t.Helper()

	serverEnd := transport.NewMemoryTransport()
	require.NoError(t, serverEnd.StartServer(0))
	clientEnd := transport.NewMemoryTransport()

	c := NewClient(clientEnd)
	c.state = StateConnecting
	require.NoError(t, clientEnd.ConnectTo(serverEnd))

	h := &testHarness{
		client:    c,
		serverEnd: serverEnd,
		clientEnd: clientEnd,
		playerID:  uuid.New(),
	}

	// Pick up the server's view of the new connection.
	for _, ev := range serverEnd.PollEvents() {
		if ev.Type == transport.EventConnected {
			h.conn = ev.Conn
		}
	}
	return h
}

func (h *testHarness) welcomeWorld(tick uint64) *types.World {
	w := types.NewWorld("Rutilicus")
	w.Tick = tick
	ship := types.NewShip("Falcon", "players", types.Point{})
	ship.Owner = h.playerID
	ship.Velocity = types.Point{X: 1, Y: 0}
	w.AddShip(ship)
	return w
}

func (h *testHarness) sendWelcome(t *testing.T, tick uint64) {
	t.Helper()
	payload := wire.EncodeWelcome(wire.Welcome{Player: h.playerID, World: h.welcomeWorld(tick)})
	require.NoError(t, h.serverEnd.Send(h.conn, wire.Seal(wire.TagServerWelcome, payload)))
	h.client.Update()
}

func TestClientWelcomeFlow(t *testing.T) {
	h := newTestHarness(t)

	h.client.Update()
	assert.Equal(t, StateConnected, h.client.State())
	assert.Nil(t, h.client.World())

	h.sendWelcome(t, 100)

	assert.Equal(t, h.playerID, h.client.PlayerID())
	require.NotNil(t, h.client.World())
	assert.Equal(t, uint64(100), h.client.World().Tick)
	require.NotNil(t, h.client.PlayerShip())
}

func TestClientSendCommandPredictsLocally(t *testing.T) {
	h := newTestHarness(t)
	h.client.Update()
	h.sendWelcome(t, 100)

	require.NoError(t, h.client.SendCommand(command.ControlThrust, nil))

	// Prediction advanced the local world one tick ahead of the server.
	assert.Equal(t, uint64(101), h.client.World().Tick)
	assert.Equal(t, types.Point{X: 1, Y: 0}, h.client.PlayerShip().Position)
	assert.Equal(t, 1, h.client.predictor.UnconfirmedCount())

	// The command went upstream with the session's sequence number.
	events := h.serverEnd.PollEvents()
	require.NotEmpty(t, events)
	var cmd command.PlayerCommand
	found := false
	for _, ev := range events {
		if ev.Type != transport.EventPacket {
			continue
		}
		tag, payload, err := wire.Open(ev.Data)
		require.NoError(t, err)
		if tag == wire.TagClientCommand {
			r := wire.NewReader(payload)
			cmd = wire.ReadCommand(r)
			require.NoError(t, r.Err())
			found = true
		}
	}
	require.True(t, found, "expected a command packet")
	assert.Equal(t, h.playerID, cmd.Player)
	assert.Equal(t, uint64(100), cmd.Tick)
	assert.Equal(t, uint32(1), cmd.Sequence)
}

func TestClientStateUpdateReconciles(t *testing.T) {
	h := newTestHarness(t)
	h.client.Update()
	h.sendWelcome(t, 100)

	require.NoError(t, h.client.SendCommand(command.ControlThrust, nil))

	// The server confirms tick 101 with the ship where prediction put it.
	shipID := h.client.PlayerShip().ID
	update := wire.StateUpdate{
		Tick: 101,
		Ships: []statesync.ShipUpdate{{
			Ship:     shipID,
			Tick:     101,
			Scope:    statesync.ScopeFull,
			Position: types.Point{X: 1, Y: 0},
			Velocity: types.Point{X: 1.1, Y: 0},
			Shields: 1, Hull: 1, Energy: 1, Fuel: 1,
		}},
	}
	require.NoError(t, h.serverEnd.Send(h.conn, wire.Seal(wire.TagStateUpdate, wire.EncodeStateUpdate(update))))
	h.client.Update()

	assert.Equal(t, uint64(1), h.client.Statistics().StateUpdatesReceived)
	assert.Equal(t, 0, h.client.predictor.UnconfirmedCount())
	assert.Equal(t, uint64(101), h.client.World().Tick)
	assert.Equal(t, types.Point{X: 1, Y: 0}, h.client.PlayerShip().Position)
}

func TestClientTracksRemoteShips(t *testing.T) {
	h := newTestHarness(t)
	h.client.Update()
	h.sendWelcome(t, 100)

	remote := uuid.New()
	update := wire.StateUpdate{
		Tick: 101,
		Ships: []statesync.ShipUpdate{{
			Ship:     remote,
			Tick:     101,
			Scope:    statesync.ScopePosition,
			Position: types.Point{X: 50, Y: 50},
		}},
	}
	require.NoError(t, h.serverEnd.Send(h.conn, wire.Seal(wire.TagStateUpdate, wire.EncodeStateUpdate(update))))
	h.client.Update()

	// The unknown ship materialized in the authoritative view and feeds
	// the interpolator.
	assert.NotNil(t, h.client.serverView.ShipByID(remote))
	assert.Equal(t, 1, h.client.interpolator.TrackedEntityCount())
	state := h.client.RenderState(remote)
	require.NotNil(t, state)
	assert.Equal(t, types.Point{X: 50, Y: 50}, state.Position)
}

func TestClientPlayerLeftCleansUp(t *testing.T) {
	h := newTestHarness(t)
	h.client.Update()
	h.sendWelcome(t, 100)

	// Another player joins and then leaves.
	other := uuid.New()
	otherShip := types.NewShip("Rival", "players", types.Point{X: 10})
	otherShip.Owner = other
	h.client.serverView.AddShip(otherShip.Clone())
	h.client.world.AddShip(otherShip.Clone())

	joined := wire.EncodePlayerJoined(wire.PlayerInfo{ID: other, Name: "Rival", Flagship: otherShip.ID})
	require.NoError(t, h.serverEnd.Send(h.conn, wire.Seal(wire.TagPlayerJoined, joined)))
	h.client.Update()
	assert.Equal(t, "Rival", h.client.roster[other])

	require.NoError(t, h.serverEnd.Send(h.conn, wire.Seal(wire.TagPlayerLeft, wire.EncodePlayerLeft(other))))
	h.client.Update()

	assert.NotContains(t, h.client.roster, other)
	assert.Nil(t, h.client.serverView.ShipByOwner(other))
	assert.Nil(t, h.client.world.ShipByOwner(other))
}

func TestClientServerMessageHandler(t *testing.T) {
	h := newTestHarness(t)
	var got string
	h.client.SetMessageHandler(func(text string) { got = text })
	h.client.Update()

	require.NoError(t, h.serverEnd.Send(h.conn, wire.Seal(wire.TagServerMessage, wire.EncodeServerMessage("hello"))))
	h.client.Update()

	assert.Equal(t, "hello", got)
}

func TestClientDisconnectOnServerClose(t *testing.T) {
	h := newTestHarness(t)
	h.client.Update()
	h.sendWelcome(t, 100)

	require.NoError(t, h.serverEnd.Shutdown())
	h.client.Update()

	assert.Equal(t, StateDisconnected, h.client.State())
	assert.Nil(t, h.client.World())
}
