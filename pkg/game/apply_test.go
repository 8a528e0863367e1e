package game

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skylane-game/skylane/pkg/command"
	"github.com/skylane-game/skylane/pkg/game/types"
	"github.com/skylane-game/skylane/pkg/projectiles"
)

func TestApplyCommandSetsControls(t *testing.T) {
	player := uuid.New()
	w := types.NewWorld("Rutilicus")
	ship := types.NewShip("Falcon", "players", types.Point{})
	ship.Owner = player
	w.AddShip(ship)

	cmd := command.PlayerCommand{
		Player:         player,
		Tick:           10,
		Controls:       command.ControlThrust | command.ControlTurnLeft | command.ControlFirePrimary,
		HasTargetPoint: true,
		TargetPoint:    types.Point{X: 100, Y: 200},
		Sequence:       1,
	}
	require.NoError(t, ApplyCommand(w, cmd))

	assert.True(t, ship.Controls.Thrust)
	assert.True(t, ship.Controls.TurnLeft)
	assert.True(t, ship.Controls.FirePrimary)
	assert.False(t, ship.Controls.Reverse)
	assert.True(t, ship.Controls.HasTarget)
	assert.Equal(t, types.Point{X: 100, Y: 200}, ship.Controls.Target)

	// The next command replaces the control state wholesale.
	require.NoError(t, ApplyCommand(w, command.PlayerCommand{Player: player, Tick: 11, Sequence: 2}))
	assert.False(t, ship.Controls.Thrust)
}

func TestApplyCommandUnknownPlayer(t *testing.T) {
	w := types.NewWorld("Rutilicus")
	err := ApplyCommand(w, command.PlayerCommand{Player: uuid.New(), Tick: 1})
	assert.Error(t, err)
}

func TestRunWeaponsSpawnsTrackedProjectile(t *testing.T) {
	w := types.NewWorld("Rutilicus")
	ship := types.NewShip("Falcon", "players", types.Point{})
	ship.Controls.FirePrimary = true
	w.AddShip(ship)

	sync := projectiles.NewSync()
	sync.SetCurrentTick(5)
	RunWeapons(w, sync)

	require.Len(t, w.Projectiles, 1)
	assert.Equal(t, ship.ID, w.Projectiles[0].FiringShip)
	assert.Equal(t, "players", w.Projectiles[0].Government)
	assert.Less(t, ship.Energy, 1.0)

	spawns := sync.PendingSpawns()
	require.Len(t, spawns, 1)
	assert.Equal(t, uint32(1), spawns[0].ProjectileID)
	assert.Equal(t, ship.ID, spawns[0].FiringShip)
}

func TestRunWeaponsRespectsEnergy(t *testing.T) {
	w := types.NewWorld("Rutilicus")
	ship := types.NewShip("Falcon", "players", types.Point{})
	ship.Controls.FirePrimary = true
	ship.Energy = 0
	w.AddShip(ship)

	RunWeapons(w, projectiles.NewSync())
	assert.Empty(t, w.Projectiles)
}

func TestNewStartingWorldIsDeterministicPerSeed(t *testing.T) {
	a := NewStartingWorld("Sol", 42)
	b := NewStartingWorld("Sol", 42)

	require.NoError(t, a.Validate())
	require.NotNil(t, a.Asteroids)
	require.Len(t, a.Asteroids.Asteroids, asteroidCount)
	for i := range a.Asteroids.Asteroids {
		assert.Equal(t, a.Asteroids.Asteroids[i].Position, b.Asteroids.Asteroids[i].Position)
	}
}
