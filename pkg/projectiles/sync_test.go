package projectiles

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skylane-game/skylane/pkg/game/types"
)

func TestRegisterSpawnAssignsMonotonicIDs(t *testing.T) {
	s := NewSync()
	s.SetCurrentTick(10)

	ship := types.NewShip("Falcon", "players", types.Point{})
	p1 := types.NewProjectile("blaster", ship)
	p2 := types.NewProjectile("blaster", ship)

	id1 := s.RegisterSpawn(&p1, ship)
	id2 := s.RegisterSpawn(&p2, ship)

	assert.Equal(t, uint32(1), id1)
	assert.Equal(t, uint32(2), id2)
	assert.Equal(t, uint32(3), s.NextID())
	assert.Equal(t, 2, s.TrackedCount())
	assert.True(t, s.IsTracked(p1.ID))
	assert.Equal(t, id1, s.NetworkID(p1.ID))

	entity, ok := s.EntityID(id2)
	require.True(t, ok)
	assert.Equal(t, p2.ID, entity)
}

func TestPendingEventsDrainOnRead(t *testing.T) {
	s := NewSync()
	s.SetCurrentTick(30)

	ship := types.NewShip("Falcon", "players", types.Point{X: 5, Y: 6})
	p := types.NewProjectile("blaster", ship)
	id := s.RegisterSpawn(&p, ship)

	spawns := s.PendingSpawns()
	require.Len(t, spawns, 1)
	assert.Equal(t, id, spawns[0].ProjectileID)
	assert.Equal(t, "blaster", spawns[0].Weapon)
	assert.Equal(t, ship.ID, spawns[0].FiringShip)
	assert.Equal(t, uint64(30), spawns[0].Tick)
	assert.Empty(t, s.PendingSpawns())

	target := uuid.New()
	s.RegisterImpact(id, target, types.Point{X: 1, Y: 2}, 3.5)
	impacts := s.PendingImpacts()
	require.Len(t, impacts, 1)
	assert.Equal(t, target, impacts[0].Target)
	assert.Equal(t, 3.5, impacts[0].Intersection)
	assert.Empty(t, s.PendingImpacts())

	// Impact released the binding.
	assert.False(t, s.IsTracked(p.ID))
	assert.Equal(t, 0, s.TrackedCount())
}

func TestRegisterDeathReleasesBinding(t *testing.T) {
	s := NewSync()
	ship := types.NewShip("Falcon", "players", types.Point{})
	p := types.NewProjectile("blaster", ship)
	id := s.RegisterSpawn(&p, ship)

	s.RegisterDeath(id, p.Position)

	deaths := s.PendingDeaths()
	require.Len(t, deaths, 1)
	assert.Equal(t, id, deaths[0].ProjectileID)
	assert.False(t, s.IsTracked(p.ID))
}

func TestClearResetsIDCounter(t *testing.T) {
	s := NewSync()
	ship := types.NewShip("Falcon", "players", types.Point{})
	p := types.NewProjectile("blaster", ship)
	s.RegisterSpawn(&p, ship)

	s.Clear()

	assert.Equal(t, uint32(1), s.NextID())
	assert.Equal(t, 0, s.TrackedCount())
	assert.Empty(t, s.PendingSpawns())
}

func TestApplySpawnRealizesProjectile(t *testing.T) {
	s := NewSync()
	w := types.NewWorld("Rutilicus")
	firing := types.NewShip("Raider", "pirates", types.Point{})
	w.AddShip(firing)

	spawn := Spawn{
		ProjectileID: 7,
		Weapon:       "blaster",
		FiringShip:   firing.ID,
		Position:     types.Point{X: 1, Y: 2},
		Velocity:     types.Point{X: 8, Y: 0},
		Facing:       types.NewAngle(0),
		Tick:         50,
	}
	s.ApplySpawn(w, spawn)

	require.Len(t, w.Projectiles, 1)
	assert.Equal(t, "pirates", w.Projectiles[0].Government)
	assert.Equal(t, spawn.Position, w.Projectiles[0].Position)
	assert.True(t, s.IsTracked(w.Projectiles[0].ID))
	assert.Equal(t, uint32(8), s.NextID())
}

func TestApplyImpactKillsProjectile(t *testing.T) {
	s := NewSync()
	w := types.NewWorld("Rutilicus")
	firing := types.NewShip("Raider", "pirates", types.Point{})
	w.AddShip(firing)
	s.ApplySpawn(w, Spawn{ProjectileID: 3, Weapon: "blaster", FiringShip: firing.ID})

	s.ApplyImpact(w, Impact{ProjectileID: 3, Position: types.Point{X: 9, Y: 9}})

	assert.True(t, w.Projectiles[0].Dead)
	assert.False(t, s.IsTracked(w.Projectiles[0].ID))
	require.Len(t, w.Visuals, 1)
	assert.Equal(t, types.Point{X: 9, Y: 9}, w.Visuals[0].Position)

	// Unknown ids are ignored.
	s.ApplyDeath(w, Death{ProjectileID: 99})
}
