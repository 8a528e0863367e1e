package projectiles

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skylane-game/skylane/pkg/game/types"
)

func spawnTracked(t *testing.T, s *Sync, w *types.World, firing *types.Ship) uint32 {
	t.Helper()
	p := types.NewProjectile("blaster", firing)
	w.Projectiles = append(w.Projectiles, p)
	id := s.RegisterSpawn(&w.Projectiles[len(w.Projectiles)-1], firing)
	s.PendingSpawns() // drain; these tests care about impacts and deaths
	return id
}

func TestResolveShipHit(t *testing.T) {
	s := NewSync()
	s.SetCurrentTick(10)
	a := NewAuthority(s)

	w := types.NewWorld("Rutilicus")
	firing := types.NewShip("Raider", "pirates", types.Point{X: -100})
	target := types.NewShip("Trader", "merchants", types.Point{})
	w.AddShip(firing)
	w.AddShip(target)

	id := spawnTracked(t, s, w, firing)
	// Place the projectile 10 units from the target's center, well inside
	// the summed radii (5 + 20).
	w.Projectiles[0].Position = types.Point{X: 10}

	a.Resolve(w)

	impacts := s.PendingImpacts()
	require.Len(t, impacts, 1)
	assert.Equal(t, id, impacts[0].ProjectileID)
	assert.Equal(t, target.ID, impacts[0].Target)
	// intersection = max(0, targetRadius - distance) = 20 - 10.
	assert.InDelta(t, 10.0, impacts[0].Intersection, 1e-9)
	assert.Equal(t, uint64(10), impacts[0].Tick)

	assert.True(t, w.Projectiles[0].Dead)
	assert.Less(t, target.Shields, 1.0)
	assert.Equal(t, uint64(1), a.ShipHits())
	assert.Equal(t, uint64(1), a.TotalCollisions())
}

func TestResolveSkipsSameGovernment(t *testing.T) {
	s := NewSync()
	a := NewAuthority(s)

	w := types.NewWorld("Rutilicus")
	firing := types.NewShip("Raider", "pirates", types.Point{})
	friendly := types.NewShip("Wingman", "pirates", types.Point{})
	w.AddShip(firing)
	w.AddShip(friendly)

	spawnTracked(t, s, w, firing)
	w.Projectiles[0].Position = friendly.Position

	a.Resolve(w)

	assert.Empty(t, s.PendingImpacts())
	assert.False(t, w.Projectiles[0].Dead)
	assert.Equal(t, uint64(0), a.TotalCollisions())
}

func TestResolveAsteroidHit(t *testing.T) {
	s := NewSync()
	a := NewAuthority(s)

	w := types.NewWorld("Rutilicus")
	firing := types.NewShip("Raider", "pirates", types.Point{X: -500})
	w.AddShip(firing)
	w.Asteroids = types.NewAsteroidField()
	w.Asteroids.Add(types.Point{X: 20}, types.Point{}, 30)

	spawnTracked(t, s, w, firing)
	w.Projectiles[0].Position = types.Point{X: 0}

	a.Resolve(w)

	impacts := s.PendingImpacts()
	require.Len(t, impacts, 1)
	assert.Equal(t, w.Asteroids.Asteroids[0].ID, impacts[0].Target)
	assert.InDelta(t, 10.0, impacts[0].Intersection, 1e-9)
	assert.Equal(t, uint64(1), a.AsteroidHits())
}

func TestResolveExpiryEmitsDeath(t *testing.T) {
	s := NewSync()
	s.SetCurrentTick(99)
	a := NewAuthority(s)

	w := types.NewWorld("Rutilicus")
	firing := types.NewShip("Raider", "pirates", types.Point{X: 5000})
	w.AddShip(firing)

	id := spawnTracked(t, s, w, firing)
	w.Projectiles[0].Lifetime = 0
	w.Projectiles[0].Position = types.Point{X: 123, Y: 45}

	a.Resolve(w)

	deaths := s.PendingDeaths()
	require.Len(t, deaths, 1)
	assert.Equal(t, id, deaths[0].ProjectileID)
	assert.Equal(t, types.Point{X: 123, Y: 45}, deaths[0].Position)
	assert.Equal(t, uint64(99), deaths[0].Tick)
	assert.True(t, w.Projectiles[0].Dead)
	assert.Equal(t, uint64(1), a.Expirations())
}

func TestResolveFirstHitWins(t *testing.T) {
	s := NewSync()
	a := NewAuthority(s)

	w := types.NewWorld("Rutilicus")
	firing := types.NewShip("Raider", "pirates", types.Point{X: -500})
	first := types.NewShip("One", "merchants", types.Point{X: 2})
	second := types.NewShip("Two", "merchants", types.Point{X: 4})
	w.AddShip(firing)
	w.AddShip(first)
	w.AddShip(second)

	spawnTracked(t, s, w, firing)
	w.Projectiles[0].Position = types.Point{}

	a.Resolve(w)

	impacts := s.PendingImpacts()
	require.Len(t, impacts, 1)
	assert.Equal(t, first.ID, impacts[0].Target)
	assert.Equal(t, uint64(1), a.TotalCollisions())
}
