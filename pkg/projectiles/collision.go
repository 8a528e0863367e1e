package projectiles

import (
	"math"

	"github.com/skylane-game/skylane/pkg/game/types"
)

const impactDamage = 0.1

// Authority resolves projectile collisions on the server. It is never run
// on clients; they learn of hits through impact events.
type Authority struct {
	sync *Sync

	totalCollisions uint64
	shipHits        uint64
	asteroidHits    uint64
	expirations     uint64
}

// NewAuthority creates a collision authority emitting into the given sync.
func NewAuthority(sync *Sync) *Authority {
	return &Authority{sync: sync}
}

// Resolve tests every live projectile against eligible targets: ships not
// owned by the firing government first, then asteroids. The first hit wins
// per projectile per tick. Expired projectiles emit death events. Hit or
// expired projectiles are marked dead and skipped by further world steps.
func (a *Authority) Resolve(w *types.World) {
	for i := range w.Projectiles {
		p := &w.Projectiles[i]
		if p.Dead {
			continue
		}

		networkID := a.sync.NetworkID(p.ID)
		if networkID == 0 {
			continue
		}

		if p.Expired() {
			p.Dead = true
			a.expirations++
			a.sync.RegisterDeath(networkID, p.Position)
			continue
		}

		if a.resolveShips(w, p, networkID) {
			continue
		}
		a.resolveAsteroids(w, p, networkID)
	}
}

func (a *Authority) resolveShips(w *types.World, p *types.Projectile, networkID uint32) bool {
	for _, ship := range w.Ships {
		if ship == nil || ship.Government == p.Government {
			continue
		}

		distance := p.Position.DistanceTo(ship.Position)
		if distance >= p.Radius+ship.Radius {
			continue
		}

		ship.TakeDamage(impactDamage)
		p.Dead = true
		a.shipHits++
		a.totalCollisions++
		a.sync.RegisterImpact(networkID, ship.ID, p.Position, intersectionDepth(distance, ship.Radius))
		return true
	}
	return false
}

func (a *Authority) resolveAsteroids(w *types.World, p *types.Projectile, networkID uint32) bool {
	if w.Asteroids == nil {
		return false
	}
	for i := range w.Asteroids.Asteroids {
		asteroid := &w.Asteroids.Asteroids[i]

		distance := p.Position.DistanceTo(asteroid.Position)
		if distance >= p.Radius+asteroid.Radius {
			continue
		}

		p.Dead = true
		a.asteroidHits++
		a.totalCollisions++
		a.sync.RegisterImpact(networkID, asteroid.ID, p.Position, intersectionDepth(distance, asteroid.Radius))
		return true
	}
	return false
}

// intersectionDepth is how far the projectile penetrated the target.
func intersectionDepth(distance, targetRadius float64) float64 {
	return math.Max(0, targetRadius-distance)
}

// TotalCollisions returns the count of hits of any kind.
func (a *Authority) TotalCollisions() uint64 {
	return a.totalCollisions
}

// ShipHits returns the count of projectile-vs-ship hits.
func (a *Authority) ShipHits() uint64 {
	return a.shipHits
}

// AsteroidHits returns the count of projectile-vs-asteroid hits.
func (a *Authority) AsteroidHits() uint64 {
	return a.asteroidHits
}

// Expirations returns the count of projectiles that timed out.
func (a *Authority) Expirations() uint64 {
	return a.expirations
}

// ResetStatistics zeroes the hit counters.
func (a *Authority) ResetStatistics() {
	a.totalCollisions = 0
	a.shipHits = 0
	a.asteroidHits = 0
	a.expirations = 0
}
