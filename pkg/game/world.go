package game

import (
	"math/rand"

	"github.com/skylane-game/skylane/pkg/game/constants"
	"github.com/skylane-game/skylane/pkg/game/types"
)

const (
	// DefaultRegion is the region new servers start in when the config
	// does not name one.
	DefaultRegion = "Rutilicus"

	asteroidCount      = 12
	asteroidFieldSpan  = 8000.0
	asteroidBaseRadius = 35.0
)

// NewStartingWorld builds the initial server world for a region: an empty
// space with a scattered asteroid field.
func NewStartingWorld(region string, seed int64) *types.World {
	w := types.NewWorld(region)
	w.Asteroids = types.NewAsteroidField()

	rng := rand.New(rand.NewSource(seed))
	for i := 0; i < asteroidCount; i++ {
		position := types.Point{
			X: (rng.Float64() - 0.5) * asteroidFieldSpan,
			Y: (rng.Float64() - 0.5) * asteroidFieldSpan,
		}
		velocity := types.Point{
			X: (rng.Float64() - 0.5) * 0.4,
			Y: (rng.Float64() - 0.5) * 0.4,
		}
		w.Asteroids.Add(position, velocity, asteroidBaseRadius+rng.Float64()*25)
	}

	return w
}

// WeaponEvents is where newly fired projectiles are announced. It is
// satisfied by the projectile sync layer on the server; the client fires
// nothing locally (projectiles arrive as spawn events).
type WeaponEvents interface {
	RegisterSpawn(p *types.Projectile, firing *types.Ship) uint32
}

// RunWeapons spawns projectiles for every ship holding a fire control down,
// charging the energy cost. Called by the server before stepping the world
// so spawned projectiles move on the same tick they are announced.
func RunWeapons(w *types.World, events WeaponEvents) {
	for _, ship := range w.Ships {
		if !ship.Controls.FirePrimary || ship.Energy < constants.ProjectileEnergyCost {
			continue
		}
		ship.Energy -= constants.ProjectileEnergyCost

		p := types.NewProjectile("blaster", ship)
		if ship.Controls.HasTarget {
			if target := nearestShipTo(w, ship, ship.Controls.Target); target != nil {
				p.TargetShip = target.ID
			}
		}
		w.Projectiles = append(w.Projectiles, p)
		if events != nil {
			events.RegisterSpawn(&w.Projectiles[len(w.Projectiles)-1], ship)
		}
	}
}

func nearestShipTo(w *types.World, firing *types.Ship, point types.Point) *types.Ship {
	var best *types.Ship
	bestDist := 0.0
	for _, ship := range w.Ships {
		if ship.ID == firing.ID || ship.Government == firing.Government {
			continue
		}
		d := ship.Position.DistanceTo(point)
		if best == nil || d < bestDist {
			best = ship
			bestDist = d
		}
	}
	return best
}
