package types

import (
	"errors"

	"github.com/google/uuid"

	"github.com/skylane-game/skylane/pkg/game/constants"
)

// ErrInvalidWorld is returned when a world fails its invariant checks.
var ErrInvalidWorld = errors.New("invalid world state")

// World is the full simulation state for one region: the authoritative copy
// on the server, a predicted copy on each client. Ships and flotsam are
// owned; projectiles and visuals are stored by value. Clone produces a copy
// whose mutations never affect the original.
type World struct {
	Region string
	Tick   uint64

	Ships       []*Ship
	Projectiles []Projectile
	Flotsam     []*Flotsam
	Visuals     []Visual
	Asteroids   *AsteroidField
}

// NewWorld creates an empty world in the named region.
func NewWorld(region string) *World {
	return &World{Region: region}
}

// Clone returns an independent deep copy of the world.
func (w *World) Clone() *World {
	clone := &World{
		Region: w.Region,
		Tick:   w.Tick,
	}

	clone.Ships = make([]*Ship, 0, len(w.Ships))
	for _, ship := range w.Ships {
		if ship != nil {
			clone.Ships = append(clone.Ships, ship.Clone())
		}
	}

	clone.Projectiles = make([]Projectile, len(w.Projectiles))
	copy(clone.Projectiles, w.Projectiles)

	clone.Flotsam = make([]*Flotsam, 0, len(w.Flotsam))
	for _, f := range w.Flotsam {
		if f != nil {
			clone.Flotsam = append(clone.Flotsam, f.Clone())
		}
	}

	clone.Visuals = make([]Visual, len(w.Visuals))
	copy(clone.Visuals, w.Visuals)

	if w.Asteroids != nil {
		clone.Asteroids = w.Asteroids.Clone()
	}

	return clone
}

// Validate checks the world's structural invariants: a region must be set
// and no owned-entity handle may be nil.
func (w *World) Validate() error {
	if w.Region == "" {
		return ErrInvalidWorld
	}
	for _, ship := range w.Ships {
		if ship == nil {
			return ErrInvalidWorld
		}
	}
	for _, f := range w.Flotsam {
		if f == nil {
			return ErrInvalidWorld
		}
	}
	return nil
}

// Step advances the simulation by one tick: drift every body, expire
// lifetimes, and drop dead visuals.
func (w *World) Step() {
	w.Tick++

	for _, ship := range w.Ships {
		ship.move()
	}

	for i := range w.Projectiles {
		w.Projectiles[i].move()
	}

	for _, f := range w.Flotsam {
		f.move()
	}

	live := w.Visuals[:0]
	for i := range w.Visuals {
		w.Visuals[i].move()
		if w.Visuals[i].Lifetime > 0 {
			live = append(live, w.Visuals[i])
		}
	}
	w.Visuals = live

	if w.Asteroids != nil {
		w.Asteroids.move()
	}
}

// AddShip places a ship into the world.
func (w *World) AddShip(ship *Ship) {
	if ship == nil {
		return
	}
	w.Ships = append(w.Ships, ship)
}

// RemoveShip removes the ship with the given id, if present.
func (w *World) RemoveShip(id uuid.UUID) bool {
	for i, ship := range w.Ships {
		if ship.ID == id {
			w.Ships = append(w.Ships[:i], w.Ships[i+1:]...)
			return true
		}
	}
	return false
}

// ShipByID returns the ship with the given entity id, or nil.
func (w *World) ShipByID(id uuid.UUID) *Ship {
	for _, ship := range w.Ships {
		if ship.ID == id {
			return ship
		}
	}
	return nil
}

// ShipByOwner returns the ship owned by the given player, or nil. The local
// "player ship" is always resolved through this lookup rather than held as
// a pointer that could dangle across world swaps.
func (w *World) ShipByOwner(owner uuid.UUID) *Ship {
	if owner == uuid.Nil {
		return nil
	}
	for _, ship := range w.Ships {
		if ship.Owner == owner {
			return ship
		}
	}
	return nil
}

// ProjectileByID returns a pointer to the projectile with the given entity
// id, valid only until the next world mutation.
func (w *World) ProjectileByID(id uuid.UUID) *Projectile {
	for i := range w.Projectiles {
		if w.Projectiles[i].ID == id {
			return &w.Projectiles[i]
		}
	}
	return nil
}

// CompactProjectiles removes dead projectiles from the collection.
func (w *World) CompactProjectiles() {
	live := w.Projectiles[:0]
	for i := range w.Projectiles {
		if !w.Projectiles[i].Dead {
			live = append(live, w.Projectiles[i])
		}
	}
	w.Projectiles = live
}

// AddVisual places an effect into the world with the default lifetime.
func (w *World) AddVisual(effect string, position Point) {
	w.Visuals = append(w.Visuals, Visual{
		Effect:   effect,
		Position: position,
		Lifetime: constants.VisualLifetimeTicks,
	})
}
