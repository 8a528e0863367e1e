package types

import (
	"github.com/google/uuid"

	"github.com/skylane-game/skylane/pkg/game/constants"
)

// Projectile is a value-typed body. It is stored by value in the world it
// belongs to and copied wholesale when the world is cloned.
type Projectile struct {
	ID         uuid.UUID
	Weapon     string
	Government string
	FiringShip uuid.UUID
	TargetShip uuid.UUID

	Position Point
	Velocity Point
	Facing   Angle

	Radius   float64
	Lifetime int
	Dead     bool
}

// NewProjectile spawns a projectile from the given ship along its facing.
func NewProjectile(weapon string, firing *Ship) Projectile {
	return Projectile{
		ID:         uuid.New(),
		Weapon:     weapon,
		Government: firing.Government,
		FiringShip: firing.ID,
		Position:   firing.Position,
		Velocity:   firing.Velocity.Add(firing.Facing.Unit().Scale(constants.ProjectileSpeed)),
		Facing:     firing.Facing,
		Radius:     constants.ProjectileRadius,
		Lifetime:   constants.ProjectileLifetimeTicks,
	}
}

// move advances the projectile one tick and decrements its lifetime.
func (p *Projectile) move() {
	if p.Dead {
		return
	}
	p.Position = p.Position.Add(p.Velocity)
	p.Lifetime--
}

// Expired reports whether the projectile's lifetime has run out.
func (p *Projectile) Expired() bool {
	return p.Lifetime <= 0
}
