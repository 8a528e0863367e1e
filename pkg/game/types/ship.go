package types

import (
	"github.com/google/uuid"

	"github.com/skylane-game/skylane/pkg/game/constants"
)

// Ship status flag bits carried in the 16-bit status word of full updates.
const (
	ShipFlagThrusting uint16 = 1 << iota
	ShipFlagReversing
	ShipFlagTurningLeft
	ShipFlagTurningRight
	ShipFlagFiringPrimary
	ShipFlagFiringSecondary
	ShipFlagDisabled
)

// ControlState is the per-ship input state set by the most recently applied
// player command. It persists until the next command changes it.
type ControlState struct {
	Thrust        bool
	Reverse       bool
	TurnLeft      bool
	TurnRight     bool
	FirePrimary   bool
	FireSecondary bool
	HasTarget     bool
	Target        Point
}

// Ship is an owned entity of the world. Shields, hull, energy and fuel are
// fractions in [0, 1].
type Ship struct {
	ID         uuid.UUID
	Name       string
	Government string
	Owner      uuid.UUID // uuid.Nil for ships nobody commands

	Position Point
	Velocity Point
	Facing   Angle

	Shields float64
	Hull    float64
	Energy  float64
	Fuel    float64

	Radius float64
	Flags  uint16

	Controls ControlState
}

// NewShip creates a ship with full vitals at the given position.
func NewShip(name, government string, position Point) *Ship {
	return &Ship{
		ID:         uuid.New(),
		Name:       name,
		Government: government,
		Position:   position,
		Shields:    1.0,
		Hull:       1.0,
		Energy:     1.0,
		Fuel:       1.0,
		Radius:     constants.ShipRadius,
	}
}

// Clone returns an independent deep copy of the ship.
func (s *Ship) Clone() *Ship {
	clone := *s
	return &clone
}

// StatusFlags encodes the ship's current control state into the wire status word.
func (s *Ship) StatusFlags() uint16 {
	flags := s.Flags
	if s.Controls.Thrust {
		flags |= ShipFlagThrusting
	}
	if s.Controls.Reverse {
		flags |= ShipFlagReversing
	}
	if s.Controls.TurnLeft {
		flags |= ShipFlagTurningLeft
	}
	if s.Controls.TurnRight {
		flags |= ShipFlagTurningRight
	}
	if s.Controls.FirePrimary {
		flags |= ShipFlagFiringPrimary
	}
	if s.Controls.FireSecondary {
		flags |= ShipFlagFiringSecondary
	}
	return flags
}

// move advances the ship one tick: drift by the current velocity, then
// integrate controls into velocity and facing for the next tick.
func (s *Ship) move() {
	s.Position = s.Position.Add(s.Velocity)

	if s.Controls.TurnLeft {
		s.Facing = s.Facing.Rotate(constants.TurnRateDegrees)
	}
	if s.Controls.TurnRight {
		s.Facing = s.Facing.Rotate(-constants.TurnRateDegrees)
	}
	if s.Controls.Thrust && s.Fuel > 0 {
		s.Velocity = s.Velocity.Add(s.Facing.Unit().Scale(constants.ThrustAcceleration))
	}
	if s.Controls.Reverse {
		s.Velocity = s.Velocity.Sub(s.Velocity.Scale(constants.ReverseAcceleration))
	}

	s.Energy = clamp01(s.Energy + constants.EnergyRechargeRate)
	s.Shields = clamp01(s.Shields + constants.ShieldRechargeRate)
}

// TakeDamage applies damage to shields first, then hull.
func (s *Ship) TakeDamage(amount float64) {
	if s.Shields >= amount {
		s.Shields -= amount
		return
	}
	amount -= s.Shields
	s.Shields = 0
	s.Hull = clamp01(s.Hull - amount)
	if s.Hull <= 0 {
		s.Flags |= ShipFlagDisabled
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
