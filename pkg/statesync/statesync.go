package statesync

import (
	"github.com/google/uuid"

	"github.com/skylane-game/skylane/pkg/game/types"
	"github.com/skylane-game/skylane/pkg/interest"
)

// Scope declares which fields of a ShipUpdate are valid.
type Scope uint8

const (
	// ScopeMinimal carries only the kinematic fields.
	ScopeMinimal Scope = iota
	// ScopePosition carries the kinematic fields (alias used for medium
	// priority entities).
	ScopePosition
	// ScopeVital adds shields, hull, energy and fuel.
	ScopeVital
	// ScopeFull adds the vitals and the 16-bit status word.
	ScopeFull
)

// HasVitals reports whether the scope carries the vital fields.
func (s Scope) HasVitals() bool {
	return s == ScopeFull || s == ScopeVital
}

// HasFlags reports whether the scope carries the status word.
func (s Scope) HasFlags() bool {
	return s == ScopeFull
}

// Priority mirrors interest levels one-to-one when ranking updates.
type Priority int

const (
	PriorityNone Priority = iota
	PriorityLow
	PriorityMedium
	PriorityHigh
	PriorityCritical
)

// ShipUpdate is one ship's state captured for one observer at one tick.
type ShipUpdate struct {
	Ship  uuid.UUID
	Tick  uint64
	Scope Scope

	Position types.Point
	Velocity types.Point
	Facing   types.Angle

	Shields float32
	Hull    float32
	Energy  float32
	Fuel    float32

	Flags uint16
}

// Sync selects, captures and applies per-observer ship updates, and keeps a
// dead reckoner per ship so prediction always extrapolates from the latest
// authoritative basis.
type Sync struct {
	interest    *interest.Manager
	currentTick uint64
	reckoners   map[uuid.UUID]*DeadReckoner
}

// NewSync creates a sync layer over the given interest manager.
func NewSync(im *interest.Manager) *Sync {
	return &Sync{
		interest:  im,
		reckoners: make(map[uuid.UUID]*DeadReckoner),
	}
}

// SetCurrentTick advances the sync clock and every tracked reckoner.
func (s *Sync) SetCurrentTick(tick uint64) {
	s.currentTick = tick
	for _, dr := range s.reckoners {
		dr.SetCurrentTick(tick)
	}
}

// CurrentTick returns the sync clock.
func (s *Sync) CurrentTick() uint64 {
	return s.currentTick
}

// PriorityFor maps an interest level to an update priority (identity).
func PriorityFor(level interest.Level) Priority {
	switch level {
	case interest.Critical:
		return PriorityCritical
	case interest.High:
		return PriorityHigh
	case interest.Medium:
		return PriorityMedium
	case interest.Low:
		return PriorityLow
	default:
		return PriorityNone
	}
}

// ScopeFor maps a priority to the scope of data worth sending.
func ScopeFor(priority Priority) Scope {
	switch priority {
	case PriorityCritical, PriorityHigh:
		return ScopeFull
	case PriorityMedium:
		return ScopePosition
	default:
		return ScopeMinimal
	}
}

// Capture reads the ship's state at the given scope.
func (s *Sync) Capture(ship *types.Ship, scope Scope) ShipUpdate {
	update := ShipUpdate{
		Ship:     ship.ID,
		Tick:     s.currentTick,
		Scope:    scope,
		Position: ship.Position,
		Velocity: ship.Velocity,
		Facing:   ship.Facing,
	}

	if scope.HasVitals() {
		update.Shields = float32(ship.Shields)
		update.Hull = float32(ship.Hull)
		update.Energy = float32(ship.Energy)
		update.Fuel = float32(ship.Fuel)
	}

	if scope.HasFlags() {
		update.Flags = ship.StatusFlags()
	}

	return update
}

// UpdatesFor produces the ordered list of ship updates owed to one observer
// this tick: interest filtering, per-band cadence, then capture at the
// scope the priority earns.
func (s *Sync) UpdatesFor(observer uuid.UUID, ships []*types.Ship) []ShipUpdate {
	if s.interest == nil {
		return nil
	}

	var updates []ShipUpdate
	for _, ship := range ships {
		if ship == nil {
			continue
		}

		level := s.interest.ShipInterest(observer, ship)
		if level == interest.None {
			continue
		}
		if !s.interest.ShouldUpdateThisTick(level, s.currentTick) {
			continue
		}

		scope := ScopeFor(PriorityFor(level))
		updates = append(updates, s.Capture(ship, scope))
	}

	return updates
}

// Apply writes a received update onto a ship, honoring the update's scope,
// then refreshes the ship's dead reckoner so later prediction extrapolates
// from this authoritative basis.
func (s *Sync) Apply(ship *types.Ship, update ShipUpdate) {
	ship.Position = update.Position
	ship.Velocity = update.Velocity
	ship.Facing = update.Facing

	if update.Scope.HasVitals() {
		ship.Shields = float64(update.Shields)
		ship.Hull = float64(update.Hull)
		ship.Energy = float64(update.Energy)
		ship.Fuel = float64(update.Fuel)
	}

	if update.Scope.HasFlags() {
		ship.Flags = update.Flags
	}

	s.UpdateReckoner(update.Ship, ReckonedState{
		Position: update.Position,
		Velocity: update.Velocity,
		Facing:   update.Facing,
		Tick:     update.Tick,
	})
}

// UpdateReckoner replaces the authoritative basis of one ship's reckoner.
func (s *Sync) UpdateReckoner(ship uuid.UUID, state ReckonedState) {
	dr, ok := s.reckoners[ship]
	if !ok {
		dr = &DeadReckoner{}
		s.reckoners[ship] = dr
	}
	dr.SetAuthoritative(state)
	dr.SetCurrentTick(s.currentTick)
}

// PredictShip extrapolates one ship to the target tick. The zero state is
// returned for untracked ships.
func (s *Sync) PredictShip(ship uuid.UUID, targetTick uint64) ReckonedState {
	dr, ok := s.reckoners[ship]
	if !ok {
		return ReckonedState{}
	}
	return dr.Predict(targetTick)
}

// TrackedShips returns the number of ships with reckoning state.
func (s *Sync) TrackedShips() int {
	return len(s.reckoners)
}

// RemoveShip drops the reckoner of a departed ship.
func (s *Sync) RemoveShip(ship uuid.UUID) {
	delete(s.reckoners, ship)
}

// ClearReckoners drops all reckoning state.
func (s *Sync) ClearReckoners() {
	s.reckoners = make(map[uuid.UUID]*DeadReckoner)
}
