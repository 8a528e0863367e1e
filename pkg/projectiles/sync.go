package projectiles

import (
	"github.com/google/uuid"

	"github.com/skylane-game/skylane/pkg/game/constants"
	"github.com/skylane-game/skylane/pkg/game/types"
)

// Spawn announces a new projectile with its server-assigned network id.
type Spawn struct {
	ProjectileID uint32
	Weapon       string
	FiringShip   uuid.UUID
	TargetShip   uuid.UUID
	Position     types.Point
	Velocity     types.Point
	Facing       types.Angle
	Tick         uint64
}

// Impact announces a projectile hitting a target.
type Impact struct {
	ProjectileID uint32
	Target       uuid.UUID
	Position     types.Point
	Intersection float64
	Tick         uint64
}

// Death announces a projectile expiring without a hit.
type Death struct {
	ProjectileID uint32
	Position     types.Point
	Tick         uint64
}

// Sync assigns compact network ids to projectiles and accumulates spawn,
// impact and death events until the broadcaster drains them. Network ids
// are bound to projectile entity ids, never to pointers, so bindings stay
// valid across world mutations; a binding dies with its projectile.
type Sync struct {
	currentTick uint64
	nextID      uint32

	idToEntity map[uint32]uuid.UUID
	entityToID map[uuid.UUID]uint32

	pendingSpawns  []Spawn
	pendingImpacts []Impact
	pendingDeaths  []Death
}

// NewSync creates an empty projectile sync. Network ids start at 1 and do
// not survive a server restart.
func NewSync() *Sync {
	return &Sync{
		nextID:     1,
		idToEntity: make(map[uint32]uuid.UUID),
		entityToID: make(map[uuid.UUID]uint32),
	}
}

// SetCurrentTick sets the tick stamped onto new events.
func (s *Sync) SetCurrentTick(tick uint64) {
	s.currentTick = tick
}

// CurrentTick returns the tick stamped onto new events.
func (s *Sync) CurrentTick() uint64 {
	return s.currentTick
}

// RegisterSpawn binds a network id to the projectile and queues its spawn
// event. The firing ship may be nil for orphaned projectiles.
func (s *Sync) RegisterSpawn(p *types.Projectile, firing *types.Ship) uint32 {
	networkID := s.nextID
	s.nextID++

	s.idToEntity[networkID] = p.ID
	s.entityToID[p.ID] = networkID

	spawn := Spawn{
		ProjectileID: networkID,
		Weapon:       p.Weapon,
		TargetShip:   p.TargetShip,
		Position:     p.Position,
		Velocity:     p.Velocity,
		Facing:       p.Facing,
		Tick:         s.currentTick,
	}
	if firing != nil {
		spawn.FiringShip = firing.ID
	}

	s.pendingSpawns = append(s.pendingSpawns, spawn)
	return networkID
}

// RegisterImpact queues an impact event and releases the binding.
func (s *Sync) RegisterImpact(projectileID uint32, target uuid.UUID, position types.Point, intersection float64) {
	s.pendingImpacts = append(s.pendingImpacts, Impact{
		ProjectileID: projectileID,
		Target:       target,
		Position:     position,
		Intersection: intersection,
		Tick:         s.currentTick,
	})
	s.release(projectileID)
}

// RegisterDeath queues a death event and releases the binding.
func (s *Sync) RegisterDeath(projectileID uint32, position types.Point) {
	s.pendingDeaths = append(s.pendingDeaths, Death{
		ProjectileID: projectileID,
		Position:     position,
		Tick:         s.currentTick,
	})
	s.release(projectileID)
}

// PendingSpawns returns and clears the queued spawn events.
func (s *Sync) PendingSpawns() []Spawn {
	result := s.pendingSpawns
	s.pendingSpawns = nil
	return result
}

// PendingImpacts returns and clears the queued impact events.
func (s *Sync) PendingImpacts() []Impact {
	result := s.pendingImpacts
	s.pendingImpacts = nil
	return result
}

// PendingDeaths returns and clears the queued death events.
func (s *Sync) PendingDeaths() []Death {
	result := s.pendingDeaths
	s.pendingDeaths = nil
	return result
}

// NetworkID returns the network id bound to a projectile entity, or 0.
func (s *Sync) NetworkID(projectile uuid.UUID) uint32 {
	return s.entityToID[projectile]
}

// EntityID returns the projectile entity bound to a network id.
func (s *Sync) EntityID(networkID uint32) (uuid.UUID, bool) {
	id, ok := s.idToEntity[networkID]
	return id, ok
}

// IsTracked reports whether the projectile has a live binding.
func (s *Sync) IsTracked(projectile uuid.UUID) bool {
	_, ok := s.entityToID[projectile]
	return ok
}

// TrackedCount returns the number of live bindings.
func (s *Sync) TrackedCount() int {
	return len(s.idToEntity)
}

// NextID returns the next network id to be assigned.
func (s *Sync) NextID() uint32 {
	return s.nextID
}

// Clear drops all events and bindings and resets the id counter.
func (s *Sync) Clear() {
	s.pendingSpawns = nil
	s.pendingImpacts = nil
	s.pendingDeaths = nil
	s.idToEntity = make(map[uint32]uuid.UUID)
	s.entityToID = make(map[uuid.UUID]uint32)
	s.nextID = 1
}

func (s *Sync) release(networkID uint32) {
	if entity, ok := s.idToEntity[networkID]; ok {
		delete(s.entityToID, entity)
		delete(s.idToEntity, networkID)
	}
}

// ApplySpawn realizes a received spawn event in a client world and binds
// the assigned network id.
func (s *Sync) ApplySpawn(w *types.World, spawn Spawn) {
	p := types.Projectile{
		ID:         uuid.New(),
		Weapon:     spawn.Weapon,
		FiringShip: spawn.FiringShip,
		TargetShip: spawn.TargetShip,
		Position:   spawn.Position,
		Velocity:   spawn.Velocity,
		Facing:     spawn.Facing,
		Radius:     constants.ProjectileRadius,
		Lifetime:   constants.ProjectileLifetimeTicks,
	}
	if firing := w.ShipByID(spawn.FiringShip); firing != nil {
		p.Government = firing.Government
	}

	w.Projectiles = append(w.Projectiles, p)
	s.idToEntity[spawn.ProjectileID] = p.ID
	s.entityToID[p.ID] = spawn.ProjectileID
	if spawn.ProjectileID >= s.nextID {
		s.nextID = spawn.ProjectileID + 1
	}
}

// ApplyImpact realizes a received impact event: the projectile dies with an
// explosion visual at the impact point.
func (s *Sync) ApplyImpact(w *types.World, impact Impact) {
	entity, ok := s.idToEntity[impact.ProjectileID]
	if !ok {
		return
	}
	if p := w.ProjectileByID(entity); p != nil {
		p.Dead = true
	}
	w.AddVisual("impact", impact.Position)
	s.release(impact.ProjectileID)
}

// ApplyDeath realizes a received death event.
func (s *Sync) ApplyDeath(w *types.World, death Death) {
	entity, ok := s.idToEntity[death.ProjectileID]
	if !ok {
		return
	}
	if p := w.ProjectileByID(entity); p != nil {
		p.Dead = true
	}
	s.release(death.ProjectileID)
}
