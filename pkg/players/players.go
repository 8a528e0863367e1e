package players

import (
	"time"

	"github.com/google/uuid"
)

// NetworkPlayer is one connected player's roster record: identity, the
// transport connection, and the ships the player owns. Ships are referenced
// by entity id; the world is the owner.
type NetworkPlayer struct {
	ID   uuid.UUID
	Name string
	Conn uint64

	Ships    []uuid.UUID
	Flagship uuid.UUID

	Credits int64
	System  string
	Planet  string

	ConnectedAt time.Time
	LastSeen    time.Time
}

// NewNetworkPlayer creates a roster record for a fresh connection.
func NewNetworkPlayer(id uuid.UUID, name string, conn uint64) *NetworkPlayer {
	now := time.Now()
	return &NetworkPlayer{
		ID:          id,
		Name:        name,
		Conn:        conn,
		ConnectedAt: now,
		LastSeen:    now,
	}
}

// AddShip registers a ship with the player. The first ship becomes the
// flagship.
func (p *NetworkPlayer) AddShip(ship uuid.UUID) {
	for _, existing := range p.Ships {
		if existing == ship {
			return
		}
	}
	p.Ships = append(p.Ships, ship)
	if p.Flagship == uuid.Nil {
		p.Flagship = ship
	}
}

// RemoveShip unregisters a ship. If it was the flagship, the first
// remaining ship takes over.
func (p *NetworkPlayer) RemoveShip(ship uuid.UUID) {
	for i, existing := range p.Ships {
		if existing == ship {
			p.Ships = append(p.Ships[:i], p.Ships[i+1:]...)
			break
		}
	}
	if p.Flagship == ship {
		p.Flagship = uuid.Nil
		if len(p.Ships) > 0 {
			p.Flagship = p.Ships[0]
		}
	}
}

// ClearShips drops all ship references.
func (p *NetworkPlayer) ClearShips() {
	p.Ships = nil
	p.Flagship = uuid.Nil
}

// ShipCount returns the number of registered ships.
func (p *NetworkPlayer) ShipCount() int {
	return len(p.Ships)
}

// Touch updates the last-seen time.
func (p *NetworkPlayer) Touch() {
	p.LastSeen = time.Now()
}
