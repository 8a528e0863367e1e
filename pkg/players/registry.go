package players

import (
	"sync"

	"github.com/google/uuid"
)

// Registry tracks connected players, indexed by player id and by transport
// connection. It is read from the console and admin API threads, so all
// access is synchronized.
type Registry struct {
	mu     sync.RWMutex
	byID   map[uuid.UUID]*NetworkPlayer
	byConn map[uint64]uuid.UUID
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byID:   make(map[uuid.UUID]*NetworkPlayer),
		byConn: make(map[uint64]uuid.UUID),
	}
}

// Add registers a player.
func (r *Registry) Add(player *NetworkPlayer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[player.ID] = player
	r.byConn[player.Conn] = player.ID
}

// Remove unregisters a player and returns the record, or nil.
func (r *Registry) Remove(id uuid.UUID) *NetworkPlayer {
	r.mu.Lock()
	defer r.mu.Unlock()
	player, ok := r.byID[id]
	if !ok {
		return nil
	}
	delete(r.byID, id)
	delete(r.byConn, player.Conn)
	return player
}

// ByID returns the player with the given id, or nil.
func (r *Registry) ByID(id uuid.UUID) *NetworkPlayer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byID[id]
}

// ByConn returns the player on the given connection, or nil.
func (r *Registry) ByConn(conn uint64) *NetworkPlayer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byConn[conn]
	if !ok {
		return nil
	}
	return r.byID[id]
}

// ByName returns the first player with the given name, or nil.
func (r *Registry) ByName(name string) *NetworkPlayer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, player := range r.byID {
		if player.Name == name {
			return player
		}
	}
	return nil
}

// Has reports whether a player with the given id is connected.
func (r *Registry) Has(id uuid.UUID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byID[id]
	return ok
}

// Count returns the number of connected players.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

// All returns a snapshot of the connected players.
func (r *Registry) All() []*NetworkPlayer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	all := make([]*NetworkPlayer, 0, len(r.byID))
	for _, player := range r.byID {
		all = append(all, player)
	}
	return all
}
