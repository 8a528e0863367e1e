package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// PlayerRecord is the persisted account state of one player. World state is
// never persisted; only the registry-level facts survive a restart.
type PlayerRecord struct {
	ID       uuid.UUID
	Name     string
	Credits  int64
	System   string
	Planet   string
	LastSeen time.Time
}

// Repository stores player records.
type Repository interface {
	Close(ctx context.Context) error
	SavePlayer(ctx context.Context, record *PlayerRecord) error
	LoadPlayer(ctx context.Context, id uuid.UUID) (*PlayerRecord, error)
	ListPlayers(ctx context.Context) ([]*PlayerRecord, error)
}
