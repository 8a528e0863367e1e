package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteRepositoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo, err := NewSQLiteRepository(ctx, ":memory:")
	require.NoError(t, err)
	defer repo.Close(ctx)

	record := &PlayerRecord{
		ID:       uuid.New(),
		Name:     "Pilot-1",
		Credits:  50000,
		System:   "Rutilicus",
		Planet:   "New Boston",
		LastSeen: time.UnixMilli(1_700_000_000_000),
	}
	require.NoError(t, repo.SavePlayer(ctx, record))

	loaded, err := repo.LoadPlayer(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, record.Name, loaded.Name)
	assert.Equal(t, record.Credits, loaded.Credits)
	assert.Equal(t, record.System, loaded.System)
	assert.Equal(t, record.LastSeen.UnixMilli(), loaded.LastSeen.UnixMilli())

	// Saving again upserts.
	record.Credits = 100
	require.NoError(t, repo.SavePlayer(ctx, record))
	loaded, err = repo.LoadPlayer(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100), loaded.Credits)

	records, err := repo.ListPlayers(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestSQLiteRepositoryNotFound(t *testing.T) {
	ctx := context.Background()
	repo, err := NewSQLiteRepository(ctx, ":memory:")
	require.NoError(t, err)
	defer repo.Close(ctx)

	_, err = repo.LoadPlayer(ctx, uuid.New())
	var notFound *ErrNotFound
	assert.ErrorAs(t, err, &notFound)
}
