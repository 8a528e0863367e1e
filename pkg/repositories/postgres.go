package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS players (
	player_id UUID PRIMARY KEY,
	name TEXT NOT NULL,
	credits BIGINT NOT NULL,
	system TEXT NOT NULL,
	planet TEXT NOT NULL,
	last_seen BIGINT NOT NULL
);
`

type PostgresRepository struct {
	pool *pgxpool.Pool
}

var _ Repository = &PostgresRepository{}

// NewPostgresRepository connects to the database and applies the schema.
func NewPostgresRepository(ctx context.Context, connStr string) (*PostgresRepository, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &PostgresRepository{pool: pool}, nil
}

func (r *PostgresRepository) Close(ctx context.Context) error {
	r.pool.Close()
	return nil
}

func (r *PostgresRepository) SavePlayer(ctx context.Context, record *PlayerRecord) error {
	q := `
	INSERT INTO players (player_id, name, credits, system, planet, last_seen)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (player_id) DO UPDATE SET
		name = EXCLUDED.name,
		credits = EXCLUDED.credits,
		system = EXCLUDED.system,
		planet = EXCLUDED.planet,
		last_seen = EXCLUDED.last_seen;
	`
	_, err := r.pool.Exec(ctx, q,
		record.ID, record.Name, record.Credits,
		record.System, record.Planet, record.LastSeen.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to upsert player: %w", err)
	}
	return nil
}

func (r *PostgresRepository) LoadPlayer(ctx context.Context, id uuid.UUID) (*PlayerRecord, error) {
	q := `
	SELECT name, credits, system, planet, last_seen FROM players WHERE player_id = $1;
	`
	record := &PlayerRecord{ID: id}
	var lastSeen int64
	err := r.pool.QueryRow(ctx, q, id).
		Scan(&record.Name, &record.Credits, &record.System, &record.Planet, &lastSeen)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &ErrNotFound{}
		}
		return nil, fmt.Errorf("failed to scan player: %w", err)
	}
	record.LastSeen = millisToTime(lastSeen)
	return record, nil
}

func (r *PostgresRepository) ListPlayers(ctx context.Context) ([]*PlayerRecord, error) {
	q := `
	SELECT player_id, name, credits, system, planet, last_seen FROM players ORDER BY name;
	`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to query players: %w", err)
	}
	defer rows.Close()

	var records []*PlayerRecord
	for rows.Next() {
		record := &PlayerRecord{}
		var lastSeen int64
		if err := rows.Scan(&record.ID, &record.Name, &record.Credits, &record.System, &record.Planet, &lastSeen); err != nil {
			return nil, fmt.Errorf("failed to scan player: %w", err)
		}
		record.LastSeen = millisToTime(lastSeen)
		records = append(records, record)
	}
	return records, rows.Err()
}

func millisToTime(ms int64) time.Time {
	return time.UnixMilli(ms)
}
