package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS players (
	player_id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	credits INTEGER NOT NULL,
	system TEXT NOT NULL,
	planet TEXT NOT NULL,
	last_seen INTEGER NOT NULL
);
`

type SQLiteRepository struct {
	db *sql.DB
}

var _ Repository = &SQLiteRepository{}

// NewSQLiteRepository opens (creating if needed) the database at path and
// applies the schema.
func NewSQLiteRepository(ctx context.Context, path string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close(ctx context.Context) error {
	return r.db.Close()
}

func (r *SQLiteRepository) SavePlayer(ctx context.Context, record *PlayerRecord) error {
	q := `
	INSERT OR REPLACE INTO players (player_id, name, credits, system, planet, last_seen)
	VALUES (?, ?, ?, ?, ?, ?);
	`
	_, err := r.db.ExecContext(ctx, q,
		record.ID.String(), record.Name, record.Credits,
		record.System, record.Planet, record.LastSeen.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to upsert player: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) LoadPlayer(ctx context.Context, id uuid.UUID) (*PlayerRecord, error) {
	q := `
	SELECT name, credits, system, planet, last_seen FROM players WHERE player_id = ?;
	`
	record := &PlayerRecord{ID: id}
	var lastSeen int64
	err := r.db.QueryRowContext(ctx, q, id.String()).
		Scan(&record.Name, &record.Credits, &record.System, &record.Planet, &lastSeen)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, &ErrNotFound{}
		}
		return nil, fmt.Errorf("failed to scan player: %w", err)
	}
	record.LastSeen = millisToTime(lastSeen)
	return record, nil
}

func (r *SQLiteRepository) ListPlayers(ctx context.Context) ([]*PlayerRecord, error) {
	q := `
	SELECT player_id, name, credits, system, planet, last_seen FROM players ORDER BY name;
	`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to query players: %w", err)
	}
	defer rows.Close()

	var records []*PlayerRecord
	for rows.Next() {
		record := &PlayerRecord{}
		var idStr string
		var lastSeen int64
		if err := rows.Scan(&idStr, &record.Name, &record.Credits, &record.System, &record.Planet, &lastSeen); err != nil {
			return nil, fmt.Errorf("failed to scan player: %w", err)
		}
		record.ID, err = uuid.Parse(idStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse player id %q: %w", idStr, err)
		}
		record.LastSeen = millisToTime(lastSeen)
		records = append(records, record)
	}
	return records, rows.Err()
}
