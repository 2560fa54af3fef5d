// Package database persists finished-session summaries to Postgres.
// The server runs fine without a database; every writer checks the
// shared pool for nil first.
package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

// DB is the shared connection pool. Nil when Postgres is not configured.
var DB *pgxpool.Pool

// Connect opens the pool and verifies connectivity.
func Connect(ctx context.Context, dsn string) error {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("ping database: %w", err)
	}
	DB = pool
	logrus.Info("database connected")
	return nil
}

// Close shuts the pool down.
func Close() {
	if DB != nil {
		DB.Close()
		DB = nil
	}
}

// ParticipantResult is one row of a session's final standing.
type ParticipantResult struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Role  string `json:"role"`
	Alive bool   `json:"alive"`
}

// SessionSummary is the persisted record of one finished session.
type SessionSummary struct {
	Code         string
	Winner       string
	Rounds       int
	StartedAt    time.Time
	EndedAt      time.Time
	Participants []ParticipantResult
}

// StoreSessionSummary writes the final state of a finished session.
func StoreSessionSummary(ctx context.Context, s SessionSummary) error {
	if DB == nil {
		return nil
	}
	const q = `
		INSERT INTO session_summaries (code, winner, rounds, started_at, ended_at, participants)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (code) DO UPDATE
		SET winner = EXCLUDED.winner,
		    rounds = EXCLUDED.rounds,
		    ended_at = EXCLUDED.ended_at,
		    participants = EXCLUDED.participants`
	raw, err := json.Marshal(s.Participants)
	if err != nil {
		return fmt.Errorf("marshal participants: %w", err)
	}
	_, err = DB.Exec(ctx, q, s.Code, s.Winner, s.Rounds, s.StartedAt, s.EndedAt, raw)
	if err != nil {
		return fmt.Errorf("store session summary %s: %w", s.Code, err)
	}
	return nil
}
