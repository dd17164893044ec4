package game

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	lru "github.com/hashicorp/golang-lru/v2"

	"swing-trainer/models"
)

// recentCacheSize bounds the in-process cache of completed sessions
const recentCacheSize = 32

// DB is the slice of pgxpool.Pool the store needs. Satisfied by a real pool
// and by pgxmock in tests.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// SessionStore persists completed session scorelines and keeps a small LRU of
// recent ones so the common "show my last games" reads skip the database.
type SessionStore struct {
	db     DB
	recent *lru.Cache[string, models.SessionResult]

	cacheHits   atomic.Int64
	cacheMisses atomic.Int64
}

// NewSessionStore creates a session store backed by the given connection
func NewSessionStore(db DB) (*SessionStore, error) {
	cache, err := lru.New[string, models.SessionResult](recentCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create session cache: %w", err)
	}
	return &SessionStore{db: db, recent: cache}, nil
}

// InitSchema creates the sessions table if it does not exist yet
func (ss *SessionStore) InitSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS batting_sessions (
			id UUID PRIMARY KEY,
			runs INTEGER NOT NULL,
			pitches INTEGER NOT NULL,
			outs_recorded INTEGER NOT NULL,
			breakdown JSONB NOT NULL DEFAULT '{}',
			started_at TIMESTAMPTZ NOT NULL,
			ended_at TIMESTAMPTZ NOT NULL
		)
	`

	if _, err := ss.db.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create batting_sessions table: %w", err)
	}
	return nil
}

// SaveSession stores one completed session
func (ss *SessionStore) SaveSession(ctx context.Context, result models.SessionResult) error {
	breakdownJSON, err := json.Marshal(result.Breakdown)
	if err != nil {
		return fmt.Errorf("failed to marshal breakdown: %w", err)
	}

	query := `
		INSERT INTO batting_sessions (id, runs, pitches, outs_recorded, breakdown, started_at, ended_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING
	`

	_, err = ss.db.Exec(ctx, query,
		result.SessionID,
		result.Runs,
		result.Pitches,
		result.OutsRecorded,
		breakdownJSON,
		result.StartedAt,
		result.EndedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to store session %s: %w", result.SessionID, err)
	}

	ss.recent.Add(result.SessionID, result)
	return nil
}

// GetSession returns one session by ID, from cache when possible
func (ss *SessionStore) GetSession(ctx context.Context, sessionID string) (models.SessionResult, error) {
	if cached, ok := ss.recent.Get(sessionID); ok {
		ss.cacheHits.Add(1)
		return cached, nil
	}
	ss.cacheMisses.Add(1)

	query := `
		SELECT id, runs, pitches, outs_recorded, breakdown, started_at, ended_at
		FROM batting_sessions
		WHERE id = $1
	`

	result, err := scanSession(ss.db.QueryRow(ctx, query, sessionID))
	if err != nil {
		return models.SessionResult{}, fmt.Errorf("failed to load session %s: %w", sessionID, err)
	}

	ss.recent.Add(result.SessionID, result)
	return result, nil
}

// RecentSessions returns the latest completed sessions, newest first
func (ss *SessionStore) RecentSessions(ctx context.Context, limit int) ([]models.SessionResult, error) {
	if limit <= 0 || limit > recentCacheSize {
		limit = recentCacheSize
	}

	query := `
		SELECT id, runs, pitches, outs_recorded, breakdown, started_at, ended_at
		FROM batting_sessions
		ORDER BY ended_at DESC
		LIMIT $1
	`

	rows, err := ss.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent sessions: %w", err)
	}
	defer rows.Close()

	var results []models.SessionResult
	for rows.Next() {
		result, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		ss.recent.Add(result.SessionID, result)
		results = append(results, result)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read recent sessions: %w", err)
	}

	return results, nil
}

// Aggregate summarizes every persisted session
func (ss *SessionStore) Aggregate(ctx context.Context) (models.AggregateStats, error) {
	query := `
		SELECT COUNT(*),
		       COALESCE(SUM(runs), 0),
		       COALESCE(MAX(runs), 0),
		       COALESCE(AVG(runs), 0),
		       COALESCE(AVG(pitches), 0)
		FROM batting_sessions
	`

	var stats models.AggregateStats
	err := ss.db.QueryRow(ctx, query).Scan(
		&stats.TotalSessions,
		&stats.TotalRuns,
		&stats.BestRuns,
		&stats.AvgRuns,
		&stats.AvgPitches,
	)
	if err != nil {
		return models.AggregateStats{}, fmt.Errorf("failed to aggregate sessions: %w", err)
	}

	return stats, nil
}

// CacheStats reports cache hit/miss counts and current size for metrics
func (ss *SessionStore) CacheStats() (hits, misses int64, size int) {
	return ss.cacheHits.Load(), ss.cacheMisses.Load(), ss.recent.Len()
}

func scanSession(row pgx.Row) (models.SessionResult, error) {
	var result models.SessionResult
	var breakdownJSON []byte

	err := row.Scan(
		&result.SessionID,
		&result.Runs,
		&result.Pitches,
		&result.OutsRecorded,
		&breakdownJSON,
		&result.StartedAt,
		&result.EndedAt,
	)
	if err != nil {
		return models.SessionResult{}, err
	}

	if len(breakdownJSON) > 0 {
		if err := json.Unmarshal(breakdownJSON, &result.Breakdown); err != nil {
			return models.SessionResult{}, fmt.Errorf("failed to unmarshal breakdown: %w", err)
		}
	}

	return result, nil
}
