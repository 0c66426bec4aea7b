// Package postgres is the production event store backend. One row per
// tracked event in tracked_events; a partial unique index on the dedup key
// backs the one-active-record-per-incident invariant at the storage layer as
// a last line of defense behind the tracker's serialization.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/UndeadAbbi/Platform-Outage-Bot/pkg/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS tracked_events (
    internal_id       TEXT PRIMARY KEY,
    internal_seq      BIGINT NOT NULL,
    platform          TEXT NOT NULL,
    event_name        TEXT NOT NULL,
    status            TEXT NOT NULL DEFAULT '',
    impact_start_time TEXT NOT NULL DEFAULT '',
    description       TEXT NOT NULL DEFAULT '',
    link              TEXT NOT NULL DEFAULT '',
    state             TEXT NOT NULL DEFAULT 'active',
    first_seen        TIMESTAMPTZ NOT NULL,
    resolved_at       TIMESTAMPTZ
);
CREATE UNIQUE INDEX IF NOT EXISTS tracked_events_active_key
    ON tracked_events (platform, event_name) WHERE state = 'active';
CREATE TABLE IF NOT EXISTS event_tickets (
    internal_id  TEXT PRIMARY KEY,
    work_item_id BIGINT NOT NULL,
    created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Store is the pgx-backed event store.
type Store struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// Connect opens a pool against the DSN and ensures the schema exists.
func Connect(ctx context.Context, dsn string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("pgxpool: %w", err)
	}
	s := &Store{pool: pool, logger: logger}
	if err := s.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Ready reports whether the backend is reachable.
func (s *Store) Ready(ctx context.Context) error {
	var one int
	if err := s.pool.QueryRow(ctx, "SELECT 1").Scan(&one); err != nil {
		return domain.StoreError("ready", err)
	}
	return nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return domain.StoreError("ensure schema", err)
	}
	return nil
}

// Pool exposes the underlying pool for collaborators sharing the database
// (the ticket store).
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

func (s *Store) Put(ctx context.Context, record domain.TrackedEvent) error {
	seq, err := seqFromID(record.InternalID)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
INSERT INTO tracked_events
    (internal_id, internal_seq, platform, event_name, status, impact_start_time, description, link, state, first_seen, resolved_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (internal_id) DO UPDATE SET
    status = EXCLUDED.status,
    description = EXCLUDED.description,
    state = EXCLUDED.state,
    resolved_at = EXCLUDED.resolved_at`,
		record.InternalID, seq, record.Platform, record.EventName, record.Status,
		record.ImpactStartTime, record.Description, record.Link, record.State,
		record.FirstSeen, record.ResolvedAt,
	)
	if err != nil {
		return domain.StoreError("put", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, internalID string) (domain.TrackedEvent, error) {
	row := s.pool.QueryRow(ctx, selectColumns+" WHERE internal_id = $1", internalID)
	record, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.TrackedEvent{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.TrackedEvent{}, domain.StoreError("get", err)
	}
	return record, nil
}

func (s *Store) FindActiveByKey(ctx context.Context, key domain.EventKey) (*domain.TrackedEvent, error) {
	rows, err := s.pool.Query(ctx,
		selectColumns+` WHERE platform = $1 AND event_name = $2 AND state = 'active' ORDER BY internal_seq`,
		key.Platform, key.EventName,
	)
	if err != nil {
		return nil, domain.StoreError("find by key", err)
	}
	defer rows.Close()

	var matches []domain.TrackedEvent
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, domain.StoreError("find by key", err)
		}
		matches = append(matches, record)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StoreError("find by key", err)
	}
	if len(matches) == 0 {
		return nil, nil
	}
	if len(matches) > 1 {
		s.logger.Warn("duplicate active records for dedup key",
			zap.String("platform", string(key.Platform)),
			zap.String("event_name", key.EventName),
			zap.Int("count", len(matches)),
			zap.String("picked", matches[0].InternalID),
		)
	}
	return &matches[0], nil
}

func (s *Store) ListActive(ctx context.Context) ([]domain.TrackedEvent, error) {
	rows, err := s.pool.Query(ctx, selectColumns+` WHERE state = 'active' ORDER BY internal_seq`)
	if err != nil {
		return nil, domain.StoreError("list active", err)
	}
	defer rows.Close()

	var active []domain.TrackedEvent
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, domain.StoreError("list active", err)
		}
		active = append(active, record)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StoreError("list active", err)
	}
	return active, nil
}

func (s *Store) MaxID(ctx context.Context) (int, error) {
	var max int64
	err := s.pool.QueryRow(ctx, `SELECT COALESCE(MAX(internal_seq), 0) FROM tracked_events`).Scan(&max)
	if err != nil {
		return 0, domain.StoreError("max id", err)
	}
	return int(max), nil
}

const selectColumns = `
SELECT internal_id, platform, event_name, status, impact_start_time, description, link, state, first_seen, resolved_at
FROM tracked_events`

func scanRecord(row pgx.Row) (domain.TrackedEvent, error) {
	var (
		record     domain.TrackedEvent
		resolvedAt *time.Time
	)
	err := row.Scan(
		&record.InternalID, &record.Platform, &record.EventName, &record.Status,
		&record.ImpactStartTime, &record.Description, &record.Link, &record.State,
		&record.FirstSeen, &resolvedAt,
	)
	if err != nil {
		return domain.TrackedEvent{}, err
	}
	record.ResolvedAt = resolvedAt
	return record, nil
}

func seqFromID(internalID string) (int64, error) {
	var seq int64
	if _, err := fmt.Sscanf(internalID, "%d", &seq); err != nil {
		return 0, domain.NewInvalidEventError(fmt.Sprintf("internal id %q is not numeric", internalID))
	}
	return seq, nil
}
