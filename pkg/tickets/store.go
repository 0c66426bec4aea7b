package tickets

import (
	"context"
	"errors"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/UndeadAbbi/Platform-Outage-Bot/pkg/domain"
)

// MemoryStore keeps the incident → work item mapping in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]int
}

// NewMemoryStore returns an empty in-memory ticket store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]int)}
}

func (m *MemoryStore) Get(_ context.Context, internalID string) (int, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.items[internalID]
	return id, ok, nil
}

func (m *MemoryStore) Put(_ context.Context, internalID string, workItemID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[internalID] = workItemID
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, internalID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, internalID)
	return nil
}

const ticketSchema = `
CREATE TABLE IF NOT EXISTS event_tickets (
    internal_id  TEXT PRIMARY KEY,
    work_item_id BIGINT NOT NULL,
    created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// PostgresStore persists the ticket mapping in the event_tickets table,
// sharing the pool of the event store.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgresStore ensures the event_tickets table exists and returns the
// store.
func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) (*PostgresStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if _, err := pool.Exec(ctx, ticketSchema); err != nil {
		return nil, domain.StoreError("ensure ticket schema", err)
	}
	return &PostgresStore{pool: pool, logger: logger}, nil
}

func (p *PostgresStore) Get(ctx context.Context, internalID string) (int, bool, error) {
	var workItemID int
	err := p.pool.QueryRow(ctx,
		`SELECT work_item_id FROM event_tickets WHERE internal_id = $1`,
		internalID,
	).Scan(&workItemID)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, domain.StoreError("get ticket", err)
	}
	return workItemID, true, nil
}

func (p *PostgresStore) Put(ctx context.Context, internalID string, workItemID int) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO event_tickets (internal_id, work_item_id) VALUES ($1, $2)
		 ON CONFLICT (internal_id) DO UPDATE SET work_item_id = EXCLUDED.work_item_id`,
		internalID, workItemID,
	)
	if err != nil {
		return domain.StoreError("put ticket", err)
	}
	return nil
}

func (p *PostgresStore) Delete(ctx context.Context, internalID string) error {
	_, err := p.pool.Exec(ctx,
		`DELETE FROM event_tickets WHERE internal_id = $1`, internalID)
	if err != nil {
		return domain.StoreError("delete ticket", err)
	}
	return nil
}
