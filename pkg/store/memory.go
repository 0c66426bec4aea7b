package store

import (
	"context"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/UndeadAbbi/Platform-Outage-Bot/pkg/domain"
)

// Memory is the in-memory backend. Process-lifetime only, deterministic,
// safe for concurrent use. Used for dry-run execution and tests.
type Memory struct {
	mu     sync.RWMutex
	events map[string]domain.TrackedEvent
	order  []string
	logger *zap.Logger
}

// NewMemory creates an empty in-memory store.
func NewMemory(logger *zap.Logger) *Memory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Memory{
		events: make(map[string]domain.TrackedEvent),
		logger: logger,
	}
}

func (m *Memory) Put(ctx context.Context, record domain.TrackedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.events[record.InternalID]; !exists {
		m.order = append(m.order, record.InternalID)
	}
	m.events[record.InternalID] = record
	return nil
}

func (m *Memory) Get(ctx context.Context, internalID string) (domain.TrackedEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	record, ok := m.events[internalID]
	if !ok {
		return domain.TrackedEvent{}, domain.ErrNotFound
	}
	return record, nil
}

func (m *Memory) FindActiveByKey(ctx context.Context, key domain.EventKey) (*domain.TrackedEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matches []domain.TrackedEvent
	for _, id := range m.order {
		record := m.events[id]
		if record.Active() && record.Key() == key {
			matches = append(matches, record)
		}
	}
	switch len(matches) {
	case 0:
		return nil, nil
	case 1:
		return &matches[0], nil
	default:
		// Should never happen: more than one active record for a dedup key.
		// Pick the earliest id and surface the anomaly. Ids are compared
		// numerically: "10000" sorts after "9999" even though it compares
		// lower as a string.
		earliest := matches[0]
		for _, record := range matches[1:] {
			if idLess(record.InternalID, earliest.InternalID) {
				earliest = record
			}
		}
		m.logger.Warn("duplicate active records for dedup key",
			zap.String("platform", string(key.Platform)),
			zap.String("event_name", key.EventName),
			zap.Int("count", len(matches)),
			zap.String("picked", earliest.InternalID),
		)
		return &earliest, nil
	}
}

func (m *Memory) ListActive(ctx context.Context) ([]domain.TrackedEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var active []domain.TrackedEvent
	for _, id := range m.order {
		record := m.events[id]
		if record.Active() {
			active = append(active, record)
		}
	}
	return active, nil
}

func (m *Memory) MaxID(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	max := 0
	for id := range m.events {
		n, err := strconv.Atoi(id)
		if err != nil {
			continue
		}
		if n > max {
			max = n
		}
	}
	return max, nil
}

// idLess orders internal ids numerically, falling back to a string compare
// for ids that are not plain numbers.
func idLess(a, b string) bool {
	na, errA := strconv.Atoi(a)
	nb, errB := strconv.Atoi(b)
	if errA == nil && errB == nil {
		return na < nb
	}
	return a < b
}
