// Package tracker implements the event deduplication and lifecycle engine.
//
// Given a normalized incident observation it decides whether the incident is
// new (allocate the next internal id, report is_new=true so the caller
// notifies) or already known (return the existing id, is_new=false so the
// caller stays quiet), and it detects disappearance from an upstream feed via
// Reconcile. All state lives in the injected store; the tracker itself holds
// only the mutex that makes the check-then-act span atomic.
package tracker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/UndeadAbbi/Platform-Outage-Bot/pkg/domain"
	"github.com/UndeadAbbi/Platform-Outage-Bot/pkg/store"
)

// Config holds tracker behavior switches.
type Config struct {
	// RefreshOnRepeat updates Status and Description in place when a known
	// incident is observed again. Off by default: the first-seen record is
	// kept verbatim and repeat observations are pure no-ops.
	RefreshOnRepeat bool
}

// DefaultConfig returns the default tracker configuration.
func DefaultConfig() Config {
	return Config{RefreshOnRepeat: false}
}

// Tracker is the dedup/lifecycle engine. Safe for concurrent use: a single
// mutex serializes every write path (LogEvent, ResolveEvent, Reconcile) so
// that at most one internal id is ever allocated per dedup key, even under
// overlapping poll cycles.
type Tracker struct {
	mu     sync.Mutex
	store  store.Store
	config Config
	logger *zap.Logger
	now    func() time.Time
}

// New creates a tracker backed by the given store.
func New(st store.Store, config Config, logger *zap.Logger) (*Tracker, error) {
	if st == nil {
		return nil, fmt.Errorf("store is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{
		store:  st,
		config: config,
		logger: logger,
		now:    time.Now,
	}, nil
}

// LogEvent records an observation of an incident. It returns the internal id
// tracking that incident and whether the id was freshly allocated. Callers
// treat isNew=true as "notify" and isNew=false as "suppress".
//
// Store failures surface as domain.ErrStoreUnavailable; no id is consumed on
// failure and no partial record is written.
func (t *Tracker) LogEvent(ctx context.Context, event domain.NormalizedEvent) (internalID string, isNew bool, err error) {
	if err := event.Validate(); err != nil {
		return "", false, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	existing, err := t.store.FindActiveByKey(ctx, event.Key())
	if err != nil {
		return "", false, err
	}
	if existing != nil {
		if t.config.RefreshOnRepeat {
			if err := t.refresh(ctx, *existing, event); err != nil {
				return "", false, err
			}
		}
		return existing.InternalID, false, nil
	}

	id, err := t.nextID(ctx)
	if err != nil {
		return "", false, err
	}

	record := domain.TrackedEvent{
		InternalID:      id,
		Platform:        event.Platform,
		EventName:       event.EventName,
		Status:          event.Status,
		ImpactStartTime: event.ImpactStartTime,
		Description:     event.Description,
		Link:            event.Link,
		State:           domain.StateActive,
		FirstSeen:       t.now().UTC(),
	}
	if err := t.store.Put(ctx, record); err != nil {
		return "", false, err
	}

	t.logger.Info("tracking new event",
		zap.String("internal_id", id),
		zap.String("platform", string(event.Platform)),
		zap.String("event_name", event.EventName),
		zap.String("status", event.Status),
	)
	return id, true, nil
}

// refresh overwrites the mutable fields of a known record with the latest
// observation. The internal id and first-seen fields never change.
func (t *Tracker) refresh(ctx context.Context, record domain.TrackedEvent, event domain.NormalizedEvent) error {
	if record.Status == event.Status && record.Description == event.Description {
		return nil
	}
	record.Status = event.Status
	record.Description = event.Description
	if err := t.store.Put(ctx, record); err != nil {
		return err
	}
	t.logger.Debug("refreshed tracked event",
		zap.String("internal_id", record.InternalID),
		zap.String("status", event.Status),
	)
	return nil
}

// GetEventByID returns the tracked record for an internal id.
func (t *Tracker) GetEventByID(ctx context.Context, internalID string) (domain.TrackedEvent, error) {
	return t.store.Get(ctx, internalID)
}

// ListTrackedEvents returns all currently active records in insertion order.
func (t *Tracker) ListTrackedEvents(ctx context.Context) ([]domain.TrackedEvent, error) {
	return t.store.ListActive(ctx)
}

// ResolveEvent marks the record as resolved. Resolving an already-resolved
// record is a no-op; an unknown id is domain.ErrNotFound. There is no
// un-resolve.
func (t *Tracker) ResolveEvent(ctx context.Context, internalID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	record, err := t.store.Get(ctx, internalID)
	if err != nil {
		return err
	}
	if !record.Active() {
		return nil
	}
	_, err = t.resolve(ctx, record)
	return err
}

// Reconcile marks every active record for the platform whose event name is
// absent from currentKeys as resolved and returns the newly resolved records.
// currentKeys must be the COMPLETE set of event names the upstream feed
// currently reports; a partial set would falsely resolve ongoing incidents,
// which is why fetch failures skip the cycle entirely.
//
// Fail-closed: on any store error no state is changed beyond records already
// individually resolved, and the error is returned.
func (t *Tracker) Reconcile(ctx context.Context, platform domain.Platform, currentKeys map[string]struct{}) ([]domain.TrackedEvent, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	active, err := t.store.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	var resolved []domain.TrackedEvent
	for _, record := range active {
		if record.Platform != platform {
			continue
		}
		if _, still := currentKeys[record.EventName]; still {
			continue
		}
		updated, err := t.resolve(ctx, record)
		if err != nil {
			return resolved, err
		}
		resolved = append(resolved, updated)
	}
	return resolved, nil
}

func (t *Tracker) resolve(ctx context.Context, record domain.TrackedEvent) (domain.TrackedEvent, error) {
	now := t.now().UTC()
	record.State = domain.StateResolved
	record.ResolvedAt = &now
	if err := t.store.Put(ctx, record); err != nil {
		return domain.TrackedEvent{}, err
	}
	t.logger.Info("event resolved",
		zap.String("internal_id", record.InternalID),
		zap.String("platform", string(record.Platform)),
		zap.String("event_name", record.EventName),
	)
	return record, nil
}

// nextID allocates the next internal id: highest stored id plus one,
// zero-padded to four digits, growing naturally past 9999.
func (t *Tracker) nextID(ctx context.Context) (string, error) {
	max, err := t.store.MaxID(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%04d", max+1), nil
}
