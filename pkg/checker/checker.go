// Package checker drives one poll cycle per source: fetch the current
// incident set, log every observation with the tracker, notify on new
// incidents, then reconcile so incidents that disappeared from the feed get
// resolved and announced.
package checker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/UndeadAbbi/Platform-Outage-Bot/pkg/domain"
	"github.com/UndeadAbbi/Platform-Outage-Bot/pkg/metrics"
	"github.com/UndeadAbbi/Platform-Outage-Bot/pkg/notify"
	"github.com/UndeadAbbi/Platform-Outage-Bot/pkg/sources"
	"github.com/UndeadAbbi/Platform-Outage-Bot/pkg/store"
	"github.com/UndeadAbbi/Platform-Outage-Bot/pkg/tracker"
)

// Checker owns the fetch → track → notify → reconcile loop for a set of
// sources. Cycles for different sources may run concurrently; the tracker
// provides the serialization that keeps dedup sound.
type Checker struct {
	tracker  *tracker.Tracker
	notifier notify.Notifier
	sources  map[string]sources.Source
	metrics  *metrics.Metrics
	logger   *zap.Logger
	dryRun   atomic.Bool

	// sandbox is the in-memory tracker dry-run cycles run against, so
	// sample incidents never touch the live store and a sample key set is
	// never reconciled against live incidents. Replaced with a fresh one
	// each time dry-run turns on.
	mu      sync.Mutex
	sandbox *tracker.Tracker
}

// New creates a checker over the given sources.
func New(tr *tracker.Tracker, notifier notify.Notifier, srcs []sources.Source, m *metrics.Metrics, logger *zap.Logger) (*Checker, error) {
	if tr == nil {
		return nil, fmt.Errorf("tracker is required")
	}
	if notifier == nil {
		return nil, fmt.Errorf("notifier is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	byName := make(map[string]sources.Source, len(srcs))
	for _, src := range srcs {
		byName[src.Name()] = src
	}
	sandbox, err := newSandbox(logger)
	if err != nil {
		return nil, err
	}
	c := &Checker{
		tracker:  tr,
		notifier: notifier,
		sources:  byName,
		metrics:  m,
		logger:   logger,
		sandbox:  sandbox,
	}
	return c, nil
}

func newSandbox(logger *zap.Logger) (*tracker.Tracker, error) {
	return tracker.New(store.NewMemory(logger), tracker.DefaultConfig(), logger)
}

// SetDryRun toggles dry-run mode: sources return canned sample incidents
// instead of hitting their live feeds, and cycles run against a fresh
// in-memory sandbox tracker so live tracked incidents are untouched. Safe to
// flip at runtime via the webhook surface.
func (c *Checker) SetDryRun(enabled bool) {
	if enabled {
		if sandbox, err := newSandbox(c.logger); err == nil {
			c.mu.Lock()
			c.sandbox = sandbox
			c.mu.Unlock()
		}
	}
	c.dryRun.Store(enabled)
	c.logger.Info("dry-run mode changed", zap.Bool("enabled", enabled))
}

func (c *Checker) sandboxTracker() *tracker.Tracker {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sandbox
}

// DryRun reports the current dry-run state.
func (c *Checker) DryRun() bool {
	return c.dryRun.Load()
}

// Sources returns the names of the configured sources.
func (c *Checker) Sources() []string {
	names := make([]string, 0, len(c.sources))
	for name := range c.sources {
		names = append(names, name)
	}
	return names
}

// CheckAll runs one cycle per source, concurrently; the tracker serializes
// the writes. Individual source failures are logged and skipped; the
// scheduler decides retry timing.
func (c *Checker) CheckAll(ctx context.Context) {
	var wg sync.WaitGroup
	for name := range c.sources {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			if err := c.Check(ctx, name); err != nil {
				c.logger.Error("service check failed", zap.String("source", name), zap.Error(err))
			}
		}(name)
	}
	wg.Wait()
}

// ErrUnknownSource reports a check request for a source that is not
// configured.
var ErrUnknownSource = errors.New("unknown source")

// Check runs one poll cycle for the named source.
func (c *Checker) Check(ctx context.Context, name string) error {
	src, ok := c.sources[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSource, name)
	}

	start := time.Now()
	if c.metrics != nil {
		c.metrics.CyclesTotal.WithLabelValues(name).Inc()
		defer func() {
			c.metrics.CycleDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
		}()
	}

	err := c.run(ctx, src)
	if err != nil && c.metrics != nil {
		c.metrics.CycleErrors.WithLabelValues(name).Inc()
	}
	return err
}

func (c *Checker) run(ctx context.Context, src sources.Source) error {
	var (
		events []domain.NormalizedEvent
		err    error
	)
	dry := c.dryRun.Load()
	tr := c.tracker
	if dry {
		// Dry-run cycles track and reconcile sample incidents in the
		// sandbox only: the sample set is not the upstream-current set, so
		// reconciling it against live incidents would falsely resolve them.
		tr = c.sandboxTracker()
		events = src.Sample()
	} else {
		events, err = src.Fetch(ctx)
		if err != nil {
			// A failed fetch yields an UNKNOWN current set, so reconcile is
			// skipped too: resolving on partial data would falsely close
			// incidents that are still ongoing.
			return fmt.Errorf("fetch %s: %w", src.Name(), err)
		}
	}

	currentKeys := make(map[string]struct{}, len(events))
	for _, event := range events {
		currentKeys[event.EventName] = struct{}{}

		id, isNew, err := tr.LogEvent(ctx, event)
		if err != nil {
			return fmt.Errorf("log event %q: %w", event.EventName, err)
		}
		if !isNew {
			c.logger.Debug("known event re-observed",
				zap.String("source", src.Name()),
				zap.String("internal_id", id),
			)
			continue
		}

		if c.metrics != nil && !dry {
			c.metrics.EventsNew.WithLabelValues(string(event.Platform)).Inc()
		}
		record, err := tr.GetEventByID(ctx, id)
		if err != nil {
			return fmt.Errorf("load new event %s: %w", id, err)
		}
		if err := c.notifier.NotifyNew(ctx, record); err != nil {
			c.logger.Error("notify new event failed",
				zap.String("internal_id", id), zap.Error(err))
		}
	}

	resolved, err := tr.Reconcile(ctx, src.Platform(), currentKeys)
	if err != nil {
		return fmt.Errorf("reconcile %s: %w", src.Name(), err)
	}
	for _, record := range resolved {
		if c.metrics != nil && !dry {
			c.metrics.EventsResolved.WithLabelValues(string(record.Platform)).Inc()
		}
		if err := c.notifier.NotifyResolved(ctx, record); err != nil {
			c.logger.Error("notify resolved event failed",
				zap.String("internal_id", record.InternalID), zap.Error(err))
		}
	}

	c.updateActiveGauge(ctx)
	c.logger.Info("service check completed",
		zap.String("source", src.Name()),
		zap.Int("observed", len(events)),
		zap.Int("resolved", len(resolved)),
	)
	return nil
}

func (c *Checker) updateActiveGauge(ctx context.Context) {
	if c.metrics == nil {
		return
	}
	active, err := c.tracker.ListTrackedEvents(ctx)
	if err != nil {
		return
	}
	c.metrics.TrackedActive.Set(float64(len(active)))
}
