package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/UndeadAbbi/Platform-Outage-Bot/pkg/domain"
	"github.com/UndeadAbbi/Platform-Outage-Bot/pkg/metrics"
)

// Fanout delivers to every configured sink. One sink failing never blocks
// the others; failures are logged and counted, and the first error is
// returned so callers can surface it.
type Fanout struct {
	sinks   []Notifier
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewFanout composes the given sinks.
func NewFanout(sinks []Notifier, m *metrics.Metrics, logger *zap.Logger) *Fanout {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fanout{sinks: sinks, logger: logger, metrics: m}
}

func (f *Fanout) Name() string { return "fanout" }

func (f *Fanout) NotifyNew(ctx context.Context, event domain.TrackedEvent) error {
	return f.deliver(ctx, event, func(n Notifier) error { return n.NotifyNew(ctx, event) })
}

func (f *Fanout) NotifyResolved(ctx context.Context, event domain.TrackedEvent) error {
	return f.deliver(ctx, event, func(n Notifier) error { return n.NotifyResolved(ctx, event) })
}

func (f *Fanout) deliver(ctx context.Context, event domain.TrackedEvent, send func(Notifier) error) error {
	var firstErr error
	for _, sink := range f.sinks {
		if err := send(sink); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			if f.metrics != nil {
				f.metrics.NotificationErrors.WithLabelValues(sink.Name()).Inc()
			}
			f.logger.Error("notification failed",
				zap.String("sink", sink.Name()),
				zap.String("internal_id", event.InternalID),
				zap.Error(err),
			)
			continue
		}
		if f.metrics != nil {
			f.metrics.NotificationsSent.WithLabelValues(sink.Name()).Inc()
		}
	}
	return firstErr
}
