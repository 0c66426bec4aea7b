package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/UndeadAbbi/Platform-Outage-Bot/pkg/domain"
)

// Log writes notifications to the structured log instead of an external
// channel. Used in dry-run mode and as a safety net when no other sink is
// configured.
type Log struct {
	logger *zap.Logger
}

// NewLog creates the log sink.
func NewLog(logger *zap.Logger) *Log {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Log{logger: logger}
}

func (l *Log) Name() string { return "log" }

func (l *Log) NotifyNew(ctx context.Context, event domain.TrackedEvent) error {
	l.logger.Warn("service health incident",
		zap.String("internal_id", event.InternalID),
		zap.String("platform", string(event.Platform)),
		zap.String("event_name", event.EventName),
		zap.String("status", event.Status),
		zap.String("impact_start_time", event.ImpactStartTime),
	)
	return nil
}

func (l *Log) NotifyResolved(ctx context.Context, event domain.TrackedEvent) error {
	l.logger.Info("service health incident resolved",
		zap.String("internal_id", event.InternalID),
		zap.String("platform", string(event.Platform)),
		zap.String("event_name", event.EventName),
	)
	return nil
}
