package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/UndeadAbbi/Platform-Outage-Bot/pkg/domain"
)

const (
	subjectNew      = "outages.events.new"
	subjectResolved = "outages.events.resolved"
)

// NATSConfig parameterizes the NATS sink.
type NATSConfig struct {
	URL string `yaml:"url" mapstructure:"url"`
}

// NATS publishes incident records as JSON for downstream automation
// (dashboards, paging policies) that subscribes to outages.events.>.
type NATS struct {
	conn   *nats.Conn
	logger *zap.Logger
}

// NewNATS connects to the broker.
func NewNATS(config NATSConfig, logger *zap.Logger) (*NATS, error) {
	if config.URL == "" {
		return nil, fmt.Errorf("nats url is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	conn, err := nats.Connect(config.URL,
		nats.Name("platform-outage-bot"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &NATS{conn: conn, logger: logger}, nil
}

func (n *NATS) Name() string { return "nats" }

func (n *NATS) NotifyNew(ctx context.Context, event domain.TrackedEvent) error {
	return n.publish(subjectNew, event)
}

func (n *NATS) NotifyResolved(ctx context.Context, event domain.TrackedEvent) error {
	return n.publish(subjectResolved, event)
}

func (n *NATS) publish(subject string, event domain.TrackedEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if err := n.conn.Publish(subject, payload); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

// Close drains the connection.
func (n *NATS) Close() {
	if n.conn != nil {
		n.conn.Close()
	}
}
