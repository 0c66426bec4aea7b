package cli

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/UndeadAbbi/Platform-Outage-Bot/pkg/checker"
	"github.com/UndeadAbbi/Platform-Outage-Bot/pkg/config"
	"github.com/UndeadAbbi/Platform-Outage-Bot/pkg/logging"
	"github.com/UndeadAbbi/Platform-Outage-Bot/pkg/metrics"
	"github.com/UndeadAbbi/Platform-Outage-Bot/pkg/notify"
	"github.com/UndeadAbbi/Platform-Outage-Bot/pkg/sources"
	"github.com/UndeadAbbi/Platform-Outage-Bot/pkg/store"
	"github.com/UndeadAbbi/Platform-Outage-Bot/pkg/store/postgres"
	"github.com/UndeadAbbi/Platform-Outage-Bot/pkg/tickets"
	"github.com/UndeadAbbi/Platform-Outage-Bot/pkg/tracker"
)

// app bundles the wired components a command runs with.
type app struct {
	cfg     config.Config
	logger  *zap.Logger
	metrics *metrics.Metrics
	store   store.Store
	pg      *postgres.Store
	tracker *tracker.Tracker
	checker *checker.Checker
	tickets *tickets.Service

	closers []func()
}

// buildApp constructs the component graph from the configuration.
func buildApp(ctx context.Context, cfg config.Config) (*app, error) {
	logger, err := logging.New(cfg.LogLevel, verbose)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger, metrics: metrics.New()}
	a.closers = append(a.closers, func() { _ = logger.Sync() })

	if err := a.buildStore(ctx); err != nil {
		a.Close()
		return nil, err
	}

	a.tracker, err = tracker.New(a.store, tracker.Config{RefreshOnRepeat: cfg.RefreshOnRepeat}, logger.Named("tracker"))
	if err != nil {
		a.Close()
		return nil, err
	}

	srcs, err := sources.Build(cfg.Sources, nil, logger.Named("sources"))
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("build sources: %w", err)
	}

	notifier, err := a.buildNotifier()
	if err != nil {
		a.Close()
		return nil, err
	}

	a.checker, err = checker.New(a.tracker, notifier, srcs, a.metrics, logger.Named("checker"))
	if err != nil {
		a.Close()
		return nil, err
	}
	a.checker.SetDryRun(cfg.DryRun)

	if cfg.ADO.Enabled {
		if err := a.buildTickets(ctx); err != nil {
			a.Close()
			return nil, err
		}
	}
	return a, nil
}

func (a *app) buildStore(ctx context.Context) error {
	switch a.cfg.Storage.Backend {
	case config.StoragePostgres:
		pg, err := postgres.Connect(ctx, a.cfg.Storage.DSN, a.logger.Named("store"))
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		a.pg = pg
		a.store = pg
		a.closers = append(a.closers, pg.Close)
	default:
		a.store = store.NewMemory(a.logger.Named("store"))
	}
	return nil
}

func (a *app) buildNotifier() (notify.Notifier, error) {
	var sinks []notify.Notifier
	if a.cfg.Slack.Enabled {
		slack, err := notify.NewSlack(notify.SlackConfig{
			Token:   a.cfg.Slack.BotToken,
			Channel: a.cfg.Slack.Channel,
		}, a.logger.Named("slack"))
		if err != nil {
			return nil, fmt.Errorf("configure slack notifier: %w", err)
		}
		sinks = append(sinks, slack)
	}
	if a.cfg.NATS.Enabled {
		bus, err := notify.NewNATS(notify.NATSConfig{URL: a.cfg.NATS.URL}, a.logger.Named("nats"))
		if err != nil {
			return nil, fmt.Errorf("connect nats: %w", err)
		}
		sinks = append(sinks, bus)
		a.closers = append(a.closers, bus.Close)
	}
	if len(sinks) == 0 {
		sinks = append(sinks, notify.NewLog(a.logger.Named("notify")))
	}
	return notify.NewFanout(sinks, a.metrics, a.logger.Named("notify")), nil
}

func (a *app) buildTickets(ctx context.Context) error {
	client, err := tickets.NewClient(tickets.ClientConfig{
		OrgURL:       a.cfg.ADO.OrgURL,
		Project:      a.cfg.ADO.Project,
		PATBase64:    a.cfg.ADO.PATBase64,
		WorkItemType: "Outage",
		APIVersion:   "6.0",
	}, a.logger.Named("ado"))
	if err != nil {
		return fmt.Errorf("configure ado client: %w", err)
	}

	var ticketStore tickets.Store
	if a.pg != nil {
		ticketStore, err = tickets.NewPostgresStore(ctx, a.pg.Pool(), a.logger.Named("tickets"))
		if err != nil {
			return fmt.Errorf("prepare ticket store: %w", err)
		}
	} else {
		ticketStore = tickets.NewMemoryStore()
	}

	a.tickets, err = tickets.NewService(client, ticketStore, a.tracker, a.logger.Named("tickets"))
	if err != nil {
		return fmt.Errorf("build ticket service: %w", err)
	}
	return nil
}

// healthCheck probes the backing store; memory is always reachable.
func (a *app) healthCheck(ctx context.Context) error {
	if a.pg != nil {
		return a.pg.Ready(ctx)
	}
	return nil
}

// Close releases connections in reverse construction order.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
