// Package sources holds one adapter per upstream status feed. An adapter
// fetches the raw feed, normalizes it into domain events, and nothing more:
// dedup, notification, and lifecycle decisions belong to the tracker and the
// checker that drives it.
package sources

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/UndeadAbbi/Platform-Outage-Bot/pkg/domain"
)

// Source is the adapter contract. Fetch must return the COMPLETE set of
// currently active incidents for its platform; the checker reconciles tracked
// state against that set, so a partial result must be reported as an error
// instead.
type Source interface {
	// Name is the config/CLI identifier, e.g. "github".
	Name() string

	// Platform is the value stamped on emitted events.
	Platform() domain.Platform

	// Fetch pulls and normalizes the currently active incidents.
	Fetch(ctx context.Context) ([]domain.NormalizedEvent, error)

	// Sample returns canned incidents used in dry-run mode in place of a
	// live fetch.
	Sample() []domain.NormalizedEvent
}

// Config selects and parameterizes the enabled sources.
type Config struct {
	Enabled []string `yaml:"enabled" mapstructure:"enabled"`

	// Azure Resource Health.
	AzureSubscriptions []string `yaml:"azure_subscriptions" mapstructure:"azure_subscriptions"`
	AzureToken         string   `yaml:"azure_token" mapstructure:"azure_token"`
	AzureRegionFilter  string   `yaml:"azure_region_filter" mapstructure:"azure_region_filter"`

	// Microsoft Graph (O365 service announcements).
	O365TenantID     string `yaml:"o365_tenant_id" mapstructure:"o365_tenant_id"`
	O365ClientID     string `yaml:"o365_client_id" mapstructure:"o365_client_id"`
	O365ClientSecret string `yaml:"o365_client_secret" mapstructure:"o365_client_secret"`
}

// DefaultConfig enables the sources that need no credentials.
func DefaultConfig() Config {
	return Config{
		Enabled:           []string{"github", "slack", "snowflake", "salesforce", "retool", "ado"},
		AzureRegionFilter: "US",
	}
}

// Build constructs every enabled source.
func Build(cfg Config, client *Client, logger *zap.Logger) ([]Source, error) {
	if client == nil {
		client = NewClient(DefaultClientConfig())
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	sources := make([]Source, 0, len(cfg.Enabled))
	for _, name := range cfg.Enabled {
		src, err := newSource(name, cfg, client, logger.Named(name))
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	return sources, nil
}

func newSource(name string, cfg Config, client *Client, logger *zap.Logger) (Source, error) {
	switch name {
	case "github":
		return NewGitHub(client, logger), nil
	case "slack":
		return NewSlack(client, logger), nil
	case "snowflake":
		return NewSnowflake(client, logger), nil
	case "salesforce":
		return NewSalesforce(client, logger), nil
	case "retool":
		return NewReTool(client, logger), nil
	case "ado":
		return NewADO(client, logger), nil
	case "azure":
		return NewAzure(client, cfg, logger), nil
	case "o365":
		return NewO365(client, cfg, logger), nil
	default:
		return nil, fmt.Errorf("unknown source: %s", name)
	}
}
