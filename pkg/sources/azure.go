package sources

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/UndeadAbbi/Platform-Outage-Bot/pkg/domain"
)

const azureManagementURL = "https://management.azure.com"

// Azure polls the Resource Health events API for each configured
// subscription. Events impacting regions outside the configured filter are
// skipped.
type Azure struct {
	client        *Client
	logger        *zap.Logger
	baseURL       string
	subscriptions []string
	token         string
	regionFilter  string
}

func NewAzure(client *Client, cfg Config, logger *zap.Logger) *Azure {
	return &Azure{
		client:        client,
		logger:        logger,
		baseURL:       azureManagementURL,
		subscriptions: cfg.AzureSubscriptions,
		token:         cfg.AzureToken,
		regionFilter:  cfg.AzureRegionFilter,
	}
}

func (a *Azure) Name() string              { return "azure" }
func (a *Azure) Platform() domain.Platform { return domain.PlatformAzure }

type azureEvent struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Properties struct {
		Status string `json:"status"`
		Title  string `json:"title"`
		Impact []struct {
			ImpactedService string `json:"impactedService"`
			ImpactedRegions []struct {
				ImpactedRegion string `json:"impactedRegion"`
			} `json:"impactedRegions"`
		} `json:"impact"`
		ImpactStartTime string `json:"impactStartTime"`
		Description     string `json:"description"`
	} `json:"properties"`
}

func (a *Azure) Fetch(ctx context.Context) ([]domain.NormalizedEvent, error) {
	var events []domain.NormalizedEvent
	for _, subscription := range a.subscriptions {
		url := fmt.Sprintf(
			"%s/subscriptions/%s/providers/Microsoft.ResourceHealth/events?api-version=2024-02-01",
			a.baseURL, subscription,
		)
		var payload struct {
			Value []azureEvent `json:"value"`
		}
		headers := map[string]string{"Authorization": "Bearer " + a.token}
		if err := a.client.GetJSON(ctx, url, headers, &payload); err != nil {
			return nil, fmt.Errorf("fetch azure health events for %s: %w", subscription, err)
		}
		for _, ev := range payload.Value {
			if !a.regionMatches(ev) {
				continue
			}
			events = append(events, domain.NormalizedEvent{
				Platform:        domain.PlatformAzure,
				EventName:       ev.Name,
				Status:          ev.Properties.Status,
				ImpactStartTime: ev.Properties.ImpactStartTime,
				Description:     flattenHTML(ev.Properties.Description),
			})
		}
	}
	a.logger.Debug("fetched azure health events", zap.Int("count", len(events)))
	return events, nil
}

func (a *Azure) regionMatches(ev azureEvent) bool {
	if a.regionFilter == "" {
		return true
	}
	for _, impact := range ev.Properties.Impact {
		for _, region := range impact.ImpactedRegions {
			if region.ImpactedRegion == a.regionFilter {
				return true
			}
		}
	}
	return false
}

func (a *Azure) Sample() []domain.NormalizedEvent {
	return []domain.NormalizedEvent{{
		Platform:        domain.PlatformAzure,
		EventName:       "Test Outage Event",
		Status:          "Active",
		ImpactStartTime: "2024-09-10T12:00:00Z",
		Description:     "Simulated description of a major outage affecting Compute services in the US.",
	}}
}
