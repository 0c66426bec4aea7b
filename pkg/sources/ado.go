package sources

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/UndeadAbbi/Platform-Outage-Bot/pkg/domain"
)

const adoStatusURL = "https://status.dev.azure.com/_apis/status/health?geographies=US&api-version=7.2-preview.1"

// ADO polls the Azure DevOps service-health API. Unlike the incident feeds,
// this API reports per-service health, so an event is emitted for every
// service that is not healthy; the event name is the service id, which keeps
// the dedup key stable for the duration of the degradation.
type ADO struct {
	client  *Client
	logger  *zap.Logger
	baseURL string
	now     func() time.Time
}

func NewADO(client *Client, logger *zap.Logger) *ADO {
	return &ADO{client: client, logger: logger, baseURL: adoStatusURL, now: time.Now}
}

func (a *ADO) Name() string              { return "ado" }
func (a *ADO) Platform() domain.Platform { return domain.PlatformAzureDevOps }

type adoService struct {
	ID          string `json:"id"`
	Geographies []struct {
		Name   string `json:"name"`
		Health string `json:"health"`
	} `json:"geographies"`
}

func (a *ADO) Fetch(ctx context.Context) ([]domain.NormalizedEvent, error) {
	var payload struct {
		Services []adoService `json:"services"`
	}
	if err := a.client.GetJSON(ctx, a.baseURL, nil, &payload); err != nil {
		return nil, fmt.Errorf("fetch ado status: %w", err)
	}

	var events []domain.NormalizedEvent
	for _, svc := range payload.Services {
		if len(svc.Geographies) == 0 {
			continue
		}
		health := svc.Geographies[0].Health
		if health == "healthy" {
			continue
		}
		events = append(events, domain.NormalizedEvent{
			Platform:        domain.PlatformAzureDevOps,
			EventName:       svc.ID,
			Status:          health,
			ImpactStartTime: a.now().UTC().Format("15:04 UTC 01/02/2006"),
			Description:     fmt.Sprintf("%s is currently %s.", svc.ID, health),
		})
	}
	a.logger.Debug("fetched ado service health", zap.Int("unhealthy", len(events)))
	return events, nil
}

func (a *ADO) Sample() []domain.NormalizedEvent {
	return []domain.NormalizedEvent{{
		Platform:        domain.PlatformAzureDevOps,
		EventName:       "Pipelines",
		Status:          "unhealthy",
		ImpactStartTime: "12:00 UTC 09/10/2024",
		Description:     "Pipelines is currently unhealthy.",
	}}
}
