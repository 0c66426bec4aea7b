package sources

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/UndeadAbbi/Platform-Outage-Bot/pkg/domain"
)

const githubStatusURL = "https://www.githubstatus.com/api/v2/incidents/unresolved.json"

// GitHub polls the statuspage.io unresolved-incidents feed.
type GitHub struct {
	client  *Client
	logger  *zap.Logger
	baseURL string
}

func NewGitHub(client *Client, logger *zap.Logger) *GitHub {
	return &GitHub{client: client, logger: logger, baseURL: githubStatusURL}
}

func (g *GitHub) Name() string              { return "github" }
func (g *GitHub) Platform() domain.Platform { return domain.PlatformGitHub }

type githubIncident struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Impact    string `json:"impact"`
	Status    string `json:"status"`
	Shortlink string `json:"shortlink"`
	CreatedAt string `json:"created_at"`
}

func (g *GitHub) Fetch(ctx context.Context) ([]domain.NormalizedEvent, error) {
	var payload struct {
		Incidents []githubIncident `json:"incidents"`
	}
	if err := g.client.GetJSON(ctx, g.baseURL, nil, &payload); err != nil {
		return nil, fmt.Errorf("fetch github incidents: %w", err)
	}

	events := make([]domain.NormalizedEvent, 0, len(payload.Incidents))
	for _, inc := range payload.Incidents {
		events = append(events, domain.NormalizedEvent{
			Platform:        domain.PlatformGitHub,
			EventName:       inc.Name,
			Status:          inc.Status,
			ImpactStartTime: inc.CreatedAt,
			Description:     fmt.Sprintf("Impact: %s", inc.Impact),
			Link:            inc.Shortlink,
		})
	}
	g.logger.Debug("fetched github incidents", zap.Int("count", len(events)))
	return events, nil
}

func (g *GitHub) Sample() []domain.NormalizedEvent {
	return []domain.NormalizedEvent{{
		Platform:        domain.PlatformGitHub,
		EventName:       "Test Incident: GitHub Actions Outage",
		Status:          "investigating",
		ImpactStartTime: "2024-09-10T12:00:00Z",
		Description:     "Impact: critical",
		Link:            "https://stspg.io/test-incident",
	}}
}
