package sources

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/UndeadAbbi/Platform-Outage-Bot/pkg/domain"
)

const slackStatusURL = "https://slack-status.com/api/v2.0.0/current"

// Slack polls the Slack status API's current-state endpoint.
type Slack struct {
	client  *Client
	logger  *zap.Logger
	baseURL string
}

func NewSlack(client *Client, logger *zap.Logger) *Slack {
	return &Slack{client: client, logger: logger, baseURL: slackStatusURL}
}

func (s *Slack) Name() string              { return "slack" }
func (s *Slack) Platform() domain.Platform { return domain.PlatformSlack }

type slackIncident struct {
	Title       string `json:"title"`
	Status      string `json:"status"`
	URL         string `json:"url"`
	DateCreated string `json:"date_created"`
	Notes       []struct {
		Body string `json:"body"`
	} `json:"notes"`
}

func (s *Slack) Fetch(ctx context.Context) ([]domain.NormalizedEvent, error) {
	var payload struct {
		ActiveIncidents []slackIncident `json:"active_incidents"`
	}
	if err := s.client.GetJSON(ctx, s.baseURL, nil, &payload); err != nil {
		return nil, fmt.Errorf("fetch slack status: %w", err)
	}

	events := make([]domain.NormalizedEvent, 0, len(payload.ActiveIncidents))
	for _, inc := range payload.ActiveIncidents {
		notes := make([]string, 0, len(inc.Notes))
		for _, note := range inc.Notes {
			notes = append(notes, note.Body)
		}
		events = append(events, domain.NormalizedEvent{
			Platform:        domain.PlatformSlack,
			EventName:       inc.Title,
			Status:          inc.Status,
			ImpactStartTime: inc.DateCreated,
			Description:     strings.Join(notes, "\n"),
			Link:            inc.URL,
		})
	}
	s.logger.Debug("fetched slack incidents", zap.Int("count", len(events)))
	return events, nil
}

func (s *Slack) Sample() []domain.NormalizedEvent {
	return []domain.NormalizedEvent{{
		Platform:        domain.PlatformSlack,
		EventName:       "Test Slack Incident",
		Status:          "active",
		ImpactStartTime: "2024-09-10T12:00:00Z",
		Description:     "We are currently investigating an issue with Slack.",
		Link:            "https://status.slack.com/incidents/1234",
	}}
}
