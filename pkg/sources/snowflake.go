package sources

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/UndeadAbbi/Platform-Outage-Bot/pkg/domain"
)

const snowflakeStatusURL = "https://status.snowflake.com/api/v2/incidents.json"

// Snowflake polls the statuspage.io incidents feed. Snowflake reuses incident
// titles across separate outages, so the incident id is folded into the event
// name to keep dedup keys distinct.
type Snowflake struct {
	client  *Client
	logger  *zap.Logger
	baseURL string
}

func NewSnowflake(client *Client, logger *zap.Logger) *Snowflake {
	return &Snowflake{client: client, logger: logger, baseURL: snowflakeStatusURL}
}

func (s *Snowflake) Name() string              { return "snowflake" }
func (s *Snowflake) Platform() domain.Platform { return domain.PlatformSnowflake }

type snowflakeIncident struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Status          string `json:"status"`
	StartedAt       string `json:"started_at"`
	Shortlink       string `json:"shortlink"`
	IncidentUpdates []struct {
		Body string `json:"body"`
	} `json:"incident_updates"`
}

func (s *Snowflake) Fetch(ctx context.Context) ([]domain.NormalizedEvent, error) {
	var payload struct {
		Incidents []snowflakeIncident `json:"incidents"`
	}
	if err := s.client.GetJSON(ctx, s.baseURL, nil, &payload); err != nil {
		return nil, fmt.Errorf("fetch snowflake incidents: %w", err)
	}

	var events []domain.NormalizedEvent
	for _, inc := range payload.Incidents {
		if inc.Status == "resolved" || inc.Status == "completed" {
			continue
		}
		events = append(events, domain.NormalizedEvent{
			Platform:        domain.PlatformSnowflake,
			EventName:       fmt.Sprintf("%s %s", inc.Name, inc.ID),
			Status:          inc.Status,
			ImpactStartTime: inc.StartedAt,
			Description:     formatSnowflakeDescription(inc),
			Link:            inc.Shortlink,
		})
	}
	s.logger.Debug("fetched snowflake incidents", zap.Int("count", len(events)))
	return events, nil
}

// formatSnowflakeDescription aggregates the update bodies and rewrites the
// feed's "Current status:" sections as "Status Update:" entries, most recent
// first.
func formatSnowflakeDescription(inc snowflakeIncident) string {
	parts := make([]string, 0, len(inc.IncidentUpdates))
	for _, update := range inc.IncidentUpdates {
		parts = append(parts, flattenHTML(update.Body))
	}
	description := strings.TrimSpace(strings.Join(parts, "\n\n"))

	var updates []string
	var kept []string
	for _, line := range strings.Split(description, "\n") {
		if strings.HasPrefix(line, "Current status:") {
			updates = append(updates, strings.Replace(line, "Current status:", "Status Update:", 1))
			continue
		}
		kept = append(kept, line)
	}
	description = strings.TrimSpace(strings.Join(kept, "\n"))

	if len(updates) > 0 {
		// Reverse so the latest update leads.
		for i, j := 0, len(updates)-1; i < j; i, j = i+1, j-1 {
			updates[i], updates[j] = updates[j], updates[i]
		}
		description += "\n\nUpdates:\n" + strings.Join(updates, "\n")
	}
	return description
}

func (s *Snowflake) Sample() []domain.NormalizedEvent {
	return []domain.NormalizedEvent{{
		Platform:        domain.PlatformSnowflake,
		EventName:       "Test Snowflake Outage test-event-12345",
		Status:          "investigating",
		ImpactStartTime: "2024-09-10T12:00:00Z",
		Description:     "Initial analysis indicates an issue with data warehouse operations.",
		Link:            "https://status.snowflake.com/incidents/test-event-12345",
	}}
}
