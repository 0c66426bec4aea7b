package sources

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/UndeadAbbi/Platform-Outage-Bot/pkg/domain"
)

const salesforceStatusURL = "https://status.salesforce.com/api/incidents/active"

// Salesforce polls the active-incidents endpoint of the Salesforce trust API.
type Salesforce struct {
	client  *Client
	logger  *zap.Logger
	baseURL string
}

func NewSalesforce(client *Client, logger *zap.Logger) *Salesforce {
	return &Salesforce{client: client, logger: logger, baseURL: salesforceStatusURL}
}

func (s *Salesforce) Name() string              { return "salesforce" }
func (s *Salesforce) Platform() domain.Platform { return domain.PlatformSalesforce }

type salesforceIncident struct {
	ID              int  `json:"id"`
	AffectsAll      bool `json:"affectsAll"`
	IncidentImpacts []struct {
		Type      string `json:"type"`
		Severity  string `json:"severity"`
		StartTime string `json:"startTime"`
	} `json:"IncidentImpacts"`
	IncidentEvents []struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"IncidentEvents"`
}

func (s *Salesforce) Fetch(ctx context.Context) ([]domain.NormalizedEvent, error) {
	var incidents []salesforceIncident
	if err := s.client.GetJSON(ctx, s.baseURL, nil, &incidents); err != nil {
		return nil, fmt.Errorf("fetch salesforce incidents: %w", err)
	}

	var events []domain.NormalizedEvent
	for _, inc := range incidents {
		if len(inc.IncidentImpacts) == 0 {
			continue
		}
		if salesforceResolved(inc) {
			continue
		}
		impact := inc.IncidentImpacts[0]
		events = append(events, domain.NormalizedEvent{
			Platform:        domain.PlatformSalesforce,
			EventName:       fmt.Sprintf("%d %s %s", inc.ID, impact.Type, impact.Severity),
			Status:          "Ongoing",
			ImpactStartTime: impact.StartTime,
			Description:     salesforceDescription(inc),
			Link:            fmt.Sprintf("https://status.salesforce.com/incidents/%d", inc.ID),
		})
	}
	s.logger.Debug("fetched salesforce incidents", zap.Int("count", len(events)))
	return events, nil
}

func salesforceResolved(inc salesforceIncident) bool {
	for _, ev := range inc.IncidentEvents {
		if ev.Type == "resolution" || ev.Type == "resolved" {
			return true
		}
	}
	return false
}

func salesforceDescription(inc salesforceIncident) string {
	for _, ev := range inc.IncidentEvents {
		if ev.Type == "investigatingCauseOfIssue" && ev.Message != "" {
			return ev.Message
		}
	}
	return "None"
}

func (s *Salesforce) Sample() []domain.NormalizedEvent {
	return []domain.NormalizedEvent{{
		Platform:        domain.PlatformSalesforce,
		EventName:       "9001 coreService major",
		Status:          "Ongoing",
		ImpactStartTime: "2024-09-10T12:00:00Z",
		Description:     "We are investigating a core service degradation.",
		Link:            "https://status.salesforce.com/incidents/9001",
	}}
}
