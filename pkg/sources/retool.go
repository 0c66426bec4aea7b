package sources

import (
	"context"
	"encoding/xml"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/UndeadAbbi/Platform-Outage-Bot/pkg/domain"
)

const retoolStatusURL = "https://status.retool.com/history.rss"

// ReTool polls the status-history RSS feed. Only the newest item matters: the
// feed is a rolling history where the head entry describes the current
// incident, with the status label embedded in a <strong> tag.
type ReTool struct {
	client  *Client
	logger  *zap.Logger
	baseURL string
}

func NewReTool(client *Client, logger *zap.Logger) *ReTool {
	return &ReTool{client: client, logger: logger, baseURL: retoolStatusURL}
}

func (r *ReTool) Name() string              { return "retool" }
func (r *ReTool) Platform() domain.Platform { return domain.PlatformReTool }

type retoolRSS struct {
	Channel struct {
		Items []struct {
			Title       string `xml:"title"`
			Description string `xml:"description"`
			PubDate     string `xml:"pubDate"`
			Link        string `xml:"link"`
		} `xml:"item"`
	} `xml:"channel"`
}

func (r *ReTool) Fetch(ctx context.Context) ([]domain.NormalizedEvent, error) {
	raw, err := r.client.GetRaw(ctx, r.baseURL, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch retool feed: %w", err)
	}

	var feed retoolRSS
	if err := xml.Unmarshal(raw, &feed); err != nil {
		return nil, fmt.Errorf("parse retool feed: %w", err)
	}
	if len(feed.Channel.Items) == 0 {
		return nil, nil
	}

	latest := feed.Channel.Items[0]
	status := strongTag(latest.Description)
	if status == "" {
		status = "Unknown"
	}
	if strings.EqualFold(status, "resolved") {
		r.logger.Debug("latest retool incident already resolved")
		return nil, nil
	}

	event := domain.NormalizedEvent{
		Platform:        domain.PlatformReTool,
		EventName:       latest.Title,
		Status:          status,
		ImpactStartTime: latest.PubDate,
		Description:     flattenHTML(latest.Description),
		Link:            latest.Link,
	}
	r.logger.Debug("fetched retool incident", zap.String("status", status))
	return []domain.NormalizedEvent{event}, nil
}

func (r *ReTool) Sample() []domain.NormalizedEvent {
	return []domain.NormalizedEvent{{
		Platform:        domain.PlatformReTool,
		EventName:       "Test Retool Outage",
		Status:          "Investigating",
		ImpactStartTime: "2024-09-10T12:00:00Z",
		Description:     "Investigating - We are currently investigating an issue with Retool.",
		Link:            "https://status.retool.com/incidents/test-retool-event-1",
	}}
}
