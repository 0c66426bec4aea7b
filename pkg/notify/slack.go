package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/UndeadAbbi/Platform-Outage-Bot/pkg/domain"
)

const slackPostMessageURL = "https://slack.com/api/chat.postMessage"

// SlackConfig parameterizes the Slack sink.
type SlackConfig struct {
	Token   string `yaml:"token" mapstructure:"token"`
	Channel string `yaml:"channel" mapstructure:"channel"`
}

// Slack posts Block Kit incident messages to a channel. New-incident messages
// carry a Create Ticket button whose value is the internal id, handled by the
// webhook surface.
type Slack struct {
	config SlackConfig
	http   *http.Client
	logger *zap.Logger
	apiURL string
}

// NewSlack creates the Slack sink.
func NewSlack(config SlackConfig, logger *zap.Logger) (*Slack, error) {
	if config.Token == "" {
		return nil, fmt.Errorf("slack token is required")
	}
	if config.Channel == "" {
		return nil, fmt.Errorf("slack channel is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Slack{
		config: config,
		http:   &http.Client{Timeout: 15 * time.Second},
		logger: logger,
		apiURL: slackPostMessageURL,
	}, nil
}

func (s *Slack) Name() string { return "slack" }

type slackBlock struct {
	Type     string        `json:"type"`
	Text     *slackText    `json:"text,omitempty"`
	Elements []slackButton `json:"elements,omitempty"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type slackButton struct {
	Type     string    `json:"type"`
	Text     slackText `json:"text"`
	Value    string    `json:"value"`
	ActionID string    `json:"action_id"`
}

func (s *Slack) NotifyNew(ctx context.Context, event domain.TrackedEvent) error {
	blocks := []slackBlock{
		{
			Type: "section",
			Text: &slackText{Type: "mrkdwn", Text: FormatMessage(event)},
		},
		{
			Type: "actions",
			Elements: []slackButton{{
				Type:     "button",
				Text:     slackText{Type: "plain_text", Text: "Create Ticket"},
				Value:    event.InternalID,
				ActionID: "create_ticket",
			}},
		},
	}
	return s.post(ctx, fmt.Sprintf("Service Health Incident: %s", event.EventName), blocks)
}

func (s *Slack) NotifyResolved(ctx context.Context, event domain.TrackedEvent) error {
	text := fmt.Sprintf("*Resolved:* %s - %s (Internal ID: %s)",
		event.Platform, event.EventName, event.InternalID)
	blocks := []slackBlock{{
		Type: "section",
		Text: &slackText{Type: "mrkdwn", Text: text},
	}}
	return s.post(ctx, fmt.Sprintf("Resolved: %s", event.EventName), blocks)
}

func (s *Slack) post(ctx context.Context, fallback string, blocks []slackBlock) error {
	payload, err := json.Marshal(map[string]any{
		"channel": s.config.Channel,
		"text":    fallback,
		"blocks":  blocks,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+s.config.Token)

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("post to slack: %w", err)
	}
	defer resp.Body.Close()

	var result struct {
		OK    bool   `json:"ok"`
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decode slack response: %w", err)
	}
	if !result.OK {
		return fmt.Errorf("slack api error: %s", result.Error)
	}
	return nil
}
