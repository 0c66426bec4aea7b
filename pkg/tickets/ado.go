package tickets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/UndeadAbbi/Platform-Outage-Bot/pkg/domain"
)

// ClientConfig holds the Azure DevOps connection settings.
type ClientConfig struct {
	// OrgURL is the organization base URL, e.g. https://dev.azure.com/acme.
	OrgURL string
	// Project is the Azure DevOps project the work items land in.
	Project string
	// PATBase64 is the personal access token, already base64-encoded for
	// Basic auth.
	PATBase64 string
	// WorkItemType names the work item type to file.
	WorkItemType string
	// APIVersion pins the REST API version.
	APIVersion string
	// Timeout bounds each API call.
	Timeout time.Duration
}

// DefaultClientConfig returns the default Azure DevOps client configuration.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		WorkItemType: "Outage",
		APIVersion:   "6.0",
		Timeout:      30 * time.Second,
	}
}

// WorkItem is the subset of the Azure DevOps work item response we use.
type WorkItem struct {
	ID  int    `json:"id"`
	URL string `json:"url"`
}

// Client files work items through the Azure DevOps REST API.
type Client struct {
	config ClientConfig
	http   *http.Client
	logger *zap.Logger
}

// NewClient validates the configuration and returns a client.
func NewClient(config ClientConfig, logger *zap.Logger) (*Client, error) {
	if strings.TrimSpace(config.OrgURL) == "" {
		return nil, fmt.Errorf("org URL is required")
	}
	if strings.TrimSpace(config.Project) == "" {
		return nil, fmt.Errorf("project is required")
	}
	if strings.TrimSpace(config.PATBase64) == "" {
		return nil, fmt.Errorf("PAT is required")
	}
	if config.WorkItemType == "" {
		config.WorkItemType = "Outage"
	}
	if config.APIVersion == "" {
		config.APIVersion = "6.0"
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		config: config,
		http:   &http.Client{Timeout: config.Timeout},
		logger: logger,
	}, nil
}

type patchOp struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Value string `json:"value"`
}

// CreateWorkItem files a work item for the incident. The title follows
// "<platform> Outage - <event name>" and the description carries the full
// incident summary.
func (c *Client) CreateWorkItem(ctx context.Context, event domain.TrackedEvent) (WorkItem, error) {
	endpoint := fmt.Sprintf("%s/%s/_apis/wit/workitems/$%s?api-version=%s",
		strings.TrimRight(c.config.OrgURL, "/"),
		c.config.Project,
		c.config.WorkItemType,
		c.config.APIVersion,
	)

	ops := []patchOp{
		{Op: "add", Path: "/fields/System.Title", Value: fmt.Sprintf("%s Outage - %s", event.Platform, event.EventName)},
		{Op: "add", Path: "/fields/System.Description", Value: ticketDescription(event)},
	}
	body, err := json.Marshal(ops)
	if err != nil {
		return WorkItem{}, fmt.Errorf("marshal work item patch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return WorkItem{}, fmt.Errorf("build work item request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json-patch+json")
	req.Header.Set("Authorization", "Basic "+c.config.PATBase64)

	resp, err := c.http.Do(req)
	if err != nil {
		return WorkItem{}, fmt.Errorf("post work item: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return WorkItem{}, fmt.Errorf("create work item: status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var item WorkItem
	if err := json.NewDecoder(resp.Body).Decode(&item); err != nil {
		return WorkItem{}, fmt.Errorf("decode work item response: %w", err)
	}
	c.logger.Debug("work item created", zap.Int("id", item.ID))
	return item, nil
}
