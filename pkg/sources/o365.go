package sources

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/UndeadAbbi/Platform-Outage-Bot/pkg/domain"
)

const (
	graphIssuesURL = "https://graph.microsoft.com/v1.0/admin/serviceAnnouncement/issues"
	loginBaseURL   = "https://login.microsoftonline.com"
)

// O365 polls Microsoft Graph service-announcement issues, authenticating with
// client credentials. Tokens are cached until shortly before expiry.
type O365 struct {
	client   *Client
	logger   *zap.Logger
	issueURL string
	loginURL string

	tenantID     string
	clientID     string
	clientSecret string

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

func NewO365(client *Client, cfg Config, logger *zap.Logger) *O365 {
	return &O365{
		client:       client,
		logger:       logger,
		issueURL:     graphIssuesURL,
		loginURL:     loginBaseURL,
		tenantID:     cfg.O365TenantID,
		clientID:     cfg.O365ClientID,
		clientSecret: cfg.O365ClientSecret,
	}
}

func (o *O365) Name() string              { return "o365" }
func (o *O365) Platform() domain.Platform { return domain.PlatformO365 }

type o365Issue struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Status        string `json:"status"`
	Service       string `json:"service"`
	StartDateTime string `json:"startDateTime"`
	IsResolved    bool   `json:"isResolved"`
	Posts         []struct {
		Description struct {
			Content string `json:"content"`
		} `json:"description"`
	} `json:"posts"`
}

func (o *O365) Fetch(ctx context.Context) ([]domain.NormalizedEvent, error) {
	token, err := o.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Value []o365Issue `json:"value"`
	}
	headers := map[string]string{"Authorization": "Bearer " + token}
	if err := o.client.GetJSON(ctx, o.issueURL, headers, &payload); err != nil {
		return nil, fmt.Errorf("fetch o365 issues: %w", err)
	}

	var events []domain.NormalizedEvent
	for _, issue := range payload.Value {
		if issue.IsResolved {
			continue
		}
		events = append(events, domain.NormalizedEvent{
			Platform:        domain.PlatformO365,
			EventName:       fmt.Sprintf("%s %s", issue.Title, issue.ID),
			Status:          issue.Status,
			ImpactStartTime: issue.StartDateTime,
			Description:     o365Description(issue),
		})
	}
	o.logger.Debug("fetched o365 issues", zap.Int("count", len(events)))
	return events, nil
}

// o365Description aggregates post bodies and opens a fresh paragraph before
// each of the feed's well-known section labels.
func o365Description(issue o365Issue) string {
	parts := make([]string, 0, len(issue.Posts))
	for _, post := range issue.Posts {
		parts = append(parts, flattenHTML(post.Description.Content))
	}
	description := strings.TrimSpace(strings.Join(parts, "\n\n"))
	description = strings.TrimPrefix(description, "Title: ")

	for _, keyword := range []string{
		"Current status:", "Scope of impact:", "Root cause:", "Next update by:",
		"Final status:", "Start time:", "End time:", "Next steps:", "User impact:",
	} {
		description = strings.ReplaceAll(description, keyword, "\n\n"+keyword)
	}
	return dedupeParagraphs(description)
}

func dedupeParagraphs(s string) string {
	seen := make(map[string]struct{})
	var kept []string
	for _, paragraph := range strings.Split(s, "\n\n") {
		paragraph = strings.TrimSpace(paragraph)
		if paragraph == "" {
			continue
		}
		if _, dup := seen[paragraph]; dup {
			continue
		}
		seen[paragraph] = struct{}{}
		kept = append(kept, paragraph)
	}
	return strings.Join(kept, "\n\n")
}

func (o *O365) accessToken(ctx context.Context) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.token != "" && time.Now().Before(o.tokenExpiry) {
		return o.token, nil
	}

	tokenURL := fmt.Sprintf("%s/%s/oauth2/v2.0/token", o.loginURL, o.tenantID)
	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {o.clientID},
		"client_secret": {o.clientSecret},
		"scope":         {"https://graph.microsoft.com/.default"},
	}
	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := o.client.PostForm(ctx, tokenURL, form, &payload); err != nil {
		return "", fmt.Errorf("acquire graph token: %w", err)
	}
	if payload.AccessToken == "" {
		return "", fmt.Errorf("acquire graph token: empty access_token")
	}

	o.token = payload.AccessToken
	o.tokenExpiry = time.Now().Add(time.Duration(payload.ExpiresIn-60) * time.Second)
	return o.token, nil
}

func (o *O365) Sample() []domain.NormalizedEvent {
	return []domain.NormalizedEvent{{
		Platform:        domain.PlatformO365,
		EventName:       "Test Issue: Service Degradation test-issue-1",
		Status:          "investigating",
		ImpactStartTime: "2024-09-10T12:00:00Z",
		Description:     "Initial analysis indicates an issue with mail flow.",
	}}
}
