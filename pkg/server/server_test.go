package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/UndeadAbbi/Platform-Outage-Bot/pkg/checker"
	"github.com/UndeadAbbi/Platform-Outage-Bot/pkg/domain"
	"github.com/UndeadAbbi/Platform-Outage-Bot/pkg/metrics"
	"github.com/UndeadAbbi/Platform-Outage-Bot/pkg/notify"
	"github.com/UndeadAbbi/Platform-Outage-Bot/pkg/sources"
	"github.com/UndeadAbbi/Platform-Outage-Bot/pkg/store"
	"github.com/UndeadAbbi/Platform-Outage-Bot/pkg/tickets"
	"github.com/UndeadAbbi/Platform-Outage-Bot/pkg/tracker"
)

type stubSource struct {
	name     string
	platform domain.Platform
	events   []domain.NormalizedEvent
}

func (s *stubSource) Name() string              { return s.name }
func (s *stubSource) Platform() domain.Platform { return s.platform }

func (s *stubSource) Fetch(ctx context.Context) ([]domain.NormalizedEvent, error) {
	return s.events, nil
}

func (s *stubSource) Sample() []domain.NormalizedEvent { return s.events }

type fixture struct {
	server  *Server
	tracker *tracker.Tracker
	checker *checker.Checker
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	tr, err := tracker.New(store.NewMemory(zap.NewNop()), tracker.DefaultConfig(), zap.NewNop())
	require.NoError(t, err)

	src := &stubSource{
		name:     "github",
		platform: domain.PlatformGitHub,
		events: []domain.NormalizedEvent{{
			Platform:  domain.PlatformGitHub,
			EventName: "Actions Outage",
			Status:    "investigating",
		}},
	}
	c, err := checker.New(tr, notify.NewLog(zap.NewNop()), []sources.Source{src}, metrics.New(), zap.NewNop())
	require.NoError(t, err)

	s, err := New(DefaultConfig(), c, tr, metrics.New(), zap.NewNop(), opts...)
	require.NoError(t, err)
	return &fixture{server: s, tracker: tr, checker: c}
}

func postForm(t *testing.T, h http.Handler, path, text string) (*httptest.ResponseRecorder, slashResponse) {
	t.Helper()
	form := url.Values{}
	if text != "" {
		form.Set("text", text)
	}
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var body slashResponse
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestHealthEndpoint(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestHealthEndpointUnhealthyStore(t *testing.T) {
	f := newFixture(t, WithHealthCheck(func(ctx context.Context) error {
		return errors.New("connection refused")
	}))
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "connection refused")
}

func TestBotStatus(t *testing.T) {
	f := newFixture(t)
	rec, body := postForm(t, f.server.Handler(), "/slack/bot-status", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "in_channel", body.ResponseType)
	assert.Contains(t, body.Text, "Mode: live")
}

func TestTestModeToggle(t *testing.T) {
	f := newFixture(t)
	h := f.server.Handler()

	rec, body := postForm(t, h, "/slack/test-mode-on", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Test mode is now ON", body.Text)
	assert.True(t, f.checker.DryRun())

	_, body = postForm(t, h, "/slack/test-mode-off", "")
	assert.Equal(t, "Test mode is now OFF", body.Text)
	assert.False(t, f.checker.DryRun())
}

func TestManualCheck(t *testing.T) {
	f := newFixture(t)
	h := f.server.Handler()

	rec, body := postForm(t, h, "/slack/manual-check", "github")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, body.Text, "Manual check for github")

	// The cycle must have tracked the stubbed incident.
	events, err := f.tracker.ListTrackedEvents(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "0001", events[0].InternalID)
}

func TestManualCheckInvalidPlatform(t *testing.T) {
	f := newFixture(t)
	rec, body := postForm(t, f.server.Handler(), "/slack/manual-check", "dropbox")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "ephemeral", body.ResponseType)
	assert.Contains(t, body.Text, "Invalid platform")
}

func TestForceResolve(t *testing.T) {
	f := newFixture(t)
	h := f.server.Handler()

	_, _ = postForm(t, h, "/slack/manual-check", "github")

	rec, body := postForm(t, h, "/slack/force-resolve", "0001")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, body.Text, "0001 has been forcefully resolved")

	events, err := f.tracker.ListTrackedEvents(context.Background())
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestForceResolveUnknownID(t *testing.T) {
	f := newFixture(t)
	rec, body := postForm(t, f.server.Handler(), "/slack/force-resolve", "9999")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, body.Text, "No tracked event")
}

func TestListEvents(t *testing.T) {
	f := newFixture(t)
	h := f.server.Handler()

	rec, body := postForm(t, h, "/slack/list-events", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, body.Text, "No events")

	_, _ = postForm(t, h, "/slack/manual-check", "github")
	_, body = postForm(t, h, "/slack/list-events", "")
	assert.Contains(t, body.Text, "- 0001: Actions Outage (Github)")
}

func TestCreateTicketNotConfigured(t *testing.T) {
	f := newFixture(t)
	rec, body := postForm(t, f.server.Handler(), "/slack/create-ticket", "0001")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, body.Text, "not configured")
}

func TestCreateTicketFlow(t *testing.T) {
	ado := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"id": 77})
	}))
	defer ado.Close()

	f := newFixture(t)
	client, err := tickets.NewClient(tickets.ClientConfig{
		OrgURL:    ado.URL,
		Project:   "Platform",
		PATBase64: "cGF0LXRva2Vu",
	}, zap.NewNop())
	require.NoError(t, err)
	svc, err := tickets.NewService(client, tickets.NewMemoryStore(), f.tracker, zap.NewNop())
	require.NoError(t, err)
	WithTickets(svc)(f.server)

	h := f.server.Handler()
	_, _ = postForm(t, h, "/slack/manual-check", "github")

	rec, body := postForm(t, h, "/slack/create-ticket", "0001")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, body.Text, "Ticket created for event ID 0001: 77")

	// Same id again reports the duplicate instead of filing another item.
	rec, body = postForm(t, h, "/slack/create-ticket", "0001")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ephemeral", body.ResponseType)
	assert.Contains(t, body.Text, "already been created")

	// The force token files another work item.
	rec, body = postForm(t, h, "/slack/create-ticket", "0001 force")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "in_channel", body.ResponseType)
	assert.Contains(t, body.Text, "Ticket created for event ID 0001")
}

// wireTickets attaches a ticket service backed by a counting fake ADO server.
func wireTickets(t *testing.T, f *fixture, hits *int) func() {
	t.Helper()
	ado := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*hits++
		json.NewEncoder(w).Encode(map[string]any{"id": 100 + *hits})
	}))

	client, err := tickets.NewClient(tickets.ClientConfig{
		OrgURL:    ado.URL,
		Project:   "Platform",
		PATBase64: "cGF0LXRva2Vu",
	}, zap.NewNop())
	require.NoError(t, err)
	svc, err := tickets.NewService(client, tickets.NewMemoryStore(), f.tracker, zap.NewNop())
	require.NoError(t, err)
	WithTickets(svc)(f.server)
	return ado.Close
}

func postInteraction(t *testing.T, h http.Handler, actionID, value, userID string) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(map[string]any{
		"user": map[string]string{"id": userID},
		"actions": []map[string]string{
			{"action_id": actionID, "value": value},
		},
	})
	require.NoError(t, err)

	form := url.Values{"payload": {string(payload)}}
	req := httptest.NewRequest(http.MethodPost, "/slack/interactive", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestInteractiveCreateTicketButton(t *testing.T) {
	f := newFixture(t)
	hits := 0
	defer wireTickets(t, f, &hits)()

	h := f.server.Handler()
	_, _ = postForm(t, h, "/slack/manual-check", "github")

	rec := postInteraction(t, h, "create_ticket", "0001", "U123")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "successfully created by <@U123> for event (ID: 0001)")
	assert.Equal(t, 1, hits)
}

func TestInteractiveDuplicateConfirmFlow(t *testing.T) {
	f := newFixture(t)
	hits := 0
	defer wireTickets(t, f, &hits)()

	h := f.server.Handler()
	_, _ = postForm(t, h, "/slack/manual-check", "github")

	rec := postInteraction(t, h, "create_ticket", "0001", "U123")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, hits)

	// Second click prompts for confirmation instead of filing another item.
	rec = postInteraction(t, h, "create_ticket", "0001", "U123")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "already been created for this event (ID: 0001)")
	assert.Contains(t, rec.Body.String(), "confirm_create_ticket")
	assert.Contains(t, rec.Body.String(), "cancel_create_ticket")
	assert.Equal(t, 1, hits)

	// Cancel files nothing.
	rec = postInteraction(t, h, "cancel_create_ticket", "0001", "U123")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "cancelled")
	assert.Equal(t, 1, hits)

	// Confirm files the second work item.
	rec = postInteraction(t, h, "confirm_create_ticket", "0001", "U123")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "successfully created by <@U123>")
	assert.Equal(t, 2, hits)
}

func TestInteractiveUnknownEvent(t *testing.T) {
	f := newFixture(t)
	hits := 0
	defer wireTickets(t, f, &hits)()

	rec := postInteraction(t, f.server.Handler(), "create_ticket", "9999", "U123")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, 0, hits)
}

func TestInteractiveMalformedPayload(t *testing.T) {
	f := newFixture(t)
	hits := 0
	defer wireTickets(t, f, &hits)()
	h := f.server.Handler()

	rec, body := postForm(t, h, "/slack/interactive", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, body.Text, "Missing interaction payload")

	form := url.Values{"payload": {"{not json"}}
	req := httptest.NewRequest(http.MethodPost, "/slack/interactive", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec2 := httptest.NewRecorder()
	h.ServeHTTP(rec2, req)
	assert.Equal(t, http.StatusBadRequest, rec2.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
