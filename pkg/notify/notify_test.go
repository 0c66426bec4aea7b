package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/UndeadAbbi/Platform-Outage-Bot/pkg/domain"
	"github.com/UndeadAbbi/Platform-Outage-Bot/pkg/metrics"
)

func incident() domain.TrackedEvent {
	return domain.TrackedEvent{
		InternalID:      "0013",
		Platform:        domain.PlatformSlack,
		EventName:       "Test Slack Incident",
		Status:          "active",
		ImpactStartTime: "2024-09-10T12:00:00Z",
		Description:     "We are currently investigating an issue with Slack.",
	}
}

func TestFormatMessage(t *testing.T) {
	msg := FormatMessage(incident())
	assert.Contains(t, msg, "*Platform:* Slack")
	assert.Contains(t, msg, "*Event Name:* Test Slack Incident")
	assert.Contains(t, msg, "*Internal ID:* 0013")
	// No link configured, so no link line.
	assert.NotContains(t, msg, "*Link:*")
}

func TestSlackNotifyNewPostsBlocksWithTicketButton(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer xoxb-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	t.Cleanup(srv.Close)

	s, err := NewSlack(SlackConfig{Token: "xoxb-test", Channel: "#outages"}, zap.NewNop())
	require.NoError(t, err)
	s.apiURL = srv.URL

	require.NoError(t, s.NotifyNew(context.Background(), incident()))
	assert.Equal(t, "#outages", got["channel"])

	blocks, ok := got["blocks"].([]any)
	require.True(t, ok)
	require.Len(t, blocks, 2)
	actions := blocks[1].(map[string]any)
	assert.Equal(t, "actions", actions["type"])
	button := actions["elements"].([]any)[0].(map[string]any)
	assert.Equal(t, "0013", button["value"])
	assert.Equal(t, "create_ticket", button["action_id"])
}

func TestSlackSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":false,"error":"channel_not_found"}`))
	}))
	t.Cleanup(srv.Close)

	s, err := NewSlack(SlackConfig{Token: "xoxb-test", Channel: "#missing"}, zap.NewNop())
	require.NoError(t, err)
	s.apiURL = srv.URL

	err = s.NotifyResolved(context.Background(), incident())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "channel_not_found")
}

func TestNewSlackValidatesConfig(t *testing.T) {
	_, err := NewSlack(SlackConfig{Channel: "#outages"}, zap.NewNop())
	assert.Error(t, err)
	_, err = NewSlack(SlackConfig{Token: "xoxb"}, zap.NewNop())
	assert.Error(t, err)
}

type recordingSink struct {
	name     string
	fail     bool
	newCount int
	resCount int
}

func (r *recordingSink) Name() string { return r.name }

func (r *recordingSink) NotifyNew(ctx context.Context, event domain.TrackedEvent) error {
	if r.fail {
		return errors.New("sink down")
	}
	r.newCount++
	return nil
}

func (r *recordingSink) NotifyResolved(ctx context.Context, event domain.TrackedEvent) error {
	if r.fail {
		return errors.New("sink down")
	}
	r.resCount++
	return nil
}

func TestFanoutContinuesPastFailingSink(t *testing.T) {
	bad := &recordingSink{name: "bad", fail: true}
	good := &recordingSink{name: "good"}
	f := NewFanout([]Notifier{bad, good}, metrics.New(), zap.NewNop())

	err := f.NotifyNew(context.Background(), incident())
	assert.Error(t, err, "first failure is surfaced")
	assert.Equal(t, 1, good.newCount, "healthy sink still delivers")

	err = f.NotifyResolved(context.Background(), incident())
	assert.Error(t, err)
	assert.Equal(t, 1, good.resCount)
}
