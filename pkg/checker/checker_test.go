package checker

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/UndeadAbbi/Platform-Outage-Bot/pkg/domain"
	"github.com/UndeadAbbi/Platform-Outage-Bot/pkg/metrics"
	"github.com/UndeadAbbi/Platform-Outage-Bot/pkg/sources"
	"github.com/UndeadAbbi/Platform-Outage-Bot/pkg/store"
	"github.com/UndeadAbbi/Platform-Outage-Bot/pkg/tracker"
)

type fakeSource struct {
	name     string
	platform domain.Platform
	events   []domain.NormalizedEvent
	err      error
}

func (f *fakeSource) Name() string              { return f.name }
func (f *fakeSource) Platform() domain.Platform { return f.platform }

func (f *fakeSource) Fetch(ctx context.Context) ([]domain.NormalizedEvent, error) {
	return f.events, f.err
}

func (f *fakeSource) Sample() []domain.NormalizedEvent {
	return []domain.NormalizedEvent{{
		Platform:  f.platform,
		EventName: "Sample Incident",
		Status:    "investigating",
	}}
}

type capturingNotifier struct {
	mu       sync.Mutex
	newIDs   []string
	resolved []string
}

func (c *capturingNotifier) Name() string { return "capture" }

func (c *capturingNotifier) NotifyNew(ctx context.Context, event domain.TrackedEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.newIDs = append(c.newIDs, event.InternalID)
	return nil
}

func (c *capturingNotifier) NotifyResolved(ctx context.Context, event domain.TrackedEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resolved = append(c.resolved, event.InternalID)
	return nil
}

func event(platform domain.Platform, name string) domain.NormalizedEvent {
	return domain.NormalizedEvent{Platform: platform, EventName: name, Status: "investigating"}
}

func setup(t *testing.T, srcs ...*fakeSource) (*Checker, *capturingNotifier, *tracker.Tracker) {
	t.Helper()
	tr, err := tracker.New(store.NewMemory(zap.NewNop()), tracker.DefaultConfig(), zap.NewNop())
	require.NoError(t, err)

	notifier := &capturingNotifier{}
	built := make([]sources.Source, 0, len(srcs))
	for _, s := range srcs {
		built = append(built, s)
	}
	c, err := New(tr, notifier, built, metrics.New(), zap.NewNop())
	require.NoError(t, err)
	return c, notifier, tr
}

func TestCheckNotifiesOnlyNewEvents(t *testing.T) {
	src := &fakeSource{
		name:     "github",
		platform: domain.PlatformGitHub,
		events:   []domain.NormalizedEvent{event(domain.PlatformGitHub, "Actions Outage")},
	}
	c, notifier, _ := setup(t, src)
	ctx := context.Background()

	require.NoError(t, c.Check(ctx, "github"))
	require.Len(t, notifier.newIDs, 1)
	assert.Equal(t, "0001", notifier.newIDs[0])

	// Second cycle with the same feed: incident is known, no renotification.
	require.NoError(t, c.Check(ctx, "github"))
	assert.Len(t, notifier.newIDs, 1)
	assert.Empty(t, notifier.resolved)
}

func TestCheckReconcilesDisappearedEvents(t *testing.T) {
	src := &fakeSource{
		name:     "github",
		platform: domain.PlatformGitHub,
		events: []domain.NormalizedEvent{
			event(domain.PlatformGitHub, "A"),
			event(domain.PlatformGitHub, "B"),
		},
	}
	c, notifier, tr := setup(t, src)
	ctx := context.Background()

	require.NoError(t, c.Check(ctx, "github"))
	require.Len(t, notifier.newIDs, 2)

	// B disappears from the feed.
	src.events = src.events[:1]
	require.NoError(t, c.Check(ctx, "github"))
	require.Len(t, notifier.resolved, 1)

	active, err := tr.ListTrackedEvents(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "A", active[0].EventName)
}

func TestCheckFetchFailureSkipsReconcile(t *testing.T) {
	src := &fakeSource{
		name:     "github",
		platform: domain.PlatformGitHub,
		events:   []domain.NormalizedEvent{event(domain.PlatformGitHub, "A")},
	}
	c, notifier, tr := setup(t, src)
	ctx := context.Background()

	require.NoError(t, c.Check(ctx, "github"))

	src.err = errors.New("upstream timeout")
	err := c.Check(ctx, "github")
	require.Error(t, err)

	// The tracked incident must survive the failed cycle.
	active, listErr := tr.ListTrackedEvents(ctx)
	require.NoError(t, listErr)
	assert.Len(t, active, 1)
	assert.Empty(t, notifier.resolved)
}

func TestCheckDryRunUsesSamples(t *testing.T) {
	src := &fakeSource{
		name:     "github",
		platform: domain.PlatformGitHub,
		err:      errors.New("must not be called"),
	}
	c, notifier, _ := setup(t, src)
	c.SetDryRun(true)
	require.True(t, c.DryRun())

	require.NoError(t, c.Check(context.Background(), "github"))
	require.Len(t, notifier.newIDs, 1)
}

func TestDryRunLeavesLiveIncidentsUntouched(t *testing.T) {
	src := &fakeSource{
		name:     "github",
		platform: domain.PlatformGitHub,
		events:   []domain.NormalizedEvent{event(domain.PlatformGitHub, "Live Actions Outage")},
	}
	c, notifier, tr := setup(t, src)
	ctx := context.Background()

	// Track a live incident, then flip test mode on and run a cycle.
	require.NoError(t, c.Check(ctx, "github"))
	require.Len(t, notifier.newIDs, 1)

	c.SetDryRun(true)
	require.NoError(t, c.Check(ctx, "github"))

	// The sample key set must not reconcile away the live incident, and
	// the sample incident must not land in the live store.
	assert.Empty(t, notifier.resolved)
	active, err := tr.ListTrackedEvents(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "Live Actions Outage", active[0].EventName)

	// Back to live: the unchanged feed neither renotifies nor resolves.
	c.SetDryRun(false)
	require.NoError(t, c.Check(ctx, "github"))
	assert.Len(t, notifier.newIDs, 2) // one live, one sample
	assert.Empty(t, notifier.resolved)
}

func TestDryRunSandboxResetsOnEnable(t *testing.T) {
	src := &fakeSource{name: "github", platform: domain.PlatformGitHub}
	c, notifier, _ := setup(t, src)
	ctx := context.Background()

	c.SetDryRun(true)
	require.NoError(t, c.Check(ctx, "github"))
	require.NoError(t, c.Check(ctx, "github"))
	assert.Len(t, notifier.newIDs, 1)

	// Re-enabling starts from an empty sandbox, so the sample is new again.
	c.SetDryRun(false)
	c.SetDryRun(true)
	require.NoError(t, c.Check(ctx, "github"))
	assert.Len(t, notifier.newIDs, 2)
}

func TestCheckUnknownSource(t *testing.T) {
	c, _, _ := setup(t)
	err := c.Check(context.Background(), "bogus")
	assert.ErrorIs(t, err, ErrUnknownSource)
}
