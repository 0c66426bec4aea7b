package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/UndeadAbbi/Platform-Outage-Bot/pkg/domain"
)

// These tests need a running Postgres; point OUTAGEBOT_TEST_POSTGRES_DSN at
// one to enable them.
func testStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("OUTAGEBOT_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("OUTAGEBOT_TEST_POSTGRES_DSN not set")
	}
	s, err := Connect(context.Background(), dsn, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = s.pool.Exec(context.Background(), "TRUNCATE tracked_events, event_tickets")
		s.Close()
	})
	_, err = s.pool.Exec(context.Background(), "TRUNCATE tracked_events, event_tickets")
	require.NoError(t, err)
	return s
}

func sample(id, name string, state domain.ResolutionState) domain.TrackedEvent {
	return domain.TrackedEvent{
		InternalID: id,
		Platform:   domain.PlatformGitHub,
		EventName:  name,
		Status:     "investigating",
		State:      state,
		FirstSeen:  time.Now().UTC().Truncate(time.Microsecond),
	}
}

func TestPostgresRoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	want := sample("0001", "Actions Outage", domain.StateActive)
	require.NoError(t, s.Put(ctx, want))

	got, err := s.Get(ctx, "0001")
	require.NoError(t, err)
	assert.Equal(t, want.EventName, got.EventName)
	assert.Equal(t, want.State, got.State)

	_, err = s.Get(ctx, "0099")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPostgresPutUpdatesLifecycleFields(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	record := sample("0001", "Actions Outage", domain.StateActive)
	require.NoError(t, s.Put(ctx, record))

	now := time.Now().UTC().Truncate(time.Microsecond)
	record.State = domain.StateResolved
	record.ResolvedAt = &now
	require.NoError(t, s.Put(ctx, record))

	got, err := s.Get(ctx, "0001")
	require.NoError(t, err)
	assert.Equal(t, domain.StateResolved, got.State)
	require.NotNil(t, got.ResolvedAt)

	active, err := s.ListActive(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestPostgresFindActiveByKeyAndMaxID(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	for i, name := range []string{"A", "B", "C"} {
		require.NoError(t, s.Put(ctx, sample(fmt.Sprintf("%04d", i+1), name, domain.StateActive)))
	}

	found, err := s.FindActiveByKey(ctx, domain.EventKey{Platform: domain.PlatformGitHub, EventName: "B"})
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "0002", found.InternalID)

	found, err = s.FindActiveByKey(ctx, domain.EventKey{Platform: domain.PlatformSlack, EventName: "B"})
	require.NoError(t, err)
	assert.Nil(t, found)

	max, err := s.MaxID(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, max)
}
