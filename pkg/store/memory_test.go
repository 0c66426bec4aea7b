package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/UndeadAbbi/Platform-Outage-Bot/pkg/domain"
)

func record(id, name string, state domain.ResolutionState) domain.TrackedEvent {
	return domain.TrackedEvent{
		InternalID: id,
		Platform:   domain.PlatformGitHub,
		EventName:  name,
		Status:     "investigating",
		State:      state,
		FirstSeen:  time.Now().UTC(),
	}
}

func TestMemoryGetMiss(t *testing.T) {
	m := NewMemory(zap.NewNop())
	_, err := m.Get(context.Background(), "0001")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMemoryPutOverwrites(t *testing.T) {
	m := NewMemory(zap.NewNop())
	ctx := context.Background()

	require.NoError(t, m.Put(ctx, record("0001", "Outage", domain.StateActive)))
	updated := record("0001", "Outage", domain.StateResolved)
	require.NoError(t, m.Put(ctx, updated))

	got, err := m.Get(ctx, "0001")
	require.NoError(t, err)
	assert.Equal(t, domain.StateResolved, got.State)

	active, err := m.ListActive(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestMemoryFindActiveByKey(t *testing.T) {
	m := NewMemory(zap.NewNop())
	ctx := context.Background()

	require.NoError(t, m.Put(ctx, record("0001", "Outage A", domain.StateActive)))
	require.NoError(t, m.Put(ctx, record("0002", "Outage B", domain.StateResolved)))

	found, err := m.FindActiveByKey(ctx, domain.EventKey{Platform: domain.PlatformGitHub, EventName: "Outage A"})
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "0001", found.InternalID)

	// Resolved records never match.
	found, err = m.FindActiveByKey(ctx, domain.EventKey{Platform: domain.PlatformGitHub, EventName: "Outage B"})
	require.NoError(t, err)
	assert.Nil(t, found)

	found, err = m.FindActiveByKey(ctx, domain.EventKey{Platform: domain.PlatformSlack, EventName: "Outage A"})
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestMemoryFindActiveByKeyPicksEarliestDuplicate(t *testing.T) {
	m := NewMemory(zap.NewNop())
	ctx := context.Background()

	// Simulate a prior bug: two active records with the same dedup key.
	require.NoError(t, m.Put(ctx, record("0002", "Outage", domain.StateActive)))
	require.NoError(t, m.Put(ctx, record("0001", "Outage", domain.StateActive)))

	found, err := m.FindActiveByKey(ctx, domain.EventKey{Platform: domain.PlatformGitHub, EventName: "Outage"})
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "0001", found.InternalID)
}

func TestMemoryFindActiveByKeyEarliestIsNumeric(t *testing.T) {
	m := NewMemory(zap.NewNop())
	ctx := context.Background()

	// Past the %04d pad, "10000" compares lower than "9999" as a string;
	// the earliest pick must go by numeric value.
	require.NoError(t, m.Put(ctx, record("10000", "Outage", domain.StateActive)))
	require.NoError(t, m.Put(ctx, record("9999", "Outage", domain.StateActive)))

	found, err := m.FindActiveByKey(ctx, domain.EventKey{Platform: domain.PlatformGitHub, EventName: "Outage"})
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "9999", found.InternalID)
}

func TestMemoryListActiveKeepsInsertionOrder(t *testing.T) {
	m := NewMemory(zap.NewNop())
	ctx := context.Background()

	require.NoError(t, m.Put(ctx, record("0001", "A", domain.StateActive)))
	require.NoError(t, m.Put(ctx, record("0002", "B", domain.StateActive)))
	require.NoError(t, m.Put(ctx, record("0003", "C", domain.StateActive)))

	active, err := m.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 3)
	assert.Equal(t, []string{"0001", "0002", "0003"}, []string{
		active[0].InternalID, active[1].InternalID, active[2].InternalID,
	})
}

func TestMemoryMaxID(t *testing.T) {
	m := NewMemory(zap.NewNop())
	ctx := context.Background()

	max, err := m.MaxID(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, max)

	require.NoError(t, m.Put(ctx, record("0003", "A", domain.StateActive)))
	require.NoError(t, m.Put(ctx, record("0010", "B", domain.StateResolved)))

	max, err = m.MaxID(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, max, "resolved records still count for id continuity")
}
