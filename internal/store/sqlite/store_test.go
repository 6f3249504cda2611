package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/dkeye/talkabout/internal/domain"
	"github.com/dkeye/talkabout/internal/store/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "db", "slots.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) storetest.Store { return openTemp(t) })
}

func TestActivityCapacityIsReadAtLookup(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)

	start := time.Date(2026, 10, 15, 18, 0, 0, 0, time.UTC)
	require.NoError(t, s.PutActivity(ctx, "yoga", "Yoga", 4))
	require.NoError(t, s.PutSlot(ctx, "7", "yoga", start, start.Add(time.Hour)))
	require.NoError(t, s.PutActivity(ctx, "yoga", "Yoga", 6))

	slot, err := s.LookupSlot(ctx, "7")
	require.NoError(t, err)
	assert.Equal(t, 6, slot.Capacity)
}

func TestDeleteSlotDropsEnrollments(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)
	require.NoError(t, s.Seed(ctx, domain.SlotSeed{Slot: "1", Capacity: 2, Enrolled: []domain.ParticipantID{"a"}}))

	require.NoError(t, s.DeleteSlot(ctx, "1"))
	_, err := s.LookupSlot(ctx, "1")
	assert.ErrorIs(t, err, domain.ErrSlotNotFound)
	assert.ErrorIs(t, s.Enroll(ctx, "1", "b"), domain.ErrSlotNotFound)

	var n int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM enrollments`).Scan(&n))
	assert.Zero(t, n)
}

func TestReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "slots.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Seed(ctx, domain.SlotSeed{Slot: "1", Capacity: 3, Enrolled: []domain.ParticipantID{"a"}}))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.LookupAttendees(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, []domain.Attendee{{Participant: "a"}}, got)
}
