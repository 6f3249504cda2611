package badger

import (
	"context"
	"testing"

	"github.com/dkeye/talkabout/internal/domain"
	"github.com/dkeye/talkabout/internal/store/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) storetest.Store { return openTemp(t) })
}

func TestDeleteSlot(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)
	require.NoError(t, s.Seed(ctx, domain.SlotSeed{Slot: "1", Capacity: 2, Enrolled: []domain.ParticipantID{"a"}}))

	require.NoError(t, s.DeleteSlot("1"))
	_, err := s.LookupSlot(ctx, "1")
	assert.ErrorIs(t, err, domain.ErrSlotNotFound)

	require.NoError(t, s.PutSlot("1", 2))
	got, err := s.LookupAttendees(ctx, "1")
	require.NoError(t, err)
	assert.Empty(t, got, "enrollments went with the slot")
}
