package memory

import (
	"context"
	"testing"

	"github.com/dkeye/talkabout/internal/domain"
	"github.com/dkeye/talkabout/internal/store/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown slot", func(t *testing.T) {
		s := New()
		_, err := s.LookupSlot(ctx, "nope")
		assert.ErrorIs(t, err, domain.ErrSlotNotFound)
		_, err = s.LookupAttendees(ctx, "nope")
		assert.ErrorIs(t, err, domain.ErrSlotNotFound)
		assert.ErrorIs(t, s.Enroll("nope", "a"), domain.ErrSlotNotFound)
	})

	t.Run("enrollment order and dedup", func(t *testing.T) {
		s := New()
		s.PutSlot("1", 4)
		require.NoError(t, s.Enroll("1", "b", "a"))
		require.NoError(t, s.Enroll("1", "a", "c"))

		slot, err := s.LookupSlot(ctx, "1")
		require.NoError(t, err)
		assert.Equal(t, domain.Slot{ID: "1", Capacity: 4}, slot)

		got, err := s.LookupAttendees(ctx, "1")
		require.NoError(t, err)
		assert.Equal(t, []domain.Attendee{{Participant: "b"}, {Participant: "a"}, {Participant: "c"}}, got)
	})

	t.Run("mark attended", func(t *testing.T) {
		s := New()
		s.PutSlot("1", 2)
		require.NoError(t, s.Enroll("1", "a", "b"))
		require.NoError(t, s.MarkAttended(ctx, "1", []domain.ParticipantID{"b", "zzz"}))

		got, err := s.LookupAttendees(ctx, "1")
		require.NoError(t, err)
		assert.Equal(t, []domain.Attendee{{Participant: "a"}, {Participant: "b", Present: true}}, got)
	})

	t.Run("delete slot", func(t *testing.T) {
		s := New()
		s.PutSlot("1", 2)
		s.DeleteSlot("1")
		_, err := s.LookupSlot(ctx, "1")
		assert.ErrorIs(t, err, domain.ErrSlotNotFound)
	})
}

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) storetest.Store { return New() })
}
