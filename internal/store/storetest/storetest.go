// Package storetest holds the behaviour every slot directory must share.
package storetest

import (
	"context"
	"testing"

	"github.com/dkeye/talkabout/internal/core"
	"github.com/dkeye/talkabout/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Store interface {
	core.SlotDirectory
	core.AttendanceMarker
	Seed(ctx context.Context, seeds ...domain.SlotSeed) error
}

// Run checks a fresh store returned by open against the directory contract.
func Run(t *testing.T, open func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("unknown slot", func(t *testing.T) {
		s := open(t)
		_, err := s.LookupSlot(ctx, "missing")
		assert.ErrorIs(t, err, domain.ErrSlotNotFound)
		_, err = s.LookupAttendees(ctx, "missing")
		assert.ErrorIs(t, err, domain.ErrSlotNotFound)
		assert.ErrorIs(t, s.MarkAttended(ctx, "missing", []domain.ParticipantID{"a"}), domain.ErrSlotNotFound)
	})

	t.Run("seed and lookup", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Seed(ctx,
			domain.SlotSeed{Slot: "10", Capacity: 4, Enrolled: []domain.ParticipantID{"carol", "alice"}},
			domain.SlotSeed{Slot: "11", Capacity: 2},
		))

		slot, err := s.LookupSlot(ctx, "10")
		require.NoError(t, err)
		assert.Equal(t, domain.Slot{ID: "10", Capacity: 4}, slot)

		got, err := s.LookupAttendees(ctx, "10")
		require.NoError(t, err)
		assert.Equal(t, []domain.Attendee{{Participant: "carol"}, {Participant: "alice"}}, got, "enrollment order")

		got, err = s.LookupAttendees(ctx, "11")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("reseed keeps order and dedups", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Seed(ctx, domain.SlotSeed{Slot: "1", Capacity: 3, Enrolled: []domain.ParticipantID{"b", "a"}}))
		require.NoError(t, s.Seed(ctx, domain.SlotSeed{Slot: "1", Capacity: 5, Enrolled: []domain.ParticipantID{"a", "c"}}))

		slot, err := s.LookupSlot(ctx, "1")
		require.NoError(t, err)
		assert.Equal(t, 5, slot.Capacity)

		got, err := s.LookupAttendees(ctx, "1")
		require.NoError(t, err)
		assert.Equal(t, []domain.Attendee{{Participant: "b"}, {Participant: "a"}, {Participant: "c"}}, got)
	})

	t.Run("mark attended", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Seed(ctx, domain.SlotSeed{Slot: "1", Capacity: 2, Enrolled: []domain.ParticipantID{"a", "b"}}))
		require.NoError(t, s.MarkAttended(ctx, "1", []domain.ParticipantID{"b", "stranger"}))

		got, err := s.LookupAttendees(ctx, "1")
		require.NoError(t, err)
		assert.Equal(t, []domain.Attendee{{Participant: "a"}, {Participant: "b", Present: true}}, got)
	})
}
