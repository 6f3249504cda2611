package core

import (
	"context"

	"github.com/dkeye/talkabout/internal/domain"
)

// SlotDirectory is the read side of the external scheduling store.
// LookupSlot returns domain.ErrSlotNotFound for unknown slots.
type SlotDirectory interface {
	LookupSlot(ctx context.Context, slot domain.SlotID) (domain.Slot, error)
	// LookupAttendees returns enrollments in enrollment order.
	LookupAttendees(ctx context.Context, slot domain.SlotID) ([]domain.Attendee, error)
}

// AttendanceMarker is implemented by stores that accept attendance write-back.
type AttendanceMarker interface {
	MarkAttended(ctx context.Context, slot domain.SlotID, participants []domain.ParticipantID) error
}
