package domain

import (
	"errors"
	"fmt"
)

type SlotID string

// Slot is the part of a time slot the orchestrator reads at launch.
type Slot struct {
	ID       SlotID
	Capacity int
}

// Attendee is an enrollment row as seen by the orchestrator.
type Attendee struct {
	Participant ParticipantID
	Present     bool
}

var ErrSlotNotFound = errors.New("slot not found")

// LookupError reports a failed slot or attendee lookup.
type LookupError struct {
	Slot SlotID
	Err  error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("lookup slot %s: %v", e.Slot, e.Err)
}

func (e *LookupError) Unwrap() error { return e.Err }

// SlotSeed preloads a store with one slot and its enrollments.
type SlotSeed struct {
	Slot     SlotID
	Capacity int
	Enrolled []ParticipantID
}
