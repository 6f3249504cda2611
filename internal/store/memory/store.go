// Package memory is an in-process slot directory, used for development and tests.
package memory

import (
	"context"
	"sync"

	"github.com/dkeye/talkabout/internal/core"
	"github.com/dkeye/talkabout/internal/domain"
)

var (
	_ core.SlotDirectory    = (*Store)(nil)
	_ core.AttendanceMarker = (*Store)(nil)
)

type slotRecord struct {
	capacity    int
	enrollments []domain.Attendee
}

type Store struct {
	mu    sync.RWMutex
	slots map[domain.SlotID]*slotRecord
}

func New() *Store {
	return &Store{slots: make(map[domain.SlotID]*slotRecord)}
}

// PutSlot creates or updates a slot with the capacity of its activity.
func (s *Store) PutSlot(slot domain.SlotID, capacity int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.slots[slot]; ok {
		rec.capacity = capacity
		return
	}
	s.slots[slot] = &slotRecord{capacity: capacity}
}

func (s *Store) DeleteSlot(slot domain.SlotID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.slots, slot)
}

// Enroll appends participants to a slot; already enrolled ones are skipped.
func (s *Store) Enroll(slot domain.SlotID, participants ...domain.ParticipantID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.slots[slot]
	if !ok {
		return domain.ErrSlotNotFound
	}
	for _, p := range participants {
		if indexOf(rec.enrollments, p) >= 0 {
			continue
		}
		rec.enrollments = append(rec.enrollments, domain.Attendee{Participant: p})
	}
	return nil
}

func (s *Store) LookupSlot(_ context.Context, slot domain.SlotID) (domain.Slot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.slots[slot]
	if !ok {
		return domain.Slot{}, domain.ErrSlotNotFound
	}
	return domain.Slot{ID: slot, Capacity: rec.capacity}, nil
}

func (s *Store) LookupAttendees(_ context.Context, slot domain.SlotID) ([]domain.Attendee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.slots[slot]
	if !ok {
		return nil, domain.ErrSlotNotFound
	}
	out := make([]domain.Attendee, len(rec.enrollments))
	copy(out, rec.enrollments)
	return out, nil
}

func (s *Store) MarkAttended(_ context.Context, slot domain.SlotID, participants []domain.ParticipantID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.slots[slot]
	if !ok {
		return domain.ErrSlotNotFound
	}
	for _, p := range participants {
		if i := indexOf(rec.enrollments, p); i >= 0 {
			rec.enrollments[i].Present = true
		}
	}
	return nil
}

// Seed loads slots in order; enrollments append to existing ones.
func (s *Store) Seed(_ context.Context, seeds ...domain.SlotSeed) error {
	for _, seed := range seeds {
		s.PutSlot(seed.Slot, seed.Capacity)
		if err := s.Enroll(seed.Slot, seed.Enrolled...); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Close() error { return nil }

func indexOf(as []domain.Attendee, p domain.ParticipantID) int {
	for i, a := range as {
		if a.Participant == p {
			return i
		}
	}
	return -1
}
