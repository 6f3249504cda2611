// Package badger keeps slots and enrollments as JSON values in a BadgerDB directory.
package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/dgraph-io/badger/v3"
	"github.com/dkeye/talkabout/internal/domain"
	"github.com/rs/zerolog/log"
)

type slotValue struct {
	Capacity int `json:"capacity"`
}

type enrollment struct {
	Participant domain.ParticipantID `json:"participant"`
	Attended    bool                 `json:"attended"`
}

func slotKey(slot domain.SlotID) []byte   { return []byte("slot/" + string(slot)) }
func enrollKey(slot domain.SlotID) []byte { return []byte("enroll/" + string(slot)) }

type Store struct {
	db *badger.DB
}

func Open(dataDir string) (*Store, error) {
	absPath, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}
	opts := badger.DefaultOptions(absPath)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB: %w", err)
	}
	log.Info().Str("module", "store.badger").Str("path", absPath).Msg("BadgerDB opened")
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) PutSlot(slot domain.SlotID, capacity int) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return setJSON(txn, slotKey(slot), slotValue{Capacity: capacity})
	})
}

// DeleteSlot removes the slot and its enrollments.
func (s *Store) DeleteSlot(slot domain.SlotID) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete(slotKey(slot)); err != nil {
			return err
		}
		return txn.Delete(enrollKey(slot))
	})
}

// Enroll appends participants to slot; already enrolled ones keep their place.
func (s *Store) Enroll(slot domain.SlotID, participants ...domain.ParticipantID) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if err := requireSlot(txn, slot); err != nil {
			return err
		}
		list, err := readEnrollments(txn, slot)
		if err != nil {
			return err
		}
		for _, p := range participants {
			if indexOf(list, p) < 0 {
				list = append(list, enrollment{Participant: p})
			}
		}
		return setJSON(txn, enrollKey(slot), list)
	})
}

func (s *Store) Seed(_ context.Context, seeds ...domain.SlotSeed) error {
	for _, seed := range seeds {
		if err := s.PutSlot(seed.Slot, seed.Capacity); err != nil {
			return fmt.Errorf("seed slot %s: %w", seed.Slot, err)
		}
		if err := s.Enroll(seed.Slot, seed.Enrolled...); err != nil {
			return fmt.Errorf("seed enrollments %s: %w", seed.Slot, err)
		}
	}
	return nil
}

func (s *Store) LookupSlot(_ context.Context, slot domain.SlotID) (domain.Slot, error) {
	var v slotValue
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, slotKey(slot), &v)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return domain.Slot{}, domain.ErrSlotNotFound
	}
	if err != nil {
		return domain.Slot{}, fmt.Errorf("lookup slot %s: %w", slot, err)
	}
	return domain.Slot{ID: slot, Capacity: v.Capacity}, nil
}

func (s *Store) LookupAttendees(_ context.Context, slot domain.SlotID) ([]domain.Attendee, error) {
	var list []enrollment
	err := s.db.View(func(txn *badger.Txn) error {
		if err := requireSlot(txn, slot); err != nil {
			return err
		}
		var err error
		list, err = readEnrollments(txn, slot)
		return err
	})
	if err != nil {
		return nil, err
	}
	out := make([]domain.Attendee, len(list))
	for i, e := range list {
		out[i] = domain.Attendee{Participant: e.Participant, Present: e.Attended}
	}
	return out, nil
}

func (s *Store) MarkAttended(_ context.Context, slot domain.SlotID, participants []domain.ParticipantID) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if err := requireSlot(txn, slot); err != nil {
			return err
		}
		list, err := readEnrollments(txn, slot)
		if err != nil {
			return err
		}
		for _, p := range participants {
			if i := indexOf(list, p); i >= 0 {
				list[i].Attended = true
			}
		}
		return setJSON(txn, enrollKey(slot), list)
	})
}

func requireSlot(txn *badger.Txn, slot domain.SlotID) error {
	_, err := txn.Get(slotKey(slot))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return domain.ErrSlotNotFound
	}
	return err
}

// readEnrollments returns an empty list when the slot has no enrollments yet.
func readEnrollments(txn *badger.Txn, slot domain.SlotID) ([]enrollment, error) {
	list := []enrollment{}
	err := getJSON(txn, enrollKey(slot), &list)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return list, nil
	}
	return list, err
}

func setJSON(txn *badger.Txn, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	return txn.Set(key, data)
}

func getJSON(txn *badger.Txn, key []byte, v any) error {
	item, err := txn.Get(key)
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}

func indexOf(list []enrollment, p domain.ParticipantID) int {
	for i, e := range list {
		if e.Participant == p {
			return i
		}
	}
	return -1
}
