// Package sqlite keeps activities, time slots and enrollments in a SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dkeye/talkabout/internal/domain"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

const pragmas = `
	PRAGMA journal_mode = WAL;
	PRAGMA synchronous = NORMAL;
	PRAGMA foreign_keys = ON;
	PRAGMA busy_timeout = 5000;
`

const schema = `
CREATE TABLE IF NOT EXISTS activities (
	id               TEXT PRIMARY KEY,
	title            TEXT NOT NULL,
	max_participants INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS time_slots (
	id          TEXT PRIMARY KEY,
	activity_id TEXT NOT NULL REFERENCES activities(id) ON DELETE CASCADE,
	starts_at   DATETIME,
	ends_at     DATETIME
);
CREATE TABLE IF NOT EXISTS enrollments (
	seq         INTEGER PRIMARY KEY AUTOINCREMENT,
	slot_id     TEXT NOT NULL REFERENCES time_slots(id) ON DELETE CASCADE,
	participant TEXT NOT NULL,
	attended    BOOLEAN NOT NULL DEFAULT 0,
	UNIQUE (slot_id, participant)
);
CREATE INDEX IF NOT EXISTS idx_enrollments_slot ON enrollments(slot_id, seq);
`

type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path and applies the schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(10 * time.Minute)

	if _, err := db.Exec(pragmas); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	log.Info().Str("module", "store.sqlite").Str("path", path).Msg("database ready")
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) PutActivity(ctx context.Context, id, title string, maxParticipants int) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO activities (id, title, max_participants) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET title = excluded.title, max_participants = excluded.max_participants`,
		id, title, maxParticipants)
	if err != nil {
		return fmt.Errorf("put activity %s: %w", id, err)
	}
	return nil
}

func (s *Store) PutSlot(ctx context.Context, slot domain.SlotID, activityID string, startsAt, endsAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO time_slots (id, activity_id, starts_at, ends_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET activity_id = excluded.activity_id, starts_at = excluded.starts_at, ends_at = excluded.ends_at`,
		string(slot), activityID, startsAt, endsAt)
	if err != nil {
		return fmt.Errorf("put slot %s: %w", slot, err)
	}
	return nil
}

func (s *Store) DeleteSlot(ctx context.Context, slot domain.SlotID) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM time_slots WHERE id = ?`, string(slot)); err != nil {
		return fmt.Errorf("delete slot %s: %w", slot, err)
	}
	return nil
}

// Enroll appends participants to slot; already enrolled ones keep their place.
func (s *Store) Enroll(ctx context.Context, slot domain.SlotID, participants ...domain.ParticipantID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := slotExists(ctx, tx, slot); err != nil {
		return err
	}
	for _, p := range participants {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO enrollments (slot_id, participant) VALUES (?, ?)`,
			string(slot), string(p)); err != nil {
			return fmt.Errorf("enroll %s in %s: %w", p, slot, err)
		}
	}
	return tx.Commit()
}

// Seed creates one activity per seeded slot, named after the slot.
func (s *Store) Seed(ctx context.Context, seeds ...domain.SlotSeed) error {
	for _, seed := range seeds {
		activity := "activity-" + string(seed.Slot)
		if err := s.PutActivity(ctx, activity, string(seed.Slot), seed.Capacity); err != nil {
			return err
		}
		if err := s.PutSlot(ctx, seed.Slot, activity, time.Time{}, time.Time{}); err != nil {
			return err
		}
		if err := s.Enroll(ctx, seed.Slot, seed.Enrolled...); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) LookupSlot(ctx context.Context, slot domain.SlotID) (domain.Slot, error) {
	var capacity int
	err := s.db.QueryRowContext(ctx, `
		SELECT a.max_participants
		FROM time_slots t JOIN activities a ON a.id = t.activity_id
		WHERE t.id = ?`, string(slot)).Scan(&capacity)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Slot{}, domain.ErrSlotNotFound
	}
	if err != nil {
		return domain.Slot{}, fmt.Errorf("lookup slot %s: %w", slot, err)
	}
	return domain.Slot{ID: slot, Capacity: capacity}, nil
}

func (s *Store) LookupAttendees(ctx context.Context, slot domain.SlotID) ([]domain.Attendee, error) {
	if err := slotExists(ctx, s.db, slot); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT participant, attended FROM enrollments WHERE slot_id = ? ORDER BY seq`, string(slot))
	if err != nil {
		return nil, fmt.Errorf("lookup attendees %s: %w", slot, err)
	}
	defer rows.Close()

	out := []domain.Attendee{}
	for rows.Next() {
		var a domain.Attendee
		var p string
		if err := rows.Scan(&p, &a.Present); err != nil {
			return nil, fmt.Errorf("scan attendee: %w", err)
		}
		a.Participant = domain.ParticipantID(p)
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) MarkAttended(ctx context.Context, slot domain.SlotID, participants []domain.ParticipantID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := slotExists(ctx, tx, slot); err != nil {
		return err
	}
	for _, p := range participants {
		if _, err := tx.ExecContext(ctx,
			`UPDATE enrollments SET attended = 1 WHERE slot_id = ? AND participant = ?`,
			string(slot), string(p)); err != nil {
			return fmt.Errorf("mark %s attended: %w", p, err)
		}
	}
	return tx.Commit()
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func slotExists(ctx context.Context, q queryer, slot domain.SlotID) error {
	var one int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM time_slots WHERE id = ?`, string(slot)).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrSlotNotFound
	}
	if err != nil {
		return fmt.Errorf("check slot %s: %w", slot, err)
	}
	return nil
}
