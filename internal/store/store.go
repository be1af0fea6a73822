// Package store persists festival state in SQLite. Every component (guests,
// rooms, activity log, reservations, terms, users) is bound to a single
// transaction so callers can read and write across them atomically.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/afes-website/manage-back/internal/festival"
)

// Timestamps are stored as fixed-width UTC strings so that they sort
// lexically in chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// parseTime accepts RFC 3339 with any fractional precision. The libSQL
// driver hands time-like text back as time.Time, which database/sql
// re-renders as RFC3339Nano with trailing zeros trimmed.
func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return t, nil
}

func parseNullTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

// ErrConflict reports an insert whose primary key is already taken.
var ErrConflict = errors.New("already exists")

// insertErr wraps a failed insert, surfacing key collisions as ErrConflict.
func insertErr(what, id string, err error) error {
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return fmt.Errorf("%s %q: %w", what, id, ErrConflict)
	}
	return fmt.Errorf("insert %s: %w", what, err)
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Store struct {
	db    *sql.DB
	types festival.GuestTypes
	clock festival.Clock
}

func New(db *sql.DB, types festival.GuestTypes, clock festival.Clock) *Store {
	if clock == nil {
		clock = festival.SystemClock
	}
	return &Store{db: db, types: types, clock: clock}
}

// Tx is the set of stores bound to one transaction.
type Tx struct {
	Guests       *GuestStore
	Rooms        *RoomRegistry
	Log          *ActivityLog
	Reservations *ReservationStore
	Terms        *TermStore
	Users        *UserStore
}

func (s *Store) bind(q querier) *Tx {
	return &Tx{
		Guests:       &GuestStore{q: q, types: s.types, clock: s.clock},
		Rooms:        &RoomRegistry{q: q, clock: s.clock},
		Log:          &ActivityLog{q: q},
		Reservations: &ReservationStore{q: q},
		Terms:        &TermStore{q: q},
		Users:        &UserStore{q: q},
	}
}

// Update runs fn in a read-write transaction. The transaction commits only
// if fn returns nil.
func (s *Store) Update(ctx context.Context, fn func(tx *Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = sqlTx.Rollback()
			panic(p)
		}
	}()

	if err := fn(s.bind(sqlTx)); err != nil {
		_ = sqlTx.Rollback()
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// View runs fn in a transaction that is always rolled back, giving fn a
// consistent snapshot across components.
func (s *Store) View(ctx context.Context, fn func(tx *Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer sqlTx.Rollback()

	return fn(s.bind(sqlTx))
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
