package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/afes-website/manage-back/internal/festival"
	"github.com/afes-website/manage-back/internal/wristband"
)

// GuestStore holds guest lifecycle state. It validates identifiers but
// leaves every other business rule to the admission service.
type GuestStore struct {
	q     querier
	types festival.GuestTypes
	clock festival.Clock
}

const guestSelect = `
	SELECT id, term_id, reservation_id, exh_id, registered_at, exited_at
	FROM guests`

func scanGuest(row interface{ Scan(...any) error }) (festival.Guest, error) {
	var g festival.Guest
	var room, exited sql.NullString
	var registered string
	if err := row.Scan(&g.ID, &g.TermID, &g.ReservationID, &room, &registered, &exited); err != nil {
		return g, err
	}
	var err error
	if g.RegisteredAt, err = parseTime(registered); err != nil {
		return g, err
	}
	if g.ExitedAt, err = parseNullTime(exited); err != nil {
		return g, err
	}
	g.RoomID = nullString(room)
	return g, nil
}

// Create registers a new guest under termID. The identifier must pass the
// wristband checksum and carry the prefix of the term's guest type.
func (s *GuestStore) Create(ctx context.Context, id, termID, reservationID string) (festival.Guest, error) {
	id = wristband.Normalize(id)
	if !wristband.Validate(id) {
		return festival.Guest{}, festival.ErrInvalidIdentifier
	}

	terms := TermStore{q: s.q}
	term, err := terms.Get(ctx, termID)
	if err != nil {
		return festival.Guest{}, err
	}
	prefix, ok := s.types.Prefix(term.GuestType)
	if !ok || wristband.Prefix(id) != prefix {
		return festival.Guest{}, festival.ErrInvalidIdentifier
	}

	if _, err := s.Find(ctx, id); err == nil {
		return festival.Guest{}, festival.ErrDuplicateIdentifier
	} else if !errors.Is(err, festival.ErrGuestNotFound) {
		return festival.Guest{}, err
	}

	g := festival.Guest{
		ID:            id,
		TermID:        termID,
		ReservationID: reservationID,
		RegisteredAt:  s.clock.Now().UTC(),
	}
	_, err = s.q.ExecContext(ctx, `
		INSERT INTO guests (id, term_id, reservation_id, registered_at)
		VALUES (?, ?, ?, ?)
	`, g.ID, g.TermID, g.ReservationID, formatTime(g.RegisteredAt))
	if err != nil {
		return festival.Guest{}, fmt.Errorf("insert guest: %w", err)
	}
	return g, nil
}

func (s *GuestStore) Find(ctx context.Context, id string) (festival.Guest, error) {
	g, err := scanGuest(s.q.QueryRowContext(ctx, guestSelect+` WHERE id = ?`, wristband.Normalize(id)))
	if errors.Is(err, sql.ErrNoRows) {
		return g, festival.ErrGuestNotFound
	}
	if err != nil {
		return g, fmt.Errorf("get guest: %w", err)
	}
	return g, nil
}

// List returns every guest in registration order.
func (s *GuestStore) List(ctx context.Context) ([]festival.Guest, error) {
	rows, err := s.q.QueryContext(ctx, guestSelect+` ORDER BY registered_at, rowid`)
	if err != nil {
		return nil, fmt.Errorf("list guests: %w", err)
	}
	defer rows.Close()

	guests := []festival.Guest{}
	for rows.Next() {
		g, err := scanGuest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan guest: %w", err)
		}
		guests = append(guests, g)
	}
	return guests, rows.Err()
}

// SetCurrentRoom moves the guest into roomID, or out of any room when
// roomID is nil.
func (s *GuestStore) SetCurrentRoom(ctx context.Context, id string, roomID *string) error {
	res, err := s.q.ExecContext(ctx, `UPDATE guests SET exh_id = ? WHERE id = ?`, roomID, wristband.Normalize(id))
	if err != nil {
		return fmt.Errorf("update guest room: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return festival.ErrGuestNotFound
	}
	return nil
}

// SetExited records the guest's final departure at the given time. The
// guest must already have left every room.
func (s *GuestStore) SetExited(ctx context.Context, id string, at time.Time) error {
	id = wristband.Normalize(id)
	res, err := s.q.ExecContext(ctx, `
		UPDATE guests SET exited_at = ?
		WHERE id = ? AND exited_at IS NULL
	`, formatTime(at), id)
	if err != nil {
		return fmt.Errorf("update guest exit: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	if _, err := s.Find(ctx, id); err != nil {
		return err
	}
	return festival.ErrGuestAlreadyExited
}

// CountInRoomByTerm counts guests inside roomID per term, omitting terms
// with nobody inside.
func (s *GuestStore) CountInRoomByTerm(ctx context.Context, roomID string) (map[string]int, error) {
	return s.countByTerm(ctx, `
		SELECT term_id, COUNT(*) FROM guests
		WHERE exh_id = ? AND exited_at IS NULL
		GROUP BY term_id
	`, roomID)
}

// CountInsideByTerm counts guests inside any room per term.
func (s *GuestStore) CountInsideByTerm(ctx context.Context) (map[string]int, error) {
	return s.countByTerm(ctx, `
		SELECT term_id, COUNT(*) FROM guests
		WHERE exh_id IS NOT NULL AND exited_at IS NULL
		GROUP BY term_id
	`)
}

func (s *GuestStore) countByTerm(ctx context.Context, query string, args ...any) (map[string]int, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("count guests by term: %w", err)
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var term string
		var n int
		if err := rows.Scan(&term, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		if n > 0 {
			counts[term] = n
		}
	}
	return counts, rows.Err()
}
