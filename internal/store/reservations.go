package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/afes-website/manage-back/internal/festival"
)

type ReservationStore struct {
	q querier
}

func (s *ReservationStore) Get(ctx context.Context, id string) (festival.Reservation, error) {
	var r festival.Reservation
	var guest sql.NullString
	var enter, exit string
	err := s.q.QueryRowContext(ctx, `
		SELECT r.id, r.people_count, r.guest_id,
			t.id, t.enter_scheduled_time, t.exit_scheduled_time, t.guest_type
		FROM reservations r
		JOIN terms t ON t.id = r.term_id
		WHERE r.id = ?
	`, id).Scan(&r.ID, &r.PeopleCount, &guest,
		&r.Term.ID, &enter, &exit, &r.Term.GuestType)
	if errors.Is(err, sql.ErrNoRows) {
		return r, festival.ErrReservationNotFound
	}
	if err != nil {
		return r, fmt.Errorf("get reservation: %w", err)
	}
	if r.Term.EnterScheduledTime, err = parseTime(enter); err != nil {
		return r, err
	}
	if r.Term.ExitScheduledTime, err = parseTime(exit); err != nil {
		return r, err
	}
	r.GuestID = nullString(guest)
	return r, nil
}

// Link marks the reservation as consumed by guestID. A reservation can be
// linked only once.
func (s *ReservationStore) Link(ctx context.Context, id, guestID string) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE reservations SET guest_id = ?
		WHERE id = ? AND guest_id IS NULL
	`, guestID, id)
	if err != nil {
		return fmt.Errorf("link reservation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := s.Get(ctx, id); err != nil {
			return err
		}
		return festival.ErrReservationConsumed
	}
	return nil
}

func (s *ReservationStore) Create(ctx context.Context, id, termID string, peopleCount int) error {
	if peopleCount <= 0 {
		return fmt.Errorf("reservation %q: people count must be positive", id)
	}
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO reservations (id, term_id, people_count)
		VALUES (?, ?, ?)
	`, id, termID, peopleCount)
	if err != nil {
		return insertErr("reservation", id, err)
	}
	return nil
}
