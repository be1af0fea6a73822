package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/afes-website/manage-back/internal/festival"
)

type TermStore struct {
	q querier
}

func scanTerm(row interface{ Scan(...any) error }) (festival.Term, error) {
	var t festival.Term
	var enter, exit string
	if err := row.Scan(&t.ID, &enter, &exit, &t.GuestType); err != nil {
		return t, err
	}
	var err error
	if t.EnterScheduledTime, err = parseTime(enter); err != nil {
		return t, err
	}
	if t.ExitScheduledTime, err = parseTime(exit); err != nil {
		return t, err
	}
	return t, nil
}

func (s *TermStore) Get(ctx context.Context, id string) (festival.Term, error) {
	t, err := scanTerm(s.q.QueryRowContext(ctx, `
		SELECT id, enter_scheduled_time, exit_scheduled_time, guest_type
		FROM terms WHERE id = ?
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return t, festival.ErrTermNotFound
	}
	if err != nil {
		return t, fmt.Errorf("get term: %w", err)
	}
	return t, nil
}

// List returns all terms ordered by scheduled enter time.
func (s *TermStore) List(ctx context.Context) ([]festival.Term, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, enter_scheduled_time, exit_scheduled_time, guest_type
		FROM terms
		ORDER BY enter_scheduled_time, id
	`)
	if err != nil {
		return nil, fmt.Errorf("list terms: %w", err)
	}
	defer rows.Close()

	terms := []festival.Term{}
	for rows.Next() {
		t, err := scanTerm(rows)
		if err != nil {
			return nil, fmt.Errorf("scan term: %w", err)
		}
		terms = append(terms, t)
	}
	return terms, rows.Err()
}

func (s *TermStore) Create(ctx context.Context, t festival.Term) error {
	if !t.ExitScheduledTime.After(t.EnterScheduledTime) {
		return fmt.Errorf("term %q: exit time must be after enter time", t.ID)
	}
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO terms (id, enter_scheduled_time, exit_scheduled_time, guest_type)
		VALUES (?, ?, ?, ?)
	`, t.ID, formatTime(t.EnterScheduledTime), formatTime(t.ExitScheduledTime), t.GuestType)
	if err != nil {
		return insertErr("term", t.ID, err)
	}
	return nil
}
