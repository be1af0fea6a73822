package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/afes-website/manage-back/internal/auth"
)

var ErrUserNotFound = errors.New("user not found")

type User struct {
	ID           string
	Name         string
	PasswordHash string
	Permissions  auth.Permissions
}

type UserStore struct {
	q querier
}

func (s *UserStore) Create(ctx context.Context, u User) error {
	p := u.Permissions
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO users (id, name, password_hash,
			perm_admin, perm_reservation, perm_executive, perm_exhibition, perm_teacher)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, u.ID, u.Name, u.PasswordHash, flag(p.Admin), flag(p.Reservation), flag(p.Executive), flag(p.Exhibition), flag(p.Teacher))
	if err != nil {
		return insertErr("user", u.ID, err)
	}
	return nil
}

func (s *UserStore) ByID(ctx context.Context, id string) (User, error) {
	var u User
	p := &u.Permissions
	err := s.q.QueryRowContext(ctx, `
		SELECT id, name, password_hash,
			perm_admin, perm_reservation, perm_executive, perm_exhibition, perm_teacher
		FROM users WHERE id = ?
	`, id).Scan(&u.ID, &u.Name, &u.PasswordHash,
		&p.Admin, &p.Reservation, &p.Executive, &p.Exhibition, &p.Teacher)
	if errors.Is(err, sql.ErrNoRows) {
		return u, ErrUserNotFound
	}
	if err != nil {
		return u, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// Count returns the number of users, used to decide whether to seed.
func (s *UserStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

func flag(b bool) int {
	if b {
		return 1
	}
	return 0
}
