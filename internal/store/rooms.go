package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/afes-website/manage-back/internal/festival"
)

// RoomRegistry reads exhibition rooms. Occupancy is always counted from
// guest rows; no counter is stored.
type RoomRegistry struct {
	q     querier
	clock festival.Clock
}

const roomSelect = `
	SELECT r.id, r.name, r.location, r.capacity,
		(SELECT COUNT(*) FROM guests g WHERE g.exh_id = r.id AND g.exited_at IS NULL)
	FROM exh_rooms r`

func scanRoom(row interface{ Scan(...any) error }) (festival.Room, error) {
	var r festival.Room
	err := row.Scan(&r.ID, &r.Name, &r.Location, &r.Capacity, &r.GuestCount)
	return r, err
}

func (s *RoomRegistry) Get(ctx context.Context, id string) (festival.Room, error) {
	r, err := scanRoom(s.q.QueryRowContext(ctx, roomSelect+` WHERE r.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return r, festival.ErrRoomNotFound
	}
	if err != nil {
		return r, fmt.Errorf("get room: %w", err)
	}
	return r, nil
}

// List returns all rooms in creation order.
func (s *RoomRegistry) List(ctx context.Context) ([]festival.Room, error) {
	rows, err := s.q.QueryContext(ctx, roomSelect+` ORDER BY r.rowid`)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	defer rows.Close()

	rooms := []festival.Room{}
	for rows.Next() {
		r, err := scanRoom(rows)
		if err != nil {
			return nil, fmt.Errorf("scan room: %w", err)
		}
		rooms = append(rooms, r)
	}
	return rooms, rows.Err()
}

// Occupancy returns the live count of guests inside the room.
func (s *RoomRegistry) Occupancy(ctx context.Context, id string) (int, error) {
	var n int
	err := s.q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM guests WHERE exh_id = ? AND exited_at IS NULL
	`, id).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count occupancy: %w", err)
	}
	return n, nil
}

func (s *RoomRegistry) TotalCapacity(ctx context.Context) (int, error) {
	var n int
	if err := s.q.QueryRowContext(ctx, `SELECT COALESCE(SUM(capacity), 0) FROM exh_rooms`).Scan(&n); err != nil {
		return 0, fmt.Errorf("sum capacity: %w", err)
	}
	return n, nil
}

func (s *RoomRegistry) Create(ctx context.Context, r festival.Room) (festival.Room, error) {
	if r.Capacity <= 0 {
		return r, fmt.Errorf("room %q: capacity must be positive", r.ID)
	}
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO exh_rooms (id, name, location, capacity, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, r.ID, r.Name, r.Location, r.Capacity, formatTime(s.clock.Now()))
	if err != nil {
		return r, insertErr("room", r.ID, err)
	}
	r.GuestCount = 0
	return r, nil
}
