package store

import (
	"context"
	"fmt"
	"time"

	"github.com/afes-website/manage-back/internal/festival"
)

// ActivityLog is the append-only record of room entries and exits.
type ActivityLog struct {
	q querier
}

func (l *ActivityLog) Append(ctx context.Context, roomID, guestID string, kind festival.LogKind, at time.Time) (festival.LogEntry, error) {
	e := festival.LogEntry{RoomID: roomID, GuestID: guestID, Kind: kind, Timestamp: at.UTC()}
	err := l.q.QueryRowContext(ctx, `
		INSERT INTO activity_logs (exh_id, guest_id, log_type, timestamp)
		VALUES (?, ?, ?, ?)
		RETURNING id
	`, roomID, guestID, string(kind), formatTime(e.Timestamp)).Scan(&e.ID)
	if err != nil {
		return e, fmt.Errorf("append activity log: %w", err)
	}
	return e, nil
}

// ByGuest returns the guest's entries oldest first.
func (l *ActivityLog) ByGuest(ctx context.Context, guestID string) ([]festival.LogEntry, error) {
	return l.list(ctx, `WHERE guest_id = ?`, guestID)
}

// ByRoom returns the room's entries oldest first.
func (l *ActivityLog) ByRoom(ctx context.Context, roomID string) ([]festival.LogEntry, error) {
	return l.list(ctx, `WHERE exh_id = ?`, roomID)
}

func (l *ActivityLog) list(ctx context.Context, where string, args ...any) ([]festival.LogEntry, error) {
	rows, err := l.q.QueryContext(ctx, `
		SELECT id, exh_id, guest_id, log_type, timestamp
		FROM activity_logs `+where+`
		ORDER BY timestamp, id
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("list activity log: %w", err)
	}
	defer rows.Close()

	entries := []festival.LogEntry{}
	for rows.Next() {
		var e festival.LogEntry
		var kind, ts string
		if err := rows.Scan(&e.ID, &e.RoomID, &e.GuestID, &kind, &ts); err != nil {
			return nil, fmt.Errorf("scan activity log: %w", err)
		}
		e.Kind = festival.LogKind(kind)
		if e.Timestamp, err = parseTime(ts); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
