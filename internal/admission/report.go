package admission

import (
	"context"

	"github.com/afes-website/manage-back/internal/festival"
	"github.com/afes-website/manage-back/internal/store"
)

// RoomSummary is a room with its live occupancy broken down by term.
// Terms with nobody inside are omitted from Count.
type RoomSummary struct {
	Room  festival.Room
	Count map[string]int
}

// GlobalSummary covers every room in creation order.
type GlobalSummary struct {
	Rooms         []RoomSummary
	Count         map[string]int
	TotalCapacity int
}

// Reporter answers read-only occupancy and activity queries. Every call
// reads one consistent snapshot and nothing is cached.
type Reporter struct {
	store *store.Store
}

// NewReporter returns a Reporter reading from s.
func NewReporter(s *store.Store) *Reporter {
	return &Reporter{store: s}
}

func (r *Reporter) GlobalSummary(ctx context.Context) (GlobalSummary, error) {
	var sum GlobalSummary
	err := r.store.View(ctx, func(tx *store.Tx) error {
		rooms, err := tx.Rooms.List(ctx)
		if err != nil {
			return err
		}
		sum.Rooms = make([]RoomSummary, 0, len(rooms))
		for _, room := range rooms {
			counts, err := tx.Guests.CountInRoomByTerm(ctx, room.ID)
			if err != nil {
				return err
			}
			sum.Rooms = append(sum.Rooms, RoomSummary{Room: room, Count: counts})
		}
		if sum.Count, err = tx.Guests.CountInsideByTerm(ctx); err != nil {
			return err
		}
		sum.TotalCapacity, err = tx.Rooms.TotalCapacity(ctx)
		return err
	})
	return sum, err
}

func (r *Reporter) RoomSummary(ctx context.Context, roomID string) (RoomSummary, error) {
	var sum RoomSummary
	err := r.store.View(ctx, func(tx *store.Tx) error {
		room, err := tx.Rooms.Get(ctx, roomID)
		if err != nil {
			return err
		}
		counts, err := tx.Guests.CountInRoomByTerm(ctx, room.ID)
		if err != nil {
			return err
		}
		sum = RoomSummary{Room: room, Count: counts}
		return nil
	})
	return sum, err
}

// GuestLog returns the guest's room entries and exits oldest first.
func (r *Reporter) GuestLog(ctx context.Context, guestID string) ([]festival.LogEntry, error) {
	var entries []festival.LogEntry
	err := r.store.View(ctx, func(tx *store.Tx) error {
		g, err := tx.Guests.Find(ctx, guestID)
		if err != nil {
			return err
		}
		entries, err = tx.Log.ByGuest(ctx, g.ID)
		return err
	})
	return entries, err
}

// RoomLog returns the room's entries and exits oldest first.
func (r *Reporter) RoomLog(ctx context.Context, roomID string) ([]festival.LogEntry, error) {
	var entries []festival.LogEntry
	err := r.store.View(ctx, func(tx *store.Tx) error {
		if _, err := tx.Rooms.Get(ctx, roomID); err != nil {
			return err
		}
		var err error
		entries, err = tx.Log.ByRoom(ctx, roomID)
		return err
	})
	return entries, err
}
