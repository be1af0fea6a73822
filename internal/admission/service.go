// Package admission runs guest lifecycle transitions: check-in at the gate,
// entering and leaving exhibition rooms, and final check-out. Every
// operation validates and mutates inside one store transaction, so rules
// such as room capacity hold under concurrent terminals.
package admission

import (
	"context"
	"errors"
	"log/slog"

	"github.com/afes-website/manage-back/internal/festival"
	"github.com/afes-website/manage-back/internal/store"
	"github.com/afes-website/manage-back/internal/wristband"
)

// Service applies guest lifecycle transitions against the store.
type Service struct {
	store  *store.Store
	types  festival.GuestTypes
	clock  festival.Clock
	logger *slog.Logger
}

// NewService returns a Service; a nil clock means the wall clock.
func NewService(s *store.Store, types festival.GuestTypes, clock festival.Clock, logger *slog.Logger) *Service {
	if clock == nil {
		clock = festival.SystemClock
	}
	return &Service{store: s, types: types, clock: clock, logger: logger}
}

// CheckIn consumes a reservation and registers the wristband as a new
// guest. Failures are reported in a fixed order: wristband format,
// reservation lookup, reservation state, wristband reuse, wristband color.
func (s *Service) CheckIn(ctx context.Context, reservationID, guestID string) (festival.Guest, error) {
	guestID = wristband.Normalize(guestID)
	if !wristband.Validate(guestID) {
		return festival.Guest{}, festival.ErrInvalidWristband
	}

	var guest festival.Guest
	err := s.store.Update(ctx, func(tx *store.Tx) error {
		now := s.clock.Now()
		r, err := tx.Reservations.Get(ctx, reservationID)
		if err != nil {
			return err
		}
		if err := r.Check(now); err != nil {
			return err
		}

		if _, err := tx.Guests.Find(ctx, guestID); err == nil {
			return festival.ErrAlreadyUsedWristband
		} else if !errors.Is(err, festival.ErrGuestNotFound) {
			return err
		}

		if prefix, ok := s.types.Prefix(r.Term.GuestType); !ok || wristband.Prefix(guestID) != prefix {
			return festival.ErrWrongWristbandColor
		}

		guest, err = tx.Guests.Create(ctx, guestID, r.Term.ID, r.ID)
		if err != nil {
			return err
		}
		return tx.Reservations.Link(ctx, r.ID, guest.ID)
	})
	if err != nil {
		return festival.Guest{}, err
	}

	s.logger.Info("guest checked in", "guest", guest.ID, "reservation", reservationID, "term", guest.TermID)
	return guest, nil
}

// EnterRoom moves a guest into roomID. A guest standing in another room is
// first exited from it, and both entries share one timestamp.
func (s *Service) EnterRoom(ctx context.Context, roomID, guestID string) (festival.Guest, error) {
	guestID = wristband.Normalize(guestID)

	var (
		guest    festival.Guest
		previous *string
	)
	err := s.store.Update(ctx, func(tx *store.Tx) error {
		now := s.clock.Now()
		room, err := s.room(ctx, tx, roomID)
		if err != nil {
			return err
		}
		guest, err = tx.Guests.Find(ctx, guestID)
		if err != nil {
			return err
		}

		if guest.In(room.ID) {
			return festival.ErrGuestAlreadyEntered
		}
		if room.GuestCount, err = tx.Rooms.Occupancy(ctx, room.ID); err != nil {
			return err
		}
		if room.Full() {
			return festival.ErrPeopleLimitExceeded
		}
		if guest.Exited() {
			return festival.ErrGuestAlreadyExited
		}
		term, err := tx.Terms.Get(ctx, guest.TermID)
		if err != nil {
			return err
		}
		if term.Closed(now) {
			return festival.ErrExitTimeExceeded
		}

		previous = guest.RoomID
		if previous != nil {
			if _, err := tx.Log.Append(ctx, *previous, guest.ID, festival.LogExit, now); err != nil {
				return err
			}
		}
		if err := tx.Guests.SetCurrentRoom(ctx, guest.ID, &room.ID); err != nil {
			return err
		}
		if _, err := tx.Log.Append(ctx, room.ID, guest.ID, festival.LogEnter, now); err != nil {
			return err
		}
		guest.RoomID = &room.ID
		return nil
	})
	if err != nil {
		return festival.Guest{}, err
	}

	if previous != nil {
		s.logger.Info("guest exited", "guest", guest.ID, "room", *previous, "implicit", true)
	}
	s.logger.Info("guest entered", "guest", guest.ID, "room", roomID)
	return guest, nil
}

// ExitRoom moves a guest out of roomID. The guest must be inside that room.
func (s *Service) ExitRoom(ctx context.Context, roomID, guestID string) (festival.Guest, error) {
	guestID = wristband.Normalize(guestID)

	var guest festival.Guest
	err := s.store.Update(ctx, func(tx *store.Tx) error {
		now := s.clock.Now()
		room, err := s.room(ctx, tx, roomID)
		if err != nil {
			return err
		}
		guest, err = tx.Guests.Find(ctx, guestID)
		if err != nil {
			return err
		}
		if guest.Exited() {
			return festival.ErrGuestAlreadyExited
		}
		if !guest.In(room.ID) {
			return festival.ErrGuestNotInExhibition
		}

		if err := tx.Guests.SetCurrentRoom(ctx, guest.ID, nil); err != nil {
			return err
		}
		if _, err := tx.Log.Append(ctx, room.ID, guest.ID, festival.LogExit, now); err != nil {
			return err
		}
		guest.RoomID = nil
		return nil
	})
	if err != nil {
		return festival.Guest{}, err
	}

	s.logger.Info("guest exited", "guest", guest.ID, "room", roomID)
	return guest, nil
}

// CheckOut records the guest's final departure from the event. A guest
// still inside a room is exited from it first.
func (s *Service) CheckOut(ctx context.Context, guestID string) (festival.Guest, error) {
	guestID = wristband.Normalize(guestID)

	var guest festival.Guest
	err := s.store.Update(ctx, func(tx *store.Tx) error {
		now := s.clock.Now()
		var err error
		guest, err = tx.Guests.Find(ctx, guestID)
		if err != nil {
			return err
		}
		if guest.Exited() {
			return festival.ErrGuestAlreadyExited
		}

		if guest.RoomID != nil {
			if _, err := tx.Log.Append(ctx, *guest.RoomID, guest.ID, festival.LogExit, now); err != nil {
				return err
			}
			if err := tx.Guests.SetCurrentRoom(ctx, guest.ID, nil); err != nil {
				return err
			}
			guest.RoomID = nil
		}
		if err := tx.Guests.SetExited(ctx, guest.ID, now); err != nil {
			return err
		}
		exited := now.UTC()
		guest.ExitedAt = &exited
		return nil
	})
	if err != nil {
		return festival.Guest{}, err
	}

	s.logger.Info("guest checked out", "guest", guest.ID, "term", guest.TermID)
	return guest, nil
}

// room resolves a room for a terminal operation, reporting an unknown id as
// a missing exhibition.
func (s *Service) room(ctx context.Context, tx *store.Tx, id string) (festival.Room, error) {
	room, err := tx.Rooms.Get(ctx, id)
	if errors.Is(err, festival.ErrRoomNotFound) {
		return room, festival.ErrExhibitionNotFound
	}
	return room, err
}
