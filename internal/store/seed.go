package store

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/afes-website/manage-back/internal/auth"
	"github.com/afes-website/manage-back/internal/festival"
)

var demoRooms = []festival.Room{
	{ID: "exh-physics", Name: "Physics Club", Location: "Building A 2F", Capacity: 30},
	{ID: "exh-art", Name: "Art Gallery", Location: "Building B 1F", Capacity: 20},
	{ID: "exh-cafe", Name: "Tea Room", Location: "Courtyard", Capacity: 10},
}

const demoReservationsPerTerm = 20

// SeedDemo provisions an admin user, one open term per guest type, demo
// rooms with their terminal users and a batch of unused reservations.
// It does nothing once any user exists.
func (s *Store) SeedDemo(ctx context.Context, logger *slog.Logger) error {
	adminHash, err := auth.HashPassword("admin")
	if err != nil {
		return err
	}
	terminalHash, err := auth.HashPassword("exhibition")
	if err != nil {
		return err
	}

	seeded := false
	err = s.Update(ctx, func(tx *Tx) error {
		n, err := tx.Users.Count(ctx)
		if err != nil || n > 0 {
			return err
		}

		if err := tx.Users.Create(ctx, User{
			ID:           "admin",
			Name:         "Administrator",
			PasswordHash: adminHash,
			Permissions:  auth.Permissions{Admin: true, Reservation: true, Executive: true, Teacher: true},
		}); err != nil {
			return err
		}

		for _, room := range demoRooms {
			if _, err := tx.Rooms.Create(ctx, room); err != nil {
				return err
			}
			if err := tx.Users.Create(ctx, User{
				ID:           room.ID,
				Name:         room.Name,
				PasswordHash: terminalHash,
				Permissions:  auth.Permissions{Exhibition: true},
			}); err != nil {
				return err
			}
		}

		types := make([]string, 0, len(s.types))
		for t := range s.types {
			types = append(types, t)
		}
		slices.Sort(types)

		start := s.clock.Now().UTC().Truncate(time.Hour)
		for _, guestType := range types {
			term := festival.Term{
				ID:                 "term-" + s.types[guestType],
				EnterScheduledTime: start,
				ExitScheduledTime:  start.Add(8 * time.Hour),
				GuestType:          guestType,
			}
			if err := tx.Terms.Create(ctx, term); err != nil {
				return err
			}
			for i := 1; i <= demoReservationsPerTerm; i++ {
				id := fmt.Sprintf("R%s%03d", s.types[guestType], i)
				if err := tx.Reservations.Create(ctx, id, term.ID, 1+i%4); err != nil {
					return err
				}
			}
		}
		seeded = true
		return nil
	})
	if err != nil {
		return fmt.Errorf("seeding demo data: %w", err)
	}
	if seeded {
		logger.Info("demo data seeded", "rooms", len(demoRooms), "guest_types", len(s.types))
	}
	return nil
}
