package server

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/swaggest/swgui/v5emb"

	"github.com/afes-website/manage-back/internal/auth"
)

func addRoutes(r chi.Router, logger *slog.Logger, deps Deps) {
	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("Festival Admission API", "/openapi.json", "/docs"))
	if deps.Health != nil {
		r.Mount("/healthz", deps.Health)
	}

	r.Post("/auth/login", handleLogin(logger, deps.Store, deps.Tokens))

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware(logger, deps.Tokens, deps.Store))
		if deps.Idempotency != nil {
			r.Use(idempotencyMiddleware(logger, deps.Idempotency, deps.IdempotencyTTL))
		}

		r.Get("/auth/user", handleUser())
		r.Get("/terms", handleListTerms(logger, deps.Store))

		r.Route("/exhibitions", func(r chi.Router) {
			r.Get("/", handleListExhibitions(logger, deps.Reporter))

			// Room terminal routes act on the caller's own room.
			r.Group(func(r chi.Router) {
				r.Use(requirePermission(auth.PermExhibition))
				r.Post("/enter", handleTerminalMove(logger, deps.Admission.EnterRoom))
				r.Post("/exit", handleTerminalMove(logger, deps.Admission.ExitRoom))
				r.Get("/log", handleExhibitionLog(logger, deps.Reporter))
			})

			r.Get("/{id}", handleGetExhibition(logger, deps.Reporter))
		})

		r.Route("/guests", func(r chi.Router) {
			r.With(requirePermission(auth.PermAdmin, auth.PermExecutive, auth.PermReservation)).
				Get("/", handleListGuests(logger, deps.Store))
			r.With(requirePermission(auth.PermAdmin, auth.PermExecutive, auth.PermReservation, auth.PermExhibition)).
				Get("/{id}", handleGetGuest(logger, deps.Store))
			r.With(requirePermission(auth.PermAdmin, auth.PermExecutive)).
				Get("/{id}/log", handleGuestLog(logger, deps.Reporter))

			r.With(requirePermission(auth.PermExecutive)).
				Post("/check-in", handleCheckIn(logger, deps.Admission))
			r.With(requirePermission(auth.PermExecutive)).
				Post("/{id}/check-out", handleCheckOut(logger, deps.Admission))

			r.With(requirePermission(auth.PermExhibition)).
				Post("/{id}/enter", handleGuestMove(logger, deps.Admission.EnterRoom))
			r.With(requirePermission(auth.PermExhibition)).
				Post("/{id}/exit", handleGuestMove(logger, deps.Admission.ExitRoom))
		})

		r.With(requirePermission(auth.PermAdmin, auth.PermExecutive, auth.PermReservation)).
			Get("/reservations/{id}", handleGetReservation(logger, deps.Store))

		r.Route("/admin", func(r chi.Router) {
			r.Use(requirePermission(auth.PermAdmin))
			r.Post("/terms", handleAdminCreateTerm(logger, deps.Store, deps.GuestTypes))
			r.Post("/rooms", handleAdminCreateRoom(logger, deps.Store))
			r.Post("/reservations", handleAdminCreateReservation(logger, deps.Store))
			r.Post("/users", handleAdminCreateUser(logger, deps.Store))
			r.Get("/wristbands", handleAdminWristbands(logger, deps.Store, deps.GuestTypes))
		})
	})
}
