package server

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/afes-website/manage-back/internal/admission"
	"github.com/afes-website/manage-back/internal/festival"
	"github.com/afes-website/manage-back/internal/store"
)

// CheckInRequest is the request body for POST /guests/check-in.
type CheckInRequest struct {
	ReservationID string `json:"reservation_id"`
	GuestID       string `json:"guest_id"`
}

func handleListGuests(logger *slog.Logger, s *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var guests []festival.Guest
		err := s.View(r.Context(), func(tx *store.Tx) error {
			var err error
			guests, err = tx.Guests.List(r.Context())
			return err
		})
		if err != nil {
			writeFailure(w, logger, err)
			return
		}

		resp := make([]GuestResponse, len(guests))
		for i, g := range guests {
			resp[i] = guestResponse(g)
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func handleGetGuest(logger *slog.Logger, s *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var g festival.Guest
		err := s.View(r.Context(), func(tx *store.Tx) error {
			var err error
			g, err = tx.Guests.Find(r.Context(), chi.URLParam(r, "id"))
			return err
		})
		if err != nil {
			writeFailure(w, logger, err, festival.ErrGuestNotFound)
			return
		}
		writeJSON(w, http.StatusOK, guestResponse(g))
	}
}

func handleGuestLog(logger *slog.Logger, reporter *admission.Reporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries, err := reporter.GuestLog(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeFailure(w, logger, err, festival.ErrGuestNotFound)
			return
		}
		writeJSON(w, http.StatusOK, logResponse(entries))
	}
}

func handleCheckIn(logger *slog.Logger, svc *admission.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CheckInRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body")
			return
		}
		if strings.TrimSpace(req.ReservationID) == "" || strings.TrimSpace(req.GuestID) == "" {
			writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "reservation_id and guest_id are required")
			return
		}

		g, err := svc.CheckIn(r.Context(), req.ReservationID, req.GuestID)
		if err != nil {
			writeFailure(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, guestResponse(g))
	}
}

// handleCheckOut reports an unknown guest as a rejected check-out (400
// GUEST_NOT_FOUND), not a missing resource, unlike the per-guest room routes.
func handleCheckOut(logger *slog.Logger, svc *admission.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g, err := svc.CheckOut(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeFailure(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, guestResponse(g))
	}
}
