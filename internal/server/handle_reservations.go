package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/afes-website/manage-back/internal/festival"
	"github.com/afes-website/manage-back/internal/store"
)

func handleGetReservation(logger *slog.Logger, s *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var res festival.Reservation
		err := s.View(r.Context(), func(tx *store.Tx) error {
			var err error
			res, err = tx.Reservations.Get(r.Context(), chi.URLParam(r, "id"))
			return err
		})
		if err != nil {
			writeFailure(w, logger, err, festival.ErrReservationNotFound)
			return
		}
		writeJSON(w, http.StatusOK, reservationResponse(res))
	}
}

func handleListTerms(logger *slog.Logger, s *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var terms []festival.Term
		err := s.View(r.Context(), func(tx *store.Tx) error {
			var err error
			terms, err = tx.Terms.List(r.Context())
			return err
		})
		if err != nil {
			writeFailure(w, logger, err)
			return
		}

		resp := make(map[string]TermResponse, len(terms))
		for _, t := range terms {
			resp[t.ID] = termResponse(t)
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
