package server

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/afes-website/manage-back/internal/admission"
	"github.com/afes-website/manage-back/internal/festival"
)

// GuestIDRequest names the guest a room terminal is scanning.
type GuestIDRequest struct {
	GuestID string `json:"guest_id"`
}

func handleListExhibitions(logger *slog.Logger, reporter *admission.Reporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sum, err := reporter.GlobalSummary(r.Context())
		if err != nil {
			writeFailure(w, logger, err)
			return
		}

		resp := ExhibitionListResponse{
			Exhibitions: make(map[string]ExhibitionResponse, len(sum.Rooms)),
			All:         ExhibitionTotals{Count: sum.Count, Limit: sum.TotalCapacity},
		}
		for _, room := range sum.Rooms {
			resp.Exhibitions[room.Room.ID] = exhibitionResponse(room)
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func handleGetExhibition(logger *slog.Logger, reporter *admission.Reporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sum, err := reporter.RoomSummary(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeFailure(w, logger, err, festival.ErrRoomNotFound)
			return
		}
		writeJSON(w, http.StatusOK, exhibitionResponse(sum))
	}
}

// roomMove is EnterRoom or ExitRoom.
type roomMove func(ctx context.Context, roomID, guestID string) (festival.Guest, error)

// handleTerminalMove serves enter and exit for the calling room terminal,
// taking the guest from the request body.
func handleTerminalMove(logger *slog.Logger, move roomMove) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req GuestIDRequest
		if err := readJSON(r, &req); err != nil || strings.TrimSpace(req.GuestID) == "" {
			writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "guest_id is required")
			return
		}

		g, err := move(r.Context(), identityFrom(r).ID, req.GuestID)
		if err != nil {
			writeFailure(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, guestResponse(g))
	}
}

// handleGuestMove serves enter and exit addressed by guest path, so an
// unknown guest is a missing resource.
func handleGuestMove(logger *slog.Logger, move roomMove) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g, err := move(r.Context(), identityFrom(r).ID, chi.URLParam(r, "id"))
		if err != nil {
			writeFailure(w, logger, err, festival.ErrGuestNotFound)
			return
		}
		writeJSON(w, http.StatusOK, guestResponse(g))
	}
}

func handleExhibitionLog(logger *slog.Logger, reporter *admission.Reporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries, err := reporter.RoomLog(r.Context(), identityFrom(r).ID)
		if err != nil {
			writeFailure(w, logger, err, festival.ErrRoomNotFound)
			return
		}
		writeJSON(w, http.StatusOK, logResponse(entries))
	}
}
