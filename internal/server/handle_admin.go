package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/afes-website/manage-back/internal/admission"
	"github.com/afes-website/manage-back/internal/auth"
	"github.com/afes-website/manage-back/internal/festival"
	"github.com/afes-website/manage-back/internal/store"
	"github.com/afes-website/manage-back/internal/wristband"
)

const (
	maxWristbandBatch = 500
	// Draws allowed per requested code before minting gives up.
	mintAttemptsPerCode = 32
)

var errWristbandSpaceExhausted = errors.New("no unused wristband codes left for prefix")

type AdminTermRequest struct {
	ID                 string    `json:"id"`
	EnterScheduledTime time.Time `json:"enter_scheduled_time"`
	ExitScheduledTime  time.Time `json:"exit_scheduled_time"`
	GuestType          string    `json:"guest_type"`
}

func (req *AdminTermRequest) validate(types festival.GuestTypes) string {
	req.ID = strings.TrimSpace(req.ID)
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if _, ok := types.Prefix(req.GuestType); !ok {
		return "unknown guest_type"
	}
	if !req.ExitScheduledTime.After(req.EnterScheduledTime) {
		return "exit_scheduled_time must be after enter_scheduled_time"
	}
	return ""
}

// AdminTermResponse is a created term including its ID.
type AdminTermResponse struct {
	ID string `json:"id"`
	TermResponse
}

type AdminRoomRequest struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Location string `json:"location"`
	Capacity int    `json:"capacity"`
	Password string `json:"password"`
}

func (req *AdminRoomRequest) validate() string {
	req.ID = strings.TrimSpace(req.ID)
	req.Name = strings.TrimSpace(req.Name)
	req.Location = strings.TrimSpace(req.Location)
	if req.ID == "" {
		return "id is required"
	}
	if req.Name == "" {
		return "name is required"
	}
	if req.Capacity <= 0 {
		return "capacity must be positive"
	}
	if req.Password == "" {
		return "password is required for the room terminal"
	}
	return ""
}

type AdminReservationRequest struct {
	ID          string `json:"id"`
	TermID      string `json:"term_id"`
	PeopleCount int    `json:"people_count"`
}

func (req *AdminReservationRequest) validate() string {
	req.ID = strings.TrimSpace(req.ID)
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if strings.TrimSpace(req.TermID) == "" {
		return "term_id is required"
	}
	if req.PeopleCount == 0 {
		req.PeopleCount = 1
	}
	if req.PeopleCount < 0 {
		return "people_count must be positive"
	}
	return ""
}

type AdminUserRequest struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Password    string           `json:"password"`
	Permissions auth.Permissions `json:"permissions"`
}

func (req *AdminUserRequest) validate() string {
	req.ID = strings.TrimSpace(req.ID)
	req.Name = strings.TrimSpace(req.Name)
	if req.ID == "" {
		return "id is required"
	}
	if req.Name == "" {
		return "name is required"
	}
	if req.Password == "" {
		return "password is required"
	}
	return ""
}

// WristbandBatchResponse lists freshly minted, unused wristband codes.
type WristbandBatchResponse struct {
	Codes []string `json:"codes"`
}

// writeAdminFailure adds key collisions to the usual failure mapping.
func writeAdminFailure(w http.ResponseWriter, logger *slog.Logger, err error) {
	if errors.Is(err, store.ErrConflict) {
		writeError(w, http.StatusConflict, "ALREADY_EXISTS", err.Error())
		return
	}
	writeFailure(w, logger, err)
}

func handleAdminCreateTerm(logger *slog.Logger, s *store.Store, types festival.GuestTypes) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AdminTermRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body")
			return
		}
		if msg := req.validate(types); msg != "" {
			writeError(w, http.StatusBadRequest, "INVALID_REQUEST", msg)
			return
		}

		term := festival.Term{
			ID:                 req.ID,
			EnterScheduledTime: req.EnterScheduledTime.UTC(),
			ExitScheduledTime:  req.ExitScheduledTime.UTC(),
			GuestType:          req.GuestType,
		}
		err := s.Update(r.Context(), func(tx *store.Tx) error {
			return tx.Terms.Create(r.Context(), term)
		})
		if err != nil {
			writeAdminFailure(w, logger, err)
			return
		}

		logger.Info("term created", "term", term.ID, "guest_type", term.GuestType)
		writeJSON(w, http.StatusCreated, AdminTermResponse{ID: term.ID, TermResponse: termResponse(term)})
	}
}

// handleAdminCreateRoom creates a room together with the terminal user that
// operates it; the user's ID is the room ID.
func handleAdminCreateRoom(logger *slog.Logger, s *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AdminRoomRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body")
			return
		}
		if msg := req.validate(); msg != "" {
			writeError(w, http.StatusBadRequest, "INVALID_REQUEST", msg)
			return
		}

		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			writeFailure(w, logger, err)
			return
		}

		var room festival.Room
		err = s.Update(r.Context(), func(tx *store.Tx) error {
			var err error
			room, err = tx.Rooms.Create(r.Context(), festival.Room{
				ID:       req.ID,
				Name:     req.Name,
				Location: req.Location,
				Capacity: req.Capacity,
			})
			if err != nil {
				return err
			}
			return tx.Users.Create(r.Context(), store.User{
				ID:           req.ID,
				Name:         req.Name,
				PasswordHash: hash,
				Permissions:  auth.Permissions{Exhibition: true},
			})
		})
		if err != nil {
			writeAdminFailure(w, logger, err)
			return
		}

		logger.Info("room created", "room", room.ID, "capacity", room.Capacity)
		writeJSON(w, http.StatusCreated, exhibitionResponse(admission.RoomSummary{Room: room, Count: map[string]int{}}))
	}
}

func handleAdminCreateReservation(logger *slog.Logger, s *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AdminReservationRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body")
			return
		}
		if msg := req.validate(); msg != "" {
			writeError(w, http.StatusBadRequest, "INVALID_REQUEST", msg)
			return
		}

		var res festival.Reservation
		err := s.Update(r.Context(), func(tx *store.Tx) error {
			if _, err := tx.Terms.Get(r.Context(), req.TermID); err != nil {
				return err
			}
			if err := tx.Reservations.Create(r.Context(), req.ID, req.TermID, req.PeopleCount); err != nil {
				return err
			}
			var err error
			res, err = tx.Reservations.Get(r.Context(), req.ID)
			return err
		})
		if err != nil {
			writeAdminFailure(w, logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, reservationResponse(res))
	}
}

func handleAdminCreateUser(logger *slog.Logger, s *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AdminUserRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body")
			return
		}
		if msg := req.validate(); msg != "" {
			writeError(w, http.StatusBadRequest, "INVALID_REQUEST", msg)
			return
		}

		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			writeFailure(w, logger, err)
			return
		}
		err = s.Update(r.Context(), func(tx *store.Tx) error {
			return tx.Users.Create(r.Context(), store.User{
				ID:           req.ID,
				Name:         req.Name,
				PasswordHash: hash,
				Permissions:  req.Permissions,
			})
		})
		if err != nil {
			writeAdminFailure(w, logger, err)
			return
		}

		logger.Info("user created", "user", req.ID)
		writeJSON(w, http.StatusCreated, UserResponse{ID: req.ID, Name: req.Name, Permissions: req.Permissions})
	}
}

// handleAdminWristbands mints codes for printing. Codes already held by a
// guest are skipped.
func handleAdminWristbands(logger *slog.Logger, s *store.Store, types festival.GuestTypes) http.HandlerFunc {
	known := make(map[string]bool, len(types))
	for _, prefix := range types {
		known[prefix] = true
	}

	return func(w http.ResponseWriter, r *http.Request) {
		prefix := strings.ToUpper(r.URL.Query().Get("prefix"))
		if !known[prefix] {
			writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "prefix must name a configured guest type")
			return
		}
		count := 1
		if raw := r.URL.Query().Get("count"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 || n > maxWristbandBatch {
				writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "count must be between 1 and 500")
				return
			}
			count = n
		}

		var codes []string
		err := s.View(r.Context(), func(tx *store.Tx) error {
			var err error
			codes, err = mintWristbands(r.Context(), tx.Guests, prefix, count, wristband.Generate)
			return err
		})
		if errors.Is(err, errWristbandSpaceExhausted) {
			writeError(w, http.StatusConflict, "WRISTBAND_SPACE_EXHAUSTED", err.Error())
			return
		}
		if err != nil {
			writeFailure(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, WristbandBatchResponse{Codes: codes})
	}
}

// mintWristbands draws count distinct codes that no guest holds yet.
func mintWristbands(ctx context.Context, guests *store.GuestStore, prefix string, count int, generate func(string) (string, error)) ([]string, error) {
	codes := make([]string, 0, count)
	seen := make(map[string]bool, count)
	for attempts := count * mintAttemptsPerCode; len(codes) < count; attempts-- {
		if attempts == 0 {
			return nil, fmt.Errorf("%w: %s after %d draws", errWristbandSpaceExhausted, prefix, count*mintAttemptsPerCode)
		}
		code, err := generate(prefix)
		if err != nil {
			return nil, err
		}
		if seen[code] {
			continue
		}
		if _, err := guests.Find(ctx, code); err == nil {
			continue
		} else if !errors.Is(err, festival.ErrGuestNotFound) {
			return nil, err
		}
		seen[code] = true
		codes = append(codes, code)
	}
	return codes, nil
}
