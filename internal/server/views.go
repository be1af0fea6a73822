package server

import (
	"time"

	"github.com/afes-website/manage-back/internal/admission"
	"github.com/afes-website/manage-back/internal/festival"
)

// GuestResponse describes one guest.
type GuestResponse struct {
	ID            string     `json:"id"`
	TermID        string     `json:"term_id"`
	ReservationID string     `json:"reservation_id"`
	ExhibitionID  *string    `json:"exh_id"`
	RegisteredAt  time.Time  `json:"registered_at"`
	ExitedAt      *time.Time `json:"exited_at"`
}

func guestResponse(g festival.Guest) GuestResponse {
	return GuestResponse{
		ID:            g.ID,
		TermID:        g.TermID,
		ReservationID: g.ReservationID,
		ExhibitionID:  g.RoomID,
		RegisteredAt:  g.RegisteredAt,
		ExitedAt:      g.ExitedAt,
	}
}

// TermResponse describes a term; terms are keyed by ID in listings.
type TermResponse struct {
	EnterScheduledTime time.Time `json:"enter_scheduled_time"`
	ExitScheduledTime  time.Time `json:"exit_scheduled_time"`
	GuestType          string    `json:"guest_type"`
}

func termResponse(t festival.Term) TermResponse {
	return TermResponse{
		EnterScheduledTime: t.EnterScheduledTime,
		ExitScheduledTime:  t.ExitScheduledTime,
		GuestType:          t.GuestType,
	}
}

type ExhibitionInfo struct {
	Name     string `json:"name"`
	Location string `json:"location"`
}

// ExhibitionResponse is a room with live occupancy per term.
type ExhibitionResponse struct {
	ID         string         `json:"id"`
	Info       ExhibitionInfo `json:"info"`
	Capacity   int            `json:"capacity"`
	Count      map[string]int `json:"count"`
	GuestCount int            `json:"guest_count"`
}

func exhibitionResponse(s admission.RoomSummary) ExhibitionResponse {
	return ExhibitionResponse{
		ID:         s.Room.ID,
		Info:       ExhibitionInfo{Name: s.Room.Name, Location: s.Room.Location},
		Capacity:   s.Room.Capacity,
		Count:      s.Count,
		GuestCount: s.Room.GuestCount,
	}
}

type ExhibitionTotals struct {
	Count map[string]int `json:"count"`
	Limit int            `json:"limit"`
}

// ExhibitionListResponse is every room keyed by ID plus event-wide totals.
type ExhibitionListResponse struct {
	Exhibitions map[string]ExhibitionResponse `json:"exh"`
	All         ExhibitionTotals              `json:"all"`
}

type LogEntryResponse struct {
	ID           int64     `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	ExhibitionID string    `json:"exh_id"`
	GuestID      string    `json:"guest_id"`
	LogType      string    `json:"log_type"`
}

func logResponse(entries []festival.LogEntry) []LogEntryResponse {
	out := make([]LogEntryResponse, len(entries))
	for i, e := range entries {
		out[i] = LogEntryResponse{
			ID:           e.ID,
			Timestamp:    e.Timestamp,
			ExhibitionID: e.RoomID,
			GuestID:      e.GuestID,
			LogType:      string(e.Kind),
		}
	}
	return out
}

// ReservationResponse reports a reservation and whether it was used.
type ReservationResponse struct {
	ID              string       `json:"id"`
	Term            TermResponse `json:"term"`
	TermID          string       `json:"term_id"`
	MemberAll       int          `json:"member_all"`
	MemberCheckedIn int          `json:"member_checked_in"`
}

func reservationResponse(r festival.Reservation) ReservationResponse {
	checkedIn := 0
	if r.Consumed() {
		checkedIn = 1
	}
	return ReservationResponse{
		ID:              r.ID,
		Term:            termResponse(r.Term),
		TermID:          r.Term.ID,
		MemberAll:       r.PeopleCount,
		MemberCheckedIn: checkedIn,
	}
}
