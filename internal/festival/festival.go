// Package festival defines the core domain types of the admission system:
// terms, reservations, guests, exhibition rooms and activity log entries.
package festival

import "time"

// Term is a pre-registered visit slot. A guest admitted under a term may
// not enter any room once the term's scheduled exit time has passed.
type Term struct {
	ID                 string
	EnterScheduledTime time.Time
	ExitScheduledTime  time.Time
	GuestType          string
}

// Closed reports whether the term's exit deadline has been reached at now.
func (t Term) Closed(now time.Time) bool {
	return !now.Before(t.ExitScheduledTime)
}

// Reservation is a pre-registration record consumed once by check-in.
type Reservation struct {
	ID          string
	Term        Term
	PeopleCount int
	GuestID     *string
}

// Consumed reports whether a guest has already been linked.
func (r Reservation) Consumed() bool {
	return r.GuestID != nil
}

// Check returns the reason the reservation cannot be used for a check-in
// at now, or nil when it can.
func (r Reservation) Check(now time.Time) error {
	if r.Term.Closed(now) {
		return ErrReservationExpired
	}
	if r.Consumed() {
		return ErrReservationConsumed
	}
	return nil
}

// Guest is a physical attendee identified by their wristband code.
type Guest struct {
	ID            string
	TermID        string
	ReservationID string
	RoomID        *string
	RegisteredAt  time.Time
	ExitedAt      *time.Time
}

// Exited reports whether the guest has checked out of the event.
func (g Guest) Exited() bool {
	return g.ExitedAt != nil
}

// In reports whether the guest is currently inside roomID.
func (g Guest) In(roomID string) bool {
	return g.RoomID != nil && *g.RoomID == roomID
}

// Room is an exhibition room. GuestCount is derived from guest state at
// read time and is never stored.
type Room struct {
	ID         string
	Name       string
	Location   string
	Capacity   int
	GuestCount int
}

// Full reports whether no more guests may enter.
func (r Room) Full() bool {
	return r.GuestCount >= r.Capacity
}

// LogKind is the direction of an activity log entry.
type LogKind string

const (
	LogEnter LogKind = "enter"
	LogExit  LogKind = "exit"
)

// LogEntry is an immutable enter/exit fact.
type LogEntry struct {
	ID        int64
	RoomID    string
	GuestID   string
	Kind      LogKind
	Timestamp time.Time
}

// GuestTypes maps a guest type to the wristband prefix issued for it.
type GuestTypes map[string]string

// Prefix returns the wristband prefix mandated for guestType.
func (gt GuestTypes) Prefix(guestType string) (string, bool) {
	p, ok := gt[guestType]
	return p, ok
}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the wall clock.
var SystemClock Clock = systemClock{}
