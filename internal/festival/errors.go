package festival

import "errors"

// Error is a business-rule rejection with a stable machine-readable code.
type Error struct {
	Code string
	msg  string
}

func (e *Error) Error() string { return e.msg }

func newError(code, msg string) *Error {
	return &Error{Code: code, msg: msg}
}

// Validation errors.
var (
	ErrInvalidIdentifier   = newError("INVALID_IDENTIFIER", "invalid guest identifier")
	ErrInvalidWristband    = newError("INVALID_WRISTBAND_CODE", "invalid wristband code")
	ErrWrongWristbandColor = newError("WRONG_WRISTBAND_COLOR", "wristband color does not match the guest type")
)

// Not-found errors.
var (
	ErrGuestNotFound       = newError("GUEST_NOT_FOUND", "guest not found")
	ErrExhibitionNotFound  = newError("EXHIBITION_NOT_FOUND", "exhibition not found")
	ErrReservationNotFound = newError("RESERVATION_NOT_FOUND", "reservation not found")
	ErrRoomNotFound        = newError("ROOM_NOT_FOUND", "room not found")
	ErrTermNotFound        = newError("TERM_NOT_FOUND", "term not found")
)

// Conflict and state errors.
var (
	ErrDuplicateIdentifier  = newError("DUPLICATE_IDENTIFIER", "guest identifier already exists")
	ErrAlreadyUsedWristband = newError("ALREADY_USED_WRISTBAND", "wristband already used")
	ErrGuestAlreadyEntered  = newError("GUEST_ALREADY_ENTERED", "guest already entered this exhibition")
	ErrGuestAlreadyExited   = newError("GUEST_ALREADY_EXITED", "guest already exited")
	ErrGuestNotInExhibition = newError("GUEST_NOT_IN_EXHIBITION", "guest is not in this exhibition")
	ErrPeopleLimitExceeded  = newError("PEOPLE_LIMIT_EXCEEDED", "exhibition is full")
	ErrExitTimeExceeded     = newError("EXIT_TIME_EXCEEDED", "guest exit time exceeded")
	ErrReservationExpired   = newError("RESERVATION_EXPIRED", "reservation expired")
	ErrReservationConsumed  = newError("ALREADY_ENTERED_RESERVATION", "reservation already used")
)

// CodeOf returns the domain code carried by err, if any.
func CodeOf(err error) (string, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return "", false
}
