// Package auth models the caller of the API: who they are and which
// capabilities they hold. Room terminals are users whose ID is the ID of the
// exhibition room they operate.
package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Permissions is the capability set attached to an identity.
type Permissions struct {
	Admin       bool `json:"admin"`
	Reservation bool `json:"reservation"`
	Executive   bool `json:"executive"`
	Exhibition  bool `json:"exhibition"`
	Teacher     bool `json:"teacher"`
}

// Permission names a single capability.
type Permission string

const (
	PermAdmin       Permission = "admin"
	PermReservation Permission = "reservation"
	PermExecutive   Permission = "executive"
	PermExhibition  Permission = "exhibition"
	PermTeacher     Permission = "teacher"
)

// Has reports whether p grants perm.
func (p Permissions) Has(perm Permission) bool {
	switch perm {
	case PermAdmin:
		return p.Admin
	case PermReservation:
		return p.Reservation
	case PermExecutive:
		return p.Executive
	case PermExhibition:
		return p.Exhibition
	case PermTeacher:
		return p.Teacher
	}
	return false
}

// Any reports whether p grants at least one of perms.
func (p Permissions) Any(perms ...Permission) bool {
	for _, perm := range perms {
		if p.Has(perm) {
			return true
		}
	}
	return false
}

// Identity is an authenticated caller.
type Identity struct {
	ID          string
	Name        string
	Permissions Permissions
}

type ctxKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the identity stored by WithIdentity.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}

var ErrInvalidCredentials = errors.New("invalid credentials")

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword compares password against a bcrypt hash.
func CheckPassword(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}
