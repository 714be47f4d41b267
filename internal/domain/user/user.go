package user

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// Sentinel errors for the user domain.
var (
	// ErrEmailTaken indicates a registration attempt with an already
	// registered email address.
	ErrEmailTaken = errors.New("email already registered")

	// ErrInvalidCredentials is returned for both unknown email and wrong
	// password, so a caller cannot tell which part failed.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrNotFound is returned when a user id does not exist.
	ErrNotFound = errors.New("user not found")
)

// User is a registered account. PasswordHash is the opaque one-way form of
// the password; plaintext is never persisted.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Repository defines persistence operations for users.
type Repository interface {
	// Create inserts a new user. A duplicate email maps to ErrEmailTaken.
	Create(ctx context.Context, u *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
}
