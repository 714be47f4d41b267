package user

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost matches the reference deployment.
const DefaultBcryptCost = 10

// Service implements registration and login on top of a user Repository.
type Service struct {
	users Repository
	cost  int
	now   func() time.Time
}

// NewService creates a user Service. cost is the bcrypt work factor; pass
// DefaultBcryptCost unless tests need a cheaper one.
func NewService(users Repository, cost int) *Service {
	return &Service{
		users: users,
		cost:  cost,
		now:   time.Now,
	}
}

// Register creates a new user with a hashed password. It returns
// ErrEmailTaken when the email is already registered.
func (s *Service) Register(ctx context.Context, name, email, password string) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, errors.Wrap(err, "hash password")
	}

	u := &User{
		ID:           uuid.New().String(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, ErrEmailTaken
		}
		return nil, errors.Wrap(err, "create user")
	}
	return u, nil
}

// Login verifies email and password. Unknown email and wrong password are
// indistinguishable: both return ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, email, password string) (*User, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, errors.Wrap(err, "get user by email")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// GetByID loads a user by id. Used to resolve a verified session token back
// into an account.
func (s *Service) GetByID(ctx context.Context, id string) (*User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "get user by id")
	}
	return u, nil
}
