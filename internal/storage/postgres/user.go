package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/devnology/storefront/internal/domain/user"
)

const (
	insertUserSQL = `INSERT INTO users (id, name, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	getUserByEmailSQL = `SELECT id, name, email, password_hash, created_at
		FROM users WHERE email = $1`

	getUserByIDSQL = `SELECT id, name, email, password_hash, created_at
		FROM users WHERE id = $1`
)

// uniqueViolation is the PostgreSQL error code for unique constraint breaches.
const uniqueViolation = "23505"

var _ user.Repository = (*UserRepository)(nil)

// UserRepository implements user.Repository backed by PostgreSQL.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a UserRepository that uses the given pool.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// Create inserts a new user row. A duplicate email maps to user.ErrEmailTaken.
func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	_, err := r.pool.Exec(ctx, insertUserSQL, u.ID, u.Name, u.Email, u.PasswordHash, u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return user.ErrEmailTaken
		}
		return errors.Wrap(err, "insert user")
	}
	return nil
}

// GetByEmail returns the user registered under email, or user.ErrNotFound.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	return r.getOne(ctx, getUserByEmailSQL, email)
}

// GetByID returns the user with the given id, or user.ErrNotFound.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*user.User, error) {
	return r.getOne(ctx, getUserByIDSQL, id)
}

func (r *UserRepository) getOne(ctx context.Context, sql string, arg any) (*user.User, error) {
	rows, err := r.pool.Query(ctx, sql, arg)
	if err != nil {
		return nil, errors.Wrap(err, "query user")
	}

	u, err := pgx.CollectExactlyOneRow(rows, func(row pgx.CollectableRow) (user.User, error) {
		var u user.User
		err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt)
		return u, err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, user.ErrNotFound
		}
		return nil, errors.Wrap(err, "scan user")
	}
	return &u, nil
}
