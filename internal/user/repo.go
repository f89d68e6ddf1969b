package user

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"attendtrack/internal/apperr"
)

// Repository persists accounts in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// Create inserts a new account. Duplicate username or email surfaces as a conflict.
func (r *Repository) Create(ctx context.Context, u User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, username, email, password_hash, role, location_enabled, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, u.ID, u.Username, u.Email, u.PasswordHash, u.Role, u.LocationEnabled, u.CreatedAt)
	if isUniqueViolation(err) {
		return apperr.Conflict("username or email already exists")
	}
	return err
}

// GetByUsername returns an account or nil when absent.
func (r *Repository) GetByUsername(ctx context.Context, username string) (*User, error) {
	return r.scanOne(r.db.QueryRowContext(ctx, `
		SELECT id, username, email, password_hash, role, location_enabled, created_at
		FROM users WHERE username = $1
	`, username))
}

// GetByID returns an account or nil when absent.
func (r *Repository) GetByID(ctx context.Context, id string) (*User, error) {
	return r.scanOne(r.db.QueryRowContext(ctx, `
		SELECT id, username, email, password_hash, role, location_enabled, created_at
		FROM users WHERE id = $1
	`, id))
}

func (r *Repository) scanOne(row *sql.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.LocationEnabled, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// List returns all accounts, newest first.
func (r *Repository) List(ctx context.Context) ([]User, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, username, email, password_hash, role, location_enabled, created_at
		FROM users ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.LocationEnabled, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// ToggleLocation flips the per-user location flag and returns the new value.
func (r *Repository) ToggleLocation(ctx context.Context, id string) (bool, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE users SET location_enabled = NOT location_enabled
		WHERE id = $1
		RETURNING location_enabled
	`, id)
	var enabled bool
	if err := row.Scan(&enabled); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, apperr.NotFound("user not found")
		}
		return false, err
	}
	return enabled, nil
}

// LocationEnabled reports the stored flag for a user.
func (r *Repository) LocationEnabled(ctx context.Context, id string) (bool, error) {
	var enabled bool
	err := r.db.QueryRowContext(ctx, `SELECT location_enabled FROM users WHERE id = $1`, id).Scan(&enabled)
	if errors.Is(err, sql.ErrNoRows) {
		return false, apperr.NotFound("user not found")
	}
	return enabled, err
}
