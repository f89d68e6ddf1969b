package user

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"attendtrack/internal/apperr"
)

// Store is the persistence the service needs.
type Store interface {
	Create(ctx context.Context, u User) error
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	List(ctx context.Context) ([]User, error)
	ToggleLocation(ctx context.Context, id string) (bool, error)
	LocationEnabled(ctx context.Context, id string) (bool, error)
}

// Service manages accounts.
type Service struct {
	store Store
}

// NewService creates a service backed by a store.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// CreateInput carries the admin-supplied fields for a new account.
type CreateInput struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	Role            string `json:"role"`
	LocationEnabled bool   `json:"location_enabled"`
}

// Create registers a new account.
func (s *Service) Create(ctx context.Context, in CreateInput) (User, error) {
	if in.Username == "" || in.Email == "" || in.Password == "" {
		return User{}, apperr.Validation("username, email and password are required")
	}
	role := in.Role
	if role == "" {
		role = RoleUser
	}
	if role != RoleAdmin && role != RoleUser {
		return User{}, apperr.Validation("role must be admin or user")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}

	u := User{
		ID:              uuid.NewString(),
		Username:        in.Username,
		Email:           in.Email,
		PasswordHash:    string(hash),
		Role:            role,
		LocationEnabled: in.LocationEnabled,
		CreatedAt:       time.Now().UTC(),
	}
	if err := s.store.Create(ctx, u); err != nil {
		return User{}, err
	}
	return u, nil
}

// Authenticate verifies credentials. Unknown user and wrong password are
// indistinguishable to the caller.
func (s *Service) Authenticate(ctx context.Context, username, password string) (User, error) {
	acct, err := s.store.GetByUsername(ctx, username)
	if err != nil {
		return User{}, err
	}
	if acct == nil {
		return User{}, apperr.Auth("invalid username or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)); err != nil {
		return User{}, apperr.Auth("invalid username or password")
	}
	return *acct, nil
}

// Get returns an account by id.
func (s *Service) Get(ctx context.Context, id string) (User, error) {
	acct, err := s.store.GetByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	if acct == nil {
		return User{}, apperr.NotFound("user not found")
	}
	return *acct, nil
}

// List returns all accounts.
func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.store.List(ctx)
}

// ToggleLocation flips location tracking for a user and returns the new value.
func (s *Service) ToggleLocation(ctx context.Context, id string) (bool, error) {
	return s.store.ToggleLocation(ctx, id)
}

// LocationEnabled reports the stored flag for a user.
func (s *Service) LocationEnabled(ctx context.Context, id string) (bool, error) {
	return s.store.LocationEnabled(ctx, id)
}

// EnsureAdmin seeds a default admin account on first boot; a no-op when the
// username is already taken.
func (s *Service) EnsureAdmin(ctx context.Context, username, email, password string) error {
	existing, err := s.store.GetByUsername(ctx, username)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}
	_, err = s.Create(ctx, CreateInput{
		Username: username,
		Email:    email,
		Password: password,
		Role:     RoleAdmin,
	})
	if apperr.KindOf(err) == apperr.KindConflict {
		// Lost a race with another instance seeding the same admin.
		log.Printf("admin seed: %v", err)
		return nil
	}
	return err
}
