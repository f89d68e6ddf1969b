package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenStore keeps issued refresh tokens in Redis so they can be rotated
// and revoked. Keys expire with the token itself.
type TokenStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewTokenStore creates a store; ttl should match the refresh token TTL.
func NewTokenStore(client *redis.Client, ttl time.Duration) *TokenStore {
	return &TokenStore{client: client, ttl: ttl}
}

var ErrTokenUnknown = errors.New("refresh token unknown or revoked")

func tokenKey(token string) string {
	// Tokens are long; store a digest instead of the raw JWT.
	sum := sha256.Sum256([]byte(token))
	return "attendtrack:refresh:" + hex.EncodeToString(sum[:])
}

// Save records a refresh token for the user.
func (s *TokenStore) Save(ctx context.Context, userID, token string) error {
	return s.client.Set(ctx, tokenKey(token), userID, s.ttl).Err()
}

// Validate checks a presented refresh token and returns the owning user id.
func (s *TokenStore) Validate(ctx context.Context, token string) (string, error) {
	userID, err := s.client.Get(ctx, tokenKey(token)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrTokenUnknown
	}
	if err != nil {
		return "", err
	}
	return userID, nil
}

// Revoke drops a refresh token; revoking an unknown token is not an error.
func (s *TokenStore) Revoke(ctx context.Context, token string) error {
	return s.client.Del(ctx, tokenKey(token)).Err()
}
