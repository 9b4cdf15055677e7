package auth

import (
	"context"
	"errors"
)

// Store lookup errors.
var (
	ErrKeyNotFound      = errors.New("api key not found")
	ErrIdentityNotFound = errors.New("identity not found")
)

// AuthStore provides credential lookup for authentication.
type AuthStore interface {
	// GetAPIKey retrieves an API key by its SHA-256 hex hash.
	// Returns ErrKeyNotFound if the key doesn't exist.
	GetAPIKey(ctx context.Context, keyHash string) (*APIKey, error)

	// GetIdentity retrieves an identity by ID.
	// Returns ErrIdentityNotFound if the identity doesn't exist.
	GetIdentity(ctx context.Context, id string) (*Identity, error)

	// ListAPIKeys returns all stored keys for hash-by-hash verification.
	ListAPIKeys(ctx context.Context) ([]*APIKey, error)
}
