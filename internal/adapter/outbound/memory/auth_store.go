// Package memory provides in-memory implementations of outbound ports.
package memory

import (
	"context"
	"sync"

	"github.com/volview-xnat/volviewd/internal/domain/auth"
)

// AuthStore implements auth.AuthStore with in-memory maps.
// Thread-safe for concurrent access. Seeded from the config file and
// state.json at startup and replaced wholesale on state reload.
type AuthStore struct {
	keys       map[string]*auth.APIKey   // normalized hash -> APIKey
	identities map[string]*auth.Identity // ID -> Identity
	mu         sync.RWMutex
}

// NewAuthStore creates a new in-memory auth store.
func NewAuthStore() *AuthStore {
	return &AuthStore{
		keys:       make(map[string]*auth.APIKey),
		identities: make(map[string]*auth.Identity),
	}
}

// GetAPIKey retrieves an API key by its SHA-256 hex hash.
// Returns auth.ErrKeyNotFound if key doesn't exist.
func (s *AuthStore) GetAPIKey(_ context.Context, keyHash string) (*auth.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key, ok := s.keys[auth.NormalizeSHA256(keyHash)]
	if !ok {
		return nil, auth.ErrKeyNotFound
	}
	keyCopy := *key
	return &keyCopy, nil
}

// GetIdentity retrieves an identity by ID.
// Returns auth.ErrIdentityNotFound if identity doesn't exist.
func (s *AuthStore) GetIdentity(_ context.Context, id string) (*auth.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	identity, ok := s.identities[id]
	if !ok {
		return nil, auth.ErrIdentityNotFound
	}
	return identity.Clone(), nil
}

// ListAPIKeys returns all stored API keys for iteration-based verification.
func (s *AuthStore) ListAPIKeys(_ context.Context) ([]*auth.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*auth.APIKey, 0, len(s.keys))
	for _, key := range s.keys {
		keyCopy := *key
		result = append(result, &keyCopy)
	}
	return result, nil
}

// AddKey adds an API key. SHA-256 hashes are stored in bare lowercase form
// so "sha256:"-prefixed and bare hashes resolve alike.
func (s *AuthStore) AddKey(key *auth.APIKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addKeyLocked(key)
}

// AddIdentity adds or replaces an identity.
func (s *AuthStore) AddIdentity(identity *auth.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identities[identity.ID] = identity.Clone()
}

// RemoveKey removes an API key by its stored hash.
func (s *AuthStore) RemoveKey(keyHash string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keys, storageKey(keyHash))
}

// Replace swaps the whole content of the store in one step.
func (s *AuthStore) Replace(identities []*auth.Identity, keys []*auth.APIKey) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.identities = make(map[string]*auth.Identity, len(identities))
	for _, id := range identities {
		s.identities[id.ID] = id.Clone()
	}
	s.keys = make(map[string]*auth.APIKey, len(keys))
	for _, k := range keys {
		s.addKeyLocked(k)
	}
}

// Counts returns the number of identities and keys held.
func (s *AuthStore) Counts() (identities, keys int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.identities), len(s.keys)
}

func (s *AuthStore) addKeyLocked(key *auth.APIKey) {
	keyCopy := *key
	keyCopy.Key = storageKey(key.Key)
	s.keys[keyCopy.Key] = &keyCopy
}

func storageKey(hash string) string {
	if auth.DetectHashType(hash) == auth.HashSHA256 {
		return auth.NormalizeSHA256(hash)
	}
	return hash
}

// Compile-time interface verification.
var _ auth.AuthStore = (*AuthStore)(nil)
