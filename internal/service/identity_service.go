package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/volview-xnat/volviewd/internal/adapter/outbound/state"
	"github.com/volview-xnat/volviewd/internal/domain/auth"
)

// IdentityService errors.
var (
	ErrIdentityNotFound = errors.New("identity not found")
	ErrAPIKeyNotFound   = errors.New("api key not found")
	ErrDuplicateName    = errors.New("identity name already exists")
	ErrInvalidRole      = errors.New("invalid role")
)

// keyPrefix marks generated keys so they are recognisable in logs and
// secret scanners.
const keyPrefix = "vv_"

// IdentityService manages the identities and API keys kept in state.json.
// A running server picks the changes up through the state watcher.
type IdentityService struct {
	stateStore *state.FileStateStore
	logger     *slog.Logger
}

// NewIdentityService creates a new IdentityService.
func NewIdentityService(stateStore *state.FileStateStore, logger *slog.Logger) *IdentityService {
	return &IdentityService{
		stateStore: stateStore,
		logger:     logger,
	}
}

// CreateIdentityInput holds the fields for a new identity.
type CreateIdentityInput struct {
	ID       string
	Name     string
	Roles    []string
	Projects []string
}

// ListIdentities returns all identities in state.json.
func (s *IdentityService) ListIdentities(_ context.Context) ([]state.IdentityEntry, error) {
	appState, err := s.stateStore.Load()
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}
	out := make([]state.IdentityEntry, len(appState.Identities))
	copy(out, appState.Identities)
	return out, nil
}

// GetIdentity returns the identity with the given ID.
func (s *IdentityService) GetIdentity(_ context.Context, id string) (*state.IdentityEntry, error) {
	appState, err := s.stateStore.Load()
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}
	idx := findIdentity(appState, id)
	if idx == -1 {
		return nil, ErrIdentityNotFound
	}
	entry := appState.Identities[idx]
	return &entry, nil
}

// CreateIdentity adds an identity. The ID is generated when empty. Roles
// default to member.
func (s *IdentityService) CreateIdentity(_ context.Context, input CreateIdentityInput) (*state.IdentityEntry, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, fmt.Errorf("name is required")
	}
	roles, err := normalizeRoles(input.Roles)
	if err != nil {
		return nil, err
	}

	entry := state.IdentityEntry{
		ID:       strings.TrimSpace(input.ID),
		Name:     name,
		Roles:    roles,
		Projects: normalizeProjects(input.Projects),
	}
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}

	err = s.stateStore.Update(func(appState *state.AppState) error {
		for _, existing := range appState.Identities {
			if existing.ID == entry.ID {
				return fmt.Errorf("identity %q already exists", entry.ID)
			}
			if strings.EqualFold(existing.Name, entry.Name) {
				return ErrDuplicateName
			}
		}
		appState.Identities = append(appState.Identities, entry)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("identity created", "id", entry.ID, "name", entry.Name, "projects", len(entry.Projects))
	return &entry, nil
}

// SetProjects replaces the project memberships of an identity.
func (s *IdentityService) SetProjects(_ context.Context, id string, projects []string) (*state.IdentityEntry, error) {
	var updated state.IdentityEntry
	err := s.stateStore.Update(func(appState *state.AppState) error {
		idx := findIdentity(appState, id)
		if idx == -1 {
			return ErrIdentityNotFound
		}
		appState.Identities[idx].Projects = normalizeProjects(projects)
		updated = appState.Identities[idx]
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("identity projects updated", "id", id, "projects", len(updated.Projects))
	return &updated, nil
}

// DeleteIdentity removes an identity and all its API keys. It returns the
// number of keys removed.
func (s *IdentityService) DeleteIdentity(_ context.Context, id string) (int, error) {
	removed := 0
	err := s.stateStore.Update(func(appState *state.AppState) error {
		idx := findIdentity(appState, id)
		if idx == -1 {
			return ErrIdentityNotFound
		}
		appState.Identities = append(appState.Identities[:idx], appState.Identities[idx+1:]...)

		kept := make([]state.APIKeyEntry, 0, len(appState.APIKeys))
		for _, key := range appState.APIKeys {
			if key.IdentityID == id {
				removed++
				continue
			}
			kept = append(kept, key)
		}
		appState.APIKeys = kept
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("identity deleted (cascade)", "id", id, "keys_removed", removed)
	return removed, nil
}

// GenerateKeyInput holds the input for generating an API key.
type GenerateKeyInput struct {
	IdentityID string
	Name       string
	// TTL limits the key lifetime. Zero means the key never expires.
	TTL time.Duration
	// Argon2id stores a salted Argon2id hash instead of sha256.
	Argon2id bool
}

// GenerateKeyResult holds the result of key generation.
// The CleartextKey is returned exactly once and never stored.
type GenerateKeyResult struct {
	KeyEntry     state.APIKeyEntry
	CleartextKey string
}

// GenerateKey creates a new API key for the given identity. Only the hash
// is persisted.
func (s *IdentityService) GenerateKey(_ context.Context, input GenerateKeyInput) (*GenerateKeyResult, error) {
	if input.IdentityID == "" {
		return nil, fmt.Errorf("identity_id is required")
	}
	if input.TTL < 0 {
		return nil, fmt.Errorf("ttl must not be negative")
	}

	rawKey := make([]byte, 32)
	if _, err := rand.Read(rawKey); err != nil {
		return nil, fmt.Errorf("generate random key: %w", err)
	}
	cleartextKey := keyPrefix + hex.EncodeToString(rawKey)

	hash := "sha256:" + auth.HashKey(cleartextKey)
	if input.Argon2id {
		h, err := auth.HashKeyArgon2id(cleartextKey)
		if err != nil {
			return nil, fmt.Errorf("hash key: %w", err)
		}
		hash = h
	}

	entry := state.APIKeyEntry{
		ID:         uuid.New().String(),
		KeyHash:    hash,
		IdentityID: input.IdentityID,
		Name:       input.Name,
	}
	if input.TTL > 0 {
		expires := time.Now().UTC().Add(input.TTL)
		entry.ExpiresAt = &expires
	}

	err := s.stateStore.Update(func(appState *state.AppState) error {
		if findIdentity(appState, input.IdentityID) == -1 {
			return ErrIdentityNotFound
		}
		appState.APIKeys = append(appState.APIKeys, entry)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("api key generated", "key_id", entry.ID, "identity_id", input.IdentityID, "name", input.Name)
	return &GenerateKeyResult{KeyEntry: entry, CleartextKey: cleartextKey}, nil
}

// RevokeKey marks an API key as revoked. It does not delete it.
func (s *IdentityService) RevokeKey(_ context.Context, keyID string) error {
	if keyID == "" {
		return ErrAPIKeyNotFound
	}
	err := s.stateStore.Update(func(appState *state.AppState) error {
		for i := range appState.APIKeys {
			if appState.APIKeys[i].ID == keyID {
				appState.APIKeys[i].Revoked = true
				return nil
			}
		}
		return ErrAPIKeyNotFound
	})
	if err != nil {
		return err
	}
	s.logger.Info("api key revoked", "key_id", keyID)
	return nil
}

// ListKeys returns the API keys of an identity, or all keys when
// identityID is empty.
func (s *IdentityService) ListKeys(_ context.Context, identityID string) ([]state.APIKeyEntry, error) {
	appState, err := s.stateStore.Load()
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}
	result := []state.APIKeyEntry{}
	for _, key := range appState.APIKeys {
		if identityID == "" || key.IdentityID == identityID {
			result = append(result, key)
		}
	}
	return result, nil
}

func findIdentity(appState *state.AppState, id string) int {
	for i := range appState.Identities {
		if appState.Identities[i].ID == id {
			return i
		}
	}
	return -1
}

func normalizeRoles(roles []string) ([]string, error) {
	if len(roles) == 0 {
		return []string{string(auth.RoleMember)}, nil
	}
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		r = strings.ToLower(strings.TrimSpace(r))
		if !auth.Role(r).IsValid() {
			return nil, fmt.Errorf("%w: %q", ErrInvalidRole, r)
		}
		out = append(out, r)
	}
	return out, nil
}

func normalizeProjects(projects []string) []string {
	var out []string
	seen := make(map[string]bool, len(projects))
	for _, p := range projects {
		p = strings.TrimSpace(p)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}
