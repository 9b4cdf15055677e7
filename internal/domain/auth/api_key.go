package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/alexedwards/argon2id"
)

// ErrInvalidKey is returned when an API key is unknown, expired or revoked.
var ErrInvalidKey = errors.New("invalid api key")

// ErrUnknownHashType is returned when a stored hash has an unrecognized format.
var ErrUnknownHashType = errors.New("unknown hash type")

// Hash type names returned by DetectHashType.
const (
	HashArgon2id = "argon2id"
	HashSHA256   = "sha256"
	HashUnknown  = "unknown"
)

// APIKeyService resolves raw API keys to identities.
type APIKeyService struct {
	store AuthStore
}

// NewAPIKeyService creates a new APIKeyService with the given store.
func NewAPIKeyService(store AuthStore) *APIKeyService {
	return &APIKeyService{store: store}
}

// Authenticate returns the identity owning rawKey.
//
// SHA-256 keys are found with a direct lookup; Argon2id keys need a scan
// with per-key verification.
func (s *APIKeyService) Authenticate(ctx context.Context, rawKey string) (*Identity, error) {
	if rawKey == "" {
		return nil, ErrInvalidKey
	}
	if key, err := s.store.GetAPIKey(ctx, HashKey(rawKey)); err == nil {
		return s.resolve(ctx, key)
	}

	keys, err := s.store.ListAPIKeys(ctx)
	if err != nil {
		return nil, ErrInvalidKey
	}
	for _, candidate := range keys {
		if DetectHashType(candidate.Key) != HashArgon2id {
			continue
		}
		if ok, verr := VerifyKey(rawKey, candidate.Key); verr == nil && ok {
			return s.resolve(ctx, candidate)
		}
	}
	return nil, ErrInvalidKey
}

func (s *APIKeyService) resolve(ctx context.Context, key *APIKey) (*Identity, error) {
	if key.Revoked || key.IsExpired() {
		return nil, ErrInvalidKey
	}
	identity, err := s.store.GetIdentity(ctx, key.IdentityID)
	if err != nil {
		return nil, fmt.Errorf("resolve identity %q: %w", key.IdentityID, err)
	}
	return identity, nil
}

// HashKey returns the SHA-256 hex hash of the raw key.
func HashKey(rawKey string) string {
	sum := sha256.Sum256([]byte(rawKey))
	return hex.EncodeToString(sum[:])
}

// argon2idParams are the OWASP minimum parameters for Argon2id.
var argon2idParams = &argon2id.Params{
	Memory:      47 * 1024,
	Iterations:  1,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

// HashKeyArgon2id returns an Argon2id hash of the raw key in PHC format.
func HashKeyArgon2id(rawKey string) (string, error) {
	return argon2id.CreateHash(rawKey, argon2idParams)
}

// DetectHashType identifies the algorithm of a stored hash.
func DetectHashType(storedHash string) string {
	switch {
	case strings.HasPrefix(storedHash, "$argon2id$"):
		return HashArgon2id
	case strings.HasPrefix(storedHash, "sha256:"):
		return HashSHA256
	case len(storedHash) == 64 && isHex(storedHash):
		return HashSHA256
	default:
		return HashUnknown
	}
}

// NormalizeSHA256 strips the "sha256:" prefix so prefixed and bare hashes
// share one lookup key.
func NormalizeSHA256(storedHash string) string {
	return strings.ToLower(strings.TrimPrefix(storedHash, "sha256:"))
}

func isHex(s string) bool {
	_, err := hex.DecodeString(s)
	return err == nil
}

// VerifyKey checks rawKey against a stored hash.
func VerifyKey(rawKey, storedHash string) (bool, error) {
	switch DetectHashType(storedHash) {
	case HashArgon2id:
		return compareArgon2id(rawKey, storedHash)
	case HashSHA256:
		want := NormalizeSHA256(storedHash)
		return subtle.ConstantTimeCompare([]byte(HashKey(rawKey)), []byte(want)) == 1, nil
	default:
		return false, ErrUnknownHashType
	}
}

// compareArgon2id converts panics from malformed PHC parameters into errors.
func compareArgon2id(rawKey, storedHash string) (match bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			match = false
			err = fmt.Errorf("invalid argon2id hash parameters: %v", r)
		}
	}()
	return argon2id.ComparePasswordAndHash(rawKey, storedHash)
}
