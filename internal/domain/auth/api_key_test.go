package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

// mockAuthStore implements AuthStore for testing.
type mockAuthStore struct {
	keys       map[string]*APIKey
	identities map[string]*Identity
}

func newMockAuthStore() *mockAuthStore {
	return &mockAuthStore{
		keys:       make(map[string]*APIKey),
		identities: make(map[string]*Identity),
	}
}

func (m *mockAuthStore) GetAPIKey(ctx context.Context, keyHash string) (*APIKey, error) {
	key, ok := m.keys[keyHash]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return key, nil
}

func (m *mockAuthStore) GetIdentity(ctx context.Context, id string) (*Identity, error) {
	identity, ok := m.identities[id]
	if !ok {
		return nil, ErrIdentityNotFound
	}
	return identity, nil
}

func (m *mockAuthStore) ListAPIKeys(ctx context.Context) ([]*APIKey, error) {
	result := make([]*APIKey, 0, len(m.keys))
	for _, key := range m.keys {
		result = append(result, key)
	}
	return result, nil
}

var _ AuthStore = (*mockAuthStore)(nil)

func TestAPIKeyService_Authenticate(t *testing.T) {
	rawKey := "volview-key-12345"
	keyHash := HashKey(rawKey)

	past := time.Now().UTC().Add(-time.Hour)
	future := time.Now().UTC().Add(time.Hour)

	tests := []struct {
		name       string
		rawKey     string
		setupStore func(*mockAuthStore)
		wantErr    error
		wantID     string
	}{
		{
			name:   "valid sha256 key",
			rawKey: rawKey,
			setupStore: func(m *mockAuthStore) {
				m.keys[keyHash] = &APIKey{Key: keyHash, IdentityID: "alice", ExpiresAt: &future}
				m.identities["alice"] = &Identity{ID: "alice", Roles: []Role{RoleMember}, Projects: []string{"P1"}}
			},
			wantID: "alice",
		},
		{
			name:   "expired key",
			rawKey: rawKey,
			setupStore: func(m *mockAuthStore) {
				m.keys[keyHash] = &APIKey{Key: keyHash, IdentityID: "alice", ExpiresAt: &past}
				m.identities["alice"] = &Identity{ID: "alice"}
			},
			wantErr: ErrInvalidKey,
		},
		{
			name:   "revoked key",
			rawKey: rawKey,
			setupStore: func(m *mockAuthStore) {
				m.keys[keyHash] = &APIKey{Key: keyHash, IdentityID: "alice", Revoked: true}
				m.identities["alice"] = &Identity{ID: "alice"}
			},
			wantErr: ErrInvalidKey,
		},
		{
			name:       "unknown key",
			rawKey:     "nope",
			setupStore: func(m *mockAuthStore) {},
			wantErr:    ErrInvalidKey,
		},
		{
			name:       "empty key",
			rawKey:     "",
			setupStore: func(m *mockAuthStore) {},
			wantErr:    ErrInvalidKey,
		},
		{
			name:   "dangling identity",
			rawKey: rawKey,
			setupStore: func(m *mockAuthStore) {
				m.keys[keyHash] = &APIKey{Key: keyHash, IdentityID: "ghost"}
			},
			wantErr: ErrIdentityNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMockAuthStore()
			tt.setupStore(store)
			svc := NewAPIKeyService(store)

			identity, err := svc.Authenticate(context.Background(), tt.rawKey)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Authenticate() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Authenticate() unexpected error: %v", err)
			}
			if identity.ID != tt.wantID {
				t.Errorf("Authenticate() ID = %q, want %q", identity.ID, tt.wantID)
			}
		})
	}
}

func TestAPIKeyService_Authenticate_Argon2id(t *testing.T) {
	rawKey := "argon-key-67890"
	hash, err := HashKeyArgon2id(rawKey)
	if err != nil {
		t.Fatalf("HashKeyArgon2id() error = %v", err)
	}

	store := newMockAuthStore()
	store.keys[hash] = &APIKey{Key: hash, IdentityID: "bob"}
	store.identities["bob"] = &Identity{ID: "bob", Roles: []Role{RoleAdmin}}

	identity, err := NewAPIKeyService(store).Authenticate(context.Background(), rawKey)
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if !identity.IsAdmin() {
		t.Error("expected admin identity")
	}

	if _, err := NewAPIKeyService(store).Authenticate(context.Background(), "wrong"); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("Authenticate(wrong) error = %v, want ErrInvalidKey", err)
	}
}

func TestIdentity_MemberOf(t *testing.T) {
	id := &Identity{Projects: []string{"P1", "Shared"}}

	if !id.MemberOf("p1") {
		t.Error("MemberOf should compare case-insensitively")
	}
	if id.MemberOf("P2") {
		t.Error("MemberOf(P2) = true, want false")
	}
}

func TestIdentity_Clone(t *testing.T) {
	id := &Identity{ID: "a", Roles: []Role{RoleMember}, Projects: []string{"P1"}}
	c := id.Clone()
	c.Projects[0] = "X"
	c.Roles[0] = RoleAdmin

	if id.Projects[0] != "P1" || id.Roles[0] != RoleMember {
		t.Error("Clone() shares slices with the original")
	}
}

func TestRole_IsValid(t *testing.T) {
	for role, want := range map[Role]bool{RoleAdmin: true, RoleMember: true, "root": false, "": false} {
		if got := role.IsValid(); got != want {
			t.Errorf("Role(%q).IsValid() = %v, want %v", role, got, want)
		}
	}
}

func TestHashKeyArgon2id_Salted(t *testing.T) {
	h1, err := HashKeyArgon2id("k")
	if err != nil {
		t.Fatal(err)
	}
	h2, err := HashKeyArgon2id("k")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(h1, "$argon2id$") {
		t.Errorf("HashKeyArgon2id() = %q, want $argon2id$ prefix", h1)
	}
	if h1 == h2 {
		t.Error("HashKeyArgon2id() produced identical hashes")
	}
}

func TestDetectHashType(t *testing.T) {
	tests := []struct {
		hash string
		want string
	}{
		{"$argon2id$v=19$m=47104,t=1,p=1$abc$xyz", HashArgon2id},
		{"sha256:e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", HashSHA256},
		{"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", HashSHA256},
		{"abc123", HashUnknown},
		{"$bcrypt$abc", HashUnknown},
		{"", HashUnknown},
	}
	for _, tt := range tests {
		if got := DetectHashType(tt.hash); got != tt.want {
			t.Errorf("DetectHashType(%q) = %q, want %q", tt.hash, got, tt.want)
		}
	}
}

func TestVerifyKey(t *testing.T) {
	rawKey := "verify-me"
	argonHash, err := HashKeyArgon2id(rawKey)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		raw    string
		stored string
		want   bool
		err    error
	}{
		{"argon2id match", rawKey, argonHash, true, nil},
		{"argon2id mismatch", "other", argonHash, false, nil},
		{"prefixed sha256 match", rawKey, "sha256:" + HashKey(rawKey), true, nil},
		{"bare sha256 match", rawKey, HashKey(rawKey), true, nil},
		{"uppercase sha256 match", rawKey, "sha256:" + strings.ToUpper(HashKey(rawKey)), true, nil},
		{"sha256 mismatch", "other", HashKey(rawKey), false, nil},
		{"unknown format", rawKey, "plain", false, ErrUnknownHashType},
		{"malformed argon2id", rawKey, "$argon2id$v=19$m=0,t=0,p=0$AAAA$AAAA", false, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := VerifyKey(tt.raw, tt.stored)
			if tt.err != nil {
				if !errors.Is(err, tt.err) {
					t.Errorf("VerifyKey() error = %v, want %v", err, tt.err)
				}
				return
			}
			if got != tt.want {
				t.Errorf("VerifyKey() = %v, want %v", got, tt.want)
			}
		})
	}
}
