package memory

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/volview-xnat/volviewd/internal/domain/auth"
)

func TestAuthStore_GetAPIKey(t *testing.T) {
	t.Parallel()

	hash := auth.HashKey("secret")

	tests := []struct {
		name    string
		setup   func(*AuthStore)
		lookup  string
		wantErr error
	}{
		{
			name:   "bare hash",
			setup:  func(s *AuthStore) { s.AddKey(&auth.APIKey{Key: hash, IdentityID: "u1"}) },
			lookup: hash,
		},
		{
			name:   "prefixed hash stored",
			setup:  func(s *AuthStore) { s.AddKey(&auth.APIKey{Key: "sha256:" + hash, IdentityID: "u1"}) },
			lookup: hash,
		},
		{
			name:   "uppercase hash stored",
			setup:  func(s *AuthStore) { s.AddKey(&auth.APIKey{Key: strings.ToUpper(hash), IdentityID: "u1"}) },
			lookup: hash,
		},
		{
			name:   "revoked key still returns",
			setup:  func(s *AuthStore) { s.AddKey(&auth.APIKey{Key: hash, IdentityID: "u1", Revoked: true}) },
			lookup: hash,
		},
		{
			name:    "missing key",
			setup:   func(s *AuthStore) {},
			lookup:  hash,
			wantErr: auth.ErrKeyNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := NewAuthStore()
			tt.setup(s)

			key, err := s.GetAPIKey(context.Background(), tt.lookup)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("GetAPIKey() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("GetAPIKey() unexpected error: %v", err)
			}
			if key.IdentityID != "u1" {
				t.Errorf("IdentityID = %q, want %q", key.IdentityID, "u1")
			}
		})
	}
}

func TestAuthStore_GetIdentity_ReturnsCopy(t *testing.T) {
	t.Parallel()

	s := NewAuthStore()
	s.AddIdentity(&auth.Identity{ID: "u1", Roles: []auth.Role{auth.RoleMember}, Projects: []string{"P1"}})

	got, err := s.GetIdentity(context.Background(), "u1")
	if err != nil {
		t.Fatal(err)
	}
	got.Projects[0] = "mutated"

	again, _ := s.GetIdentity(context.Background(), "u1")
	if again.Projects[0] != "P1" {
		t.Error("GetIdentity() returned shared state")
	}

	if _, err := s.GetIdentity(context.Background(), "missing"); !errors.Is(err, auth.ErrIdentityNotFound) {
		t.Errorf("GetIdentity(missing) error = %v, want ErrIdentityNotFound", err)
	}
}

func TestAuthStore_Replace(t *testing.T) {
	t.Parallel()

	s := NewAuthStore()
	s.AddIdentity(&auth.Identity{ID: "old"})
	s.AddKey(&auth.APIKey{Key: auth.HashKey("old"), IdentityID: "old"})

	s.Replace(
		[]*auth.Identity{{ID: "a"}, {ID: "b"}},
		[]*auth.APIKey{{Key: "sha256:" + auth.HashKey("a"), IdentityID: "a"}},
	)

	ids, keys := s.Counts()
	if ids != 2 || keys != 1 {
		t.Errorf("Counts() = (%d, %d), want (2, 1)", ids, keys)
	}
	if _, err := s.GetIdentity(context.Background(), "old"); !errors.Is(err, auth.ErrIdentityNotFound) {
		t.Error("Replace() kept an old identity")
	}
	if _, err := s.GetAPIKey(context.Background(), auth.HashKey("a")); err != nil {
		t.Errorf("GetAPIKey() after Replace error = %v", err)
	}
}

func TestAuthStore_RemoveKey(t *testing.T) {
	t.Parallel()

	s := NewAuthStore()
	hash := auth.HashKey("k")
	s.AddKey(&auth.APIKey{Key: hash, IdentityID: "u"})
	s.RemoveKey("sha256:" + hash)

	if _, err := s.GetAPIKey(context.Background(), hash); !errors.Is(err, auth.ErrKeyNotFound) {
		t.Errorf("GetAPIKey() after RemoveKey error = %v", err)
	}
}

func TestAuthStore_WithAPIKeyService(t *testing.T) {
	t.Parallel()

	argon, err := auth.HashKeyArgon2id("argon-secret")
	if err != nil {
		t.Fatal(err)
	}
	s := NewAuthStore()
	s.AddIdentity(&auth.Identity{ID: "alice", Projects: []string{"P1"}})
	s.AddKey(&auth.APIKey{Key: "sha256:" + auth.HashKey("sha-secret"), IdentityID: "alice"})
	s.AddKey(&auth.APIKey{Key: argon, IdentityID: "alice"})

	svc := auth.NewAPIKeyService(s)
	for _, raw := range []string{"sha-secret", "argon-secret"} {
		id, err := svc.Authenticate(context.Background(), raw)
		if err != nil {
			t.Errorf("Authenticate(%q) error = %v", raw, err)
			continue
		}
		if id.ID != "alice" {
			t.Errorf("Authenticate(%q) = %q, want alice", raw, id.ID)
		}
	}
}

func TestAuthStore_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	s := NewAuthStore()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			s.AddIdentity(&auth.Identity{ID: "u", Projects: []string{"P"}})
		}(i)
		go func() {
			defer wg.Done()
			_, _ = s.GetIdentity(context.Background(), "u")
			_, _ = s.ListAPIKeys(context.Background())
		}()
	}
	wg.Wait()
}
