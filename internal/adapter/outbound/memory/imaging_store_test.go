package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/volview-xnat/volviewd/internal/domain/auth"
	"github.com/volview-xnat/volviewd/internal/domain/imaging"
)

func TestImagingStore_FindSession(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s := NewImagingStore()
	if err := s.Put(ctx, &imaging.Session{ID: "E1", ProjectID: "P1", Label: "MR", SharedProjects: []string{"S"}}); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		id      string
		user    *auth.Identity
		wantErr error
	}{
		{"member of primary", "E1", &auth.Identity{ID: "a", Projects: []string{"P1"}}, nil},
		{"member of share", "E1", &auth.Identity{ID: "b", Projects: []string{"S"}}, nil},
		{"admin", "E1", &auth.Identity{ID: "c", Roles: []auth.Role{auth.RoleAdmin}}, nil},
		{"outsider", "E1", &auth.Identity{ID: "d", Projects: []string{"P2"}}, imaging.ErrSessionNotFound},
		{"missing", "E2", &auth.Identity{ID: "c", Roles: []auth.Role{auth.RoleAdmin}}, imaging.ErrSessionNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.FindSession(ctx, tt.id, tt.user)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("FindSession() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("FindSession() error = %v", err)
			}
			if got.Label != "MR" {
				t.Errorf("Label = %q, want %q", got.Label, "MR")
			}
		})
	}
}

func TestImagingStore_PutValidates(t *testing.T) {
	t.Parallel()

	err := NewImagingStore().Put(context.Background(), &imaging.Session{ID: "E1"})
	if !errors.Is(err, imaging.ErrInvalidSession) {
		t.Errorf("Put() error = %v, want ErrInvalidSession", err)
	}
}

func TestImagingStore_ListAndDelete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s := NewImagingStore()
	for _, id := range []string{"E3", "E1", "E2"} {
		if err := s.Put(ctx, &imaging.Session{ID: id, ProjectID: "P"}); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.Delete(ctx, "E2"); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(ctx, "missing"); err != nil {
		t.Errorf("Delete(missing) error = %v", err)
	}

	list, err := s.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].ID != "E1" || list[1].ID != "E3" {
		t.Errorf("List() = %+v, want [E1 E3]", list)
	}
}

func TestImagingStore_ReturnsCopies(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s := NewImagingStore()
	in := &imaging.Session{ID: "E1", ProjectID: "P", SharedProjects: []string{"S"}}
	if err := s.Put(ctx, in); err != nil {
		t.Fatal(err)
	}
	in.SharedProjects[0] = "mutated"

	admin := &auth.Identity{Roles: []auth.Role{auth.RoleAdmin}}
	got, _ := s.FindSession(ctx, "E1", admin)
	if got.SharedProjects[0] != "S" {
		t.Error("Put() kept a reference to the caller's slice")
	}
}
