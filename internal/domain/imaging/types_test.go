package imaging

import (
	"errors"
	"testing"

	"github.com/volview-xnat/volviewd/internal/domain/auth"
)

func TestSession_HasProject(t *testing.T) {
	s := &Session{ID: "XNAT_E00001", ProjectID: "P1", SharedProjects: []string{"Shared"}}

	if !s.HasProject("Shared") {
		t.Error("HasProject(Shared) = false, want true")
	}
	if s.HasProject("shared") {
		t.Error("HasProject compares exactly, got match for different case")
	}
	if s.HasProject("P1") {
		t.Error("HasProject(P1) = true, primary project is not a share")
	}
}

func TestSession_StudyUID(t *testing.T) {
	tests := []struct {
		uid    string
		want   string
		wantOK bool
	}{
		{"1.2.3", "1.2.3", true},
		{" 1.2.3 ", "1.2.3", true},
		{"", "", false},
		{"   ", "", false},
	}
	for _, tt := range tests {
		got, ok := (&Session{StudyInstanceUID: tt.uid}).StudyUID()
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("StudyUID(%q) = (%q, %v), want (%q, %v)", tt.uid, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestSession_Validate(t *testing.T) {
	if err := (&Session{ID: "E1", ProjectID: "P1"}).Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
	for _, s := range []*Session{{ProjectID: "P1"}, {ID: "E1"}, {ID: " ", ProjectID: " "}} {
		if err := s.Validate(); !errors.Is(err, ErrInvalidSession) {
			t.Errorf("Validate(%+v) error = %v, want ErrInvalidSession", s, err)
		}
	}
}

func TestSession_Clone(t *testing.T) {
	s := &Session{ID: "E1", SharedProjects: []string{"A"}}
	c := s.Clone()
	c.SharedProjects[0] = "B"
	if s.SharedProjects[0] != "A" {
		t.Error("Clone() shares SharedProjects with the original")
	}
}

func TestVisibleTo(t *testing.T) {
	s := &Session{ID: "E1", ProjectID: "P1", SharedProjects: []string{"Shared"}}

	tests := []struct {
		name string
		user *auth.Identity
		want bool
	}{
		{"nil user", nil, false},
		{"admin", &auth.Identity{ID: "root", Roles: []auth.Role{auth.RoleAdmin}}, true},
		{"primary member", &auth.Identity{ID: "a", Projects: []string{"p1"}}, true},
		{"shared member", &auth.Identity{ID: "b", Projects: []string{"Shared"}}, true},
		{"outsider", &auth.Identity{ID: "c", Projects: []string{"P2"}}, false},
		{"no projects", &auth.Identity{ID: "d"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := VisibleTo(s, tt.user); got != tt.want {
				t.Errorf("VisibleTo() = %v, want %v", got, tt.want)
			}
		})
	}
}
