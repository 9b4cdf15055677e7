package resources

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/volview-xnat/volviewd/internal/domain/viewer"
)

func TestFS_ContainsDefaultShell(t *testing.T) {
	shell := strings.TrimPrefix(viewer.DefaultShellPath, "/")
	data, err := fs.ReadFile(FS(), shell)
	if err != nil {
		t.Fatalf("ReadFile(%q) error: %v", shell, err)
	}
	if !strings.Contains(string(data), "<html") {
		t.Errorf("%s does not look like HTML", shell)
	}
}

func TestFS_ContainsTestPage(t *testing.T) {
	if _, err := fs.Stat(FS(), TestPagePath); err != nil {
		t.Errorf("Stat(%q) error: %v", TestPagePath, err)
	}
}
