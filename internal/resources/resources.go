// Package resources embeds the static pages served next to the viewer: the
// per-project shell page and the connectivity test page.
package resources

import (
	"embed"
	"io/fs"
)

//go:embed static
var static embed.FS

// TestPagePath is the bundle path of the connectivity test page.
const TestPagePath = "volview-test.html"

// FS returns the resource bundle rooted at its top directory, so the shell
// path "/plugin-resources/xnat-volview/index.html" maps to
// "plugin-resources/xnat-volview/index.html".
func FS() fs.FS {
	sub, err := fs.Sub(static, "static")
	if err != nil {
		// "static" is a literal embedded directory.
		panic(err)
	}
	return sub
}
