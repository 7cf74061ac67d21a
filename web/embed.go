package web

import (
	"embed"
	"io/fs"
)

// staticFS embeds the application shell (web/dist) the origin serves and the
// worker precaches.
//
//go:embed all:dist
var staticFS embed.FS

// FS returns the embedded shell with the "dist" prefix stripped.
func FS() (fs.FS, error) {
	return fs.Sub(staticFS, "dist")
}
