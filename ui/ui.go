// Package ui embeds the browser frontend.
//
// The frontend is a small static page checked into static/ — no build
// step. It talks to the /v1 API and renders the analysis panels.
package ui

import (
	"embed"
	"io/fs"
)

//go:embed all:static
var staticFS embed.FS

// DistFS returns the embedded frontend filesystem rooted at static/.
func DistFS() (fs.FS, error) {
	return fs.Sub(staticFS, "static")
}
