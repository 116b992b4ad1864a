// Package examportal embeds the web frontend served by the dashboard.
package examportal

import (
	"embed"
	"io/fs"
)

// StaticFS holds frontend/static, served under /static/.
//
//go:embed all:frontend/static
var StaticFS embed.FS

// TemplateFS holds frontend/templates: layout.tmpl and pages/*.tmpl.
//
//go:embed all:frontend/templates
var TemplateFS embed.FS

// Templates returns TemplateFS rooted at frontend/templates.
func Templates() (fs.FS, error) { return fs.Sub(TemplateFS, "frontend/templates") }

// Static returns StaticFS rooted at frontend/static.
func Static() (fs.FS, error) { return fs.Sub(StaticFS, "frontend/static") }
