// Package web holds the embedded templates and static assets served by the
// site.
package web

import "embed"

//go:embed templates
var TemplateFiles embed.FS

//go:embed static
var StaticFiles embed.FS
