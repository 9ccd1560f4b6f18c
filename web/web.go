// Package web holds the page templates and static assets compiled into the
// binary.
package web

import "embed"

//go:embed tmpl static
var FS embed.FS
