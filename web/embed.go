// Package web embeds the browser assets served under /static.
package web

import "embed"

// FS holds static/css and static/js.
//
//go:embed static
var FS embed.FS
