// Package ui embeds the web viewer.
package ui

import "embed"

// DistFS holds the built viewer under dist/.
//
//go:embed dist
var DistFS embed.FS
