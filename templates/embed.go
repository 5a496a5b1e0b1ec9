// Package templates embeds the built-in template pack: starters, feature
// directories and the dependency registry.
package templates

import "embed"

// FS holds the pack rooted at this directory, e.g. "monolith/starter/package.json"
//
//go:embed all:monolith all:microservice all:shared dependency-registry.json
var FS embed.FS
