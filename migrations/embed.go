// Package migrations holds the numbered SQLite schema files.
package migrations

import "embed"

// FS contains every NNN_*.sql file in this directory
//
//go:embed *.sql
var FS embed.FS
