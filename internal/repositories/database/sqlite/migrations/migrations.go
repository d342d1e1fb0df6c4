// Package migrations embeds the SQLite schema migrations in golang-migrate layout.
package migrations

import "embed"

// FS holds the versioned up and down scripts.
//
//go:embed *.sql
var FS embed.FS
