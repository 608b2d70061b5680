// Package migrations contains embedded SQL migrations for the SQLite save store.
package migrations

import "embed"

// FS contains embedded SQLite migrations.
//
//go:embed *.sql
var FS embed.FS
