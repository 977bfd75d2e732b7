// Package migrations embeds the goose SQL migrations applied at bootstrap.
package migrations

import "embed"

// FS holds every *.sql migration, ordered by its numeric prefix.
//
//go:embed *.sql
var FS embed.FS
