// Package migrations embeds SQL migration files.
package migrations

import "embed"

// PostgresFS contains the schema migrations for the postgres store adapter.
//
//go:embed *.sql
var PostgresFS embed.FS
