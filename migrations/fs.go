// Package migrations embeds the SQL migration files so the migrate command
// needs no filesystem access at runtime.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
