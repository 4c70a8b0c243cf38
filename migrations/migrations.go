// Package migrations embeds the SQL migration files so the migrator can run
// from a single binary.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
