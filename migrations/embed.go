// Package migrations embeds the SQL schema migrations and registers them
// with the database package.
package migrations

import (
	"embed"

	"github.com/nerrad567/vigil-core/internal/infrastructure/database"
)

//go:embed *.sql
var migrationFiles embed.FS

func init() {
	database.MigrationsFS = migrationFiles
	database.MigrationsDir = "."
}
