// Package migrations embeds the SQL schema for MixLogic's SQLite store:
// the learning log (events, patterns, preferences) and the training state
// row. Importing it registers the files with the database package.
package migrations

import (
	"embed"

	"github.com/nerrad567/mixlogic-core/internal/infrastructure/database"
)

//go:embed *.sql
var files embed.FS

func init() {
	database.RegisterMigrations(files, ".")
}
