// Package migrations embeds the schema for each supported SQL driver.
package migrations

import (
	"embed"
	"fmt"
	"io/fs"
)

//go:embed postgres/*.sql sqlite/*.sql
var files embed.FS

// For returns the migration files for a database/sql driver name.
func For(driver string) (fs.FS, error) {
	switch driver {
	case "pgx":
		return fs.Sub(files, "postgres")
	case "sqlite3":
		return fs.Sub(files, "sqlite")
	default:
		return nil, fmt.Errorf("no migrations for driver %q", driver)
	}
}
