package migrations

import (
	"embed"
	"io/fs"
)

//go:embed schema/**/*.sql
var schemaFS embed.FS

// Schema returns the embedded schema filesystem
func Schema() fs.FS {
	return sub("schema")
}

// Sqlite returns the plain SQL scripts for the sqlite driver. They are
// idempotent and applied in lexical order on every start.
func Sqlite() fs.FS {
	return sub("schema/sqlite")
}

// Postgres returns the goose annotated migrations for the postgres driver.
func Postgres() fs.FS {
	return sub("schema/postgres")
}

func sub(dir string) fs.FS {
	f, err := fs.Sub(schemaFS, dir)
	if err != nil {
		panic(err) // should never happen since we control the embed path
	}
	return f
}
