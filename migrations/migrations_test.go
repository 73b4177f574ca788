package migrations

import (
	"context"
	"io/fs"
	"reflect"
	"sort"
	"testing"

	"zombiezen.com/go/sqlite/sqlitex"
)

// TestSchemaAccess verifies that all expected .sql files are embedded correctly.
func TestSchemaAccess(t *testing.T) {
	expectedFiles := []string{
		"postgres/00001_users.sql",
		"postgres/00002_refresh_tokens.sql",
		"sqlite/001_users.sql",
		"sqlite/002_refresh_tokens.sql",
	}

	var foundFiles []string
	schemaFS := Schema()

	err := fs.WalkDir(schemaFS, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			foundFiles = append(foundFiles, path)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("failed to walk embedded schema files: %v", err)
	}

	sort.Strings(expectedFiles)
	sort.Strings(foundFiles)

	if !reflect.DeepEqual(expectedFiles, foundFiles) {
		t.Errorf("mismatch in embedded schema files.\nGot:  %v\nWant: %v", foundFiles, expectedFiles)
	}
}

// TestApplySqliteSchemas applies the sqlite scripts twice to an in-memory
// database to check they are valid and idempotent.
func TestApplySqliteSchemas(t *testing.T) {
	pool, err := sqlitex.NewPool("file::memory:", sqlitex.PoolOptions{
		PoolSize: 1,
	})
	if err != nil {
		t.Fatalf("failed to create db pool: %v", err)
	}
	t.Cleanup(func() {
		if err := pool.Close(); err != nil {
			t.Errorf("failed to close db pool: %v", err)
		}
	})

	conn, err := pool.Take(context.Background())
	if err != nil {
		t.Fatalf("failed to get db connection: %v", err)
	}
	defer pool.Put(conn)

	schemaFS := Sqlite()
	for pass := 1; pass <= 2; pass++ {
		err = fs.WalkDir(schemaFS, ".", func(path string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return err
			}
			sqlBytes, err := fs.ReadFile(schemaFS, path)
			if err != nil {
				return err
			}
			if err := sqlitex.ExecuteScript(conn, string(sqlBytes), nil); err != nil {
				t.Errorf("pass %d: failed to apply %s: %v", pass, path, err)
			}
			return nil
		})
		if err != nil {
			t.Fatalf("failed to walk sqlite schema: %v", err)
		}
	}
}
