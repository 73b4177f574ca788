package notesapi

import (
	"context"
	"fmt"
	"io"
	"runtime"

	"github.com/caasmo/notesapi/config"
	"github.com/caasmo/notesapi/db"
	"github.com/caasmo/notesapi/db/memory"
	"github.com/caasmo/notesapi/db/postgres"
	"github.com/caasmo/notesapi/db/zombiezen"
	"zombiezen.com/go/sqlite/sqlitex"
)

// OpenDb opens the store of db.driver. The returned closer, nil for the
// memory driver, releases the connections.
func OpenDb(ctx context.Context, cfg *config.Db) (db.DbApp, io.Closer, error) {
	switch cfg.Driver {
	case config.DbDriverSqlite:
		pool, err := NewZombiezenPool(cfg.Path, cfg.PoolSize)
		if err != nil {
			return nil, nil, err
		}
		store, err := zombiezen.New(pool)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		return store, pool, nil

	case config.DbDriverPostgres:
		store, err := postgres.Open(ctx, cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil

	case config.DbDriverMemory:
		return memory.New(), nil, nil

	default:
		return nil, nil, fmt.Errorf("unknown db driver %q", cfg.Driver)
	}
}

// NewZombiezenPool creates a zombiezen SQLite pool with foreign keys
// enabled on every connection. A size below 1 uses the number of CPUs.
func NewZombiezenPool(path string, size int) (*sqlitex.Pool, error) {
	if size < 1 {
		size = runtime.NumCPU()
	}

	// zombiezen/sqlitex.NewPool with default options uses flags:
	// sqlite.OpenReadWrite | sqlite.OpenCreate | sqlite.OpenWAL | sqlite.OpenURI
	pool, err := sqlitex.NewPool(fmt.Sprintf("file:%s", path), sqlitex.PoolOptions{
		PoolSize:    size,
		PrepareConn: zombiezen.PrepareConn,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create zombiezen pool at %s: %w", path, err)
	}
	return pool, nil
}
