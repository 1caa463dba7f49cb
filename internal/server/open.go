package server

import (
	"context"
	"path/filepath"

	"linttrack/internal/errors"
	"linttrack/internal/logging"
)

// CacheOptions selects and configures the issue cache backend.
type CacheOptions struct {
	Driver        string // "sqlite", "postgres" or "memory"
	DSN           string // file path for sqlite, connection string for postgres
	MemoryEntries int
}

// OpenCache builds the configured cache, always fronted by an in-memory LRU.
// An empty sqlite DSN defaults to CacheFile below workspaceRoot.
func OpenCache(ctx context.Context, opts CacheOptions, workspaceRoot string, logger *logging.Logger) (IssueCache, error) {
	var backing IssueCache

	switch opts.Driver {
	case "", string(DialectSQLite):
		path := opts.DSN
		if path == "" {
			path = filepath.Join(workspaceRoot, CacheFile)
		}
		c, err := OpenSQLiteCache(path, logger)
		if err != nil {
			return nil, err
		}
		backing = c
	case string(DialectPostgres):
		if opts.DSN == "" {
			return nil, errors.New(errors.ConfigInvalid, "postgres cache requires a dsn", nil)
		}
		c, err := OpenPostgresCache(ctx, opts.DSN, logger)
		if err != nil {
			return nil, err
		}
		backing = c
	case "memory":
	default:
		return nil, errors.New(errors.ConfigInvalid, "unknown cache driver", nil).WithDetails(map[string]interface{}{
			"driver": opts.Driver,
		})
	}

	cache, err := NewLRUCache(opts.MemoryEntries, backing)
	if err != nil {
		if backing != nil {
			_ = backing.Close()
		}
		return nil, err
	}
	return cache, nil
}
