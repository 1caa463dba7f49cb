package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	"github.com/klauspost/compress/zstd"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"linttrack/internal/logging"
)

// IssueCache stores the last server issues downloaded per (module, file key).
type IssueCache interface {
	// Get returns the cached issues and whether an entry exists.
	Get(ctx context.Context, moduleKey, fileKey string) ([]ServerIssue, bool, error)
	// Put replaces the cached issues.
	Put(ctx context.Context, moduleKey, fileKey string, issues []ServerIssue) error
	Close() error
}

// Dialect selects the SQL flavour of a SQLCache.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// CacheFile is the default SQLite cache location below the workspace root
const CacheFile = ".linttrack/issues.db"

// SQLCache persists zstd-compressed JSON issue lists in SQLite or PostgreSQL.
type SQLCache struct {
	db      *sql.DB
	dialect Dialect
	logger  *logging.Logger

	encoder *zstd.Encoder // EncodeAll and DecodeAll are safe for concurrent use
	decoder *zstd.Decoder
}

// OpenSQLiteCache opens or creates a SQLite cache at path.
func OpenSQLiteCache(path string, logger *logging.Logger) (*SQLCache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}
	return newSQLCache(db, DialectSQLite, logger)
}

// OpenPostgresCache connects to a shared PostgreSQL cache.
func OpenPostgresCache(ctx context.Context, dsn string, logger *logging.Logger) (*SQLCache, error) {
	db, err := sql.Open("pgx", strings.TrimSpace(dsn))
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to reach cache database: %w", err)
	}
	return newSQLCache(db, DialectPostgres, logger)
}

func newSQLCache(db *sql.DB, dialect Dialect, logger *logging.Logger) (*SQLCache, error) {
	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}

	c := &SQLCache{
		db:      db,
		dialect: dialect,
		logger:  logger,
		encoder: encoder,
		decoder: decoder,
	}
	if err := c.initSchema(); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

func (c *SQLCache) initSchema() error {
	blobType := "BLOB"
	if c.dialect == DialectPostgres {
		blobType = "BYTEA"
	}
	stmt := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS server_issues (
			module_key TEXT NOT NULL,
			file_key TEXT NOT NULL,
			payload %s NOT NULL,
			issue_count INTEGER NOT NULL,
			updated_at TEXT NOT NULL,
			PRIMARY KEY (module_key, file_key)
		)
	`, blobType)
	if _, err := c.db.Exec(stmt); err != nil {
		return fmt.Errorf("failed to create server_issues table: %w", err)
	}
	return nil
}

// bind rewrites '?' placeholders for the PostgreSQL dialect.
func (c *SQLCache) bind(query string) string {
	if c.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Get implements IssueCache.
func (c *SQLCache) Get(ctx context.Context, moduleKey, fileKey string) ([]ServerIssue, bool, error) {
	var payload []byte
	err := c.db.QueryRowContext(ctx, c.bind(`
		SELECT payload FROM server_issues WHERE module_key = ? AND file_key = ?
	`), moduleKey, fileKey).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache lookup failed: %w", err)
	}

	raw, err := c.decoder.DecodeAll(payload, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to decompress cached issues: %w", err)
	}

	var issues []ServerIssue
	if err := json.Unmarshal(raw, &issues); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached issues: %w", err)
	}
	if issues == nil {
		issues = []ServerIssue{}
	}
	return issues, true, nil
}

// Put implements IssueCache.
func (c *SQLCache) Put(ctx context.Context, moduleKey, fileKey string, issues []ServerIssue) error {
	if issues == nil {
		issues = []ServerIssue{}
	}
	raw, err := json.Marshal(issues)
	if err != nil {
		return fmt.Errorf("failed to encode issues: %w", err)
	}

	payload := c.encoder.EncodeAll(raw, nil)

	_, err = c.db.ExecContext(ctx, c.bind(`
		INSERT INTO server_issues (module_key, file_key, payload, issue_count, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (module_key, file_key) DO UPDATE SET
			payload = excluded.payload,
			issue_count = excluded.issue_count,
			updated_at = excluded.updated_at
	`), moduleKey, fileKey, payload, len(issues), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to store issues: %w", err)
	}

	c.logger.Debug("Cached server issues", map[string]interface{}{
		"module":      moduleKey,
		"file":        fileKey,
		"issues":      len(issues),
		"rawBytes":    len(raw),
		"storedBytes": len(payload),
	})
	return nil
}

// Close implements IssueCache.
func (c *SQLCache) Close() error {
	if c.encoder != nil {
		_ = c.encoder.Close()
	}
	if c.decoder != nil {
		c.decoder.Close()
	}
	return c.db.Close()
}
