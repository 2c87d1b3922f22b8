package cache

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/kadirpekel/scout/pkg/config"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// SQLStore persists cache entries in a relational table. SQLite is the
// default backend; PostgreSQL and MySQL are supported for shared setups.
type SQLStore struct {
	db      *sql.DB
	dialect string
	now     func() time.Time
}

const (
	sqliteCacheSchema = `
CREATE TABLE IF NOT EXISTS research_cache (
    cache_key VARCHAR(255) NOT NULL PRIMARY KEY,
    value BLOB NOT NULL,
    created_at TIMESTAMP NOT NULL,
    expires_at TIMESTAMP NOT NULL
)`

	postgresCacheSchema = `
CREATE TABLE IF NOT EXISTS research_cache (
    cache_key VARCHAR(255) NOT NULL PRIMARY KEY,
    value BYTEA NOT NULL,
    created_at TIMESTAMP NOT NULL,
    expires_at TIMESTAMP NOT NULL
)`

	mysqlCacheSchema = `
CREATE TABLE IF NOT EXISTS research_cache (
    cache_key VARCHAR(255) NOT NULL PRIMARY KEY,
    value BLOB NOT NULL,
    created_at TIMESTAMP NOT NULL,
    expires_at TIMESTAMP NOT NULL,
    INDEX idx_research_cache_expires (expires_at)
)`

	cacheExpiresIndexSQL = `
CREATE INDEX IF NOT EXISTS idx_research_cache_expires ON research_cache(expires_at)`
)

// NewSQLStore wraps an open database connection. The dialect decides
// placeholder style and upsert syntax.
func NewSQLStore(db *sql.DB, dialect string) (*SQLStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	switch dialect {
	case "postgres", "mysql", "sqlite":

	default:
		return nil, fmt.Errorf("unsupported dialect: %s (supported: postgres, mysql, sqlite)", dialect)
	}

	s := &SQLStore{
		db:      db,
		dialect: dialect,
		now:     time.Now,
	}

	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize cache schema: %w", err)
	}

	return s, nil
}

// Open connects to the configured database and returns a ready store.
func Open(cfg *config.CacheConfig) (*SQLStore, error) {
	if cfg == nil {
		return nil, fmt.Errorf("cache configuration is required")
	}

	cfg.SetDefaults()
	if err := cfg.Database.Validate(); err != nil {
		return nil, fmt.Errorf("invalid cache database config: %w", err)
	}

	db, err := sql.Open(cfg.Database.DriverName(), cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	db.SetMaxOpenConns(cfg.Database.MaxConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdle)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to %s cache database %q: %w",
			cfg.Database.Driver, cfg.Database.Database, err)
	}

	return NewSQLStore(db, cfg.Database.Dialect())
}

func (s *SQLStore) initSchema() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var statements []string
	switch s.dialect {
	case "postgres":
		statements = []string{postgresCacheSchema, cacheExpiresIndexSQL}
	case "mysql":
		// MySQL has no CREATE INDEX IF NOT EXISTS; the index lives in the
		// table definition instead.
		statements = []string{mysqlCacheSchema}
	default:
		statements = []string{sqliteCacheSchema, cacheExpiresIndexSQL}
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create research_cache table: %w", err)
		}
	}

	return nil
}

// Get returns the stored value for key. Entries past their expiry are
// reported as misses without error.
func (s *SQLStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	query := `SELECT value, expires_at FROM research_cache WHERE cache_key = ?`
	if s.dialect == "postgres" {
		query = `SELECT value, expires_at FROM research_cache WHERE cache_key = $1`
	}

	var value []byte
	var expiresAt time.Time
	err := s.db.QueryRowContext(ctx, query, key).Scan(&value, &expiresAt)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cache entry: %w", err)
	}

	if !expiresAt.After(s.now().UTC()) {
		return nil, false, nil
	}

	return value, true, nil
}

// Put stores value under key, replacing any previous entry. The entry
// expires ttl from now.
func (s *SQLStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if key == "" {
		return fmt.Errorf("cache key cannot be empty")
	}

	var query string
	switch s.dialect {
	case "postgres":
		query = `
INSERT INTO research_cache (cache_key, value, created_at, expires_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (cache_key) DO UPDATE SET
    value = EXCLUDED.value,
    created_at = EXCLUDED.created_at,
    expires_at = EXCLUDED.expires_at`
	case "mysql":
		query = `
INSERT INTO research_cache (cache_key, value, created_at, expires_at)
VALUES (?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
    value = VALUES(value),
    created_at = VALUES(created_at),
    expires_at = VALUES(expires_at)`
	default:
		query = `
INSERT INTO research_cache (cache_key, value, created_at, expires_at)
VALUES (?, ?, ?, ?)
ON CONFLICT (cache_key) DO UPDATE SET
    value = excluded.value,
    created_at = excluded.created_at,
    expires_at = excluded.expires_at`
	}

	now := s.now().UTC()
	if _, err := s.db.ExecContext(ctx, query, key, value, now, now.Add(ttl)); err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}

	return nil
}

// CleanupExpired removes every entry past its expiry and returns how many
// rows were deleted.
func (s *SQLStore) CleanupExpired(ctx context.Context) (int64, error) {
	query := `DELETE FROM research_cache WHERE expires_at <= ?`
	if s.dialect == "postgres" {
		query = `DELETE FROM research_cache WHERE expires_at <= $1`
	}

	res, err := s.db.ExecContext(ctx, query, s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to clean up cache: %w", err)
	}

	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}

	return deleted, nil
}

// Close releases the underlying database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}
