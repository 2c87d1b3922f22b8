package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kadirpekel/scout/pkg/config"
	"github.com/kadirpekel/scout/pkg/llm"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// SQLStore persists interactions in a relational table, sharing the cache
// store's dialect support.
type SQLStore struct {
	db      *sql.DB
	dialect string
	now     func() time.Time
}

const (
	sqliteInteractionsSchema = `
CREATE TABLE IF NOT EXISTS interactions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id VARCHAR(255),
    session_name VARCHAR(255),
    model VARCHAR(255),
    query TEXT NOT NULL,
    answer TEXT NOT NULL,
    turns_json TEXT,
    created_at TIMESTAMP NOT NULL
)`

	postgresInteractionsSchema = `
CREATE TABLE IF NOT EXISTS interactions (
    id BIGSERIAL PRIMARY KEY,
    session_id VARCHAR(255),
    session_name VARCHAR(255),
    model VARCHAR(255),
    query TEXT NOT NULL,
    answer TEXT NOT NULL,
    turns_json TEXT,
    created_at TIMESTAMP NOT NULL
)`

	mysqlInteractionsSchema = `
CREATE TABLE IF NOT EXISTS interactions (
    id BIGINT PRIMARY KEY AUTO_INCREMENT,
    session_id VARCHAR(255),
    session_name VARCHAR(255),
    model VARCHAR(255),
    query TEXT NOT NULL,
    answer TEXT NOT NULL,
    turns_json TEXT,
    created_at TIMESTAMP NOT NULL,
    INDEX idx_interactions_created (created_at)
)`

	interactionsCreatedIndexSQL = `
CREATE INDEX IF NOT EXISTS idx_interactions_created ON interactions(created_at)`
)

// NewSQLStore wraps an open database connection.
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
		return nil, fmt.Errorf("failed to initialize history schema: %w", err)
	}

	return s, nil
}

// Open connects to the configured database and returns a ready store.
func Open(cfg *config.HistoryConfig) (*SQLStore, error) {
	if cfg == nil {
		return nil, fmt.Errorf("history configuration is required")
	}

	cfg.SetDefaults()
	if err := cfg.Database.Validate(); err != nil {
		return nil, fmt.Errorf("invalid history database config: %w", err)
	}

	db, err := sql.Open(cfg.Database.DriverName(), cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	db.SetMaxOpenConns(cfg.Database.MaxConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdle)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to %s history database %q: %w",
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
		statements = []string{postgresInteractionsSchema, interactionsCreatedIndexSQL}
	case "mysql":
		statements = []string{mysqlInteractionsSchema}
	default:
		statements = []string{sqliteInteractionsSchema, interactionsCreatedIndexSQL}
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create interactions table: %w", err)
		}
	}

	return nil
}

// Save stores a finished conversation and fills in its assigned ID. A
// missing session name is generated from the query.
func (s *SQLStore) Save(ctx context.Context, in *Interaction) error {
	if in == nil {
		return fmt.Errorf("interaction is required")
	}
	if in.Query == "" {
		return fmt.Errorf("interaction query cannot be empty")
	}
	if in.SessionName == "" {
		in.SessionName = SessionName(in.Query)
	}

	turnsJSON, err := json.Marshal(in.Turns)
	if err != nil {
		return fmt.Errorf("failed to marshal turns: %w", err)
	}

	in.CreatedAt = s.now().UTC()

	if s.dialect == "postgres" {
		query := `
INSERT INTO interactions (session_id, session_name, model, query, answer, turns_json, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id`
		err := s.db.QueryRowContext(ctx, query,
			in.SessionID, in.SessionName, in.Model, in.Query, in.Answer,
			string(turnsJSON), in.CreatedAt,
		).Scan(&in.ID)
		if err != nil {
			return fmt.Errorf("failed to save interaction: %w", err)
		}
		return nil
	}

	query := `
INSERT INTO interactions (session_id, session_name, model, query, answer, turns_json, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := s.db.ExecContext(ctx, query,
		in.SessionID, in.SessionName, in.Model, in.Query, in.Answer,
		string(turnsJSON), in.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save interaction: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read interaction ID: %w", err)
	}
	in.ID = id

	return nil
}

// List returns the newest interactions first, without their turn payloads.
func (s *SQLStore) List(ctx context.Context, limit int) ([]Interaction, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
SELECT id, session_id, session_name, model, query, answer, created_at
FROM interactions
ORDER BY id DESC
LIMIT ?`
	if s.dialect == "postgres" {
		query = `
SELECT id, session_id, session_name, model, query, answer, created_at
FROM interactions
ORDER BY id DESC
LIMIT $1`
	}

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list interactions: %w", err)
	}
	defer rows.Close()

	var out []Interaction
	for rows.Next() {
		var in Interaction
		if err := rows.Scan(&in.ID, &in.SessionID, &in.SessionName, &in.Model,
			&in.Query, &in.Answer, &in.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan interaction: %w", err)
		}
		out = append(out, in)
	}

	return out, rows.Err()
}

// Get returns one interaction with its full turn sequence.
func (s *SQLStore) Get(ctx context.Context, id int64) (*Interaction, error) {
	query := `
SELECT id, session_id, session_name, model, query, answer, turns_json, created_at
FROM interactions
WHERE id = ?`
	if s.dialect == "postgres" {
		query = `
SELECT id, session_id, session_name, model, query, answer, turns_json, created_at
FROM interactions
WHERE id = $1`
	}

	var in Interaction
	var turnsJSON sql.NullString
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&in.ID, &in.SessionID, &in.SessionName, &in.Model,
		&in.Query, &in.Answer, &turnsJSON, &in.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("interaction not found: %d", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query interaction: %w", err)
	}

	if turnsJSON.Valid && turnsJSON.String != "" {
		if err := json.Unmarshal([]byte(turnsJSON.String), &in.Turns); err != nil {
			return nil, fmt.Errorf("failed to decode turns for interaction %d: %w", id, err)
		}
	}

	return &in, nil
}

// Turns re-hydrates the conversation of a prior interaction for -c.
func (s *SQLStore) Turns(ctx context.Context, id int64) ([]llm.Message, error) {
	in, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return in.Turns, nil
}

// Delete removes interactions matching the selector: "all", a single ID, a
// comma-separated list, or an inclusive range "A-B" given in either order.
// It returns the number of rows deleted; malformed selectors yield
// ErrInvalidRange.
func (s *SQLStore) Delete(ctx context.Context, spec string) (int64, error) {
	spec = strings.TrimSpace(spec)

	switch {
	case strings.EqualFold(spec, "all"):
		return s.exec(ctx, `DELETE FROM interactions`)

	case strings.Contains(spec, ","):
		ids, err := parseIDList(spec)
		if err != nil {
			return 0, err
		}
		placeholders := make([]string, len(ids))
		args := make([]interface{}, len(ids))
		for i, id := range ids {
			placeholders[i] = s.placeholder(i + 1)
			args[i] = id
		}
		query := fmt.Sprintf(`DELETE FROM interactions WHERE id IN (%s)`,
			strings.Join(placeholders, ", "))
		return s.exec(ctx, query, args...)

	case strings.Contains(spec, "-"):
		lo, hi, err := parseIDRange(spec)
		if err != nil {
			return 0, err
		}
		query := fmt.Sprintf(`DELETE FROM interactions WHERE id BETWEEN %s AND %s`,
			s.placeholder(1), s.placeholder(2))
		return s.exec(ctx, query, lo, hi)

	default:
		id, err := strconv.ParseInt(spec, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not an ID", ErrInvalidRange, spec)
		}
		query := fmt.Sprintf(`DELETE FROM interactions WHERE id = %s`, s.placeholder(1))
		return s.exec(ctx, query, id)
	}
}

// Close releases the underlying database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) exec(ctx context.Context, query string, args ...interface{}) (int64, error) {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete interactions: %w", err)
	}

	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}

	return deleted, nil
}

func (s *SQLStore) placeholder(n int) string {
	if s.dialect == "postgres" {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

func parseIDList(spec string) ([]int64, error) {
	parts := strings.Split(spec, ",")
	ids := make([]int64, 0, len(parts))
	for _, part := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not an ID list", ErrInvalidRange, spec)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func parseIDRange(spec string) (int64, int64, error) {
	parts := strings.SplitN(spec, "-", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: %q is not a range", ErrInvalidRange, spec)
	}

	lo, err := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q is not a range", ErrInvalidRange, spec)
	}
	hi, err := strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q is not a range", ErrInvalidRange, spec)
	}

	if lo > hi {
		lo, hi = hi, lo
	}
	return lo, hi, nil
}
