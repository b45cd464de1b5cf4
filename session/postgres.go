package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DefaultTable is the table PostgresStore uses when none is configured.
const DefaultTable = "key_value_store"

// DB is the subset of *pgxpool.Pool used by PostgresStore.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// PostgresOptions configures a PostgresStore.
type PostgresOptions struct {
	// Table defaults to DefaultTable.
	Table string
	// Unlogged creates the table as UNLOGGED in EnsureSchema. Records are lost on
	// a crash, which only signs every principal out.
	Unlogged bool
}

// PostgresStore is a [Store] over a single relational table. Expired rows are
// hidden from reads and removed lazily on access or by PurgeExpired.
type PostgresStore struct {
	db       DB
	table    string
	unlogged bool
}

// NewPostgresStore creates a PostgresStore on top of db, usually a *pgxpool.Pool.
func NewPostgresStore(db DB, opts PostgresOptions) *PostgresStore {
	table := opts.Table
	if table == "" {
		table = DefaultTable
	}
	return &PostgresStore{
		db:       db,
		table:    pgx.Identifier{table}.Sanitize(),
		unlogged: opts.Unlogged,
	}
}

// EnsureSchema creates the record table and its expiry index if missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	kind := "TABLE"
	if s.unlogged {
		kind = "UNLOGGED TABLE"
	}
	stmts := []string{
		fmt.Sprintf(`CREATE %s IF NOT EXISTS %s (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	expires_at TIMESTAMPTZ NULL
)`, kind, s.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (expires_at) WHERE expires_at IS NOT NULL`,
			pgx.Identifier{indexName(s.table)}.Sanitize(), s.table),
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("%w: ensure schema: %v", ErrStoreUnavailable, err)
		}
	}
	return nil
}

// Get returns the live value under key. An expired row is deleted and
// reported as ErrNotFound, as is a row whose value does not decode.
func (s *PostgresStore) Get(ctx context.Context, key string) (string, error) {
	var (
		raw     string
		expired bool
	)
	err := s.db.QueryRow(ctx,
		`SELECT value, (expires_at IS NOT NULL AND expires_at <= now()) FROM `+s.table+` WHERE key = $1`,
		key,
	).Scan(&raw, &expired)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if expired {
		if _, err := s.db.Exec(ctx,
			`DELETE FROM `+s.table+` WHERE key = $1 AND expires_at <= now()`, key); err != nil {
			return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		return "", ErrNotFound
	}

	value, err := Decode(raw)
	if err != nil {
		if delErr := s.Del(ctx, key); delErr != nil {
			return "", delErr
		}
		return "", ErrNotFound
	}
	return value, nil
}

// Set upserts value under key. A ttl <= 0 deletes key.
func (s *PostgresStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		return s.Del(ctx, key)
	}
	encoded, err := Encode(value)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx,
		`INSERT INTO `+s.table+` (key, value, expires_at)
VALUES ($1, $2, now() + make_interval(secs => $3))
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at`,
		key, encoded, ttl.Seconds(),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Take deletes key and returns the value it held, in a single statement.
func (s *PostgresStore) Take(ctx context.Context, key string) (string, error) {
	var (
		raw     string
		expired bool
	)
	err := s.db.QueryRow(ctx,
		`DELETE FROM `+s.table+` WHERE key = $1 RETURNING value, (expires_at IS NOT NULL AND expires_at <= now())`,
		key,
	).Scan(&raw, &expired)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if expired {
		return "", ErrNotFound
	}
	value, err := Decode(raw)
	if err != nil {
		return "", ErrNotFound
	}
	return value, nil
}

// Del removes keys in one statement.
func (s *PostgresStore) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if _, err := s.db.Exec(ctx, `DELETE FROM `+s.table+` WHERE key = ANY($1)`, keys); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Keys lists live keys matching the glob pattern, translated to LIKE.
func (s *PostgresStore) Keys(ctx context.Context, pattern string) ([]string, error) {
	rows, err := s.db.Query(ctx,
		`SELECT key FROM `+s.table+` WHERE key LIKE $1 ESCAPE '\' AND (expires_at IS NULL OR expires_at > now())`,
		likePattern(pattern),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	keys, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return keys, nil
}

// PurgeExpired deletes every expired row and returns how many were removed.
func (s *PostgresStore) PurgeExpired(ctx context.Context) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM `+s.table+` WHERE expires_at IS NOT NULL AND expires_at <= now()`)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return tag.RowsAffected(), nil
}

// Ping returns a point-in-time database availability check and latency.
func (s *PostgresStore) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.db.Ping(ctx); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return time.Since(start), nil
}

func indexName(sanitizedTable string) string {
	name := make([]byte, 0, len(sanitizedTable)+16)
	for i := 0; i < len(sanitizedTable); i++ {
		c := sanitizedTable[i]
		if c == '"' || c == '.' {
			continue
		}
		name = append(name, c)
	}
	return string(name) + "_expires_at_idx"
}
