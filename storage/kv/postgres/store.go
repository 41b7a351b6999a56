package pgkv

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/gradebook/core"
)

var (
	nowFunc = time.Now // mockable

	tableNameRegex = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)
)

type Store struct {
	db    *sqlx.DB
	table string
	ttl   time.Duration
}

var _ core.Storage = (*Store)(nil)

// Open connects to postgres and waits for it to be ready.
func Open(conf core.PostgresConfig) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", conf.DSN)
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	if err = ping(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// ping waits for the database to be ready. Waits 100ms longer between each attempt.
func ping(db *sqlx.DB) error {
	var err error
	maxAttempts := 30
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		if err = db.Ping(); err == nil {
			return nil
		}
		time.Sleep(time.Duration(attempts) * 100 * time.Millisecond)
	}
	return errors.Wrap(err, "DB ping timeout")
}

// New returns a storage backed by table, creating it if it does not exist.
// Values expire after ttl; ttl <= 0 keeps them forever.
func New(ctx context.Context, db *sqlx.DB, table string, ttl time.Duration) (*Store, error) {
	if !tableNameRegex.MatchString(table) {
		return nil, errors.Errorf("invalid table name %q", table)
	}
	q := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		key        TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		expires_at TIMESTAMPTZ NULL
	)`, pq.QuoteIdentifier(table))
	if _, err := db.ExecContext(ctx, q); err != nil {
		return nil, errors.Wrap(err, "creating storage table")
	}
	return &Store{db: db, table: pq.QuoteIdentifier(table), ttl: ttl}, nil
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	var val string
	q := fmt.Sprintf(`SELECT value FROM %s WHERE key = $1 AND (expires_at IS NULL OR expires_at > $2)`, s.table)
	if err := s.db.GetContext(ctx, &val, q, key, nowFunc().UTC()); err != nil {
		if err == sql.ErrNoRows {
			return "", core.ErrKeyNotFound
		}
		return "", errors.Wrapf(err, "getting %q", key)
	}
	return val, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	var expiresAt *time.Time
	if s.ttl > 0 {
		t := nowFunc().UTC().Add(s.ttl)
		expiresAt = &t
	}
	q := fmt.Sprintf(`INSERT INTO %s (key, value, expires_at) VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at`, s.table)
	_, err := s.db.ExecContext(ctx, q, key, value, expiresAt)
	return errors.Wrapf(err, "setting %q", key)
}

func (s *Store) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	q := fmt.Sprintf(`DELETE FROM %s WHERE key = ANY($1)`, s.table)
	_, err := s.db.ExecContext(ctx, q, pq.Array(keys))
	return errors.Wrap(err, "deleting keys")
}

// Purge removes expired values.
func (s *Store) Purge(ctx context.Context) (int64, error) {
	q := fmt.Sprintf(`DELETE FROM %s WHERE expires_at IS NOT NULL AND expires_at <= $1`, s.table)
	res, err := s.db.ExecContext(ctx, q, nowFunc().UTC())
	if err != nil {
		return 0, errors.Wrap(err, "purging expired keys")
	}
	return res.RowsAffected()
}
