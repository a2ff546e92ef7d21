package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/SigNoz/freshmart-storefront/internal/db"
)

const kvTable = "storefront_kv"

var kvSchemas = map[db.Dialect]string{
	db.MySQL: `
-- storefront state blobs
CREATE TABLE IF NOT EXISTS storefront_kv (
	k VARCHAR(255) NOT NULL PRIMARY KEY,
	v LONGBLOB NOT NULL,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
);`,
	db.Postgres: `
-- storefront state blobs
CREATE TABLE IF NOT EXISTS storefront_kv (
	k TEXT PRIMARY KEY,
	v BYTEA NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`,
	db.SQLite: `
-- storefront state blobs
CREATE TABLE IF NOT EXISTS storefront_kv (
	k TEXT PRIMARY KEY,
	v BLOB NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);`,
}

type kvQueries struct {
	load   string
	save   string
	delete string
}

var kvStatements = map[db.Dialect]kvQueries{
	db.MySQL: {
		load:   "SELECT v FROM " + kvTable + " WHERE k = ?",
		save:   "INSERT INTO " + kvTable + " (k, v) VALUES (?, ?) ON DUPLICATE KEY UPDATE v = VALUES(v)",
		delete: "DELETE FROM " + kvTable + " WHERE k = ?",
	},
	db.Postgres: {
		load:   "SELECT v FROM " + kvTable + " WHERE k = $1",
		save:   "INSERT INTO " + kvTable + " (k, v) VALUES ($1, $2) ON CONFLICT (k) DO UPDATE SET v = EXCLUDED.v, updated_at = NOW()",
		delete: "DELETE FROM " + kvTable + " WHERE k = $1",
	},
	db.SQLite: {
		load:   "SELECT v FROM " + kvTable + " WHERE k = ?",
		save:   "INSERT INTO " + kvTable + " (k, v) VALUES (?, ?) ON CONFLICT(k) DO UPDATE SET v = excluded.v, updated_at = CURRENT_TIMESTAMP",
		delete: "DELETE FROM " + kvTable + " WHERE k = ?",
	},
}

// SQL stores blobs in a single key-value table
type SQL struct {
	db *db.DB
	q  kvQueries
}

// NewSQL creates the key-value table if needed and returns a Storage over it
func NewSQL(ctx context.Context, database *db.DB) (*SQL, error) {
	q, ok := kvStatements[database.Dialect]
	if !ok {
		return nil, fmt.Errorf("no key-value statements for dialect %q", database.Dialect)
	}
	if err := database.InitSchema(ctx, kvSchemas[database.Dialect]); err != nil {
		return nil, fmt.Errorf("failed to init key-value schema: %w", err)
	}
	return &SQL{db: database, q: q}, nil
}

func (s *SQL) Load(ctx context.Context, key string) ([]byte, error) {
	var v []byte
	err := s.db.QueryRowContext(ctx, s.q.load, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", key, err)
	}
	return v, nil
}

func (s *SQL) Save(ctx context.Context, key string, value []byte) error {
	if _, err := s.db.ExecContext(ctx, s.q.save, key, value); err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}

func (s *SQL) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, s.q.delete, key); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}
