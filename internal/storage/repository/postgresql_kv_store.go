package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"github.com/ribbonapp/ribbon-core/internal/database"
	apperrors "github.com/ribbonapp/ribbon-core/internal/errors"
)

// PostgreSQLKVStore implements the key-value backend over the kv_entries table.
type PostgreSQLKVStore struct {
	db *sql.DB
}

// NewPostgreSQLKVStore creates a new PostgreSQL key-value store.
func NewPostgreSQLKVStore(db *sql.DB) *PostgreSQLKVStore {
	return &PostgreSQLKVStore{db: db}
}

// Get returns the value for key and whether it exists.
func (p *PostgreSQLKVStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT entry_value FROM kv_entries WHERE entry_key = $1`

	var value string
	if err := querier.QueryRowContext(ctx, query, key).Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, apperrors.Wrap(err, "failed to get kv entry")
	}
	return []byte(value), true, nil
}

// GetMany returns the values of the keys that exist.
func (p *PostgreSQLKVStore) GetMany(ctx context.Context, keys []string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	querier := database.GetTx(ctx, p.db)

	query := `SELECT entry_key, entry_value FROM kv_entries WHERE entry_key = ANY($1)`

	rows, err := querier.QueryContext(ctx, query, pq.Array(keys))
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to get kv entries")
	}
	defer func() {
		_ = rows.Close()
	}()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan kv entry")
		}
		out[key] = []byte(value)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate kv entries")
	}
	return out, nil
}

// Set upserts value under key.
func (p *PostgreSQLKVStore) Set(ctx context.Context, key string, value []byte) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO kv_entries (entry_key, entry_value, updated_at)
			  VALUES ($1, $2, $3)
			  ON CONFLICT (entry_key) DO UPDATE
			  SET entry_value = EXCLUDED.entry_value, updated_at = EXCLUDED.updated_at`

	if _, err := querier.ExecContext(ctx, query, key, string(value), time.Now().UTC()); err != nil {
		return apperrors.Wrap(err, "failed to set kv entry")
	}
	return nil
}

// Delete removes the keys. Missing keys are ignored.
func (p *PostgreSQLKVStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	querier := database.GetTx(ctx, p.db)

	query := `DELETE FROM kv_entries WHERE entry_key = ANY($1)`

	if _, err := querier.ExecContext(ctx, query, pq.Array(keys)); err != nil {
		return apperrors.Wrap(err, "failed to delete kv entries")
	}
	return nil
}

// Keys returns every stored key in lexical order.
func (p *PostgreSQLKVStore) Keys(ctx context.Context) ([]string, error) {
	return listKeys(ctx, database.GetTx(ctx, p.db))
}

// Close is a no-op; the connection pool is owned by the caller.
func (p *PostgreSQLKVStore) Close() error {
	return nil
}

func listKeys(ctx context.Context, querier database.Querier) ([]string, error) {
	query := `SELECT entry_key FROM kv_entries ORDER BY entry_key`

	rows, err := querier.QueryContext(ctx, query)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list kv keys")
	}
	defer func() {
		_ = rows.Close()
	}()

	keys := make([]string, 0)
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan kv key")
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate kv keys")
	}
	return keys, nil
}
