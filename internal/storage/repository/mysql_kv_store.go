package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/ribbonapp/ribbon-core/internal/database"
	apperrors "github.com/ribbonapp/ribbon-core/internal/errors"
)

// MySQLKVStore implements the key-value backend over the kv_entries table.
type MySQLKVStore struct {
	db *sql.DB
}

// NewMySQLKVStore creates a new MySQL key-value store.
func NewMySQLKVStore(db *sql.DB) *MySQLKVStore {
	return &MySQLKVStore{db: db}
}

// Get returns the value for key and whether it exists.
func (m *MySQLKVStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT entry_value FROM kv_entries WHERE entry_key = ?`

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
func (m *MySQLKVStore) GetMany(ctx context.Context, keys []string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	querier := database.GetTx(ctx, m.db)

	query := `SELECT entry_key, entry_value FROM kv_entries WHERE entry_key IN (` + placeholders(len(keys)) + `)`

	rows, err := querier.QueryContext(ctx, query, stringArgs(keys)...)
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
func (m *MySQLKVStore) Set(ctx context.Context, key string, value []byte) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO kv_entries (entry_key, entry_value, updated_at)
			  VALUES (?, ?, ?)
			  ON DUPLICATE KEY UPDATE entry_value = VALUES(entry_value), updated_at = VALUES(updated_at)`

	if _, err := querier.ExecContext(ctx, query, key, string(value), time.Now().UTC()); err != nil {
		return apperrors.Wrap(err, "failed to set kv entry")
	}
	return nil
}

// Delete removes the keys. Missing keys are ignored.
func (m *MySQLKVStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	querier := database.GetTx(ctx, m.db)

	query := `DELETE FROM kv_entries WHERE entry_key IN (` + placeholders(len(keys)) + `)`

	if _, err := querier.ExecContext(ctx, query, stringArgs(keys)...); err != nil {
		return apperrors.Wrap(err, "failed to delete kv entries")
	}
	return nil
}

// Keys returns every stored key in lexical order.
func (m *MySQLKVStore) Keys(ctx context.Context) ([]string, error) {
	return listKeys(ctx, database.GetTx(ctx, m.db))
}

// Close is a no-op; the connection pool is owned by the caller.
func (m *MySQLKVStore) Close() error {
	return nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func stringArgs(values []string) []any {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}
