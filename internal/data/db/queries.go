package db

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Queries holds the statements against kv_store.
type Queries struct {
	db DBTX
}

// New returns Queries bound to db.
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// KvStore is one kv_store row.
type KvStore struct {
	Key       string
	Value     []byte
	CreatedAt int64
	UpdatedAt int64
}

const kvGet = `SELECT key, value, created_at, updated_at FROM kv_store WHERE key = ?`

// KVGet returns the row for key or sql.ErrNoRows.
func (q *Queries) KVGet(ctx context.Context, key string) (KvStore, error) {
	var row KvStore
	err := q.db.QueryRowContext(ctx, kvGet, key).Scan(&row.Key, &row.Value, &row.CreatedAt, &row.UpdatedAt)
	return row, err
}

const kvSet = `INSERT INTO kv_store (key, value, created_at, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

// KVSetParams are the arguments to KVSet.
type KVSetParams struct {
	Key       string
	Value     []byte
	CreatedAt int64
	UpdatedAt int64
}

// KVSet upserts a row, keeping the original created_at.
func (q *Queries) KVSet(ctx context.Context, arg KVSetParams) error {
	_, err := q.db.ExecContext(ctx, kvSet, arg.Key, arg.Value, arg.CreatedAt, arg.UpdatedAt)
	return err
}

const kvDelete = `DELETE FROM kv_store WHERE key = ?`

// KVDelete removes key. Missing keys are not an error.
func (q *Queries) KVDelete(ctx context.Context, key string) error {
	_, err := q.db.ExecContext(ctx, kvDelete, key)
	return err
}

const kvListKeys = `SELECT key FROM kv_store ORDER BY key`

// KVListKeys returns every key in sorted order.
func (q *Queries) KVListKeys(ctx context.Context) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, kvListKeys)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}
