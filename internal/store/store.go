package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/lib/pq"
)

// Store is a Postgres backed key/value store. Values are JSON documents.
type Store struct {
	DB *sql.DB
}

// Item is a stored key with its raw JSON value.
type Item struct {
	Key       string
	Value     json.RawMessage
	UpdatedAt time.Time
}

// Decode unmarshals the item value into dst.
func (it Item) Decode(dst any) error {
	return json.Unmarshal(it.Value, dst)
}

// NewWithDSN constructs the Store using an explicit Postgres DSN
func NewWithDSN(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{DB: db}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	if s == nil || s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

// Ping runs a trivial round trip query and checks its answer.
func (s *Store) Ping(ctx context.Context) error {
	var one int
	if err := s.DB.QueryRowContext(ctx, `SELECT 1`).Scan(&one); err != nil {
		return fmt.Errorf("connection test: %w", err)
	}
	if one != 1 {
		return fmt.Errorf("connection test returned %d", one)
	}
	return nil
}

const upsertItemSQL = `
INSERT INTO kv_items (key, value, updated_at)
VALUES ($1,$2,NOW())
ON CONFLICT (key) DO UPDATE SET
  value      = EXCLUDED.value,
  updated_at = NOW();
`

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func putItem(ctx context.Context, db execer, key string, value any) error {
	if key == "" {
		return fmt.Errorf("key is required")
	}
	b, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal value for %s: %w", key, err)
	}
	_, err = db.ExecContext(ctx, upsertItemSQL, key, b)
	return err
}

// Put stores value under key, replacing any previous value.
func (s *Store) Put(ctx context.Context, key string, value any) error {
	return putItem(ctx, s.DB, key, value)
}

// PutMany stores every entry in a single transaction.
func (s *Store) PutMany(ctx context.Context, entries map[string]any) error {
	if len(entries) == 0 {
		return nil
	}
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return s.WithTx(ctx, func(tx *sql.Tx) error {
		for _, k := range keys {
			if err := putItem(ctx, tx, k, entries[k]); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetItem returns the raw item stored under key. The bool indicates whether a record was found.
func (s *Store) GetItem(ctx context.Context, key string) (Item, bool, error) {
	var it Item
	row := s.DB.QueryRowContext(ctx, `SELECT key, value, updated_at FROM kv_items WHERE key=$1`, key)
	if err := row.Scan(&it.Key, &it.Value, &it.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Item{}, false, nil
		}
		return Item{}, false, err
	}
	return it, true, nil
}

// Get decodes the value stored under key into dst.
func (s *Store) Get(ctx context.Context, key string, dst any) (bool, error) {
	it, ok, err := s.GetItem(ctx, key)
	if err != nil || !ok {
		return ok, err
	}
	if err := it.Decode(dst); err != nil {
		return true, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// Delete removes key and reports whether it existed.
func (s *Store) Delete(ctx context.Context, key string) (bool, error) {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM kv_items WHERE key=$1`, key)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// DeleteMany removes all listed keys and returns how many rows went away.
func (s *Store) DeleteMany(ctx context.Context, keys []string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	res, err := s.DB.ExecContext(ctx, `DELETE FROM kv_items WHERE key = ANY($1)`, pq.Array(keys))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// List returns items whose key starts with prefix, ordered by key.
// A non-positive limit returns every match.
func (s *Store) List(ctx context.Context, prefix string, limit int) ([]Item, error) {
	query := `SELECT key, value, updated_at FROM kv_items WHERE key LIKE $1 ORDER BY key`
	args := []any{likePrefix(prefix)}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.Key, &it.Value, &it.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// likePrefix escapes LIKE metacharacters so prefix matches literally.
func likePrefix(prefix string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(prefix) + "%"
}

// WithTx runs fn inside a transaction, committing when fn returns nil.
func (s *Store) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()
	return fn(tx)
}
