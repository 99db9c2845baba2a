//go:build cgo

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
)

// sqliteMaxParams keeps IN lists below SQLite's bound parameter limit
const sqliteMaxParams = 500

// SQLite implements Store using SQLite with sqlite-vec
type SQLite struct {
	conn *sql.DB
}

// NewSQLite creates a new SQLite storage
func NewSQLite(path string) (*SQLite, error) {
	sqlite_vec.Auto()

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &SQLite{conn: conn}
	if err := s.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

func (s *SQLite) initSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS profile_embeddings (
			model TEXT NOT NULL,
			text_hash TEXT NOT NULL,
			embedding BLOB NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (model, text_hash)
		);
	`
	_, err := s.conn.Exec(schema)
	return err
}

func (s *SQLite) Close() error {
	return s.conn.Close()
}

func (s *SQLite) Get(ctx context.Context, model string, keys []string) (map[string][]float32, error) {
	out := make(map[string][]float32, len(keys))

	for start := 0; start < len(keys); start += sqliteMaxParams {
		end := min(start+sqliteMaxParams, len(keys))
		chunk := keys[start:end]

		query := fmt.Sprintf(`
			SELECT text_hash, vec_to_json(embedding)
			FROM profile_embeddings
			WHERE model = ? AND text_hash IN (%s)
		`, strings.TrimSuffix(strings.Repeat("?,", len(chunk)), ","))

		args := make([]interface{}, 0, len(chunk)+1)
		args = append(args, model)
		for _, k := range chunk {
			args = append(args, k)
		}

		if err := s.scanInto(ctx, out, query, args...); err != nil {
			return nil, err
		}
	}

	return out, nil
}

func (s *SQLite) scanInto(ctx context.Context, out map[string][]float32, query string, args ...interface{}) error {
	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var key, raw string
		if err := rows.Scan(&key, &raw); err != nil {
			return err
		}

		var vec []float32
		if err := json.Unmarshal([]byte(raw), &vec); err != nil {
			return fmt.Errorf("failed to decode embedding %s: %w", key, err)
		}
		out[key] = vec
	}

	return rows.Err()
}

func (s *SQLite) Put(ctx context.Context, model string, entries []Entry) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO profile_embeddings (model, text_hash, embedding)
		VALUES (?, ?, vec_f32(?))
		ON CONFLICT(model, text_hash) DO UPDATE SET embedding = excluded.embedding
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range entries {
		blob, err := sqlite_vec.SerializeFloat32(e.Embedding)
		if err != nil {
			return fmt.Errorf("failed to serialize embedding: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, model, e.Key, blob); err != nil {
			return fmt.Errorf("failed to insert embedding: %w", err)
		}
	}

	return tx.Commit()
}
