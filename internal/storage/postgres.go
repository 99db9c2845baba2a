package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// Postgres implements Store using PostgreSQL with pgvector
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a new Postgres storage
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	p := &Postgres{pool: pool}
	if err := p.initSchema(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return p, nil
}

func (p *Postgres) initSchema(ctx context.Context) error {
	schema := `
		CREATE EXTENSION IF NOT EXISTS vector;

		CREATE TABLE IF NOT EXISTS profile_embeddings (
			model TEXT NOT NULL,
			text_hash TEXT NOT NULL,
			embedding vector NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (model, text_hash)
		);
	`
	_, err := p.pool.Exec(ctx, schema)
	return err
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

func (p *Postgres) Get(ctx context.Context, model string, keys []string) (map[string][]float32, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT text_hash, embedding::text
		 FROM profile_embeddings
		 WHERE model = $1 AND text_hash = ANY($2)`,
		model, keys,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]float32, len(keys))
	for rows.Next() {
		var key, raw string
		if err := rows.Scan(&key, &raw); err != nil {
			return nil, err
		}

		var vec pgvector.Vector
		if err := vec.Parse(raw); err != nil {
			return nil, fmt.Errorf("failed to decode embedding %s: %w", key, err)
		}
		out[key] = vec.Slice()
	}

	return out, rows.Err()
}

func (p *Postgres) Put(ctx context.Context, model string, entries []Entry) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, e := range entries {
		_, err = tx.Exec(ctx,
			`INSERT INTO profile_embeddings (model, text_hash, embedding)
			 VALUES ($1, $2, $3)
			 ON CONFLICT (model, text_hash) DO UPDATE SET embedding = EXCLUDED.embedding`,
			model, e.Key, pgvector.NewVector(e.Embedding),
		)
		if err != nil {
			return fmt.Errorf("failed to insert embedding: %w", err)
		}
	}

	return tx.Commit(ctx)
}
