package proxy

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const pgSchema = `
CREATE TABLE IF NOT EXISTS documents (
    entity TEXT NOT NULL,
    id TEXT NOT NULL,
    doc JSONB NOT NULL,
    PRIMARY KEY (entity, id)
);
`

// PGStore is a DocStore on a hosted Postgres, one JSONB document per row.
// This is the deployment where the proxy fronts a shared database instead of
// node-local storage.
type PGStore struct {
	db *sql.DB
}

func OpenPGStore(uri string) (*PGStore, error) {
	db, err := sql.Open("pgx", uri)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	if _, err := db.Exec(pgSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &PGStore{db: db}, nil
}

func (p *PGStore) List(ctx context.Context, entity string) ([]Doc, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT doc FROM documents WHERE entity = $1 ORDER BY id`, entity)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	var docs []Doc
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		var doc Doc
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("decode document: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}
	return docs, nil
}

func (p *PGStore) Put(ctx context.Context, entity, id string, doc Doc) error {
	b, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO documents (entity, id, doc) VALUES ($1, $2, $3)
		ON CONFLICT (entity, id) DO UPDATE SET doc = EXCLUDED.doc
	`, entity, id, b)
	if err != nil {
		return fmt.Errorf("upsert document: %w", err)
	}
	return nil
}

func (p *PGStore) Merge(ctx context.Context, entity, id string, fields map[string]any) error {
	b, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode fields: %w", err)
	}
	_, err = p.db.ExecContext(ctx,
		`UPDATE documents SET doc = doc || $3::jsonb WHERE entity = $1 AND id = $2`,
		entity, id, b)
	if err != nil {
		return fmt.Errorf("merge document: %w", err)
	}
	return nil
}

func (p *PGStore) Delete(ctx context.Context, entity, id string) error {
	_, err := p.db.ExecContext(ctx,
		`DELETE FROM documents WHERE entity = $1 AND id = $2`, entity, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

func (p *PGStore) Close() error { return p.db.Close() }
