package treestore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// PostgresBackend stores the tree as one row per leaf in tree_nodes.
type PostgresBackend struct {
	db *sqlx.DB
}

// NewPostgresBackend wraps an open connection. The tree_nodes table is created by db.Connect.
func NewPostgresBackend(db *sqlx.DB) *PostgresBackend {
	return &PostgresBackend{db: db}
}

type nodeRow struct {
	Path  string `db:"path"`
	Value []byte `db:"value"`
}

func (p *PostgresBackend) Name() string { return "postgres" }

func (p *PostgresBackend) Read(ctx context.Context, path string) (json.RawMessage, error) {
	var rows []nodeRow
	var err error
	if path == "" {
		err = p.db.SelectContext(ctx, &rows, `SELECT path, value FROM tree_nodes`)
	} else {
		err = p.db.SelectContext(ctx, &rows,
			`SELECT path, value FROM tree_nodes WHERE path = $1 OR path LIKE $2`,
			path, escapeLike(path)+"/%")
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	if len(rows) == 1 && rows[0].Path == path {
		return json.RawMessage(rows[0].Value), nil
	}

	root := map[string]any{}
	for _, row := range rows {
		if row.Path == path {
			continue
		}
		rel := strings.TrimPrefix(row.Path, path+"/")
		if path == "" {
			rel = row.Path
		}
		var leaf any
		if err := json.Unmarshal(row.Value, &leaf); err != nil {
			return nil, fmt.Errorf("decode %s: %w", row.Path, err)
		}
		place(root, strings.Split(rel, "/"), leaf)
	}
	return json.Marshal(root)
}

func (p *PostgresBackend) Write(ctx context.Context, updates map[string]any) error {
	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, path := range sortedKeys(updates) {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM tree_nodes WHERE path = $1 OR path LIKE $2`,
			path, escapeLike(path)+"/%"); err != nil {
			return fmt.Errorf("clear %s: %w", path, err)
		}
		if parents := ancestors(path); len(parents) > 0 {
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM tree_nodes WHERE path = ANY($1)`, pq.Array(parents)); err != nil {
				return fmt.Errorf("clear ancestors of %s: %w", path, err)
			}
		}

		value := updates[path]
		if value == nil {
			continue
		}
		for leafPath, leaf := range flatten(path, value) {
			encoded, err := json.Marshal(leaf)
			if err != nil {
				return fmt.Errorf("encode %s: %w", leafPath, err)
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO tree_nodes (path, value, updated_at) VALUES ($1, $2, NOW())
				 ON CONFLICT (path) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`,
				leafPath, string(encoded)); err != nil {
				return fmt.Errorf("insert %s: %w", leafPath, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
