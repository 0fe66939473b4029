// Package db persists a run ledger: one row per generated tile,
// recorded via an embedded DuckDB database so a completed run can be
// audited or queried without re-parsing tileset.json.
//
// Unlike the teacher's server-lifetime singleton connection (one
// process serving many requests against one database), a tiling run
// is a single batch process against a single output directory, so
// Ledger is an ordinary per-run instance rather than a package-level
// singleton; see DESIGN.md.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/joeblew999/mesh3dtiler/internal/manifest"
	"github.com/joeblew999/mesh3dtiler/internal/tile"
)

// Ledger records per-tile metadata for one tiling run.
type Ledger struct {
	db *sql.DB
}

// Open creates (or opens) <dir>/ledger.duckdb and ensures its schema exists.
func Open(dir string) (*Ledger, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating ledger directory: %w", err)
	}
	dbPath := filepath.Join(dir, "ledger.duckdb")

	sqlDB, err := sql.Open("duckdb", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening ledger: %w", err)
	}

	const schema = `CREATE TABLE IF NOT EXISTS tiles (
		zoom INTEGER,
		xi BIGINT,
		yi BIGINT,
		zi BIGINT,
		geometric_error DOUBLE,
		bytes BIGINT,
		uri TEXT,
		created_at TIMESTAMP DEFAULT current_timestamp
	)`
	if _, err := sqlDB.Exec(schema); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("creating tiles table: %w", err)
	}

	return &Ledger{db: sqlDB}, nil
}

// RecordTile inserts one row describing a generated tile.
func (l *Ledger) RecordTile(t tile.Tile, meta *manifest.Tile3D, bytes int64) error {
	uri := ""
	if meta.Content != nil {
		uri = meta.Content.URI
	}
	_, err := l.db.Exec(
		`INSERT INTO tiles (zoom, xi, yi, zi, geometric_error, bytes, uri) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.Zoom, t.XI, t.YI, t.ZI, meta.GeometricError, bytes, uri,
	)
	return err
}

// Close closes the underlying database connection.
func (l *Ledger) Close() error {
	return l.db.Close()
}
