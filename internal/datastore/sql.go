package datastore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// SQLTree stores the document tree in a single SQL table. Every Set writes one
// row holding the JSON document at its path; reads reassemble the subtree from
// the row at the path plus every row below it.
//
// Supported drivers: "sqlite" (modernc), "pgx" (PostgreSQL) and "mysql".
type SQLTree struct {
	db *sqlx.DB
}

type nodeRow struct {
	Path  string `db:"path"`
	Value string `db:"value"`
}

// OpenSQL connects to the database and creates the node table if needed. For
// sqlite, ":memory:" gives a private in-memory tree.
func OpenSQL(driver, dsn string) (*SQLTree, error) {
	switch driver {
	case "sqlite", "pgx", "mysql":
	case "postgres":
		driver = "pgx"
	default:
		return nil, fmt.Errorf("unsupported datastore driver %q", driver)
	}

	if driver == "sqlite" && !strings.Contains(dsn, "_busy_timeout") && dsn != ":memory:" {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "_journal_mode=WAL&_busy_timeout=5000"
	}

	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s datastore: %w", driver, err)
	}
	if driver == "sqlite" {
		db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes
	}

	t := &SQLTree{db: db}
	if err := t.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate datastore: %w", err)
	}
	return t, nil
}

func (t *SQLTree) migrate() error {
	if _, err := t.db.Exec(nodesDDL(t.db.DriverName())); err != nil {
		return fmt.Errorf("create nodes table: %w", err)
	}
	return nil
}

// nodesDDL returns the node table definition for driver. Database push ids
// are case-sensitive, so MySQL gets a binary collation on path instead of its
// case-insensitive default.
func nodesDDL(driver string) string {
	pathType := "VARCHAR(512)"
	if driver == "mysql" {
		pathType = "VARCHAR(512) CHARACTER SET utf8mb4 COLLATE utf8mb4_bin"
	}
	return `CREATE TABLE IF NOT EXISTS nodes (
		path ` + pathType + ` NOT NULL PRIMARY KEY,
		value TEXT NOT NULL
	)`
}

// Close closes the underlying database connection.
func (t *SQLTree) Close() error {
	return t.db.Close()
}

// Ping checks the database connection.
func (t *SQLTree) Ping(ctx context.Context) error {
	return t.db.PingContext(ctx)
}

// Get reassembles the subtree at path and decodes it into v.
func (t *SQLTree) Get(ctx context.Context, path string, v any) error {
	path = Join(path)
	rows, err := t.subtree(ctx, t.db, path)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return ErrNotFound
	}

	var root any
	for _, r := range rows {
		var val any
		if err := json.Unmarshal([]byte(r.Value), &val); err != nil {
			return fmt.Errorf("decode node %s: %w", r.Path, err)
		}
		root = insert(root, split(strings.TrimPrefix(r.Path, path)), val)
	}

	raw, err := json.Marshal(root)
	if err != nil {
		return fmt.Errorf("encode subtree %s: %w", path, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// Set replaces the subtree at path with v.
func (t *SQLTree) Set(ctx context.Context, path string, v any) error {
	tx, err := t.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin set: %w", err)
	}
	defer tx.Rollback()

	if err := t.set(ctx, tx, Join(path), v); err != nil {
		return err
	}
	return tx.Commit()
}

// Update sets each field under path in a single transaction.
func (t *SQLTree) Update(ctx context.Context, path string, fields map[string]any) error {
	tx, err := t.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update: %w", err)
	}
	defer tx.Rollback()

	for name, v := range fields {
		if err := t.set(ctx, tx, Join(path, name), v); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (t *SQLTree) set(ctx context.Context, tx *sqlx.Tx, path string, v any) error {
	if path == "" {
		return fmt.Errorf("set: empty path")
	}

	existing, err := t.subtree(ctx, tx, path)
	if err != nil {
		return err
	}
	for _, r := range existing {
		if _, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM nodes WHERE path = ?"), r.Path); err != nil {
			return fmt.Errorf("delete node %s: %w", r.Path, err)
		}
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if string(raw) == "null" {
		return nil
	}

	if _, err := tx.ExecContext(ctx, tx.Rebind("INSERT INTO nodes (path, value) VALUES (?, ?)"), path, string(raw)); err != nil {
		return fmt.Errorf("insert node %s: %w", path, err)
	}
	return nil
}

// subtree returns the row at path and every row below it, ancestors first.
// LIKE treats '_' as a wildcard, so candidates are filtered again by prefix.
func (t *SQLTree) subtree(ctx context.Context, q sqlx.QueryerContext, path string) ([]nodeRow, error) {
	var (
		rows []nodeRow
		err  error
	)
	if path == "" {
		err = sqlx.SelectContext(ctx, q, &rows, "SELECT path, value FROM nodes")
	} else {
		err = sqlx.SelectContext(ctx, q, &rows,
			t.db.Rebind("SELECT path, value FROM nodes WHERE path = ? OR path LIKE ?"),
			path, path+"/%")
	}
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("select subtree %s: %w", path, err)
	}

	out := rows[:0]
	for _, r := range rows {
		if path == "" || r.Path == path || strings.HasPrefix(r.Path, path+"/") {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// insert places val at segs below root. Rows are applied ancestors first, so a
// deeper row overrides the matching key of a document written higher up.
func insert(root any, segs []string, val any) any {
	if len(segs) == 0 {
		return val
	}
	m, ok := root.(map[string]any)
	if !ok {
		m = make(map[string]any)
	}
	m[segs[0]] = insert(m[segs[0]], segs[1:], val)
	return m
}
