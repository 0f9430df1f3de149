// Package persist stores the revision tree durably in SQLite.
//
// Persistence is layered strictly on top of the engine: it consumes the
// plain-data history.Tree export and the graph op codec, and the engine
// never calls back into it.
package persist

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strconv"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/patchbay/internal/graph"
	"github.com/roach88/patchbay/internal/history"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (pre-migration)
// 1 - Added index on revisions.parent_id
const currentSchemaVersion = 1

const (
	metaCurrentID     = "current_revision_id"
	metaRootPreferred = "root_preferred_child_id"
)

// Store provides durable storage for a document's revision tree.
// Uses SQLite with WAL mode for concurrent read access.
type Store struct {
	db *sql.DB
}

// Open creates or opens a SQLite database at the given path, applying
// required pragmas and migrations. Idempotent - safe to call on an
// existing database.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite supports one writer at a time; a single connection avoids
	// SQLITE_BUSY errors entirely.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB for direct queries.
// Use with caution - prefer Store methods when available.
func (s *Store) DB() *sql.DB {
	return s.db
}

// SaveTree replaces the stored tree with the given export, atomically.
// Whole-tree replacement keeps the store dumb: the history package owns
// tree invariants, this package just round-trips them.
func (s *Store) SaveTree(ctx context.Context, tree history.Tree) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM revisions`); err != nil {
		return fmt.Errorf("clear revisions: %w", err)
	}

	for _, rev := range tree.Revisions {
		ops, err := graph.MarshalOps(rev.Ops)
		if err != nil {
			return fmt.Errorf("encode ops for revision %d: %w", rev.ID, err)
		}
		inverse, err := graph.MarshalOps(rev.InverseOps)
		if err != nil {
			return fmt.Errorf("encode inverse ops for revision %d: %w", rev.ID, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO revisions (id, parent_id, label, created_at, ops, inverse_ops, preferred_child_id)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			rev.ID, rev.ParentID, rev.Label,
			rev.Timestamp.UTC().Format(time.RFC3339Nano),
			string(ops), string(inverse), rev.PreferredChildID,
		)
		if err != nil {
			return fmt.Errorf("insert revision %d: %w", rev.ID, err)
		}
	}

	if err := setMeta(ctx, tx, metaCurrentID, strconv.FormatInt(tree.CurrentID, 10)); err != nil {
		return err
	}
	if err := setMeta(ctx, tx, metaRootPreferred, strconv.FormatInt(tree.RootPreferredChildID, 10)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}

// LoadTree reads the stored tree. An empty database yields an empty tree
// positioned at the root.
func (s *Store) LoadTree(ctx context.Context) (history.Tree, error) {
	var tree history.Tree

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, parent_id, label, created_at, ops, inverse_ops, preferred_child_id
		FROM revisions ORDER BY id ASC`)
	if err != nil {
		return tree, fmt.Errorf("query revisions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			rev            history.Revision
			createdAt      string
			opsJSON        string
			inverseOpsJSON string
		)
		if err := rows.Scan(&rev.ID, &rev.ParentID, &rev.Label, &createdAt, &opsJSON, &inverseOpsJSON, &rev.PreferredChildID); err != nil {
			return tree, fmt.Errorf("scan revision: %w", err)
		}
		rev.Timestamp, err = time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return tree, fmt.Errorf("parse timestamp for revision %d: %w", rev.ID, err)
		}
		rev.Ops, err = graph.UnmarshalOps([]byte(opsJSON))
		if err != nil {
			return tree, fmt.Errorf("decode ops for revision %d: %w", rev.ID, err)
		}
		rev.InverseOps, err = graph.UnmarshalOps([]byte(inverseOpsJSON))
		if err != nil {
			return tree, fmt.Errorf("decode inverse ops for revision %d: %w", rev.ID, err)
		}
		tree.Revisions = append(tree.Revisions, rev)
	}
	if err := rows.Err(); err != nil {
		return tree, fmt.Errorf("iterate revisions: %w", err)
	}

	tree.CurrentID, err = s.metaInt(ctx, metaCurrentID)
	if err != nil {
		return tree, err
	}
	tree.RootPreferredChildID, err = s.metaInt(ctx, metaRootPreferred)
	if err != nil {
		return tree, err
	}
	return tree, nil
}

func setMeta(ctx context.Context, tx *sql.Tx, key, value string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value)
	if err != nil {
		return fmt.Errorf("set meta %s: %w", key, err)
	}
	return nil
}

func (s *Store) metaInt(ctx context.Context, key string) (int64, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get meta %s: %w", key, err)
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse meta %s: %w", key, err)
	}
	return n, nil
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
// Idempotent.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
		version = 1
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

// migrateToV1 adds the parent-id index for tree traversal queries.
func migrateToV1(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_revisions_parent
		ON revisions(parent_id)
	`)
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
