// Package ledger owns the entitlement store: a single SQLite file holding
// users, resource allocations and API sessions. It provides opening with the
// right pragmas, schema migrations, timestamped backups, integrity checks and
// first-time bootstrap with admin credential rotation.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"strings"

	"github.com/dmitrijs2005/diycloud/internal/common"
	"github.com/dmitrijs2005/diycloud/internal/ledger/migrations"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// Store wraps the SQLite ledger file.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (or creates) the ledger at path with foreign keys enforced and
// a busy timeout for the single-writer case. Returns
// common.ErrStoreUnavailable when the engine cannot be reached.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
	}

	return &Store{db: db, path: path}, nil
}

// DB exposes the underlying handle for repositories and dbx.WithTx.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Path returns the store file path.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) Close() error {
	return s.db.Close()
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations applies the embedded schema migrations. Returns
// common.ErrSchemaMissing when no migration files are embedded.
func (s *Store) RunMigrations(ctx context.Context) error {
	entries, err := fs.Glob(migrations.Migrations, "*.sql")
	if err != nil || len(entries) == 0 {
		return common.ErrSchemaMissing
	}

	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}
	if err := gooseUpContext(ctx, s.db, "."); err != nil {
		return fmt.Errorf("applying migrations: %w", err)
	}
	return nil
}

// IntegrityStatus is the result of an integrity check.
type IntegrityStatus struct {
	OK     bool
	Detail string
}

// IntegrityCheck runs SQLite's integrity_check plus a foreign-key scan.
// It is read-only and safe to call anytime. Engine-level corruption
// ("file is not a database", "database disk image is malformed") is reported
// as a failing status, not an error.
func (s *Store) IntegrityCheck(ctx context.Context) (*IntegrityStatus, error) {
	var result string
	err := s.db.QueryRowContext(ctx, `PRAGMA integrity_check`).Scan(&result)
	if err != nil {
		if isCorruptionError(err) {
			return &IntegrityStatus{OK: false, Detail: err.Error()}, nil
		}
		return nil, fmt.Errorf("integrity check: %w", err)
	}
	if result != "ok" {
		return &IntegrityStatus{OK: false, Detail: result}, nil
	}

	rows, err := s.db.QueryContext(ctx, `PRAGMA foreign_key_check`)
	if err != nil {
		if isCorruptionError(err) {
			return &IntegrityStatus{OK: false, Detail: err.Error()}, nil
		}
		return nil, fmt.Errorf("foreign key check: %w", err)
	}
	defer rows.Close()

	if rows.Next() {
		var table string
		var rowid, fkid any
		var parent string
		_ = rows.Scan(&table, &rowid, &parent, &fkid)
		return &IntegrityStatus{
			OK:     false,
			Detail: fmt.Sprintf("foreign key violation in table %s", table),
		}, nil
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("foreign key check: %w", err)
	}

	return &IntegrityStatus{OK: true, Detail: "ok"}, nil
}

// Verify runs IntegrityCheck and turns a failing status into
// common.ErrStoreCorrupt, for callers that gate work on a healthy store.
func (s *Store) Verify(ctx context.Context) error {
	status, err := s.IntegrityCheck(ctx)
	if err != nil {
		return err
	}
	if !status.OK {
		return fmt.Errorf("%w: %s", common.ErrStoreCorrupt, status.Detail)
	}
	return nil
}

func isCorruptionError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "file is not a database") ||
		strings.Contains(msg, "database disk image is malformed")
}
