// Package sqlite stores the ledger in a single SQLite file for embedded and single-node deployments.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	portsrepo "github.com/SscSPs/mma_ledger/internal/core/ports/repositories"
	"github.com/SscSPs/mma_ledger/internal/repositories/database/sqlite/migrations"
	"github.com/SscSPs/mma_ledger/pkg/database"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const defaultPageSize = 20

// Open opens the database at path, applies migrations and returns the handle.
// Writers are serialized on one connection; transactions start IMMEDIATE so
// a version check and the write that follows it cannot interleave.
func Open(path string, logger *slog.Logger) (*sql.DB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	dsn := filepath.Clean(path) +
		"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)&_txlock=immediate"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := database.MigrateSQLite(db, migrations.FS, logger); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return db, nil
}

// NewRepositoryProvider wires every ledger repository onto db.
func NewRepositoryProvider(db *sql.DB) *portsrepo.RepositoryProvider {
	return &portsrepo.RepositoryProvider{
		EventStore:  &EventStore{db: db},
		JournalRead: &JournalReadModel{db: db},
		AccountRead: &AccountReadModel{db: db},
		Sequences:   &SequenceAllocator{db: db},
		Periods:     &PeriodRepository{db: db},
		DeadLetters: &DeadLetterStore{db: db},
		Checkpoints: &CheckpointStore{db: db},
	}
}

func isConstraintError(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	return code == sqlite3.SQLITE_CONSTRAINT || code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func nullMillis(t sql.NullTime) sql.NullInt64 {
	if !t.Valid {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: toMillis(t.Time), Valid: true}
}

func nullTimeOf(ms sql.NullInt64) sql.NullTime {
	if !ms.Valid {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: fromMillis(ms.Int64), Valid: true}
}
