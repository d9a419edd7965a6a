// Package database opens the SQLite store, applies the embedded schema
// migrations and translates driver errors into package sentinels.
package database

import (
	"context"
	"database/sql"
	"embed"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DriverName is the database/sql driver registered by go-sqlite3.
const DriverName = "sqlite3"

// MemoryPath opens a private in-memory database. Used by tests.
const MemoryPath = ":memory:"

var (
	// ErrNotFound is returned when a query matches no rows.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate is returned on unique constraint violations.
	ErrDuplicate = errors.New("duplicate record")

	// ErrForeignKey is returned when a referenced row does not exist.
	ErrForeignKey = errors.New("referenced record does not exist")
)

// Open opens (creating if needed) the SQLite database at path with foreign
// keys enforced. The pool is limited to one connection: SQLite serialises
// writers anyway and an in-memory database only lives as long as its
// connection.
func Open(path string) (*sqlx.DB, error) {
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, errors.Wrap(err, "failed to create database directory")
		}
	}

	db, err := sqlx.Open(DriverName, dsn(path))
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "failed to ping database")
	}
	return db, nil
}

// OpenAndMigrate opens the database and applies every pending migration.
func OpenAndMigrate(path string, logger *slog.Logger) (*sqlx.DB, error) {
	db, err := Open(path)
	if err != nil {
		return nil, err
	}
	if err := MigrateUp(db, logger); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func dsn(path string) string {
	params := "_foreign_keys=on&_busy_timeout=5000"
	if path == MemoryPath {
		return "file::memory:?" + params
	}
	return "file:" + path + "?" + params + "&_journal_mode=WAL"
}

// WithTx runs fn inside a transaction, committing on success and rolling
// back on error or panic.
func WithTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return MapError(err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	return MapError(tx.Commit())
}

// MapError translates driver errors into ErrNotFound, ErrDuplicate and
// ErrForeignKey, wrapping the original so it stays inspectable.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrDuplicate) || errors.Is(err, ErrForeignKey) {
		return err
	}
	if errors.Is(err, sql.ErrNoRows) {
		return &mappedError{sentinel: ErrNotFound, cause: err}
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
		switch sqliteErr.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return &mappedError{sentinel: ErrDuplicate, cause: err}
		case sqlite3.ErrConstraintForeignKey:
			return &mappedError{sentinel: ErrForeignKey, cause: err}
		}
	}
	if strings.Contains(err.Error(), "FOREIGN KEY constraint failed") {
		return &mappedError{sentinel: ErrForeignKey, cause: err}
	}
	return err
}

// mappedError keeps the driver error as its cause while matching the
// sentinel with errors.Is.
type mappedError struct {
	sentinel error
	cause    error
}

func (e *mappedError) Error() string        { return e.sentinel.Error() + ": " + e.cause.Error() }
func (e *mappedError) Is(target error) bool { return target == e.sentinel }
func (e *mappedError) Unwrap() error        { return e.cause }
