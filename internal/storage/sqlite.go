// Package storage implements the Store interface using SQLite.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ledgerline/ledgerline/internal/service"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// dbtx abstracts *sql.DB and *sql.Tx so every query method works inside and
// outside a transaction without delegation boilerplate.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// queries carries all record-level operations over a dbtx.
type queries struct {
	db dbtx
}

// SQLiteStore implements the service.Store interface using SQLite.
type SQLiteStore struct {
	queries
	sqlDB  *sql.DB
	dbPath string
}

// NewSQLiteStore creates a new SQLite storage instance.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("dbPath cannot be empty")
	}

	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite doesn't benefit from multiple connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteStore{
		queries: queries{db: db},
		sqlDB:   db,
		dbPath:  dbPath,
	}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.sqlDB.Close()
}

// BeginTx starts a new database transaction. Rule promotion and rollback run
// inside one of these so concurrent promotions in a lineage serialize.
func (s *SQLiteStore) BeginTx(ctx context.Context) (service.Tx, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	return &sqliteTx{queries: queries{db: tx}, tx: tx}, nil
}

// sqliteTx wraps sql.Tx to implement service.Tx.
type sqliteTx struct {
	queries
	tx *sql.Tx
}

func (t *sqliteTx) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTx) Rollback() error {
	return t.tx.Rollback()
}

// BeginTx on an open transaction is a programming error.
func (t *sqliteTx) BeginTx(_ context.Context) (service.Tx, error) {
	return nil, fmt.Errorf("nested transactions are not supported")
}

// Migrate is unavailable inside a transaction.
func (t *sqliteTx) Migrate(_ context.Context) error {
	return fmt.Errorf("cannot migrate inside a transaction")
}

// Close is a no-op inside a transaction.
func (t *sqliteTx) Close() error {
	return nil
}
