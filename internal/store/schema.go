package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	_ "embed"
)

//go:embed schema.sql
var schemaSQL string

const schemaVersion = 1

// migrate applies schema.sql and records the schema version. A database
// written by a newer jobpan is refused.
func migrate(ctx context.Context, db *sql.DB) error {
	return withTx(ctx, db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}

		version, found, err := storedVersion(ctx, tx)
		if err != nil {
			return err
		}
		if found && version > schemaVersion {
			return fmt.Errorf("database schema version %d is newer than supported %d", version, schemaVersion)
		}
		if found && version == schemaVersion {
			return nil
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO metadata(key, value) VALUES('schema_version', ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
			strconv.Itoa(schemaVersion))
		if err != nil {
			return fmt.Errorf("write schema version: %w", err)
		}
		return nil
	})
}

func storedVersion(ctx context.Context, tx *sql.Tx) (int, bool, error) {
	var raw string
	err := tx.QueryRowContext(ctx, "SELECT value FROM metadata WHERE key = 'schema_version'").Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read schema version: %w", err)
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, fmt.Errorf("parse schema version %q: %w", raw, err)
	}
	return v, true, nil
}

// withTx runs fn inside a transaction and commits when fn returns nil.
func withTx(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
