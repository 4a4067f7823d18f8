package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	"puppethook/internal/security"

	_ "modernc.org/sqlite"
)

// ErrNoToken is returned when no access token has been stored.
var ErrNoToken = errors.New("no access token stored")

// Store persists access tokens and dispatch history in SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the SQLite database at dbPath.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	if dbPath != ":memory:" {
		if _, err := os.Stat(dbPath); err == nil {
			if err := security.RestrictPermissions(dbPath, security.PermDBFile); err != nil {
				db.Close()
				return nil, err
			}
		}
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS auth_tokens (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			token TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS dispatches (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			target TEXT NOT NULL,
			kind TEXT NOT NULL,
			mode TEXT NOT NULL,
			status TEXT NOT NULL,
			status_code INTEGER NOT NULL,
			message TEXT NOT NULL,
			duration_seconds REAL NOT NULL,
			commit_hash TEXT,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_dispatches_target
			ON dispatches(target, id DESC)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

// Token returns the first stored access token, or ErrNoToken.
func (s *Store) Token(ctx context.Context) (string, error) {
	var token string
	err := s.db.QueryRowContext(ctx, `SELECT token FROM auth_tokens ORDER BY id ASC LIMIT 1`).Scan(&token)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNoToken
	}
	if err != nil {
		return "", fmt.Errorf("failed to query access token: %w", err)
	}
	return token, nil
}

// ReplaceToken stores token as the only access token.
func (s *Store) ReplaceToken(ctx context.Context, token string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM auth_tokens`); err != nil {
		return fmt.Errorf("failed to clear access tokens: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO auth_tokens (token, created_at) VALUES (?, ?)`,
		token, time.Now().UTC().Format(time.RFC3339),
	); err != nil {
		return fmt.Errorf("failed to insert access token: %w", err)
	}

	return tx.Commit()
}

// RecordDispatch stores a dispatch outcome and returns its ID.
func (s *Store) RecordDispatch(ctx context.Context, record *DispatchRecord) (int64, error) {
	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO dispatches
		(target, kind, mode, status, status_code, message, duration_seconds, commit_hash, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		record.Target,
		record.Kind,
		record.Mode,
		record.Status,
		record.StatusCode,
		record.Message,
		record.DurationSeconds,
		record.CommitHash,
		createdAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert dispatch record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID: %w", err)
	}

	return id, nil
}

// LatestDispatch returns the most recent dispatch for target, or nil if none.
func (s *Store) LatestDispatch(ctx context.Context, target string) (*DispatchRecord, error) {
	records, err := s.DispatchHistory(ctx, target, 1)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return &records[0], nil
}

// DispatchHistory returns up to limit dispatches for target, newest first.
func (s *Store) DispatchHistory(ctx context.Context, target string, limit int) ([]DispatchRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, target, kind, mode, status, status_code, message,
		       duration_seconds, commit_hash, created_at
		FROM dispatches
		WHERE target = ?
		ORDER BY id DESC
		LIMIT ?
	`, target, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query dispatch history: %w", err)
	}
	defer rows.Close()

	var records []DispatchRecord
	for rows.Next() {
		record, err := scanDispatchRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan dispatch record: %w", err)
		}
		records = append(records, *record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return records, nil
}

// scanner is an interface that both *sql.Row and *sql.Rows implement
type scanner interface {
	Scan(dest ...any) error
}

func scanDispatchRecord(s scanner) (*DispatchRecord, error) {
	var record DispatchRecord
	var createdAt string

	err := s.Scan(
		&record.ID,
		&record.Target,
		&record.Kind,
		&record.Mode,
		&record.Status,
		&record.StatusCode,
		&record.Message,
		&record.DurationSeconds,
		&record.CommitHash,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	record.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at timestamp: %w", err)
	}

	return &record, nil
}
