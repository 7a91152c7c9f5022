package journal

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	// SQLite driver
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// sqliteTimeLayout is the datetime format stored in journal rows. It keeps
// SQLite's datetime() functions applicable to every timestamp column.
const sqliteTimeLayout = "2006-01-02 15:04:05"

// SQLiteStore implements Store on a local SQLite database.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

var _ Store = (*SQLiteStore)(nil)

// Config holds SQLite store configuration.
type Config struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// NewSQLiteStore creates a store for the given database path. Call Init
// before using it.
func NewSQLiteStore(cfg Config) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}
	return &SQLiteStore{path: cfg.Path}, nil
}

// Init opens the database, enables WAL mode and runs pending migrations.
func (s *SQLiteStore) Init(ctx context.Context) error {
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL&_txlock=immediate", s.path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	s.db = db

	if err := s.migrate(); err != nil {
		_ = db.Close()
		s.db = nil
		return err
	}

	return nil
}

// migrate applies the embedded schema migrations.
func (s *SQLiteStore) migrate() error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	driver, err := sqlite3.WithInstance(s.db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// RecordInvocation appends one invocation row.
func (s *SQLiteStore) RecordInvocation(ctx context.Context, inv *Invocation) error {
	query := `
		INSERT INTO invocations (id, operation, outcome, exit_code, error_text, elapsed_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	createdAt := inv.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, query,
		inv.ID,
		inv.Operation,
		inv.Outcome,
		inv.ExitCode,
		inv.ErrorText,
		inv.Elapsed.Milliseconds(),
		createdAt.UTC().Format(sqliteTimeLayout),
	)

	if err != nil {
		return fmt.Errorf("failed to record invocation: %w", err)
	}

	return nil
}

// RecordAttempt appends one attempt row and fills in its ID.
func (s *SQLiteStore) RecordAttempt(ctx context.Context, att *Attempt) error {
	query := `
		INSERT INTO attempts (dependency, operation, number, category, code, message, delay_ms, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	recordedAt := att.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now()
	}

	result, err := s.db.ExecContext(ctx, query,
		att.Dependency,
		att.Operation,
		att.Number,
		att.Category,
		att.Code,
		att.Message,
		att.Delay.Milliseconds(),
		recordedAt.UTC().Format(sqliteTimeLayout),
	)

	if err != nil {
		return fmt.Errorf("failed to record attempt: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get attempt ID: %w", err)
	}

	att.ID = id
	return nil
}

// ListInvocations returns invocations newest first.
func (s *SQLiteStore) ListInvocations(ctx context.Context, limit, offset int) ([]*Invocation, error) {
	query := `
		SELECT id, operation, outcome, exit_code, error_text, elapsed_ms, created_at
		FROM invocations
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list invocations: %w", err)
	}
	defer rows.Close()

	invocations := []*Invocation{}
	for rows.Next() {
		inv := &Invocation{}
		var (
			errorText sql.NullString
			elapsedMS int64
			createdAt string
		)
		if err := rows.Scan(
			&inv.ID,
			&inv.Operation,
			&inv.Outcome,
			&inv.ExitCode,
			&errorText,
			&elapsedMS,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan invocation: %w", err)
		}

		inv.ErrorText = errorText.String
		inv.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		inv.CreatedAt, err = parseStoredTime(createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse invocation timestamp: %w", err)
		}
		invocations = append(invocations, inv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating invocations: %w", err)
	}

	return invocations, nil
}

// ListAttempts returns attempts newest first, optionally filtered by
// dependency.
func (s *SQLiteStore) ListAttempts(ctx context.Context, dependency string, limit, offset int) ([]*Attempt, error) {
	query := `
		SELECT id, dependency, operation, number, category, code, message, delay_ms, recorded_at
		FROM attempts
		WHERE (? = '' OR dependency = ?)
		ORDER BY recorded_at DESC, id DESC
		LIMIT ? OFFSET ?
	`

	rows, err := s.db.QueryContext(ctx, query, dependency, dependency, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}
	defer rows.Close()

	attempts := []*Attempt{}
	for rows.Next() {
		att := &Attempt{}
		var (
			code       sql.NullString
			message    sql.NullString
			delayMS    int64
			recordedAt string
		)
		if err := rows.Scan(
			&att.ID,
			&att.Dependency,
			&att.Operation,
			&att.Number,
			&att.Category,
			&code,
			&message,
			&delayMS,
			&recordedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan attempt: %w", err)
		}

		att.Code = code.String
		att.Message = message.String
		att.Delay = time.Duration(delayMS) * time.Millisecond
		att.RecordedAt, err = parseStoredTime(recordedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse attempt timestamp: %w", err)
		}
		attempts = append(attempts, att)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating attempts: %w", err)
	}

	return attempts, nil
}

// PruneBefore deletes rows recorded before the cutoff.
func (s *SQLiteStore) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	cutoffStr := cutoff.UTC().Format(sqliteTimeLayout)

	var total int64

	result, err := s.db.ExecContext(ctx,
		`DELETE FROM invocations WHERE datetime(created_at) < datetime(?)`, cutoffStr)
	if err != nil {
		return 0, fmt.Errorf("failed to prune invocations: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	total += n

	result, err = s.db.ExecContext(ctx,
		`DELETE FROM attempts WHERE datetime(recorded_at) < datetime(?)`, cutoffStr)
	if err != nil {
		return total, fmt.Errorf("failed to prune attempts: %w", err)
	}
	n, err = result.RowsAffected()
	if err != nil {
		return total, fmt.Errorf("failed to get rows affected: %w", err)
	}
	total += n

	return total, nil
}

// HealthCheck verifies the database connection is healthy.
func (s *SQLiteStore) HealthCheck(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}
	return s.db.PingContext(ctx)
}

// parseStoredTime parses a stored timestamp back into UTC time.
func parseStoredTime(value string) (time.Time, error) {
	t, err := time.Parse(sqliteTimeLayout, value)
	if err != nil {
		// Rows written by column defaults or other tools may carry RFC3339.
		t, err = time.Parse(time.RFC3339, value)
		if err != nil {
			return time.Time{}, err
		}
	}
	return t.UTC(), nil
}
