// Package userstore is the optional session/auth persistence collaborator:
// a disk-as-truth engine never stores user credentials, so an
// implementer who wants authentication persistence is pointed at this
// package rather than carrying a general-purpose database path into the
// core engine. It provides a concrete Store type (no separate interface
// type is declared) with embedded SQL migrations applied by goose over a
// pure-Go SQLite driver, with a two-table schema (users, sessions).
package userstore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // pure Go SQLite driver, registers as "sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrNotFound is returned when a user or session lookup finds nothing.
var ErrNotFound = errors.New("userstore: not found")

// User is one authenticated principal. Never imported by
// internal/storage, internal/pathmodel, or internal/diskstore — the
// disk-only engine is session-agnostic.
type User struct {
	ID           string
	Email        string
	DisplayName  string
	PasswordHash string
	CreatedAt    time.Time
}

// Session is a single active login, expiring at ExpiresAt.
type Session struct {
	SessionID string
	UserID    string
	ExpiresAt time.Time
}

// Store persists Users and Sessions in an embedded SQLite database.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open creates or opens the SQLite database at dbPath (":memory:" for
// tests), applying embedded migrations with goose before returning.
func Open(ctx context.Context, dbPath string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("userstore: open sqlite: %w", err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("userstore: set WAL mode: %w", err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("userstore: set foreign_keys: %w", err)
	}

	if err := runMigrations(ctx, db, logger); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("userstore database ready", slog.String("path", dbPath))

	return &Store{db: db, logger: logger}, nil
}

// runMigrations applies all pending schema migrations with goose's
// Provider API.
func runMigrations(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	subFS, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("userstore: creating migration sub-filesystem: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, db, subFS)
	if err != nil {
		return fmt.Errorf("userstore: creating migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("userstore: running migrations: %w", err)
	}

	for _, r := range results {
		logger.Info("applied migration",
			slog.String("source", r.Source.Path),
			slog.Int64("duration_ms", r.Duration.Milliseconds()),
		)
	}

	return nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("userstore: close: %w", err)
	}

	return nil
}

// CreateUser inserts a new user row.
func (s *Store) CreateUser(ctx context.Context, u *User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, display_name, password_hash, created_at) VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.DisplayName, u.PasswordHash, u.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("userstore: create user %s: %w", u.Email, err)
	}

	return nil
}

// GetUserByEmail looks up a user by email, returning ErrNotFound when
// none matches.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, email, display_name, password_hash, created_at FROM users WHERE email = ?`, email)

	return scanUser(row)
}

// GetUserByID looks up a user by id, returning ErrNotFound when none
// matches.
func (s *Store) GetUserByID(ctx context.Context, id string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, email, display_name, password_hash, created_at FROM users WHERE id = ?`, id)

	return scanUser(row)
}

func scanUser(row *sql.Row) (*User, error) {
	var (
		u         User
		createdAt int64
	)

	err := row.Scan(&u.ID, &u.Email, &u.DisplayName, &u.PasswordHash, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("userstore: scan user: %w", err)
	}

	u.CreatedAt = time.Unix(createdAt, 0).UTC()

	return &u, nil
}

// CreateSession inserts a new session row, keyed by its own session ID.
func (s *Store) CreateSession(ctx context.Context, sess *Session) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (session_id, user_id, expires_at) VALUES (?, ?, ?)`,
		sess.SessionID, sess.UserID, sess.ExpiresAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("userstore: create session: %w", err)
	}

	return nil
}

// GetSession looks up an unexpired session by id.
func (s *Store) GetSession(ctx context.Context, sessionID string, now time.Time) (*Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT session_id, user_id, expires_at FROM sessions WHERE session_id = ? AND expires_at > ?`,
		sessionID, now.Unix(),
	)

	var (
		sess      Session
		expiresAt int64
	)

	err := row.Scan(&sess.SessionID, &sess.UserID, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("userstore: scan session: %w", err)
	}

	sess.ExpiresAt = time.Unix(expiresAt, 0).UTC()

	return &sess, nil
}

// DeleteSession removes a session, e.g. on logout.
func (s *Store) DeleteSession(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE session_id = ?`, sessionID)
	if err != nil {
		return fmt.Errorf("userstore: delete session %s: %w", sessionID, err)
	}

	return nil
}
