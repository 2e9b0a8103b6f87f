package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/vovakirdan/singroom-server/internal/store"
)

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New opens the database at dbPath and applies Schema.
func New(dbPath string) (*SQLiteStore, error) {
	return NewWithSetup(dbPath, func(db *sql.DB) error {
		_, err := db.Exec(Schema)
		return err
	})
}

// NewWithSetup creates a new SQLite store and runs a setup function.
// Useful for tests to apply schema without touching disk.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection; it also keeps :memory: databases shared.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ==== UserStore implementation ====

// CreateUser inserts a new account.
func (s *SQLiteStore) CreateUser(ctx context.Context, u store.NewUser) (*store.User, error) {
	query := `
		INSERT INTO users (username, password_hash, is_guest, gender, avatar)
		VALUES (?, ?, 0, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query, u.Username, u.PasswordHash, u.Gender, u.Avatar); err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("insert user %q: %w", u.Username, store.ErrDuplicate)
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	return s.GetUserByUsername(ctx, u.Username)
}

// UpsertGuest creates a guest row or refreshes the existing one.
func (s *SQLiteStore) UpsertGuest(ctx context.Context, username, gender string) (*store.User, error) {
	query := `
		INSERT INTO users (username, is_guest, gender, last_seen)
		VALUES (?, 1, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (username) DO UPDATE SET
			gender = excluded.gender,
			last_seen = CURRENT_TIMESTAMP
		WHERE users.is_guest = 1
	`
	res, err := s.db.ExecContext(ctx, query, username, gender)
	if err != nil {
		return nil, fmt.Errorf("upsert guest: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// the name belongs to a registered account
		return nil, fmt.Errorf("upsert guest %q: %w", username, store.ErrDuplicate)
	}

	return s.GetUserByUsername(ctx, username)
}

// GetUserByUsername retrieves a user by username.
func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (*store.User, error) {
	query := `
		SELECT id, username, password_hash, is_guest, gender, avatar, level, exp,
		       is_online, COALESCE(login_token, ''), last_seen, created_at
		FROM users
		WHERE username = ?
	`
	var (
		user     store.User
		lastSeen sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, query, username).Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.IsGuest,
		&user.Gender,
		&user.Avatar,
		&user.Level,
		&user.Exp,
		&user.IsOnline,
		&user.LoginToken,
		&lastSeen,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %q: %w", username, store.ErrNotFound)
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	if lastSeen.Valid {
		t := lastSeen.Time
		user.LastSeen = &t
	}

	return &user, nil
}

// SetSession records the bound token id and online flag.
func (s *SQLiteStore) SetSession(ctx context.Context, username, tokenID string, online bool) error {
	query := `
		UPDATE users
		SET login_token = NULLIF(?, ''), is_online = ?, last_seen = ?
		WHERE username = ?
	`
	if _, err := s.db.ExecContext(ctx, query, tokenID, online, time.Now().UTC(), username); err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	return nil
}

// ==== ProfileStore implementation ====

// LookupProfile returns the progression fields of a user.
func (s *SQLiteStore) LookupProfile(ctx context.Context, username string) (*store.Profile, error) {
	query := `SELECT level, exp, gender, avatar FROM users WHERE username = ?`

	var p store.Profile
	err := s.db.QueryRowContext(ctx, query, username).Scan(&p.Level, &p.Exp, &p.Gender, &p.Avatar)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("profile %q: %w", username, store.ErrNotFound)
		}
		return nil, fmt.Errorf("query profile: %w", err)
	}
	return &p, nil
}

// UpdateProgress stores a new level and experience.
func (s *SQLiteStore) UpdateProgress(ctx context.Context, username string, level, exp int) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET level = ?, exp = ? WHERE username = ?`, level, exp, username)
	if err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("profile %q: %w", username, store.ErrNotFound)
	}
	return nil
}

// ==== MessageLogStore implementation ====

// RecordMessage appends an entry to the message log.
func (s *SQLiteStore) RecordMessage(ctx context.Context, entry *store.MessageLog) error {
	query := `
		INSERT INTO message_logs (room, username, role, body, mode, target, message_type, color, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	kind := entry.Kind
	if kind == "" {
		kind = store.MessageKindText
	}

	result, err := s.db.ExecContext(ctx, query,
		entry.Room, entry.Username, entry.Role, entry.Body, entry.Mode, entry.Target, kind, entry.Color, createdAt.UTC())
	if err != nil {
		return fmt.Errorf("insert message log: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}
	entry.ID = id
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}

var _ store.Store = (*SQLiteStore)(nil)
