package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a unique constraint rejects an insert.
	ErrDuplicate = errors.New("duplicate")
)

// User represents an account or guest row.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	IsGuest      bool
	Gender       string
	Avatar       string
	Level        int
	Exp          int
	IsOnline     bool
	LoginToken   string // id of the session token currently bound to this user
	LastSeen     *time.Time
	CreatedAt    time.Time
}

// NewUser carries the fields needed to register an account.
type NewUser struct {
	Username     string
	PasswordHash string
	Gender       string
	Avatar       string
}

// Profile is the mutable part of a user that rooms display.
type Profile struct {
	Level  int
	Exp    int
	Gender string
	Avatar string
}

// MessageKind tells who produced a logged message.
type MessageKind string

const (
	MessageKindText       MessageKind = "text"
	MessageKindPersona    MessageKind = "persona"
	MessageKindCommentary MessageKind = "commentary"
)

// MessageLog is an audit record of a delivered chat message.
type MessageLog struct {
	ID        int64
	Room      string
	Username  string
	Role      string
	Body      string
	Mode      string
	Target    string
	Kind      MessageKind
	Color     string
	CreatedAt time.Time
}

// UserStore handles account persistence.
type UserStore interface {
	// CreateUser inserts a new account. Returns ErrDuplicate if the name is taken.
	CreateUser(ctx context.Context, u NewUser) (*User, error)

	// UpsertGuest creates a guest row or refreshes an offline one with the same name.
	UpsertGuest(ctx context.Context, username, gender string) (*User, error)

	// GetUserByUsername retrieves a user by username.
	GetUserByUsername(ctx context.Context, username string) (*User, error)

	// SetSession records the bound token id and online flag. An empty token clears it.
	SetSession(ctx context.Context, username, tokenID string, online bool) error
}

// ProfileStore exposes the progression fields rooms read and update.
type ProfileStore interface {
	// LookupProfile returns ErrNotFound for unknown identities.
	LookupProfile(ctx context.Context, username string) (*Profile, error)

	// UpdateProgress stores a new level and experience.
	UpdateProgress(ctx context.Context, username string, level, exp int) error
}

// MessageLogStore handles the durable message log.
type MessageLogStore interface {
	// RecordMessage appends an entry to the log.
	RecordMessage(ctx context.Context, entry *MessageLog) error
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore
	ProfileStore
	MessageLogStore

	// Close closes the underlying database connection.
	Close() error
}
