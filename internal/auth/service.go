package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/singroom-server/internal/identity"
	"github.com/vovakirdan/singroom-server/internal/store"
)

var (
	// ErrInvalidCredentials is returned when username/password don't match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserExists is returned when trying to register with existing username.
	ErrUserExists = errors.New("user already exists")
	// ErrInvalidUsername is returned when username doesn't meet constraints.
	ErrInvalidUsername = errors.New("invalid username")
	// ErrInvalidPassword is returned when password doesn't meet constraints.
	ErrInvalidPassword = errors.New("invalid password")
	// ErrNicknameInUse is returned when a guest nickname belongs to someone online.
	ErrNicknameInUse = errors.New("nickname in use")
)

const guestPrefix = "guest_"

// Sessions issues and revokes session tokens.
type Sessions interface {
	Issue(ident identity.Identity) (string, error)
	Revoke(token string)
	Online(name string) bool
	TokenID(token string) (string, bool)
}

// Session is what a successful login hands back to the caller.
type Session struct {
	Token    string
	Identity identity.Identity
}

// Service provides authentication operations.
type Service struct {
	store    store.UserStore
	sessions Sessions
	log      *zerolog.Logger
}

// NewService creates a new authentication service.
func NewService(userStore store.UserStore, sessions Sessions, logger *zerolog.Logger) *Service {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Service{
		store:    userStore,
		sessions: sessions,
		log:      logger,
	}
}

// Register creates a new account with a hashed password.
func (s *Service) Register(ctx context.Context, username, password, gender, avatar string) (*store.User, error) {
	username = strings.TrimSpace(username)
	if len(username) < 3 || len(username) > 32 || strings.HasPrefix(username, guestPrefix) {
		return nil, ErrInvalidUsername
	}
	if len(password) < 6 {
		return nil, ErrInvalidPassword
	}

	existing, err := s.store.GetUserByUsername(ctx, username)
	if err == nil && existing != nil {
		return nil, ErrUserExists
	}

	hashedPassword, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.store.CreateUser(ctx, store.NewUser{
		Username:     username,
		PasswordHash: hashedPassword,
		Gender:       normalizeGender(gender),
		Avatar:       avatar,
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	return user, nil
}

// Login validates credentials and issues a fresh session token.
// Any previous session of the same account is evicted by the registry.
func (s *Service) Login(ctx context.Context, username, password string) (*Session, error) {
	user, err := s.store.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil || user.IsGuest {
		return nil, ErrInvalidCredentials
	}

	if errPwd := ComparePassword(user.PasswordHash, password); errPwd != nil {
		return nil, ErrInvalidCredentials
	}

	return s.issue(ctx, identityFromUser(user))
}

// GuestLogin creates or reuses a guest identity and issues a session token.
// An empty nickname yields a random guest name.
func (s *Service) GuestLogin(ctx context.Context, nickname, gender string) (*Session, error) {
	name, err := guestName(nickname)
	if err != nil {
		return nil, err
	}
	if s.sessions.Online(name) {
		return nil, ErrNicknameInUse
	}

	user, err := s.store.UpsertGuest(ctx, name, normalizeGender(gender))
	if err != nil {
		return nil, fmt.Errorf("upsert guest: %w", err)
	}

	return s.issue(ctx, identityFromUser(user))
}

// Logout revokes the token and marks the identity offline.
func (s *Service) Logout(ctx context.Context, token string, ident identity.Identity) {
	s.sessions.Revoke(token)
	if err := s.store.SetSession(ctx, ident.Name, "", false); err != nil {
		s.log.Warn().Err(err).Str("user", ident.Name).Msg("failed to clear session in store")
	}
}

// Profile returns the stored user behind an identity.
func (s *Service) Profile(ctx context.Context, name string) (*store.User, error) {
	return s.store.GetUserByUsername(ctx, name)
}

func (s *Service) issue(ctx context.Context, ident identity.Identity) (*Session, error) {
	token, err := s.sessions.Issue(ident)
	if err != nil {
		return nil, fmt.Errorf("issue session: %w", err)
	}

	tokenID, _ := s.sessions.TokenID(token)
	if err := s.store.SetSession(ctx, ident.Name, tokenID, true); err != nil {
		s.log.Warn().Err(err).Str("user", ident.Name).Msg("failed to record session in store")
	}

	return &Session{Token: token, Identity: ident}, nil
}

func identityFromUser(u *store.User) identity.Identity {
	kind := identity.KindAccount
	if u.IsGuest {
		kind = identity.KindGuest
	}
	return identity.Identity{
		Name:   u.Username,
		Kind:   kind,
		Level:  u.Level,
		Exp:    u.Exp,
		Gender: u.Gender,
		Avatar: u.Avatar,
	}
}

func guestName(nickname string) (string, error) {
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		n, err := rand.Int(rand.Reader, big.NewInt(10000))
		if err != nil {
			return "", fmt.Errorf("random guest name: %w", err)
		}
		return fmt.Sprintf("%s%04d", guestPrefix, n.Int64()), nil
	}
	if len(nickname) > 24 {
		return "", ErrInvalidUsername
	}
	return guestPrefix + nickname, nil
}

func normalizeGender(g string) string {
	if g == "male" {
		return "male"
	}
	return "female"
}
