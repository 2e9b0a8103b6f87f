package session

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/singroom-server/internal/auth"
	"github.com/vovakirdan/singroom-server/internal/identity"
)

// ErrInvalidSession is returned for absent, revoked, superseded or expired tokens.
var ErrInvalidSession = errors.New("invalid session")

// SupersededReason is sent to a connection evicted by a newer login.
const SupersededReason = "signed in from another location"

// Conn is a live connection that can be evicted.
type Conn interface {
	Supersede(reason string)
}

type binding struct {
	token    string
	tokenID  string
	identity identity.Identity
	conn     Conn
}

// Registry maps session tokens to identities and keeps at most one valid
// binding per identity.
type Registry struct {
	jwt *auth.JWTConfig
	log *zerolog.Logger

	mu         sync.Mutex
	byToken    map[string]*binding
	byIdentity map[string]*binding
}

// NewRegistry creates an empty registry signing tokens with cfg.
func NewRegistry(cfg *auth.JWTConfig, logger *zerolog.Logger) *Registry {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Registry{
		jwt:        cfg,
		log:        logger,
		byToken:    make(map[string]*binding),
		byIdentity: make(map[string]*binding),
	}
}

// Issue creates a fresh token for ident. A prior binding of the same identity
// is removed and its connection, if any, is told it was superseded.
func (r *Registry) Issue(ident identity.Identity) (string, error) {
	tokenID := uuid.NewString()
	token, err := auth.GenerateToken(r.jwt, tokenID, ident)
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}

	r.mu.Lock()
	prev := r.byIdentity[ident.Name]
	if prev != nil {
		delete(r.byToken, prev.token)
	}
	b := &binding{token: token, tokenID: tokenID, identity: ident}
	r.byToken[token] = b
	r.byIdentity[ident.Name] = b
	r.mu.Unlock()

	if prev != nil && prev.conn != nil {
		r.log.Info().Str("user", ident.Name).Msg("session superseded by new login")
		prev.conn.Supersede(SupersededReason)
	}
	return token, nil
}

// Resolve returns the identity bound to token.
func (r *Registry) Resolve(token string) (identity.Identity, error) {
	if _, err := auth.ValidateToken(r.jwt, token); err != nil {
		return identity.Identity{}, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.byToken[token]
	if !ok {
		return identity.Identity{}, ErrInvalidSession
	}
	return b.identity, nil
}

// Attach binds conn to the token's binding. A different connection already
// attached to the same token is superseded.
func (r *Registry) Attach(token string, conn Conn) (identity.Identity, error) {
	r.mu.Lock()
	b, ok := r.byToken[token]
	if !ok {
		r.mu.Unlock()
		return identity.Identity{}, ErrInvalidSession
	}
	prev := b.conn
	b.conn = conn
	ident := b.identity
	r.mu.Unlock()

	if prev != nil && prev != conn {
		r.log.Info().Str("user", ident.Name).Msg("session reattached from another connection")
		prev.Supersede(SupersededReason)
	}
	return ident, nil
}

// Release drops the binding when its connection terminates. It is a no-op if
// the binding has since been reissued or attached elsewhere.
func (r *Registry) Release(token string, conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.byToken[token]
	if !ok || b.conn != conn {
		return
	}
	r.remove(b)
}

// Revoke removes the binding without notifying its connection. Idempotent.
func (r *Registry) Revoke(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.byToken[token]; ok {
		r.remove(b)
	}
}

// RevokeIdentity removes whatever binding name holds, without notification.
func (r *Registry) RevokeIdentity(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.byIdentity[name]
	if !ok {
		return false
	}
	r.remove(b)
	return true
}

// UpdateProgress refreshes the level and experience held by name's binding,
// so a reconnect with the same token sees them.
func (r *Registry) UpdateProgress(name string, level, exp int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.byIdentity[name]; ok {
		b.identity.Level, b.identity.Exp = level, exp
	}
}

// Online reports whether name currently holds a binding.
func (r *Registry) Online(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.byIdentity[name]
	return ok
}

// TokenID returns the jti of a bound token.
func (r *Registry) TokenID(token string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.byToken[token]
	if !ok {
		return "", false
	}
	return b.tokenID, true
}

// Len returns the number of valid bindings.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byToken)
}

func (r *Registry) remove(b *binding) {
	delete(r.byToken, b.token)
	if cur, ok := r.byIdentity[b.identity.Name]; ok && cur == b {
		delete(r.byIdentity, b.identity.Name)
	}
}

var _ auth.Sessions = (*Registry)(nil)
