package auth

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/singroom-server/internal/identity"
	"github.com/vovakirdan/singroom-server/internal/store"
	"github.com/vovakirdan/singroom-server/internal/store/sqlite"
)

type fakeSessions struct {
	mu      sync.Mutex
	seq     int
	online  map[string]string // name -> token
	revoked []string
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{online: make(map[string]string)}
}

func (f *fakeSessions) Issue(ident identity.Identity) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	token := fmt.Sprintf("tok-%d-%s", f.seq, ident.Name)
	f.online[ident.Name] = token
	return token, nil
}

func (f *fakeSessions) Revoke(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked = append(f.revoked, token)
	for name, t := range f.online {
		if t == token {
			delete(f.online, name)
		}
	}
}

func (f *fakeSessions) Online(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.online[name]
	return ok
}

func (f *fakeSessions) TokenID(token string) (string, bool) {
	return "id-" + token, token != ""
}

func newTestAuthService(t *testing.T) (*Service, store.Store, *fakeSessions) {
	t.Helper()

	st, err := sqlite.NewWithSetup(":memory:", func(db *sql.DB) error {
		_, err := db.Exec(sqlite.Schema)
		return err
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	sessions := newFakeSessions()
	return NewService(st, sessions, nil), st, sessions
}

func TestRegisterRejectsInvalidInput(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "ab", "password123", "", "")
	assert.ErrorIs(t, err, ErrInvalidUsername)

	_, err = svc.Register(ctx, "guest_bob", "password123", "", "")
	assert.ErrorIs(t, err, ErrInvalidUsername)

	_, err = svc.Register(ctx, "alice", "123", "", "")
	assert.ErrorIs(t, err, ErrInvalidPassword)
}

func TestRegisterAndLogin(t *testing.T) {
	svc, st, sessions := newTestAuthService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "alice", "password123", "male", "a.png")
	require.NoError(t, err)
	assert.Equal(t, "male", user.Gender)

	_, err = svc.Register(ctx, "alice", "password123", "", "")
	assert.ErrorIs(t, err, ErrUserExists)

	_, err = svc.Login(ctx, "alice", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	sess, err := svc.Login(ctx, "alice", "password123")
	require.NoError(t, err)
	assert.Equal(t, "alice", sess.Identity.Name)
	assert.Equal(t, identity.KindAccount, sess.Identity.Kind)
	assert.True(t, sessions.Online("alice"))

	stored, err := st.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, stored.IsOnline)
	assert.Equal(t, "id-"+sess.Token, stored.LoginToken)
}

func TestGuestLogin(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	ctx := context.Background()

	sess, err := svc.GuestLogin(ctx, "", "")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(sess.Identity.Name, "guest_"))
	assert.Equal(t, identity.KindGuest, sess.Identity.Kind)

	named, err := svc.GuestLogin(ctx, "mike", "male")
	require.NoError(t, err)
	assert.Equal(t, "guest_mike", named.Identity.Name)

	_, err = svc.GuestLogin(ctx, "mike", "male")
	assert.ErrorIs(t, err, ErrNicknameInUse)
}

func TestGuestCannotUsePasswordLogin(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	ctx := context.Background()

	_, err := svc.GuestLogin(ctx, "mike", "")
	require.NoError(t, err)

	_, err = svc.Login(ctx, "guest_mike", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogoutClearsSession(t *testing.T) {
	svc, _, sessions := newTestAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice", "password123", "", "")
	require.NoError(t, err)
	sess, err := svc.Login(ctx, "alice", "password123")
	require.NoError(t, err)

	svc.Logout(ctx, sess.Token, sess.Identity)
	assert.False(t, sessions.Online("alice"))

	stored, err := svc.Profile(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, stored.IsOnline)
	assert.Empty(t, stored.LoginToken)
}
