package session

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/singroom-server/internal/auth"
	"github.com/vovakirdan/singroom-server/internal/identity"
)

type fakeConn struct {
	mu      sync.Mutex
	reasons []string
}

func (f *fakeConn) Supersede(reason string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reasons = append(f.reasons, reason)
}

func (f *fakeConn) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.reasons)
}

func newTestRegistry() *Registry {
	return NewRegistry(&auth.JWTConfig{
		Secret:   []byte("test-secret"),
		Issuer:   "test",
		Audience: "test",
		TTL:      time.Hour,
	}, nil)
}

func TestIssueResolve(t *testing.T) {
	r := newTestRegistry()
	alice := identity.Identity{Name: "alice", Level: 3}

	token, err := r.Issue(alice)
	require.NoError(t, err)

	got, err := r.Resolve(token)
	require.NoError(t, err)
	require.Equal(t, "alice", got.Name)
	require.Equal(t, 3, got.Level)
}

func TestResolveUnknownToken(t *testing.T) {
	r := newTestRegistry()

	_, err := r.Resolve("garbage")
	require.True(t, errors.Is(err, ErrInvalidSession))

	// validly signed but never bound to this registry
	other := newTestRegistry()
	token, err := other.Issue(identity.Identity{Name: "mallory"})
	require.NoError(t, err)
	_, err = r.Resolve(token)
	require.True(t, errors.Is(err, ErrInvalidSession))
}

func TestIssueEvictsPriorBindingOnce(t *testing.T) {
	r := newTestRegistry()
	d := identity.Identity{Name: "dana"}

	first, err := r.Issue(d)
	require.NoError(t, err)
	conn := &fakeConn{}
	_, err = r.Attach(first, conn)
	require.NoError(t, err)

	second, err := r.Issue(d)
	require.NoError(t, err)
	require.NotEqual(t, first, second)
	require.Equal(t, 1, conn.count())

	_, err = r.Resolve(first)
	require.True(t, errors.Is(err, ErrInvalidSession))
	_, err = r.Resolve(second)
	require.NoError(t, err)
	require.Equal(t, 1, r.Len())

	// a third login notifies nobody: the second binding has no connection
	_, err = r.Issue(d)
	require.NoError(t, err)
	require.Equal(t, 1, conn.count())
}

func TestAttachSupersedesOtherConnection(t *testing.T) {
	r := newTestRegistry()
	token, err := r.Issue(identity.Identity{Name: "erin"})
	require.NoError(t, err)

	a, b := &fakeConn{}, &fakeConn{}
	_, err = r.Attach(token, a)
	require.NoError(t, err)
	_, err = r.Attach(token, b)
	require.NoError(t, err)

	require.Equal(t, 1, a.count())
	require.Equal(t, 0, b.count())
}

func TestReleaseOnlyForOwningConnection(t *testing.T) {
	r := newTestRegistry()
	token, err := r.Issue(identity.Identity{Name: "fay"})
	require.NoError(t, err)

	a, b := &fakeConn{}, &fakeConn{}
	_, err = r.Attach(token, a)
	require.NoError(t, err)
	_, err = r.Attach(token, b)
	require.NoError(t, err)

	r.Release(token, a)
	_, err = r.Resolve(token)
	require.NoError(t, err, "late release of a stale connection must not drop the binding")

	r.Release(token, b)
	_, err = r.Resolve(token)
	require.True(t, errors.Is(err, ErrInvalidSession))
	require.False(t, r.Online("fay"))
}

func TestRevokeIsIdempotentAndSilent(t *testing.T) {
	r := newTestRegistry()
	token, err := r.Issue(identity.Identity{Name: "gus"})
	require.NoError(t, err)
	conn := &fakeConn{}
	_, err = r.Attach(token, conn)
	require.NoError(t, err)

	r.Revoke(token)
	r.Revoke(token)
	require.Equal(t, 0, conn.count())
	require.False(t, r.Online("gus"))

	require.False(t, r.RevokeIdentity("gus"))
}

func TestRevokeIdentity(t *testing.T) {
	r := newTestRegistry()
	token, err := r.Issue(identity.Identity{Name: "hal"})
	require.NoError(t, err)

	require.True(t, r.RevokeIdentity("hal"))
	_, err = r.Resolve(token)
	require.True(t, errors.Is(err, ErrInvalidSession))
}

func TestUpdateProgressReachesResolve(t *testing.T) {
	r := newTestRegistry()
	token, err := r.Issue(identity.Identity{Name: "alice", Level: 1})
	require.NoError(t, err)

	r.UpdateProgress("alice", 3, 40)
	r.UpdateProgress("ghost", 9, 9)

	ident, err := r.Resolve(token)
	require.NoError(t, err)
	require.Equal(t, 3, ident.Level)
	require.Equal(t, 40, ident.Exp)

	ident, err = r.Attach(token, &fakeConn{})
	require.NoError(t, err)
	require.Equal(t, 3, ident.Level)
}
