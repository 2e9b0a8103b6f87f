package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/singroom-server/internal/store"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	s, err := NewWithSetup(":memory:", func(db *sql.DB) error {
		_, err := db.Exec(Schema)
		return err
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestCreateUserRejectsDuplicate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u, err := s.CreateUser(ctx, store.NewUser{Username: "alice", PasswordHash: "hash", Gender: "female"})
	require.NoError(t, err)
	require.Equal(t, "alice", u.Username)
	require.Equal(t, 1, u.Level)
	require.False(t, u.IsGuest)

	_, err = s.CreateUser(ctx, store.NewUser{Username: "alice", PasswordHash: "hash"})
	require.True(t, errors.Is(err, store.ErrDuplicate), "got %v", err)
}

func TestUpsertGuestReusesOfflineGuest(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.UpsertGuest(ctx, "guest_kim", "female")
	require.NoError(t, err)
	require.True(t, first.IsGuest)

	second, err := s.UpsertGuest(ctx, "guest_kim", "male")
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, "male", second.Gender)
}

func TestUpsertGuestDoesNotTakeOverAccount(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateUser(ctx, store.NewUser{Username: "guest_bob", PasswordHash: "hash"})
	require.NoError(t, err)

	_, err = s.UpsertGuest(ctx, "guest_bob", "male")
	require.True(t, errors.Is(err, store.ErrDuplicate), "got %v", err)
}

func TestProfileProgressRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateUser(ctx, store.NewUser{Username: "carol", PasswordHash: "hash", Avatar: "/a.gif"})
	require.NoError(t, err)

	require.NoError(t, s.UpdateProgress(ctx, "carol", 3, 42))

	p, err := s.LookupProfile(ctx, "carol")
	require.NoError(t, err)
	require.Equal(t, 3, p.Level)
	require.Equal(t, 42, p.Exp)
	require.Equal(t, "/a.gif", p.Avatar)

	_, err = s.LookupProfile(ctx, "nobody")
	require.True(t, errors.Is(err, store.ErrNotFound))
	require.True(t, errors.Is(s.UpdateProgress(ctx, "nobody", 1, 1), store.ErrNotFound))
}

func TestSetSessionTracksToken(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateUser(ctx, store.NewUser{Username: "dave", PasswordHash: "hash"})
	require.NoError(t, err)

	require.NoError(t, s.SetSession(ctx, "dave", "tok-1", true))
	u, err := s.GetUserByUsername(ctx, "dave")
	require.NoError(t, err)
	require.True(t, u.IsOnline)
	require.Equal(t, "tok-1", u.LoginToken)
	require.NotNil(t, u.LastSeen)

	require.NoError(t, s.SetSession(ctx, "dave", "", false))
	u, err = s.GetUserByUsername(ctx, "dave")
	require.NoError(t, err)
	require.False(t, u.IsOnline)
	require.Empty(t, u.LoginToken)
}

func TestRecordMessageAssignsID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	entry := &store.MessageLog{Room: "lobby", Username: "alice", Role: "account", Body: "hi", Mode: "public"}
	require.NoError(t, s.RecordMessage(ctx, entry))
	require.NotZero(t, entry.ID)

	next := &store.MessageLog{Room: "lobby", Username: "Mia", Role: "automated-persona", Body: "hey", Mode: "private", Target: "alice", Kind: store.MessageKindPersona}
	require.NoError(t, s.RecordMessage(ctx, next))
	require.Greater(t, next.ID, entry.ID)
}
