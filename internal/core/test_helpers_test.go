package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vovakirdan/singroom-server/internal/identity"
	"github.com/vovakirdan/singroom-server/internal/media"
	"github.com/vovakirdan/singroom-server/internal/persona"
)

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()
	return mustEventWhere(t, ch, kind, nil)
}

func mustEventWhere(t *testing.T, ch <-chan *Event, kind EventKind, match func(*Event) bool) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Kind == kind && (match == nil || match(ev)) {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}

func noEvent(t *testing.T, ch <-chan *Event, kind EventKind, wait time.Duration) {
	t.Helper()

	deadline := time.Now().Add(wait)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev != nil && ev.Kind == kind {
				t.Fatalf("unexpected event kind %v: %+v", kind, ev)
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
}

func mustClosed(t *testing.T, c *Client) *Eviction {
	t.Helper()
	select {
	case <-c.Done():
		return c.Eviction()
	case <-time.After(2 * time.Second):
		t.Fatalf("client %s was not closed", c.ID)
		return nil
	}
}

// waitRoomClosed polls until the hub no longer knows room.
func waitRoomClosed(t *testing.T, hub *Hub, room string) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for {
		_, err := hub.Members(ctx, room)
		if errors.Is(err, ErrRoomNotFound) {
			return
		}
		if ctx.Err() != nil {
			t.Fatalf("room %s still open: %v", room, err)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

type fakeCompleter struct {
	text string

	mu    sync.Mutex
	calls int
	gate  chan struct{} // when set, Complete waits for it
}

func (f *fakeCompleter) Complete(ctx context.Context, p persona.Persona, prompt string, window []persona.Utterance) string {
	f.mu.Lock()
	f.calls++
	gate := f.gate
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ""
		}
	}
	return f.text
}

type fakeMedia struct{}

func (fakeMedia) AuthorizeStream(ctx context.Context, room, user string, canPublish bool) (*media.Credential, error) {
	return &media.Credential{URL: "ws://media", Token: "tok-" + user, RoomName: room, Identity: user, CanPublish: canPublish}, nil
}

type fakeRevoker struct {
	mu       sync.Mutex
	revoked  []string
	progress map[string][2]int
}

func (f *fakeRevoker) RevokeIdentity(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked = append(f.revoked, name)
	return true
}

func (f *fakeRevoker) UpdateProgress(name string, level, exp int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.progress == nil {
		f.progress = make(map[string][2]int)
	}
	f.progress[name] = [2]int{level, exp}
}

func (f *fakeRevoker) progressOf(name string) ([2]int, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.progress[name]
	return p, ok
}

func (f *fakeRevoker) names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.revoked...)
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.PersonasEnabled = false
	opts.Personas = []persona.Persona{{Name: "Mia", Style: "cheerful", Level: 10}}
	opts.ScoringWindow = 300 * time.Millisecond
	opts.CompletionTimeout = time.Second
	return opts
}

func startHub(t *testing.T, opts Options) *Hub {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	hub := NewHub(nil, opts)
	go hub.Run(ctx)
	return hub
}

func connect(hub *Hub, id, name string, level int) *Client {
	c := NewClient(id, identity.Identity{Name: name, Kind: identity.KindAccount, Level: level})
	hub.RegisterClient(c)
	return c
}

func join(t *testing.T, c *Client, room string) {
	t.Helper()
	c.Commands <- &Command{Kind: CommandJoinRoom, Room: room}
	mustEventWhere(t, c.Events, EventSystemNotice, func(ev *Event) bool { return ev.User == c.Identity.Name })
}
