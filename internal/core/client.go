package core

import (
	"sync"

	"github.com/vovakirdan/singroom-server/internal/identity"
)

// EvictionKind tells why the server closed a connection.
type EvictionKind string

const (
	// EvictionSuperseded means a newer connection took over the identity.
	EvictionSuperseded EvictionKind = "superseded"
	// EvictionKicked means a moderator removed the identity.
	EvictionKicked EvictionKind = "kicked"
)

// Eviction describes a forced close.
type Eviction struct {
	Kind   EvictionKind
	Reason string
}

// Client is one live connection as seen by the core layer.
type Client struct {
	ID       string
	Identity identity.Identity
	Commands chan *Command
	Events   chan *Event

	// rooms is owned by the hub goroutine.
	rooms map[string]struct{}

	once     sync.Once
	done     chan struct{}
	eviction *Eviction
}

// NewClient constructs a client with initialized channels.
func NewClient(id string, ident identity.Identity) *Client {
	if ident.Name == "" {
		ident.Name = id
	}
	return &Client{
		ID:       id,
		Identity: ident,
		Commands: make(chan *Command, 16),
		Events:   make(chan *Event, 64),
		rooms:    make(map[string]struct{}),
		done:     make(chan struct{}),
	}
}

// Done is closed once the client is closed or evicted.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Eviction returns why the client was force-closed, or nil for a normal close.
// Only meaningful after Done is closed.
func (c *Client) Eviction() *Eviction {
	select {
	case <-c.done:
		return c.eviction
	default:
		return nil
	}
}

// Supersede force-closes the client because the identity connected elsewhere.
func (c *Client) Supersede(reason string) {
	c.evict(EvictionSuperseded, reason)
}

// Kick force-closes the client on behalf of a moderator.
func (c *Client) Kick(reason string) {
	c.evict(EvictionKicked, reason)
}

// Close closes the client without an eviction notice. Idempotent.
func (c *Client) Close() {
	c.once.Do(func() { close(c.done) })
}

func (c *Client) evict(kind EvictionKind, reason string) {
	c.once.Do(func() {
		c.eviction = &Eviction{Kind: kind, Reason: reason}
		close(c.done)
	})
}

func (c *Client) closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// send delivers without blocking; slow consumers lose events.
func (c *Client) send(ev *Event) bool {
	if c.closed() {
		return false
	}
	select {
	case c.Events <- ev:
		return true
	default:
		return false
	}
}
