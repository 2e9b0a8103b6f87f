package core

import (
	"context"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/singroom-server/internal/media"
	"github.com/vovakirdan/singroom-server/internal/persona"
	"github.com/vovakirdan/singroom-server/internal/store"
)

// Completer produces persona utterances. Implementations return a fallback
// instead of an error.
type Completer interface {
	Complete(ctx context.Context, p persona.Persona, prompt string, window []persona.Utterance) string
}

// SessionBinder keeps session bindings in step with the hub: removed
// identities lose their binding, progression updates reach it.
type SessionBinder interface {
	RevokeIdentity(name string) bool
	UpdateProgress(name string, level, exp int)
}

// Options tune the hub. Zero durations and limits fall back to DefaultOptions.
type Options struct {
	Logger    *zerolog.Logger
	Completer Completer
	Media     media.Engine
	Sessions  SessionBinder

	Personas           []persona.Persona
	PersonasEnabled    bool
	PersonaMinInterval time.Duration
	PersonaMaxInterval time.Duration

	ScoringWindow     time.Duration
	CompletionTimeout time.Duration
	StoreTimeout      time.Duration
	FallbackUtterance string
	ContextSize       int
	TopTier           int
	ModeratorLevel    int
}

// DefaultOptions returns the production defaults.
func DefaultOptions() Options {
	return Options{
		Personas:           persona.Default(),
		PersonasEnabled:    true,
		PersonaMinInterval: 30 * time.Second,
		PersonaMaxInterval: 45 * time.Second,
		ScoringWindow:      15 * time.Second,
		CompletionTimeout:  10 * time.Second,
		StoreTimeout:       5 * time.Second,
		FallbackUtterance:  "...",
		ContextSize:        20,
		TopTier:            99,
		ModeratorLevel:     91,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.PersonaMinInterval <= 0 {
		o.PersonaMinInterval = d.PersonaMinInterval
	}
	if o.PersonaMaxInterval < o.PersonaMinInterval {
		o.PersonaMaxInterval = o.PersonaMinInterval
	}
	if o.ScoringWindow <= 0 {
		o.ScoringWindow = d.ScoringWindow
	}
	if o.CompletionTimeout <= 0 {
		o.CompletionTimeout = d.CompletionTimeout
	}
	if o.StoreTimeout <= 0 {
		o.StoreTimeout = d.StoreTimeout
	}
	if o.FallbackUtterance == "" {
		o.FallbackUtterance = d.FallbackUtterance
	}
	if o.ContextSize <= 0 {
		o.ContextSize = d.ContextSize
	}
	if o.TopTier <= 0 {
		o.TopTier = d.TopTier
	}
	if o.ModeratorLevel <= 0 {
		o.ModeratorLevel = d.ModeratorLevel
	}
	return o
}

type inbound struct {
	client *Client
	cmd    *Command
}

// Hub coordinates clients, rooms and turns. All room state is owned by the
// goroutine running Run; collaborators are called off-loop and their results
// are posted back as tasks.
type Hub struct {
	opts    Options
	store   store.Store
	log     *zerolog.Logger
	catalog *persona.Catalog
	rng     *rand.Rand

	register   chan *Client
	unregister chan *Client
	inbox      chan inbound
	tasks      chan func()
	jobs       chan func(context.Context)
	quit       chan struct{}

	clients    map[*Client]struct{}
	byIdentity map[string]*Client
	rooms      map[string]*Room
	nextMsgID  int64
}

// NewHub creates a new hub. st may be nil, in which case nothing is persisted.
func NewHub(st store.Store, opts Options) *Hub {
	opts = opts.withDefaults()
	logger := opts.Logger
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Hub{
		opts:       opts,
		store:      st,
		log:        logger,
		catalog:    persona.NewCatalog(opts.Personas),
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		inbox:      make(chan inbound, 64),
		tasks:      make(chan func(), 64),
		jobs:       make(chan func(context.Context), 256),
		quit:       make(chan struct{}),
		clients:    make(map[*Client]struct{}),
		byIdentity: make(map[string]*Client),
		rooms:      make(map[string]*Room),
	}
}

// Run processes registrations, commands and posted tasks until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	go h.runJobs(ctx)
	defer h.shutdown()

	for {
		select {
		case <-ctx.Done():
			return
		case c := <-h.register:
			h.addClient(c)
		case c := <-h.unregister:
			h.dropClient(c)
		case in := <-h.inbox:
			h.handle(in.client, in.cmd)
		case fn := <-h.tasks:
			fn()
		}
	}
}

func (h *Hub) shutdown() {
	close(h.quit)
	for _, r := range h.rooms {
		r.stopTimers()
	}
	h.log.Info().Int("rooms", len(h.rooms)).Int("clients", len(h.clients)).Msg("hub stopped")
}

// runJobs executes storage work sequentially so progression updates for the
// same identity never interleave.
func (h *Hub) runJobs(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-h.jobs:
			jctx, cancel := context.WithTimeout(ctx, h.opts.StoreTimeout)
			job(jctx)
			cancel()
		}
	}
}

func (h *Hub) enqueueJob(job func(context.Context)) {
	select {
	case h.jobs <- job:
	default:
		h.log.Warn().Msg("storage queue full, dropping job")
	}
}

// RegisterClient adds a client to the hub. A previous connection of the
// same identity is superseded.
func (h *Hub) RegisterClient(c *Client) {
	select {
	case h.register <- c:
	case <-h.quit:
		c.Close()
	}
}

// UnregisterClient removes a client from the hub and all its rooms.
func (h *Hub) UnregisterClient(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.quit:
	}
}

// post runs fn on the hub goroutine. Must not be called from it.
func (h *Hub) post(fn func()) {
	select {
	case h.tasks <- fn:
	case <-h.quit:
	}
}

// query runs fn on the hub goroutine and waits for it.
func (h *Hub) query(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	select {
	case h.tasks <- func() { fn(); close(done) }:
	case <-ctx.Done():
		return ctx.Err()
	case <-h.quit:
		return ErrHubStopped
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-h.quit:
		return ErrHubStopped
	}
}

// TopTier is the privilege level that marks an observer.
func (h *Hub) TopTier() int {
	return h.opts.TopTier
}

// TurnSnapshot returns the current turn state of a room.
func (h *Hub) TurnSnapshot(ctx context.Context, room string) (TurnSnapshot, error) {
	var (
		snap  TurnSnapshot
		found bool
	)
	err := h.query(ctx, func() {
		if r := h.rooms[room]; r != nil {
			snap, found = r.turn.snapshot(r.Name), true
		}
	})
	if err != nil {
		return TurnSnapshot{}, err
	}
	if !found {
		return TurnSnapshot{}, ErrRoomNotFound
	}
	return snap, nil
}

// Members returns the membership snapshot of a room.
func (h *Hub) Members(ctx context.Context, room string) ([]MemberInfo, error) {
	var (
		members []MemberInfo
		found   bool
	)
	err := h.query(ctx, func() {
		if r := h.rooms[room]; r != nil {
			members, found = r.snapshot(h.opts.TopTier), true
		}
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrRoomNotFound
	}
	return members, nil
}

func (h *Hub) addClient(c *Client) {
	name := c.Identity.Name
	// A connection evicted before it got here must not displace the current one.
	if c.closed() {
		h.log.Debug().Str("user", name).Str("client", c.ID).Msg("closed client not registered")
		return
	}
	if prev := h.byIdentity[name]; prev != nil && prev != c {
		prev.Supersede("signed in from another location")
		h.log.Info().Str("user", name).Str("client", prev.ID).Msg("connection superseded")
	}
	h.clients[c] = struct{}{}
	h.byIdentity[name] = c
	go h.pump(c)
	h.log.Debug().Str("user", name).Str("client", c.ID).Msg("client registered")
}

// pump forwards a client's commands into the hub loop.
func (h *Hub) pump(c *Client) {
	for {
		select {
		case cmd := <-c.Commands:
			if cmd == nil {
				continue
			}
			select {
			case h.inbox <- inbound{client: c, cmd: cmd}:
			case <-c.done:
				return
			case <-h.quit:
				return
			}
		case <-c.done:
			return
		case <-h.quit:
			return
		}
	}
}

func (h *Hub) handle(c *Client, cmd *Command) {
	if _, ok := h.clients[c]; !ok || c.closed() {
		return
	}

	var err *CoreError
	switch cmd.Kind {
	case CommandJoinRoom:
		err = h.joinRoom(c, cmd.Room)
	case CommandLeaveRoom:
		err = h.leaveRoom(c, cmd.Room)
	case CommandSendMessage:
		err = h.sendMessage(c, cmd)
	case CommandKick:
		err = h.kick(c, cmd.Room, cmd.Target)
	case CommandEnqueue:
		err = h.enqueue(c, cmd.Room)
	case CommandLeaveQueue:
		err = h.leaveQueue(c, cmd.Room)
	case CommandStopPerforming:
		err = h.stopPerforming(c, cmd.Room)
	case CommandRate:
		err = h.rate(c, cmd.Room, cmd.Score)
	case CommandRegisterListener:
		err = h.registerListener(c, cmd.Room)
	case CommandUnregisterListener:
		err = h.unregisterListener(c, cmd.Room)
	default:
		err = coreError(ErrCodeBadRequest, "unknown command")
	}
	if err != nil {
		h.log.Debug().Str("user", c.Identity.Name).Str("room", cmd.Room).Str("code", err.Code).Msg(err.Message)
		c.send(&Event{Kind: EventError, Room: cmd.Room, Error: err})
	}
}

// memberOf returns the room and member entry bound to c.
func (h *Hub) memberOf(c *Client, room string) (*Room, *Member, *CoreError) {
	r := h.rooms[room]
	if r == nil {
		return nil, nil, coreError(ErrCodeNotFound, "room not found")
	}
	m := r.members[c.Identity.Name]
	if m == nil || m.Client != c {
		return nil, nil, coreError(ErrCodeNotFound, "not in room")
	}
	return r, m, nil
}

func (h *Hub) broadcastMembers(r *Room) {
	r.broadcast(&Event{Kind: EventMembers, Room: r.Name, Members: r.snapshot(h.opts.TopTier)})
}

func (h *Hub) broadcastTurn(r *Room) {
	snap := r.turn.snapshot(r.Name)
	r.broadcast(&Event{Kind: EventTurnState, Room: r.Name, Turn: &snap})
}

func (h *Hub) notice(r *Room, user, text string) {
	r.broadcast(&Event{Kind: EventSystemNotice, Room: r.Name, User: user, Text: text})
}
