package core

import (
	"context"
	"strings"
	"time"
)

const kickReason = "removed by a moderator"

func (h *Hub) joinRoom(c *Client, name string) *CoreError {
	name = strings.TrimSpace(name)
	if name == "" {
		return coreError(ErrCodeBadRequest, "room name required")
	}

	r := h.rooms[name]
	if r == nil {
		r = NewRoom(name, h.opts.ContextSize)
		h.rooms[name] = r
		h.log.Info().Str("room", name).Msg("room opened")
	}

	user := c.Identity.Name
	switch m := r.members[user]; {
	case m == nil:
		r.members[user] = &Member{Identity: c.Identity, Client: c, JoinedAt: time.Now()}
	case m.Client == c:
		return coreError(ErrCodeInvalidState, "already joined")
	case m.Identity.IsPersona():
		return coreError(ErrCodeInvalidState, "name is taken by a persona")
	default:
		// Same identity through a new connection: the entry is replaced in place.
		if old := m.Client; old != nil {
			delete(old.rooms, name)
			old.Supersede("signed in from another location")
		}
		m.Client = c
		m.Identity = c.Identity
	}
	c.rooms[name] = struct{}{}

	h.synthesizePersonas(r)
	h.notice(r, user, user+" joined the room")
	h.broadcastMembers(r)
	snap := r.turn.snapshot(r.Name)
	c.send(&Event{Kind: EventTurnState, Room: r.Name, Turn: &snap})
	h.schedulePersonaTalk(r)
	return nil
}

func (h *Hub) leaveRoom(c *Client, name string) *CoreError {
	r, m, err := h.memberOf(c, name)
	if err != nil {
		return err
	}
	h.removeMember(r, m, m.Identity.Name+" left the room")
	return nil
}

// removeMember drops a member and everything the turn machine holds for it.
func (h *Hub) removeMember(r *Room, m *Member, text string) {
	user := m.Identity.Name
	delete(r.members, user)
	if m.Client != nil {
		delete(m.Client.rooms, r.Name)
	}

	t := r.turn
	t.dequeue(user)
	delete(t.listeners, user)
	if t.performer == user {
		h.vacate(r, "performer left")
	}

	h.notice(r, user, text)
	if r.humanCount() == 0 {
		h.closeRoom(r)
		return
	}
	h.broadcastMembers(r)
	h.broadcastTurn(r)
}

func (h *Hub) closeRoom(r *Room) {
	r.stopTimers()
	delete(h.rooms, r.Name)
	h.log.Info().Str("room", r.Name).Msg("room closed")
}

// dropClient removes a connection from the hub and every room it joined.
func (h *Hub) dropClient(c *Client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	if h.byIdentity[c.Identity.Name] == c {
		delete(h.byIdentity, c.Identity.Name)
	}

	rooms := make([]string, 0, len(c.rooms))
	for name := range c.rooms {
		rooms = append(rooms, name)
	}
	for _, name := range rooms {
		r := h.rooms[name]
		if r == nil {
			continue
		}
		if m := r.members[c.Identity.Name]; m != nil && m.Client == c {
			h.removeMember(r, m, c.Identity.Name+" left the room")
		}
	}
	c.Close()
	h.log.Debug().Str("user", c.Identity.Name).Str("client", c.ID).Msg("client unregistered")
}

func (h *Hub) kick(c *Client, room, target string) *CoreError {
	r, _, err := h.memberOf(c, room)
	if err != nil {
		return err
	}
	if c.Identity.Level < h.opts.ModeratorLevel {
		return coreError(ErrCodePermissionDenied, "insufficient privilege")
	}
	if target == c.Identity.Name {
		return coreError(ErrCodePermissionDenied, "cannot remove yourself")
	}
	m := r.members[target]
	if m == nil {
		return coreError(ErrCodeNotFound, "user not found")
	}
	if m.Client == nil {
		return nil
	}

	victim := m.Client
	if h.opts.Sessions != nil {
		h.opts.Sessions.RevokeIdentity(target)
	}
	if h.store != nil {
		h.enqueueJob(func(ctx context.Context) {
			if err := h.store.SetSession(ctx, target, "", false); err != nil {
				h.log.Warn().Err(err).Str("user", target).Msg("clear session failed")
			}
		})
	}
	victim.Kick(kickReason)
	h.removeMember(r, m, target+" was "+kickReason)
	h.dropClient(victim)
	h.log.Info().Str("room", room).Str("moderator", c.Identity.Name).Str("user", target).Msg("user kicked")
	return nil
}
