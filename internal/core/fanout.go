package core

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/vovakirdan/singroom-server/internal/identity"
	"github.com/vovakirdan/singroom-server/internal/store"
)

func (h *Hub) sendMessage(c *Client, cmd *Command) *CoreError {
	r, _, err := h.memberOf(c, cmd.Room)
	if err != nil {
		return err
	}

	in := cmd.Message
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return coreError(ErrCodeBadRequest, "message text required")
	}
	mode := in.Mode
	switch mode {
	case "":
		mode = ModePublic
	case ModePublic, ModePrivate:
	default:
		return coreError(ErrCodeBadRequest, "unknown message mode")
	}

	var target *Member
	if in.Target != "" {
		if in.Target == c.Identity.Name {
			return coreError(ErrCodeBadRequest, "cannot address yourself")
		}
		if target = r.members[in.Target]; target == nil {
			return coreError(ErrCodeNotFound, "target not in room")
		}
	} else if mode == ModePrivate {
		return coreError(ErrCodeBadRequest, "private message needs a target")
	}

	msg := Message{
		Room:   r.Name,
		From:   c.Identity.Name,
		Role:   string(c.Identity.Role(h.opts.TopTier)),
		Text:   text,
		Mode:   mode,
		Target: in.Target,
		Color:  in.Color,
	}
	h.publish(r, msg, store.MessageKindText)
	h.grantExperience(r.Name, c)

	if target != nil && target.Identity.IsPersona() {
		h.personaReply(r, target.Identity.Name, msg)
	}
	return nil
}

// publish stamps, delivers, remembers and logs a message.
func (h *Hub) publish(r *Room, msg Message, kind store.MessageKind) {
	h.nextMsgID++
	msg.ID = h.nextMsgID
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	r.remember(personaUtterance(msg))

	if msg.Mode == ModePrivate {
		h.deliverPrivate(r, msg)
	} else {
		r.broadcast(&Event{Kind: EventRoomMessage, Room: r.Name, Message: msg})
	}
	h.recordMessage(msg, kind)
}

// deliverPrivate sends to author and target, then a monitored copy to every
// observer connection that did not already receive one.
func (h *Hub) deliverPrivate(r *Room, msg Message) {
	ev := &Event{Kind: EventRoomMessage, Room: r.Name, Message: msg}
	delivered := make(map[*Client]struct{}, 2)
	for _, name := range [...]string{msg.From, msg.Target} {
		m := r.members[name]
		if m == nil || m.Client == nil {
			continue
		}
		if _, dup := delivered[m.Client]; dup {
			continue
		}
		delivered[m.Client] = struct{}{}
		m.Client.send(ev)
	}

	monitored := msg
	monitored.Monitored = true
	copyEv := &Event{Kind: EventRoomMessage, Room: r.Name, Message: monitored}
	for c := range h.clients {
		if _, dup := delivered[c]; dup {
			continue
		}
		if c.Identity.Role(h.opts.TopTier) != identity.RoleObserver {
			continue
		}
		delivered[c] = struct{}{}
		c.send(copyEv)
	}
}

func (h *Hub) recordMessage(msg Message, kind store.MessageKind) {
	if h.store == nil {
		return
	}
	entry := &store.MessageLog{
		Room:      msg.Room,
		Username:  msg.From,
		Role:      msg.Role,
		Body:      msg.Text,
		Mode:      string(msg.Mode),
		Target:    msg.Target,
		Kind:      kind,
		Color:     msg.Color,
		CreatedAt: msg.CreatedAt,
	}
	h.enqueueJob(func(ctx context.Context) {
		if err := h.store.RecordMessage(ctx, entry); err != nil {
			h.log.Warn().Err(err).Str("room", entry.Room).Str("user", entry.Username).Msg("record message failed")
		}
	})
}

// grantExperience credits the author and refreshes the room roster once the
// store has accepted the new values.
func (h *Hub) grantExperience(room string, c *Client) {
	if h.store == nil || c.Identity.IsPersona() {
		return
	}
	user := c.Identity.Name
	h.enqueueJob(func(ctx context.Context) {
		p, err := h.store.LookupProfile(ctx, user)
		if err != nil {
			if !errors.Is(err, store.ErrNotFound) {
				h.log.Warn().Err(err).Str("user", user).Msg("lookup profile failed")
			}
			return
		}
		level, exp := identity.Gain(p.Level, p.Exp, identity.MessageExp)
		if err := h.store.UpdateProgress(ctx, user, level, exp); err != nil {
			h.log.Warn().Err(err).Str("user", user).Msg("update progress failed")
			return
		}
		h.post(func() { h.applyProgress(room, c, level, exp) })
	})
}

func (h *Hub) applyProgress(room string, c *Client, level, exp int) {
	levelChanged := c.Identity.Level != level
	c.Identity.Level, c.Identity.Exp = level, exp
	if h.opts.Sessions != nil {
		h.opts.Sessions.UpdateProgress(c.Identity.Name, level, exp)
	}

	r := h.rooms[room]
	if r == nil {
		return
	}
	m := r.members[c.Identity.Name]
	if m == nil || m.Client != c {
		return
	}
	m.Identity.Level, m.Identity.Exp = level, exp
	if levelChanged {
		h.notice(r, c.Identity.Name, c.Identity.Name+" reached level "+strconv.Itoa(level))
	}
	h.broadcastMembers(r)
}
