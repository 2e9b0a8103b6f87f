package core

import (
	"context"
	"time"
)

func (h *Hub) enqueue(c *Client, room string) *CoreError {
	r, m, err := h.memberOf(c, room)
	if err != nil {
		return err
	}
	user := m.Identity.Name
	t := r.turn
	if t.performer == user || t.queued(user) {
		return coreError(ErrCodeInvalidState, "already queued")
	}
	t.queue.PushBack(user)
	h.advance(r)
	h.broadcastTurn(r)
	return nil
}

// leaveQueue gives up a pending turn, or ends the current one.
func (h *Hub) leaveQueue(c *Client, room string) *CoreError {
	r, m, err := h.memberOf(c, room)
	if err != nil {
		return err
	}
	user := m.Identity.Name
	t := r.turn
	switch {
	case t.performer == user && t.phase == PhasePerforming:
		h.beginScoring(r, "stopped")
	case t.dequeue(user):
	default:
		return coreError(ErrCodeInvalidState, "not queued")
	}
	h.broadcastTurn(r)
	return nil
}

func (h *Hub) stopPerforming(c *Client, room string) *CoreError {
	r, m, err := h.memberOf(c, room)
	if err != nil {
		return err
	}
	t := r.turn
	if t.phase != PhasePerforming || t.performer != m.Identity.Name {
		return coreError(ErrCodeInvalidState, "not the current performer")
	}
	h.beginScoring(r, "stopped")
	h.broadcastTurn(r)
	return nil
}

func (h *Hub) rate(c *Client, room string, score int) *CoreError {
	r, _, err := h.memberOf(c, room)
	if err != nil {
		return err
	}
	if score < 1 || score > 5 {
		return coreError(ErrCodeBadRequest, "score must be between 1 and 5")
	}
	t := r.turn
	if t.performer == "" {
		return coreError(ErrCodeInvalidState, "no active performer")
	}
	t.ratings[t.performer] = append(t.ratings[t.performer], score)
	return nil
}

func (h *Hub) registerListener(c *Client, room string) *CoreError {
	r, m, err := h.memberOf(c, room)
	if err != nil {
		return err
	}
	user := m.Identity.Name
	t := r.turn
	if t.performer == "" {
		return coreError(ErrCodeInvalidState, "no active performer")
	}
	if t.performer == user {
		return coreError(ErrCodeInvalidState, "performer cannot listen")
	}
	if _, ok := t.listeners[user]; ok {
		return coreError(ErrCodeInvalidState, "already listening")
	}
	t.listeners[user] = struct{}{}
	h.authorizeStream(r, user, false)
	h.broadcastTurn(r)
	return nil
}

func (h *Hub) unregisterListener(c *Client, room string) *CoreError {
	r, m, err := h.memberOf(c, room)
	if err != nil {
		return err
	}
	if _, ok := r.turn.listeners[m.Identity.Name]; !ok {
		return coreError(ErrCodeInvalidState, "not listening")
	}
	delete(r.turn.listeners, m.Identity.Name)
	h.broadcastTurn(r)
	return nil
}

// advance promotes the queue head when the slot is free. Queue entries whose
// member is gone are skipped.
func (h *Hub) advance(r *Room) {
	t := r.turn
	if t.performer != "" {
		return
	}
	for t.queue.Len() > 0 {
		user := t.queue.PopFront()
		m := r.members[user]
		if m == nil || m.Client == nil {
			continue
		}
		t.performer = user
		t.phase = PhasePerforming
		delete(t.ratings, user)

		m.Client.send(&Event{Kind: EventTurnStart, Room: r.Name, User: user, Role: TurnRolePerform})
		listen := &Event{Kind: EventTurnStart, Room: r.Name, User: user, Role: TurnRoleListen}
		for _, other := range r.members {
			if other != m && other.Client != nil {
				other.Client.send(listen)
			}
		}
		h.log.Info().Str("room", r.Name).Str("user", user).Msg("turn started")
		h.authorizeStream(r, user, true)
		return
	}
	t.phase = PhaseIdle
}

// vacate handles a performer that disappeared. An open scoring window is
// left to run out on its own.
func (h *Hub) vacate(r *Room, reason string) {
	if r.turn.phase == PhasePerforming {
		h.beginScoring(r, reason)
	}
}

func (h *Hub) beginScoring(r *Room, reason string) {
	t := r.turn
	t.phase = PhaseScoring
	r.broadcast(&Event{Kind: EventPerformanceEnded, Room: r.Name, User: t.performer, Text: reason})
	if t.timer != nil {
		return
	}
	t.timerGen++
	gen := t.timerGen
	t.timer = time.AfterFunc(h.opts.ScoringWindow, func() {
		h.post(func() { h.finishScoring(r, gen) })
	})
}

// finishScoring closes the window armed with generation gen.
func (h *Hub) finishScoring(r *Room, gen uint64) {
	if h.rooms[r.Name] != r {
		return
	}
	t := r.turn
	if t.timer == nil || t.timerGen != gen {
		return
	}
	t.timer = nil

	performer := t.performer
	mean, count := t.mean(performer)
	delete(t.ratings, performer)
	r.broadcast(&Event{
		Kind:  EventScoreResult,
		Room:  r.Name,
		User:  performer,
		Score: &ScoreResult{Performer: performer, Mean: mean, Count: count},
	})
	h.log.Info().Str("room", r.Name).Str("user", performer).Float64("mean", mean).Int("count", count).Msg("scoring closed")
	h.commentary(r, performer, mean)

	for user := range t.listeners {
		if m := r.members[user]; m != nil && m.Client != nil {
			m.Client.send(&Event{Kind: EventListenEnded, Room: r.Name, User: performer})
		}
		delete(t.listeners, user)
	}

	t.performer = ""
	t.phase = PhaseIdle
	h.advance(r)
	h.broadcastTurn(r)
}

// authorizeStream fetches a media credential off-loop and delivers it only
// if the turn it was requested for is still current.
func (h *Hub) authorizeStream(r *Room, user string, canPublish bool) {
	if h.opts.Media == nil {
		return
	}
	room, performer := r.Name, r.turn.performer
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), h.opts.CompletionTimeout)
		defer cancel()
		cred, err := h.opts.Media.AuthorizeStream(ctx, room, user, canPublish)
		if err != nil {
			h.log.Warn().Err(err).Str("room", room).Str("user", user).Msg("stream authorization failed")
			return
		}
		h.post(func() {
			if h.rooms[room] != r || r.turn.performer != performer {
				return
			}
			if canPublish && r.turn.phase != PhasePerforming {
				return
			}
			if _, ok := r.turn.listeners[user]; !canPublish && !ok {
				return
			}
			if m := r.members[user]; m != nil && m.Client != nil {
				m.Client.send(&Event{Kind: EventStreamCredential, Room: room, User: performer, Credential: cred})
			}
		})
	}()
}
