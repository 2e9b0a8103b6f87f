package core

import (
	"context"
	"time"

	"github.com/vovakirdan/singroom-server/internal/identity"
	"github.com/vovakirdan/singroom-server/internal/persona"
	"github.com/vovakirdan/singroom-server/internal/store"
)

const personaColor = "#8e44ad"

func personaUtterance(msg Message) persona.Utterance {
	return persona.Utterance{Speaker: msg.From, Text: msg.Text}
}

// synthesizePersonas adds every catalog persona missing from the room.
func (h *Hub) synthesizePersonas(r *Room) {
	if !h.opts.PersonasEnabled {
		return
	}
	now := time.Now()
	for _, p := range h.catalog.All() {
		if _, ok := r.members[p.Name]; ok {
			continue
		}
		r.members[p.Name] = &Member{Identity: p.Identity(), JoinedAt: now}
	}
}

func (h *Hub) lookupPersona(name string) persona.Persona {
	if p, ok := h.catalog.Lookup(name); ok {
		return p
	}
	return persona.Persona{Name: name}
}

// complete asks the completer off-loop and runs then on the hub goroutine.
// A missing completer, or one that outlives the timeout, yields the fallback text.
func (h *Hub) complete(p persona.Persona, prompt string, window []persona.Utterance, then func(text string)) {
	if h.opts.Completer == nil {
		fallback := h.opts.FallbackUtterance
		go h.post(func() { then(fallback) })
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), h.opts.CompletionTimeout)
		defer cancel()

		result := make(chan string, 1)
		go func() { result <- h.opts.Completer.Complete(ctx, p, prompt, window) }()

		var text string
		select {
		case text = <-result:
		case <-ctx.Done():
		}
		if text == "" {
			text = h.opts.FallbackUtterance
		}
		h.post(func() { then(text) })
	}()
}

// personaReply answers a message addressed to a persona. The reply is
// dropped if the room closed or lost its personas meanwhile.
func (h *Hub) personaReply(r *Room, name string, msg Message) {
	p := h.lookupPersona(name)
	r.busy[name]++
	h.complete(p, persona.ReplyPrompt(p, msg.Text), r.window(), func(text string) {
		r.busy[name]--
		if h.rooms[r.Name] != r || len(r.personas()) == 0 {
			h.log.Debug().Str("room", r.Name).Str("persona", name).Msg("persona reply discarded")
			return
		}
		h.publish(r, Message{
			Room:   r.Name,
			From:   name,
			Role:   string(identity.RolePersona),
			Text:   text,
			Mode:   msg.Mode,
			Target: msg.From,
			Color:  personaColor,
		}, store.MessageKindPersona)
	})
}

// schedulePersonaTalk arms the room's talk timer unless it is already armed
// or a talk is in flight.
func (h *Hub) schedulePersonaTalk(r *Room) {
	if !h.opts.PersonasEnabled || r.talking || len(r.personas()) == 0 || r.humanCount() == 0 {
		return
	}
	r.talking = true
	r.talkGen++
	gen := r.talkGen
	r.talkTimer = time.AfterFunc(h.talkDelay(), func() {
		h.post(func() { h.personaTalk(r, gen) })
	})
}

func (h *Hub) talkDelay() time.Duration {
	lo, hi := h.opts.PersonaMinInterval, h.opts.PersonaMaxInterval
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(h.rng.Int63n(int64(hi-lo)))
}

func (h *Hub) personaTalk(r *Room, gen uint64) {
	if h.rooms[r.Name] != r || r.talkGen != gen {
		return
	}
	r.talkTimer = nil

	var idle []persona.Persona
	for _, m := range r.personas() {
		if r.busy[m.Identity.Name] == 0 {
			idle = append(idle, h.lookupPersona(m.Identity.Name))
		}
	}
	if len(idle) == 0 {
		r.talking = false
		h.schedulePersonaTalk(r)
		return
	}

	p := idle[h.rng.Intn(len(idle))]
	r.busy[p.Name]++
	h.complete(p, persona.ContinuePrompt, r.window(), func(text string) {
		r.busy[p.Name]--
		if h.rooms[r.Name] != r || r.talkGen != gen || len(r.personas()) == 0 {
			return
		}
		h.publish(r, Message{
			Room:  r.Name,
			From:  p.Name,
			Role:  string(identity.RolePersona),
			Text:  text,
			Mode:  ModePublic,
			Color: personaColor,
		}, store.MessageKindPersona)
		r.talking = false
		h.schedulePersonaTalk(r)
	})
}

// commentary publishes a persona's remark on a closed scoring window.
func (h *Hub) commentary(r *Room, performer string, mean float64) {
	var speaker persona.Persona
	if ps := r.personas(); len(ps) > 0 {
		speaker = h.lookupPersona(ps[h.rng.Intn(len(ps))].Identity.Name)
	} else if all := h.catalog.All(); len(all) > 0 {
		speaker = all[h.rng.Intn(len(all))]
	} else {
		return
	}

	tone := persona.ToneFor(mean)
	prompt := persona.CommentaryPrompt(speaker, performer, mean, tone)
	h.complete(speaker, prompt, r.window(), func(text string) {
		if h.rooms[r.Name] != r {
			return
		}
		h.publish(r, Message{
			Room:  r.Name,
			From:  speaker.Name,
			Role:  string(identity.RolePersona),
			Text:  persona.CommentaryPrefix + text,
			Mode:  ModePublic,
			Color: personaColor,
		}, store.MessageKindCommentary)
	})
}
