package core

import (
	"sort"
	"time"

	"github.com/gammazero/deque"

	"github.com/vovakirdan/singroom-server/internal/identity"
	"github.com/vovakirdan/singroom-server/internal/persona"
)

// Member is one identity in a room. Personas have no client.
type Member struct {
	Identity identity.Identity
	Client   *Client
	JoinedAt time.Time
}

func (m *Member) present() bool {
	if m.Client == nil {
		return m.Identity.IsPersona()
	}
	return !m.Client.closed()
}

// Room groups members subscribed to the same channel.
type Room struct {
	Name    string
	members map[string]*Member

	recent    deque.Deque[persona.Utterance]
	recentCap int

	turn *TurnState

	// persona loop state
	talkTimer *time.Timer
	talkGen   uint64
	talking   bool
	busy      map[string]int // in-flight completions per persona
}

// NewRoom constructs an empty room keeping up to recentCap utterances.
func NewRoom(name string, recentCap int) *Room {
	if recentCap <= 0 {
		recentCap = 1
	}
	return &Room{
		Name:      name,
		members:   make(map[string]*Member),
		recentCap: recentCap,
		turn:      newTurnState(),
		busy:      make(map[string]int),
	}
}

func (r *Room) remember(u persona.Utterance) {
	r.recent.PushBack(u)
	for r.recent.Len() > r.recentCap {
		r.recent.PopFront()
	}
}

// window copies the recent utterances oldest first.
func (r *Room) window() []persona.Utterance {
	out := make([]persona.Utterance, r.recent.Len())
	for i := range out {
		out[i] = r.recent.At(i)
	}
	return out
}

func (r *Room) humanCount() int {
	n := 0
	for _, m := range r.members {
		if m.Client != nil {
			n++
		}
	}
	return n
}

func (r *Room) personas() []*Member {
	var out []*Member
	for _, m := range r.members {
		if m.Identity.IsPersona() {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Identity.Name < out[j].Identity.Name })
	return out
}

func (r *Room) snapshot(topTier int) []MemberInfo {
	out := make([]MemberInfo, 0, len(r.members))
	for _, m := range r.members {
		out = append(out, MemberInfo{
			Name:    m.Identity.Name,
			Role:    string(m.Identity.Role(topTier)),
			Level:   m.Identity.Level,
			Exp:     m.Identity.Exp,
			Gender:  m.Identity.Gender,
			Avatar:  m.Identity.Avatar,
			Present: m.present(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// broadcast sends an event to every connected member.
func (r *Room) broadcast(ev *Event) {
	for _, m := range r.members {
		if m.Client != nil {
			m.Client.send(ev)
		}
	}
}

func (r *Room) stopTimers() {
	if r.talkTimer != nil {
		r.talkTimer.Stop()
		r.talkTimer = nil
	}
	r.talkGen++
	r.talking = false
	r.turn.stopTimer()
}
