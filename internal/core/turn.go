package core

import (
	"sort"
	"time"

	"github.com/gammazero/deque"
)

// Phase of a room's turn machine.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhasePerforming Phase = "performing"
	PhaseScoring    Phase = "scoring"
)

// TurnSnapshot is a read-only copy of a room's turn state.
type TurnSnapshot struct {
	Room        string
	Phase       Phase
	Performer   string
	Queue       []string
	Listeners   []string
	ScoringOpen bool
}

// TurnState tracks the queue, the performer and the scoring window.
// A timer is armed exactly while the phase is scoring.
type TurnState struct {
	phase     Phase
	queue     deque.Deque[string]
	performer string
	ratings   map[string][]int
	listeners map[string]struct{}

	timer    *time.Timer
	timerGen uint64
}

func newTurnState() *TurnState {
	return &TurnState{
		phase:     PhaseIdle,
		ratings:   make(map[string][]int),
		listeners: make(map[string]struct{}),
	}
}

func (t *TurnState) queued(name string) bool {
	return t.queue.Index(func(s string) bool { return s == name }) >= 0
}

func (t *TurnState) dequeue(name string) bool {
	i := t.queue.Index(func(s string) bool { return s == name })
	if i < 0 {
		return false
	}
	t.queue.Remove(i)
	return true
}

func (t *TurnState) stopTimer() {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.timerGen++
}

func (t *TurnState) mean(performer string) (float64, int) {
	scores := t.ratings[performer]
	if len(scores) == 0 {
		return 0, 0
	}
	sum := 0
	for _, s := range scores {
		sum += s
	}
	return float64(sum) / float64(len(scores)), len(scores)
}

func (t *TurnState) snapshot(room string) TurnSnapshot {
	q := make([]string, t.queue.Len())
	for i := range q {
		q[i] = t.queue.At(i)
	}
	ls := make([]string, 0, len(t.listeners))
	for name := range t.listeners {
		ls = append(ls, name)
	}
	sort.Strings(ls)
	return TurnSnapshot{
		Room:        room,
		Phase:       t.phase,
		Performer:   t.performer,
		Queue:       q,
		Listeners:   ls,
		ScoringOpen: t.timer != nil,
	}
}
