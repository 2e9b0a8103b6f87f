package core

import "github.com/vovakirdan/singroom-server/internal/media"

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventRoomMessage delivers a chat message.
	EventRoomMessage EventKind = iota
	// EventSystemNotice carries a human-readable room notice.
	EventSystemNotice
	// EventMembers carries the room's membership snapshot.
	EventMembers
	// EventTurnState carries the queue and performer snapshot.
	EventTurnState
	// EventTurnStart tells a member a new turn began and what their part is.
	EventTurnStart
	// EventPerformanceEnded tells the room the performer stopped and scoring opened.
	EventPerformanceEnded
	// EventScoreResult carries the closed scoring window's result.
	EventScoreResult
	// EventListenEnded tells a listener the performer's stream is over.
	EventListenEnded
	// EventStreamCredential delivers media credentials.
	EventStreamCredential
	// EventError notifies clients about a rejected command.
	EventError
)

// TurnRole is a member's part in a turn.
type TurnRole string

const (
	TurnRolePerform TurnRole = "perform"
	TurnRoleListen  TurnRole = "listen"
)

// MemberInfo is one row of a membership snapshot.
type MemberInfo struct {
	Name    string
	Role    string
	Level   int
	Exp     int
	Gender  string
	Avatar  string
	Present bool
}

// ScoreResult is the outcome of a scoring window.
type ScoreResult struct {
	Performer string
	Mean      float64
	Count     int
}

// Event is sent to clients to describe what happened in the system.
type Event struct {
	Kind       EventKind
	Room       string
	User       string // subject of the event
	Text       string // notice text or reason
	Message    Message
	Members    []MemberInfo
	Turn       *TurnSnapshot
	Role       TurnRole
	Score      *ScoreResult
	Credential *media.Credential
	Error      *CoreError
}
