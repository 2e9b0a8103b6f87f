package core

import "time"

// Mode is the visibility of a chat message.
type Mode string

const (
	ModePublic  Mode = "public"
	ModePrivate Mode = "private"
)

// Message is the domain model for a chat message.
type Message struct {
	ID        int64
	Room      string
	From      string
	Role      string
	Text      string
	Mode      Mode
	Target    string
	Color     string
	Monitored bool // copy delivered to a privileged observer
	CreatedAt time.Time
}
