package proto

import "encoding/json"

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	ProtocolVersion = 1

	InboundTypeHello              = "hello"
	InboundTypeJoinRoom           = "joinRoom"
	InboundTypeLeaveRoom          = "leaveRoom"
	InboundTypeMessage            = "message"
	InboundTypeKickUser           = "kickUser"
	InboundTypeEnqueueForTurn     = "enqueueForTurn"
	InboundTypeLeaveQueue         = "leaveQueue"
	InboundTypeStopPerforming     = "stopPerforming"
	InboundTypeRate               = "rate"
	InboundTypeRegisterListener   = "registerListener"
	InboundTypeUnregisterListener = "unregisterListener"

	OutboundTypeEvent       = "event"
	OutboundTypeError       = "error"
	OutboundTypeForceLogout = "force_logout"
)

// Outbound event names.
const (
	EventReady            = "ready"
	EventMessage          = "message"
	EventSystem           = "system"
	EventMembers          = "members"
	EventTurn             = "turn"
	EventTurnStart        = "turn_start"
	EventPerformanceEnded = "performance_ended"
	EventScoreResult      = "score_result"
	EventListenEnded      = "listen_ended"
	EventStreamCredential = "stream_credential"
)

// HelloData is sent by the client to introduce itself.
type HelloData struct {
	Token    string `json:"token"`
	Protocol int    `json:"protocol,omitempty"`
}

// RoomData addresses a room. Used by every room-scoped command without arguments.
type RoomData struct {
	Room string `json:"room"`
}

// MessageData is a chat message from the client.
type MessageData struct {
	Room   string `json:"room"`
	Text   string `json:"text"`
	Mode   string `json:"mode,omitempty"`
	Target string `json:"target,omitempty"`
	Color  string `json:"color,omitempty"`
}

// KickData names the identity a moderator removes.
type KickData struct {
	Room   string `json:"room"`
	Target string `json:"target"`
}

// RateData scores the current performer.
type RateData struct {
	Room  string `json:"room"`
	Score int    `json:"score"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// ReadyData acknowledges a successful hello.
type ReadyData struct {
	User     string `json:"user"`
	Role     string `json:"role"`
	Level    int    `json:"level"`
	Protocol int    `json:"protocol"`
}

// EventMessageData is a delivered chat message.
type EventMessageData struct {
	ID        int64  `json:"id"`
	Room      string `json:"room"`
	User      string `json:"user"`
	Role      string `json:"role,omitempty"`
	Text      string `json:"text"`
	Mode      string `json:"mode"`
	Target    string `json:"target,omitempty"`
	Color     string `json:"color,omitempty"`
	Monitored bool   `json:"monitored"`
	TS        int64  `json:"ts"`
}

// SystemData is a human-readable room notice.
type SystemData struct {
	Room string `json:"room"`
	User string `json:"user,omitempty"`
	Text string `json:"text"`
}

// Member is one row of a membership snapshot.
type Member struct {
	Name    string `json:"name"`
	Role    string `json:"role"`
	Level   int    `json:"level"`
	Exp     int    `json:"exp"`
	Gender  string `json:"gender,omitempty"`
	Avatar  string `json:"avatar,omitempty"`
	Present bool   `json:"present"`
}

// MembersData is a room's membership snapshot.
type MembersData struct {
	Room    string   `json:"room"`
	Members []Member `json:"members"`
}

// TurnData is a room's queue and performer snapshot.
type TurnData struct {
	Room        string   `json:"room"`
	Phase       string   `json:"phase"`
	Performer   string   `json:"performer,omitempty"`
	Queue       []string `json:"queue"`
	Listeners   []string `json:"listeners"`
	ScoringOpen bool     `json:"scoring_open"`
}

// TurnStartData tells a member a turn began and whether they perform or listen.
type TurnStartData struct {
	Room      string `json:"room"`
	Performer string `json:"performer"`
	Role      string `json:"role"`
}

// PerformanceData is shared by performance_ended and listen_ended.
type PerformanceData struct {
	Room      string `json:"room"`
	Performer string `json:"performer"`
	Reason    string `json:"reason,omitempty"`
}

// ScoreData is the result of a closed scoring window.
type ScoreData struct {
	Room      string  `json:"room"`
	Performer string  `json:"performer"`
	Mean      float64 `json:"mean"`
	Count     int     `json:"count"`
}

// CredentialData carries media access for the current turn.
type CredentialData struct {
	Room       string `json:"room"`
	Performer  string `json:"performer"`
	URL        string `json:"url"`
	Token      string `json:"token"`
	MediaRoom  string `json:"media_room"`
	CanPublish bool   `json:"can_publish"`
}

// ForceLogoutData explains why the server closed the connection.
type ForceLogoutData struct {
	Reason string `json:"reason"`
	Kind   string `json:"kind"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
