package core

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandSendMessage delivers a chat message to room participants.
	CommandSendMessage CommandKind = iota
	// CommandJoinRoom subscribes the client to a room.
	CommandJoinRoom
	// CommandLeaveRoom unsubscribes the client from a room.
	CommandLeaveRoom
	// CommandKick removes another identity from the server.
	CommandKick
	// CommandEnqueue asks for a turn.
	CommandEnqueue
	// CommandLeaveQueue gives up a queued or current turn.
	CommandLeaveQueue
	// CommandStopPerforming ends the current turn and opens scoring.
	CommandStopPerforming
	// CommandRate scores the current performer.
	CommandRate
	// CommandRegisterListener subscribes to the performer's stream.
	CommandRegisterListener
	// CommandUnregisterListener unsubscribes from the performer's stream.
	CommandUnregisterListener
)

// Command represents an action requested by a client.
type Command struct {
	Kind    CommandKind
	Room    string
	Message Message // CommandSendMessage
	Target  string  // CommandKick
	Score   int     // CommandRate
}
