package media

import "context"

// Credential lets a client connect to the media server for one room.
type Credential struct {
	URL        string `json:"url"`         // WebSocket URL of the media server
	Token      string `json:"token"`       // access token
	RoomName   string `json:"room_name"`   // media-side room name
	Identity   string `json:"identity"`    // participant identity in the media room
	CanPublish bool   `json:"can_publish"` // true only for the current performer
}

// Engine abstracts the media backend that carries the performer's stream.
type Engine interface {
	// AuthorizeStream issues a credential for identity in room.
	// canPublish is decided by the coordinator and passed through as is.
	AuthorizeStream(ctx context.Context, room, identity string, canPublish bool) (*Credential, error)
}
