package livekit

import (
	"context"
	"fmt"
	"time"

	"github.com/livekit/protocol/auth"

	"github.com/vovakirdan/singroom-server/internal/media"
)

// Engine implements media.Engine using LiveKit as the media backend.
type Engine struct {
	apiKey    string
	apiSecret string
	wsURL     string
	ttl       time.Duration
}

// New creates a new LiveKit engine.
func New(apiKey, apiSecret, wsURL string, ttl time.Duration) *Engine {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Engine{
		apiKey:    apiKey,
		apiSecret: apiSecret,
		wsURL:     wsURL,
		ttl:       ttl,
	}
}

// RoomName maps a chat room to its LiveKit room.
// LiveKit creates rooms on demand when the first participant joins.
func RoomName(room string) string {
	return "singroom-" + room
}

// AuthorizeStream creates an access token. Listeners may only subscribe;
// the performer may also publish.
func (e *Engine) AuthorizeStream(_ context.Context, room, identity string, canPublish bool) (*media.Credential, error) {
	roomName := RoomName(room)

	canSubscribe := true
	grant := &auth.VideoGrant{
		RoomJoin:     true,
		Room:         roomName,
		CanPublish:   &canPublish,
		CanSubscribe: &canSubscribe,
	}

	at := auth.NewAccessToken(e.apiKey, e.apiSecret)
	at.SetVideoGrant(grant).
		SetIdentity(identity).
		SetName(identity).
		SetValidFor(e.ttl)

	token, err := at.ToJWT()
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	return &media.Credential{
		URL:        e.wsURL,
		Token:      token,
		RoomName:   roomName,
		Identity:   identity,
		CanPublish: canPublish,
	}, nil
}

var _ media.Engine = (*Engine)(nil)
