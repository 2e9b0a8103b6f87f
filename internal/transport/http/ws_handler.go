package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	stdhttp "net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/singroom-server/internal/config"
	"github.com/vovakirdan/singroom-server/internal/core"
	"github.com/vovakirdan/singroom-server/internal/identity"
	"github.com/vovakirdan/singroom-server/internal/proto"
	"github.com/vovakirdan/singroom-server/internal/session"
	"github.com/vovakirdan/singroom-server/internal/utils"
)

const helloTimeout = 10 * time.Second

// evictedError ends a connection the server force-closed.
type evictedError struct {
	eviction *core.Eviction
}

func (e *evictedError) Error() string {
	return "evicted: " + e.eviction.Reason
}

// WSHandler upgrades HTTP connections and bridges them to core.Client.
type WSHandler struct {
	hub      *core.Hub
	sessions *session.Registry
	cfg      *config.Config
	log      *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(hub *core.Hub, sessions *session.Registry, cfg *config.Config, logger *zerolog.Logger) stdhttp.Handler {
	return &WSHandler{hub: hub, sessions: sessions, cfg: cfg, log: logger}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.CloseNow()
	if h.cfg.MaxMessageBytes > 0 {
		conn.SetReadLimit(h.cfg.MaxMessageBytes)
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	token, ident, protoErr := h.handshake(ctx, conn)
	if protoErr != nil {
		_ = wsjson.Write(ctx, conn, proto.Outbound{Type: proto.OutboundTypeError, Error: protoErr})
		conn.Close(websocket.StatusPolicyViolation, protoErr.Msg)
		return
	}

	client := core.NewClient(utils.NewID("conn"), ident)
	if _, err := h.sessions.Attach(token, client); err != nil {
		_ = wsjson.Write(ctx, conn, proto.Outbound{
			Type:  proto.OutboundTypeError,
			Error: &proto.Error{Code: core.ErrCodeUnauthorized, Msg: "invalid session"},
		})
		conn.Close(websocket.StatusPolicyViolation, "invalid session")
		return
	}
	h.hub.RegisterClient(client)
	defer h.sessions.Release(token, client)
	defer h.hub.UnregisterClient(client)

	logger := h.log.With().Str("client_id", client.ID).Str("user", ident.Name).Logger()
	logger.Info().Msg("client connected")

	if err := wsjson.Write(ctx, conn, event(proto.EventReady, proto.ReadyData{
		User:     ident.Name,
		Role:     string(ident.Role(h.hub.TopTier())),
		Level:    ident.Level,
		Protocol: proto.ProtocolVersion,
	})); err != nil {
		return
	}

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, client, &logger)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, client, &logger)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	var evicted *evictedError
	switch {
	case errors.As(err, &evicted):
		status = websocket.StatusPolicyViolation
		reason = evicted.eviction.Reason
		logger.Info().Str("kind", string(evicted.eviction.Kind)).Msg("client evicted")
	case err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, io.EOF):
		if s := websocket.CloseStatus(err); s == websocket.StatusNormalClosure || s == websocket.StatusGoingAway {
			break
		}
		status = websocket.StatusInternalError
		reason = "internal error"
		logger.Warn().Err(err).Msg("ws connection closed with error")
	}

	conn.Close(status, reason)
	logger.Info().Msg("client disconnected")
}

// handshake reads the mandatory hello frame and resolves its token.
func (h *WSHandler) handshake(ctx context.Context, conn *websocket.Conn) (string, identity.Identity, *proto.Error) {
	hctx, cancel := context.WithTimeout(ctx, helloTimeout)
	defer cancel()

	var inbound proto.Inbound
	if err := wsjson.Read(hctx, conn, &inbound); err != nil {
		return "", identity.Identity{}, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "hello expected"}
	}
	if inbound.Type != proto.InboundTypeHello {
		return "", identity.Identity{}, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "hello expected"}
	}

	var hello proto.HelloData
	if err := json.Unmarshal(inbound.Data, &hello); err != nil {
		return "", identity.Identity{}, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "malformed hello"}
	}
	if hello.Protocol != 0 && hello.Protocol != proto.ProtocolVersion {
		return "", identity.Identity{}, &proto.Error{Code: core.ErrCodeUnsupportedVersion, Msg: "unsupported protocol version"}
	}

	ident, err := h.sessions.Resolve(hello.Token)
	if err != nil {
		h.log.Debug().Err(err).Msg("ws hello rejected")
		return "", identity.Identity{}, &proto.Error{Code: core.ErrCodeUnauthorized, Msg: "invalid session"}
	}
	return hello.Token, ident, nil
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, client *core.Client, logger *zerolog.Logger) error {
	limiter := newRateLimiter(h.cfg.RateLimitPerMinute)
	for {
		var inbound proto.Inbound
		if err := wsjson.Read(ctx, conn, &inbound); err != nil {
			return err
		}

		if !limiter.allow() {
			if err := wsjson.Write(ctx, conn, proto.Outbound{
				Type:  proto.OutboundTypeError,
				Error: &proto.Error{Code: core.ErrCodeRateLimited, Msg: "too many messages"},
			}); err != nil {
				return err
			}
			continue
		}

		cmd, protoErr, err := inboundToCommand(inbound)
		if err != nil {
			logger.Warn().Err(err).Str("type", inbound.Type).Msg("failed to map inbound")
			return err
		}
		if protoErr != nil {
			if err := wsjson.Write(ctx, conn, proto.Outbound{Type: proto.OutboundTypeError, Error: protoErr}); err != nil {
				return err
			}
			continue
		}

		select {
		case client.Commands <- cmd:
		case <-client.Done():
			// closed by the server; the writer reports it
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *core.Client, logger *zerolog.Logger) error {
	for {
		select {
		case ev := <-client.Events:
			if err := wsjson.Write(ctx, conn, outboundFromEvent(ev)); err != nil {
				logger.Error().Err(err).Msg("write ws event")
				return err
			}
		case <-client.Done():
			return h.flushAndClose(ctx, conn, client)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// flushAndClose writes what is still queued, then the eviction notice if any.
func (h *WSHandler) flushAndClose(ctx context.Context, conn *websocket.Conn, client *core.Client) error {
drain:
	for {
		select {
		case ev := <-client.Events:
			if err := wsjson.Write(ctx, conn, outboundFromEvent(ev)); err != nil {
				return err
			}
		default:
			break drain
		}
	}

	eviction := client.Eviction()
	if eviction == nil {
		return nil
	}
	if err := wsjson.Write(ctx, conn, forceLogout(eviction)); err != nil {
		return err
	}
	return &evictedError{eviction: eviction}
}
