package http

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/singroom-server/internal/auth"
	"github.com/vovakirdan/singroom-server/internal/config"
	"github.com/vovakirdan/singroom-server/internal/core"
	"github.com/vovakirdan/singroom-server/internal/proto"
	"github.com/vovakirdan/singroom-server/internal/session"
	"github.com/vovakirdan/singroom-server/internal/store"
	"github.com/vovakirdan/singroom-server/internal/store/sqlite"
)

type testEnv struct {
	ts       *httptest.Server
	hub      *core.Hub
	sessions *session.Registry
	store    store.Store
}

// frame is an outbound message with its payload left raw.
type frame struct {
	Type  string          `json:"type"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error"`
}

// createTestStore creates an in-memory SQLite store with schema applied.
func createTestStore(t *testing.T) store.Store {
	t.Helper()

	st, err := sqlite.NewWithSetup(":memory:", func(db *sql.DB) error {
		_, err := db.Exec(sqlite.Schema)
		return err
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func newTestEnv(t *testing.T, tune func(*config.Config, *core.Options)) *testEnv {
	t.Helper()

	logger := zerolog.Nop()
	cfg := config.Default()
	cfg.JWTSecret = "test-secret"

	opts := core.DefaultOptions()
	opts.PersonasEnabled = false
	opts.Logger = &logger
	if tune != nil {
		tune(&cfg, &opts)
	}

	st := createTestStore(t)
	sessions := session.NewRegistry(&auth.JWTConfig{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      cfg.SessionTTL,
	}, &logger)
	opts.Sessions = sessions
	authService := auth.NewService(st, sessions, &logger)

	hub := core.NewHub(st, opts)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	ts := httptest.NewServer(NewRouter(hub, authService, sessions, &cfg, &logger))
	t.Cleanup(ts.Close)

	return &testEnv{ts: ts, hub: hub, sessions: sessions, store: st}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) (*stdhttp.Response, []byte) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := stdhttp.NewRequest(method, e.ts.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, buf.Bytes()
}

func (e *testEnv) guest(t *testing.T, nickname string) string {
	t.Helper()
	resp, body := e.do(t, stdhttp.MethodPost, "/api/guest", "", GuestRequest{Nickname: nickname})
	require.Equal(t, stdhttp.StatusOK, resp.StatusCode, string(body))

	var out AuthResponse
	require.NoError(t, json.Unmarshal(body, &out))
	return out.Token
}

func (e *testEnv) register(t *testing.T, username, password string) string {
	t.Helper()
	resp, body := e.do(t, stdhttp.MethodPost, "/api/register", "", RegisterRequest{Username: username, Password: password})
	require.Equal(t, stdhttp.StatusCreated, resp.StatusCode, string(body))

	var out AuthResponse
	require.NoError(t, json.Unmarshal(body, &out))
	return out.Token
}

func (e *testEnv) login(t *testing.T, username, password string) string {
	t.Helper()
	resp, body := e.do(t, stdhttp.MethodPost, "/api/login", "", LoginRequest{Username: username, Password: password})
	require.Equal(t, stdhttp.StatusOK, resp.StatusCode, string(body))

	var out AuthResponse
	require.NoError(t, json.Unmarshal(body, &out))
	return out.Token
}

func (e *testEnv) dial(ctx context.Context, t *testing.T) *websocket.Conn {
	t.Helper()
	wsURL := strings.Replace(e.ts.URL, "http", "ws", 1) + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "done") })
	return conn
}

// connect dials, says hello and waits for the ready event.
func (e *testEnv) connect(ctx context.Context, t *testing.T, token string) *websocket.Conn {
	t.Helper()
	conn := e.dial(ctx, t)
	send(ctx, t, conn, proto.InboundTypeHello, proto.HelloData{Token: token, Protocol: proto.ProtocolVersion})
	ready := readFrame(ctx, t, conn)
	require.Equal(t, proto.EventReady, ready.Event, "unexpected first frame: %+v", ready)
	return conn
}

func send(ctx context.Context, t *testing.T, conn *websocket.Conn, typ string, data any) {
	t.Helper()
	payload, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, wsjson.Write(ctx, conn, proto.Inbound{Type: typ, Data: payload}))
}

func readFrame(ctx context.Context, t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	var f frame
	require.NoError(t, wsjson.Read(ctx, conn, &f))
	return f
}

// readUntil skips frames until match returns true.
func readUntil(ctx context.Context, t *testing.T, conn *websocket.Conn, match func(frame) bool) frame {
	t.Helper()
	for {
		f := readFrame(ctx, t, conn)
		if match(f) {
			return f
		}
	}
}

func isEvent(name string) func(frame) bool {
	return func(f frame) bool { return f.Type == proto.OutboundTypeEvent && f.Event == name }
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}
