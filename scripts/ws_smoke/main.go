package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/singroom-server/internal/proto"
)

type smokeOptions struct {
	base     string
	nickname string
	room     string
	text     string
	timeout  time.Duration
}

func main() {
	var opts smokeOptions
	cmd := &cobra.Command{
		Use:          "ws_smoke",
		Short:        "Sign in as a guest, join a room, chat and take a turn",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.base, "base", "http://localhost:8080", "server base URL")
	cmd.Flags().StringVar(&opts.nickname, "nick", "smoke", "guest nickname")
	cmd.Flags().StringVar(&opts.room, "room", "general", "room name")
	cmd.Flags().StringVar(&opts.text, "text", "hello from smoke test", "message text to send")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 5*time.Second, "total timeout for the run")

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "ws_smoke: %v\n", err)
		os.Exit(1)
	}
}

type frame struct {
	Type  string          `json:"type"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error"`
}

func run(ctx context.Context, opts smokeOptions) error {
	ctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()

	token, err := guestToken(ctx, opts.base, opts.nickname)
	if err != nil {
		return err
	}

	wsURL := strings.Replace(opts.base, "http", "ws", 1) + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	steps := []struct {
		typ  string
		data any
		want string
	}{
		{proto.InboundTypeHello, proto.HelloData{Token: token, Protocol: proto.ProtocolVersion}, proto.EventReady},
		{proto.InboundTypeJoinRoom, proto.RoomData{Room: opts.room}, proto.EventMembers},
		{proto.InboundTypeMessage, proto.MessageData{Room: opts.room, Text: opts.text}, proto.EventMessage},
		{proto.InboundTypeEnqueueForTurn, proto.RoomData{Room: opts.room}, proto.EventTurnStart},
		{proto.InboundTypeStopPerforming, proto.RoomData{Room: opts.room}, proto.EventPerformanceEnded},
	}
	for _, step := range steps {
		payload, err := json.Marshal(step.data)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", step.typ, err)
		}
		if err := wsjson.Write(ctx, conn, proto.Inbound{Type: step.typ, Data: payload}); err != nil {
			return fmt.Errorf("send %s: %w", step.typ, err)
		}
		if err := await(ctx, conn, step.want); err != nil {
			return fmt.Errorf("%s: %w", step.typ, err)
		}
		fmt.Printf("ok  %-16s -> %s\n", step.typ, step.want)
	}
	return nil
}

func await(ctx context.Context, conn *websocket.Conn, event string) error {
	for {
		var f frame
		if err := wsjson.Read(ctx, conn, &f); err != nil {
			return fmt.Errorf("read: %w", err)
		}
		if f.Error != nil {
			return fmt.Errorf("server error %s: %s", f.Error.Code, f.Error.Msg)
		}
		if f.Event == event {
			return nil
		}
	}
}

func guestToken(ctx context.Context, base, nickname string) (string, error) {
	body, err := json.Marshal(map[string]string{"nickname": nickname})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/api/guest", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("guest login: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("guest login: status %d", resp.StatusCode)
	}

	var out struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode guest response: %w", err)
	}
	return out.Token, nil
}
