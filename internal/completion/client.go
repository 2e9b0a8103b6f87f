package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/singroom-server/internal/persona"
)

// DefaultFallback is used when the backend fails or times out.
const DefaultFallback = "Sorry, I lagged for a second haha."

var errEmptyCompletion = errors.New("empty completion")

// Config configures the completion backend.
type Config struct {
	URL         string
	Model       string
	Timeout     time.Duration
	Temperature float64
	Fallback    string
}

// Client talks to an OpenAI-compatible /v1/completions endpoint.
// It never returns an error: failures become the fallback utterance.
type Client struct {
	cfg  Config
	http *http.Client
	log  *zerolog.Logger
}

// New creates a completion client.
func New(cfg Config, logger *zerolog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Fallback == "" {
		cfg.Fallback = DefaultFallback
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		log:  logger,
	}
}

type completionRequest struct {
	Model       string  `json:"model"`
	Prompt      string  `json:"prompt"`
	Temperature float64 `json:"temperature"`
}

type completionResponse struct {
	Completion string `json:"completion"`
	Choices    []struct {
		Text string `json:"text"`
	} `json:"choices"`
}

// Complete asks the backend to speak as p. window is prepended as transcript context.
func (c *Client) Complete(ctx context.Context, p persona.Persona, prompt string, window []persona.Utterance) string {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	text, err := c.complete(ctx, buildPrompt(prompt, window))
	if err != nil {
		c.log.Warn().Err(err).Str("persona", p.Name).Msg("completion unavailable, using fallback")
		return c.cfg.Fallback
	}
	return text
}

func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	if c.cfg.URL == "" {
		return "", errors.New("completion url not configured")
	}

	body, err := json.Marshal(completionRequest{
		Model:       c.cfg.Model,
		Prompt:      prompt,
		Temperature: c.cfg.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("post completion: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("completion status %d", resp.StatusCode)
	}

	var out completionResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil {
		return "", fmt.Errorf("decode completion: %w", err)
	}

	text := out.Completion
	if text == "" && len(out.Choices) > 0 {
		text = out.Choices[0].Text
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errEmptyCompletion
	}
	return text, nil
}

func buildPrompt(prompt string, window []persona.Utterance) string {
	if len(window) == 0 {
		return prompt
	}
	var b strings.Builder
	b.WriteString("Recent chat:\n")
	for _, u := range window {
		fmt.Fprintf(&b, "%s: %s\n", u.Speaker, u.Text)
	}
	b.WriteString("\n")
	b.WriteString(prompt)
	return b.String()
}
