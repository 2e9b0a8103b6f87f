package completion

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/singroom-server/internal/persona"
)

func TestCompleteReadsChoices(t *testing.T) {
	var got completionRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"text":"  nice one!  "}]}`))
	}))
	defer ts.Close()

	c := New(Config{URL: ts.URL, Model: "llama3", Timeout: time.Second}, nil)
	text := c.Complete(context.Background(), persona.Persona{Name: "Mia"}, "say hi", []persona.Utterance{
		{Speaker: "alice", Text: "hello"},
	})

	require.Equal(t, "nice one!", text)
	require.Equal(t, "llama3", got.Model)
	require.True(t, strings.Contains(got.Prompt, "alice: hello"))
	require.True(t, strings.HasSuffix(got.Prompt, "say hi"))
}

func TestCompletePrefersCompletionField(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"completion":"hey","choices":[{"text":"ignored"}]}`))
	}))
	defer ts.Close()

	c := New(Config{URL: ts.URL}, nil)
	require.Equal(t, "hey", c.Complete(context.Background(), persona.Persona{}, "x", nil))
}

func TestCompleteFallsBackOnError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	c := New(Config{URL: ts.URL, Fallback: "hmm"}, nil)
	require.Equal(t, "hmm", c.Complete(context.Background(), persona.Persona{}, "x", nil))
}

func TestCompleteFallsBackOnTimeout(t *testing.T) {
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer ts.Close()
	defer close(release)

	c := New(Config{URL: ts.URL, Timeout: 50 * time.Millisecond}, nil)
	start := time.Now()
	require.Equal(t, DefaultFallback, c.Complete(context.Background(), persona.Persona{}, "x", nil))
	require.Less(t, time.Since(start), 2*time.Second)
}

func TestCompleteWithoutURL(t *testing.T) {
	c := New(Config{}, nil)
	require.Equal(t, DefaultFallback, c.Complete(context.Background(), persona.Persona{}, "x", nil))
}
