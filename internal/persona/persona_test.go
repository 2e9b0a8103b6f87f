package persona

import (
	"strings"
	"testing"
)

func TestToneFor(t *testing.T) {
	tests := []struct {
		mean float64
		want Tone
	}{
		{mean: 5, want: ToneWarm},
		{mean: 4.2, want: ToneWarm},
		{mean: 4.1, want: ToneNeutral},
		{mean: 3.2, want: ToneNeutral},
		{mean: 3.0, want: ToneTease},
		{mean: 0, want: ToneTease},
	}
	for _, tt := range tests {
		if got := ToneFor(tt.mean); got != tt.want {
			t.Errorf("ToneFor(%v) = %q, want %q", tt.mean, got, tt.want)
		}
	}
}

func TestCatalogDropsDuplicatesAndBlanks(t *testing.T) {
	c := NewCatalog([]Persona{{Name: "Mia"}, {Name: " "}, {Name: "Mia", Level: 9}, {Name: "Kai"}})
	if c.Len() != 2 {
		t.Fatalf("expected 2 personas, got %d", c.Len())
	}
	p, ok := c.Lookup("Mia")
	if !ok || p.Level != 0 {
		t.Fatalf("expected first Mia entry to win, got %+v", p)
	}
	if _, ok := c.Lookup("Nobody"); ok {
		t.Fatalf("unexpected persona")
	}
	if !p.Identity().IsPersona() {
		t.Fatalf("persona identity must be a persona kind")
	}
}

func TestPromptsMentionSubject(t *testing.T) {
	p := Persona{Name: "Theo", Style: "steady", Description: "calm", Job: "lawyer"}
	if got := ReplyPrompt(p, "how are you"); !strings.Contains(got, "how are you") || !strings.Contains(got, "lawyer") {
		t.Fatalf("reply prompt missing parts: %s", got)
	}
	if got := CommentaryPrompt(p, "alice", 3.5, ToneNeutral); !strings.Contains(got, "alice") || !strings.Contains(got, "3.5") {
		t.Fatalf("commentary prompt missing parts: %s", got)
	}
}
