package persona

import (
	"fmt"
	"strings"

	"github.com/vovakirdan/singroom-server/internal/identity"
)

// Persona describes an automated room participant.
type Persona struct {
	Name        string `mapstructure:"name" yaml:"name"`
	Style       string `mapstructure:"style" yaml:"style"`
	Description string `mapstructure:"description" yaml:"description"`
	Job         string `mapstructure:"job" yaml:"job"`
	Gender      string `mapstructure:"gender" yaml:"gender"`
	Level       int    `mapstructure:"level" yaml:"level"`
	Avatar      string `mapstructure:"avatar" yaml:"avatar"`
}

// Identity returns the room identity the persona speaks under.
func (p Persona) Identity() identity.Identity {
	return identity.Identity{
		Name:   p.Name,
		Kind:   identity.KindPersona,
		Level:  p.Level,
		Gender: p.Gender,
		Avatar: p.Avatar,
	}
}

// Utterance is one entry of a room's recent-message window.
type Utterance struct {
	Speaker string
	Text    string
}

// Catalog is an ordered set of personas addressable by name.
type Catalog struct {
	list   []Persona
	byName map[string]Persona
}

// NewCatalog builds a catalog, dropping unnamed and duplicate entries.
func NewCatalog(personas []Persona) *Catalog {
	c := &Catalog{byName: make(map[string]Persona, len(personas))}
	for _, p := range personas {
		p.Name = strings.TrimSpace(p.Name)
		if p.Name == "" {
			continue
		}
		if _, dup := c.byName[p.Name]; dup {
			continue
		}
		c.byName[p.Name] = p
		c.list = append(c.list, p)
	}
	return c
}

// Lookup returns the persona called name.
func (c *Catalog) Lookup(name string) (Persona, bool) {
	if c == nil {
		return Persona{}, false
	}
	p, ok := c.byName[name]
	return p, ok
}

// All returns the personas in catalog order.
func (c *Catalog) All() []Persona {
	if c == nil {
		return nil
	}
	out := make([]Persona, len(c.list))
	copy(out, c.list)
	return out
}

// Len returns the number of personas.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.list)
}

// Default returns the built-in catalog.
func Default() []Persona {
	return []Persona{
		{Name: "Mia", Style: "outgoing", Description: "chatty, loves sharing everyday life", Job: "social media marketer", Gender: "female", Level: 5},
		{Name: "Yuna", Style: "shy", Description: "speaks softly in short sentences", Job: "student", Gender: "female", Level: 8},
		{Name: "Sky", Style: "funny", Description: "cracks jokes and keeps the mood up", Job: "comedian", Gender: "female", Level: 13},
		{Name: "Theo", Style: "steady", Description: "calm tone, neutral replies", Job: "lawyer", Gender: "male", Level: 15},
		{Name: "Wind Rider", Style: "naive", Description: "straightforward like a younger sibling", Job: "college student", Gender: "male", Level: 17},
		{Name: "Kai", Style: "warm", Description: "reassuring and kind", Job: "counselor", Gender: "male", Level: 20},
		{Name: "Paige", Style: "curious", Description: "asks questions and drives topics", Job: "sales rep", Gender: "female", Level: 22},
		{Name: "Hank", Style: "roaster", Description: "blunt and likes teasing people", Job: "engineer", Gender: "male", Level: 25},
		{Name: "Poet", Style: "artsy", Description: "talks about feelings and small moments", Job: "writer", Gender: "female", Level: 40},
		{Name: "Coach", Style: "sporty", Description: "healthy and sunny tone", Job: "fitness coach", Gender: "male", Level: 50},
	}
}

// Tone is the register used for performance commentary.
type Tone string

const (
	ToneWarm    Tone = "warm and full of praise"
	ToneNeutral Tone = "neutral"
	ToneTease   Tone = "teasing but good-humoured"
)

const (
	warmThreshold  = 4.2
	teaseThreshold = 3.2
)

// ToneFor selects the commentary register for a mean score.
func ToneFor(mean float64) Tone {
	switch {
	case mean >= warmThreshold:
		return ToneWarm
	case mean < teaseThreshold:
		return ToneTease
	default:
		return ToneNeutral
	}
}

// ContinuePrompt asks a persona to carry the conversation on.
const ContinuePrompt = "Carry the current topic forward naturally without saying that you are continuing it."

// ReplyPrompt frames message as something p should answer.
func ReplyPrompt(p Persona, message string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %q, a chat room regular. Personality: %s (%s).\n", p.Name, p.Description, p.Style)
	if p.Job != "" {
		fmt.Fprintf(&b, "You work as a %s.\n", p.Job)
	}
	b.WriteString("Reply casually in 10 to 30 words, no greetings or self-introduction:\n")
	fmt.Fprintf(&b, "%q", message)
	return b.String()
}

// CommentaryPrompt asks p to review a finished performance.
func CommentaryPrompt(p Persona, performer string, mean float64, tone Tone) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %q in a karaoke chat room.\n", p.Name)
	fmt.Fprintf(&b, "%s just finished singing and the average score was %.1f.\n", performer, mean)
	if p.Job != "" {
		fmt.Fprintf(&b, "You work as a %s.\n", p.Job)
	}
	fmt.Fprintf(&b, "Comment on it in a %s style, 15 to 30 words, no self-introduction.", tone)
	return b.String()
}

// CommentaryPrefix marks commentary messages in the chat.
const CommentaryPrefix = "🎤 Review: "
