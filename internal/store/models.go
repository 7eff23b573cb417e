package store

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"ois.ut.ee/course-advisor/internal/catalog"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"

	// DefaultTitle is used until the first user message arrives.
	DefaultTitle = "New conversation"

	titleMaxLen = 60
)

// ResultRow is one ranked course in a turn's provenance, without the raw
// embedding vector.
type ResultRow struct {
	CourseID      string  `json:"course_id"`
	Name          string  `json:"name"`
	Credits       float64 `json:"credits"`
	Semester      string  `json:"semester"`
	Grading       string  `json:"grading"`
	City          string  `json:"city"`
	Level         string  `json:"level"`
	Delivery      string  `json:"delivery"`
	Prerequisites string  `json:"prerequisites,omitempty"`
	Score         float64 `json:"score"`
}

// Provenance records exactly what produced an assistant turn. It is written
// once when the turn completes and only ever deserialized afterwards; replay
// never recomputes it.
type Provenance struct {
	Query          string             `json:"query"`
	Filters        catalog.FilterSpec `json:"filters"`
	CandidateCount int                `json:"candidate_count"`
	Results        []ResultRow        `json:"results"` // empty when filtering excluded everything
	SystemPrompt   string             `json:"system_prompt"`
}

// Turn is one role-tagged message. Assistant turns produced by a completed
// pipeline carry provenance; visible failure turns carry none.
type Turn struct {
	ID         string      `json:"id"`
	Role       string      `json:"role"`
	Content    string      `json:"content"`
	CreatedAt  time.Time   `json:"created_at"`
	Error      bool        `json:"error,omitempty"`
	Provenance *Provenance `json:"provenance,omitempty"`
}

// Counters accumulate token usage and cost, both session-wide and for the
// latest completed turn.
type Counters struct {
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	Cost             float64 `json:"cost"`
}

func (c *Counters) Add(other Counters) {
	c.PromptTokens += other.PromptTokens
	c.CompletionTokens += other.CompletionTokens
	c.Cost += other.Cost
}

// Session is the persistent conversation entity. Missing fields in older
// stored documents deserialize to their zero values, which are exactly the
// defaults: zero counters and a match-everything filter spec.
type Session struct {
	ID        string             `json:"id"`
	Title     string             `json:"title"`
	CreatedAt time.Time          `json:"created_at"`
	Turns     []Turn             `json:"turns"`
	Filters   catalog.FilterSpec `json:"filters"`
	Totals    Counters           `json:"totals"`
	LastTurn  Counters           `json:"last_turn"`
}

// SessionSummary is the listing projection of a session.
type SessionSummary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

// NewSession creates an empty session with a creation-time-derived id. The
// uuid suffix keeps two sessions created within the same second distinct
// while preserving newest-first lexicographic ordering of ids.
func NewSession() *Session {
	now := time.Now().UTC()
	return &Session{
		ID:        now.Format("20060102-150405") + "-" + uuid.NewString()[:8],
		Title:     DefaultTitle,
		CreatedAt: now,
	}
}

// NewTurn creates a role-tagged turn with a fresh id and timestamp.
func NewTurn(role, content string) Turn {
	return Turn{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
}

// AppendTurn adds a turn to the session. The first user turn also titles the
// session with its leading characters.
func (s *Session) AppendTurn(turn Turn) {
	if turn.Role == RoleUser && (s.Title == "" || s.Title == DefaultTitle) {
		s.Title = TitleFromPrompt(turn.Content)
	}
	s.Turns = append(s.Turns, turn)
}

// TitleFromPrompt derives a session title from the first user message.
func TitleFromPrompt(prompt string) string {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return DefaultTitle
	}
	runes := []rune(prompt)
	if len(runes) > titleMaxLen {
		return string(runes[:titleMaxLen])
	}
	return prompt
}
