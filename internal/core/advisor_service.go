package core

import (
	"context"
	"fmt"
	"log"

	"ois.ut.ee/course-advisor/internal/catalog"
	"ois.ut.ee/course-advisor/internal/store"
)

// Cost rates per million tokens for the fixed completion model.
const (
	inputCostPerMTok  = 0.04
	outputCostPerMTok = 0.15
)

// Completer is the completion-service boundary: one streaming call whose
// concatenated deltas become the stored content, and one non-streaming call
// with the identical message list for usage accounting.
type Completer interface {
	StreamChatCompletion(ctx context.Context, messages []ChatMessage, onDelta func(string)) (string, error)
	ChatCompletionUsage(ctx context.Context, messages []ChatMessage) (Usage, error)
}

// AdvisorService orchestrates one conversational turn: filter, rank,
// assemble the prompt, request the completion and persist the session with
// full retrieval provenance.
type AdvisorService struct {
	store     *store.SQLiteStore
	retrieval *RetrievalService
	llm       Completer
}

func NewAdvisorService(db *store.SQLiteStore, retrieval *RetrievalService, llm Completer) *AdvisorService {
	return &AdvisorService{store: db, retrieval: retrieval, llm: llm}
}

func (s *AdvisorService) CreateSession() (*store.Session, error) {
	session := store.NewSession()
	if err := s.store.SaveSession(session); err != nil {
		return nil, fmt.Errorf("failed to persist new session: %w", err)
	}
	return session, nil
}

func (s *AdvisorService) GetSession(id string) (*store.Session, error) {
	return s.store.LoadSession(id)
}

func (s *AdvisorService) ListSessions() ([]store.SessionSummary, error) {
	return s.store.ListSessions()
}

// DeleteSession removes the durable record. When the deleted session was the
// caller's active one, a fresh empty session is created, persisted and
// returned in its place; otherwise the returned session is nil.
func (s *AdvisorService) DeleteSession(id string, active bool) (*store.Session, error) {
	if err := s.store.DeleteSession(id); err != nil {
		return nil, err
	}
	if !active {
		return nil, nil
	}
	return s.CreateSession()
}

// Respond runs the full pipeline for one user query against the identified
// session and returns the updated session together with the new assistant
// turn.
//
// Filters, when given, replace the session's current spec and are captured
// verbatim into the turn's provenance. The deliberate second completion call
// for token counts may generate different text under sampling; only the
// streamed generation is stored.
func (s *AdvisorService) Respond(ctx context.Context, sessionID, query string, filters *catalog.FilterSpec) (*store.Session, *store.Turn, error) {
	session, err := s.store.LoadSession(sessionID)
	if err != nil {
		return nil, nil, err
	}

	spec := session.Filters
	if filters != nil {
		spec = *filters
		session.Filters = spec
	}

	session.AppendTurn(store.NewTurn(store.RoleUser, query))

	retrieval, err := s.retrieval.Retrieve(ctx, query, spec)
	if err != nil {
		return s.failTurn(session, err)
	}

	systemPrompt := BuildSystemPrompt(retrieval.Context)
	messages := outgoingMessages(systemPrompt, session.Turns)

	content, err := s.llm.StreamChatCompletion(ctx, messages, nil)
	if err != nil {
		return s.failTurn(session, err)
	}

	usage, err := s.llm.ChatCompletionUsage(ctx, messages)
	if err != nil {
		// The streamed answer already exists; losing its token counts is an
		// accounting gap, not a failed turn.
		log.Printf("Usage accounting failed for session %s: %v", session.ID, err)
		usage = Usage{}
	}

	turn := store.NewTurn(store.RoleAssistant, content)
	turn.Provenance = &store.Provenance{
		Query:          query,
		Filters:        spec,
		CandidateCount: retrieval.CandidateCount,
		Results:        retrieval.Results,
		SystemPrompt:   systemPrompt,
	}
	session.AppendTurn(turn)

	spent := store.Counters{
		PromptTokens:     usage.PromptTokens,
		CompletionTokens: usage.CompletionTokens,
		Cost:             (float64(usage.PromptTokens)*inputCostPerMTok + float64(usage.CompletionTokens)*outputCostPerMTok) / 1_000_000,
	}
	session.Totals.Add(spent)
	session.LastTurn = spent

	if err := s.store.SaveSession(session); err != nil {
		return nil, nil, fmt.Errorf("failed to persist session %s: %w", session.ID, err)
	}
	return session, &session.Turns[len(session.Turns)-1], nil
}

// failTurn surfaces a pipeline failure as a visible assistant turn with no
// provenance. Counters stay untouched and the session remains usable.
func (s *AdvisorService) failTurn(session *store.Session, cause error) (*store.Session, *store.Turn, error) {
	log.Printf("Turn failed for session %s: %v", session.ID, cause)
	turn := store.NewTurn(store.RoleAssistant, fmt.Sprintf("Error: %v", cause))
	turn.Error = true
	session.AppendTurn(turn)

	if err := s.store.SaveSession(session); err != nil {
		return nil, nil, fmt.Errorf("failed to persist session %s after turn failure: %w", session.ID, err)
	}
	return session, &session.Turns[len(session.Turns)-1], nil
}

// outgoingMessages builds the completion request list: the system message
// followed by the conversation so far. Only role and content survive;
// provenance and other stored fields never leave the process.
func outgoingMessages(systemPrompt string, turns []store.Turn) []ChatMessage {
	messages := make([]ChatMessage, 0, len(turns)+1)
	messages = append(messages, ChatMessage{Role: RoleSystem, Content: systemPrompt})
	for _, t := range turns {
		messages = append(messages, ChatMessage{Role: Role(t.Role), Content: t.Content})
	}
	return messages
}
