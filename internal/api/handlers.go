package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"ois.ut.ee/course-advisor/internal/catalog"
	"ois.ut.ee/course-advisor/internal/core"
	"ois.ut.ee/course-advisor/internal/feedback"
	"ois.ut.ee/course-advisor/internal/store"
)

type APIHandler struct {
	advisor  *core.AdvisorService
	feedback *feedback.Logger
}

func NewAPIHandler(advisor *core.AdvisorService, fb *feedback.Logger) *APIHandler {
	return &APIHandler{advisor: advisor, feedback: fb}
}

func (h *APIHandler) CreateSessionHandler(w http.ResponseWriter, r *http.Request) {
	session, err := h.advisor.CreateSession()
	if err != nil {
		log.Printf("Error creating session: %v", err)
		http.Error(w, "Failed to create session", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(session)
}

func (h *APIHandler) ListSessionsHandler(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.advisor.ListSessions()
	if err != nil {
		log.Printf("Error listing sessions: %v", err)
		http.Error(w, "Failed to list sessions", http.StatusInternalServerError)
		return
	}
	if sessions == nil {
		sessions = []store.SessionSummary{}
	}
	json.NewEncoder(w).Encode(sessions)
}

func (h *APIHandler) GetSessionHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	session, err := h.advisor.GetSession(sessionID)
	if err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			http.Error(w, "Session not found", http.StatusNotFound)
			return
		}
		log.Printf("Error loading session %s: %v", sessionID, err)
		http.Error(w, "Failed to load session", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(session)
}

type DeleteSessionResponse struct {
	Deleted     string         `json:"deleted"`
	Replacement *store.Session `json:"replacement,omitempty"`
}

// DeleteSessionHandler removes a session. With ?active=true the caller
// declares it was their current session and receives a fresh empty
// replacement.
func (h *APIHandler) DeleteSessionHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	active := r.URL.Query().Get("active") == "true"

	replacement, err := h.advisor.DeleteSession(sessionID, active)
	if err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			http.Error(w, "Session not found", http.StatusNotFound)
			return
		}
		log.Printf("Error deleting session %s: %v", sessionID, err)
		http.Error(w, "Failed to delete session", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(DeleteSessionResponse{Deleted: sessionID, Replacement: replacement})
}

type PostMessageRequest struct {
	Content string              `json:"content"`
	Filters *catalog.FilterSpec `json:"filters,omitempty"`
}

type PostMessageResponse struct {
	Turn     *store.Turn    `json:"turn"`
	Totals   store.Counters `json:"totals"`
	LastTurn store.Counters `json:"last_turn"`
}

func (h *APIHandler) PostMessageHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req PostMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Content == "" {
		http.Error(w, "Message content cannot be empty", http.StatusBadRequest)
		return
	}

	session, turn, err := h.advisor.Respond(r.Context(), sessionID, req.Content, req.Filters)
	if err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			http.Error(w, "Session not found", http.StatusNotFound)
			return
		}
		log.Printf("Error responding in session %s: %v", sessionID, err)
		http.Error(w, "Failed to process message", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(PostMessageResponse{
		Turn:     turn,
		Totals:   session.Totals,
		LastTurn: session.LastTurn,
	})
}

type FeedbackRequest struct {
	Prompt      string              `json:"prompt"`
	Filters     catalog.FilterSpec  `json:"filters"`
	CourseIDs   []string            `json:"course_ids"`
	CourseNames []string            `json:"course_names"`
	Response    string              `json:"response"`
	Rating      feedback.Rating     `json:"rating"`
	Reason      feedback.ReasonCode `json:"reason,omitempty"`
}

func (h *APIHandler) PostFeedbackHandler(w http.ResponseWriter, r *http.Request) {
	var req FeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	err := h.feedback.Append(feedback.Entry{
		Timestamp:   time.Now(),
		Prompt:      req.Prompt,
		Filters:     req.Filters,
		CourseIDs:   req.CourseIDs,
		CourseNames: req.CourseNames,
		Response:    req.Response,
		Rating:      req.Rating,
		Reason:      req.Reason,
	})
	if err != nil {
		if errors.Is(err, feedback.ErrReasonRequired) || errors.Is(err, feedback.ErrUnknownReason) || errors.Is(err, feedback.ErrInvalidRating) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		log.Printf("Error appending feedback: %v", err)
		http.Error(w, "Failed to record feedback", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
