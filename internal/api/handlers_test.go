package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"ois.ut.ee/course-advisor/internal/catalog"
	"ois.ut.ee/course-advisor/internal/core"
	"ois.ut.ee/course-advisor/internal/feedback"
	"ois.ut.ee/course-advisor/internal/store"
	"ois.ut.ee/course-advisor/internal/utils"
)

type stubEmbedder struct{}

func (stubEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

type stubCompleter struct{}

func (stubCompleter) StreamChatCompletion(ctx context.Context, messages []core.ChatMessage, onDelta func(string)) (string, error) {
	return "Take Course A.", nil
}

func (stubCompleter) ChatCompletionUsage(ctx context.Context, messages []core.ChatMessage) (core.Usage, error) {
	return core.Usage{PromptTokens: 100, CompletionTokens: 20}, nil
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	db, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	vec := []float32{1, 0}
	cat := &catalog.Catalog{
		Dimension: 2,
		Courses: []catalog.Course{
			{ID: "A", Name: "Course A", Credits: 6, Semester: "spring", Embedding: vec, Norm: utils.Norm(vec)},
		},
	}
	advisor := core.NewAdvisorService(db, core.NewRetrievalService(cat, stubEmbedder{}), stubCompleter{})
	fb := feedback.NewLogger(filepath.Join(t.TempDir(), "feedback.csv"))

	srv := httptest.NewServer(NewRouter(NewAPIHandler(advisor, fb)))
	t.Cleanup(srv.Close)
	return srv
}

func createSession(t *testing.T, srv *httptest.Server) store.Session {
	t.Helper()
	resp, err := http.Post(srv.URL+"/api/sessions", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var session store.Session
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&session))
	return session
}

func TestSessionLifecycle(t *testing.T) {
	srv := newTestServer(t)
	session := createSession(t, srv)
	assert.NotEmpty(t, session.ID)
	assert.Equal(t, store.DefaultTitle, session.Title)

	// Post a message and get the assistant turn back.
	body := strings.NewReader(`{"content":"something about programming","filters":{"semesters":["spring"]}}`)
	resp, err := http.Post(srv.URL+"/api/sessions/"+session.ID+"/messages", "application/json", body)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var posted PostMessageResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&posted))
	assert.Equal(t, "Take Course A.", posted.Turn.Content)
	require.NotNil(t, posted.Turn.Provenance)
	assert.Equal(t, 1, posted.Turn.Provenance.CandidateCount)
	assert.Equal(t, 100, posted.Totals.PromptTokens)

	// The session shows up in the listing with its derived title.
	resp, err = http.Get(srv.URL + "/api/sessions")
	require.NoError(t, err)
	defer resp.Body.Close()
	var listed []store.SessionSummary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&listed))
	require.Len(t, listed, 1)
	assert.Equal(t, "something about programming", listed[0].Title)
}

func TestPostMessageValidation(t *testing.T) {
	srv := newTestServer(t)
	session := createSession(t, srv)

	resp, err := http.Post(srv.URL+"/api/sessions/"+session.ID+"/messages", "application/json", strings.NewReader(`{"content":""}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Post(srv.URL+"/api/sessions/unknown/messages", "application/json", strings.NewReader(`{"content":"hi"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDeleteActiveSessionReturnsReplacement(t *testing.T) {
	srv := newTestServer(t)
	session := createSession(t, srv)

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/api/sessions/"+session.ID+"?active=true", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var deleted DeleteSessionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&deleted))
	assert.Equal(t, session.ID, deleted.Deleted)
	require.NotNil(t, deleted.Replacement)
	assert.NotEqual(t, session.ID, deleted.Replacement.ID)
	assert.Empty(t, deleted.Replacement.Turns)
}

func TestFeedbackPreconditions(t *testing.T) {
	srv := newTestServer(t)

	bad := `{"prompt":"q","response":"a","rating":"bad"}`
	resp, err := http.Post(srv.URL+"/api/feedback", "application/json", strings.NewReader(bad))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	good := `{"prompt":"q","response":"a","rating":"bad","reason":"irrelevant_courses","course_ids":["A"],"course_names":["Course A"]}`
	resp, err = http.Post(srv.URL+"/api/feedback", "application/json", strings.NewReader(good))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}
