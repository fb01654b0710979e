package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ustc-compiler/gitlab-scripts/internal/prompts"
	"github.com/ustc-compiler/gitlab-scripts/internal/providers/gitlab"
	"github.com/ustc-compiler/gitlab-scripts/internal/reply"
)

const botID = 7

// fakeLLM answers the two prompts the composer sends.
type fakeLLM struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeLLM) Respond(ctx context.Context, system, user string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if strings.Contains(user, "关键词") {
		return "parser, lexer", nil
	}
	return "Check the grammar first.", nil
}

// fakeGitLab is an in-process GitLab API serving the endpoints the bot uses.
type fakeGitLab struct {
	mu       sync.Mutex
	posts    []string
	postPath []string
	failPost bool
}

func (f *fakeGitLab) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v4/users/99", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"id": 99, "username": "alice"})
	})
	mux.HandleFunc("/api/v4/projects/1/search", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "issues", r.URL.Query().Get("scope"))
		writeJSON(w, http.StatusOK, []map[string]interface{}{
			{"iid": 3, "title": "Parser crash", "web_url": "https://gitlab.example.com/q/-/issues/3"},
		})
	})
	mux.HandleFunc("/api/v4/projects/1/issues/42/notes", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		raw, _ := io.ReadAll(r.Body)
		var body struct {
			Body string `json:"body"`
		}
		_ = json.Unmarshal(raw, &body)

		f.mu.Lock()
		f.posts = append(f.posts, body.Body)
		f.postPath = append(f.postPath, r.URL.Path)
		fail := f.failPost
		f.mu.Unlock()

		if fail {
			writeJSON(w, http.StatusForbidden, map[string]string{"message": "403 Forbidden"})
			return
		}
		writeJSON(w, http.StatusCreated, map[string]interface{}{"id": 1001, "body": body.Body})
	})
	return mux
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type harness struct {
	server *Server
	llm    *fakeLLM
	gitlab *fakeGitLab
}

func newHarness(t *testing.T, secret string) *harness {
	t.Helper()
	gl := &fakeGitLab{}
	srv := httptest.NewServer(gl.handler(t))
	t.Cleanup(srv.Close)

	provider, err := gitlab.New(gitlab.GitLabConfig{URL: srv.URL, Token: "test-token"})
	require.NoError(t, err)

	llm := &fakeLLM{}
	composer := reply.NewComposer(llm, provider, reply.Config{BotName: "compilerh-course-bot", SearchLimit: 20})
	dispatcher := NewDispatcher(composer, provider, DispatcherConfig{
		Bot:     BotUser{ID: botID, Username: "compilerh-course-bot"},
		Project: "1",
	})

	return &harness{
		server: NewServer(dispatcher, ServerConfig{Addr: "127.0.0.1:0", WebhookSecret: secret}),
		llm:    llm,
		gitlab: gl,
	}
}

func notePayload(authorID int, note string) map[string]interface{} {
	return map[string]interface{}{
		"object_kind": "note",
		"event_type":  "note",
		"user":        map[string]interface{}{"id": authorID, "username": "payload-user"},
		"project":     map[string]interface{}{"id": 1},
		"object_attributes": map[string]interface{}{
			"id":            9,
			"note":          note,
			"noteable_type": "Issue",
			"author_id":     authorID,
			"action":        "create",
			"url":           "https://gitlab.example.com/q/-/issues/42#note_9",
		},
		"issue": map[string]interface{}{
			"iid":         42,
			"title":       "Grammar conflict",
			"description": "Shift/reduce conflict in my grammar",
		},
	}
}

func (h *harness) post(t *testing.T, body string, headers map[string]string) (*httptest.ResponseRecorder, map[string]string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/gitlab_webhook", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.server.Handler().ServeHTTP(rec, req)

	var response map[string]string
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	}
	return rec, response
}

func mustJSON(t *testing.T, v interface{}) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

func TestGitLabWebhookHandler_RepliesToMention(t *testing.T) {
	h := newHarness(t, "")

	rec, response := h.post(t, mustJSON(t, notePayload(99, "@compilerh-course-bot why does this conflict?")), nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", response["status"])
	assert.Equal(t, 2, h.llm.calls)

	require.Len(t, h.gitlab.posts, 1)
	assert.Equal(t, "/api/v4/projects/1/issues/42/notes", h.gitlab.postPath[0])
	posted := h.gitlab.posts[0]
	assert.True(t, strings.HasPrefix(posted, prompts.ReplyGreeting+"alice"))
	assert.Contains(t, posted, "Check the grammar first.")
	assert.Contains(t, posted, "parser, lexer")
	assert.Contains(t, posted, "- [#3 Parser crash](https://gitlab.example.com/q/-/issues/3)")
}

func TestGitLabWebhookHandler_Ignored(t *testing.T) {
	noIssue := notePayload(99, "@compilerh-course-bot hi")
	delete(noIssue, "issue")

	nullIssue := notePayload(99, "@compilerh-course-bot hi")
	nullIssue["issue"] = nil

	push := notePayload(99, "@compilerh-course-bot hi")
	push["object_kind"] = "push"

	closed := notePayload(99, "@compilerh-course-bot hi")
	closed["object_attributes"].(map[string]interface{})["action"] = "delete"

	tests := []struct {
		name    string
		payload map[string]interface{}
	}{
		{"missing issue", noIssue},
		{"null issue", nullIssue},
		{"wrong object kind", push},
		{"bot authored", notePayload(botID, "@compilerh-course-bot see above")},
		{"no mention", notePayload(99, "just a comment")},
		{"unsupported action", closed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, "")
			rec, response := h.post(t, mustJSON(t, tt.payload), nil)

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "ignored", response["status"])
			assert.NotEmpty(t, response["reason"])
			assert.Zero(t, h.llm.calls)
			assert.Empty(t, h.gitlab.posts)
		})
	}
}

func TestGitLabWebhookHandler_BadBodies(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status string
	}{
		{"empty", "", "no data"},
		{"empty object", "{}", "no data"},
		{"empty array", "[]", "no data"},
		{"null", "null", "no data"},
		{"non-empty array", `[{"object_kind":"note"}]`, "bad request"},
		{"not json", "hello", "bad request"},
		{"wrong type", `{"object_kind": 5}`, "bad request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, "")
			rec, response := h.post(t, tt.body, nil)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.status, response["status"])
			assert.Zero(t, h.llm.calls)
		})
	}
}

func TestGitLabWebhookHandler_Secret(t *testing.T) {
	body := notePayload(99, "@compilerh-course-bot hi")

	h := newHarness(t, "s3cret")
	rec, response := h.post(t, mustJSON(t, body), map[string]string{headerGitLabToken: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", response["status"])
	assert.Zero(t, h.llm.calls)

	rec, _ = h.post(t, mustJSON(t, body), nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, response = h.post(t, mustJSON(t, body), map[string]string{headerGitLabToken: "s3cret"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", response["status"])
	assert.Len(t, h.gitlab.posts, 1)
}

func TestGitLabWebhookHandler_PostFailure(t *testing.T) {
	h := newHarness(t, "")
	h.gitlab.failPost = true

	rec, response := h.post(t, mustJSON(t, notePayload(99, "@compilerh-course-bot hi")), nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "error", response["status"])
	assert.Equal(t, string(reply.StagePost), response["stage"])
}

func TestHealth(t *testing.T) {
	h := newHarness(t, "")
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
}

type stubComposer struct {
	requests []reply.Request
}

func (s *stubComposer) Compose(ctx context.Context, req reply.Request) *reply.Result {
	s.requests = append(s.requests, req)
	return &reply.Result{Posted: true, NoteID: 5}
}

type failingUsers struct{}

func (failingUsers) GetUser(ctx context.Context, id int) (*gitlab.User, error) {
	return nil, errors.New("boom")
}

func TestDispatch_FallsBackToPayloadUserAndProject(t *testing.T) {
	raw := notePayload(99, "@bot hello")
	raw["project"] = map[string]interface{}{}
	payload, err := ParseNoteWebhook([]byte(mustJSON(t, raw)))
	require.NoError(t, err)

	composer := &stubComposer{}
	d := NewDispatcher(composer, failingUsers{}, DispatcherConfig{
		Bot:     BotUser{ID: botID, Username: "bot"},
		Project: "course/questions",
	})

	outcome := d.Dispatch(context.Background(), payload)
	assert.Equal(t, OutcomeReplied, outcome.Status)
	assert.Equal(t, 5, outcome.NoteID)

	require.Len(t, composer.requests, 1)
	req := composer.requests[0]
	assert.Equal(t, "payload-user", req.Author)
	assert.Equal(t, "course/questions", req.Project)
	assert.Equal(t, 42, req.IssueIID)
	assert.Equal(t, "Grammar conflict", req.Title)
}

// slowComposer takes longer than the webhook client is willing to wait.
type slowComposer struct {
	delay time.Duration
	done  chan error
}

func (s *slowComposer) Compose(ctx context.Context, req reply.Request) *reply.Result {
	select {
	case <-time.After(s.delay):
		s.done <- nil
		return &reply.Result{Posted: true, NoteID: 5}
	case <-ctx.Done():
		s.done <- ctx.Err()
		return &reply.Result{Stage: reply.StageAnswer, Err: ctx.Err()}
	}
}

func TestGitLabWebhookHandler_ReplyOutlivesClientDisconnect(t *testing.T) {
	composer := &slowComposer{delay: 500 * time.Millisecond, done: make(chan error, 1)}
	dispatcher := NewDispatcher(composer, failingUsers{}, DispatcherConfig{
		Bot:          BotUser{ID: botID, Username: "compilerh-course-bot"},
		Project:      "1",
		ReplyTimeout: 5 * time.Second,
	})
	srv := httptest.NewServer(NewServer(dispatcher, ServerConfig{}).Handler())
	t.Cleanup(srv.Close)

	client := &http.Client{Timeout: 100 * time.Millisecond}
	body := mustJSON(t, notePayload(99, "@compilerh-course-bot hi"))
	_, err := client.Post(srv.URL+"/gitlab_webhook", "application/json", strings.NewReader(body))
	require.Error(t, err)

	select {
	case err := <-composer.done:
		assert.NoError(t, err, "reply was cancelled with the webhook request")
	case <-time.After(3 * time.Second):
		t.Fatal("composer never finished")
	}
}

func TestDispatch_ReplyTimeoutBoundsCompose(t *testing.T) {
	composer := &slowComposer{delay: time.Second, done: make(chan error, 1)}
	d := NewDispatcher(composer, failingUsers{}, DispatcherConfig{
		Bot:          BotUser{ID: botID, Username: "bot"},
		Project:      "1",
		ReplyTimeout: 50 * time.Millisecond,
	})
	payload, err := ParseNoteWebhook([]byte(mustJSON(t, notePayload(99, "@bot hi"))))
	require.NoError(t, err)

	outcome := d.Dispatch(context.Background(), payload)
	assert.Equal(t, OutcomeFailed, outcome.Status)
	assert.ErrorIs(t, <-composer.done, context.DeadlineExceeded)
}
