package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashureev/datadesk/internal/conversation"
	"github.com/ashureev/datadesk/internal/domain"
	"github.com/ashureev/datadesk/internal/knowledge"
	"github.com/ashureev/datadesk/internal/session"
)

type fakeRepo struct {
	mu      sync.Mutex
	records []*domain.Interaction
	pingErr error
}

func (f *fakeRepo) RecordInteraction(_ context.Context, it *domain.Interaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *it
	f.records = append(f.records, &cp)
	return nil
}

func (f *fakeRepo) ListInteractions(_ context.Context, sessionID string, limit int) ([]*domain.Interaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Interaction
	for i := len(f.records) - 1; i >= 0; i-- {
		if f.records[i].SessionID == sessionID {
			out = append(out, f.records[i])
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeRepo) IntentStats(_ context.Context) ([]domain.IntentCount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := map[string]int64{}
	var order []string
	for _, r := range f.records {
		if _, ok := counts[r.Intent]; !ok {
			order = append(order, r.Intent)
		}
		counts[r.Intent]++
	}
	out := make([]domain.IntentCount, 0, len(order))
	for _, intent := range order {
		out = append(out, domain.IntentCount{Intent: intent, Count: counts[intent]})
	}
	return out, nil
}

func (f *fakeRepo) Ping(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pingErr
}

func (f *fakeRepo) Close() error { return nil }

type testServer struct {
	*httptest.Server
	sessions *session.Registry
	repo     *fakeRepo
}

func newTestServer(t *testing.T, withRepo bool, limit int) *testServer {
	t.Helper()

	repo := &fakeRepo{}
	var recorder conversation.Recorder
	if withRepo {
		recorder = repo
	}

	reg := session.NewRegistry(func(id string) (*conversation.Controller, error) {
		opts := []conversation.Option{conversation.WithSessionID(id)}
		if recorder != nil {
			opts = append(opts, conversation.WithRecorder(recorder, id))
		}
		return conversation.NewController(conversation.NewDelayedResponder(nil, 0), opts...)
	})
	t.Cleanup(reg.CloseAll)

	limiter := NewRateLimiter(limit, time.Minute)
	t.Cleanup(limiter.Close)

	deps := Deps{Sessions: reg, Limiter: limiter}
	if withRepo {
		deps.Repo = repo
	}
	srv := httptest.NewServer(NewRouter(NewHandler(deps), RouterConfig{AllowedOrigins: []string{"*"}}))
	t.Cleanup(srv.Close)

	return &testServer{Server: srv, sessions: reg, repo: repo}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, s.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]interface{}
	if resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp, out
}

func (s *testServer) createSession(t *testing.T) string {
	t.Helper()
	resp, body := s.do(t, http.MethodPost, "/api/sessions", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	id, _ := body["session_id"].(string)
	require.NotEmpty(t, id)
	return id
}

func (s *testServer) waitIdle(t *testing.T, id string) {
	t.Helper()
	sess, err := s.sessions.Get(id)
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, sess.Controller.WaitIdle(ctx))
}

func messages(t *testing.T, body map[string]interface{}) []map[string]interface{} {
	t.Helper()
	state, ok := body["state"].(map[string]interface{})
	require.True(t, ok, "missing state in %v", body)
	raw, _ := state["messages"].([]interface{})
	out := make([]map[string]interface{}, 0, len(raw))
	for _, m := range raw {
		out = append(out, m.(map[string]interface{}))
	}
	return out
}

func TestRouter_HealthEndpoints(t *testing.T) {
	srv := newTestServer(t, true, 10)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp2, body := srv.do(t, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, resp2.StatusCode)
	assert.Equal(t, "healthy", body["status"])
	assert.EqualValues(t, 4, body["intents"])
}

func TestRouter_HealthDegradedWhenStoreDown(t *testing.T) {
	srv := newTestServer(t, true, 10)
	srv.repo.mu.Lock()
	srv.repo.pingErr = errors.New("down")
	srv.repo.mu.Unlock()

	resp, body := srv.do(t, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "degraded", body["status"])
}

func TestHealth_LogsToHandlerLogger(t *testing.T) {
	reg := session.NewRegistry(func(id string) (*conversation.Controller, error) {
		return conversation.NewController(conversation.NewDelayedResponder(nil, 0))
	})
	t.Cleanup(reg.CloseAll)

	var logs bytes.Buffer
	h := NewHandler(Deps{
		Sessions: reg,
		Repo:     &fakeRepo{pingErr: errors.New("down")},
		Logger:   slog.New(slog.NewTextHandler(&logs, nil)),
	})

	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, logs.String(), "Health check failed")
}

func TestRouter_QuickActions(t *testing.T) {
	srv := newTestServer(t, false, 10)

	resp, body := srv.do(t, http.MethodGet, "/api/quick-actions", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []interface{}{"如何上傳數據？", "怎麼創建圖表？", "數據篩選方法"}, body["quick_actions"])
}

func TestRouter_Knowledge(t *testing.T) {
	srv := newTestServer(t, false, 10)

	resp, body := srv.do(t, http.MethodGet, "/api/knowledge", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	intents, _ := body["intents"].([]interface{})
	require.Len(t, intents, 4)
	assert.Equal(t, knowledge.IntentDataUpload, intents[0].(map[string]interface{})["intent"])

	resp, body = srv.do(t, http.MethodGet, "/api/knowledge/chart_creation", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, knowledge.IntentChartCreation, body["intent"])
	assert.Contains(t, body["html"], "<ol>")

	resp, body = srv.do(t, http.MethodGet, "/api/knowledge/nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "intent not found", body["error"])
}

func TestRouter_Match(t *testing.T) {
	srv := newTestServer(t, false, 10)

	resp, body := srv.do(t, http.MethodPost, "/api/match", map[string]string{"message": "怎麼創建圖表？"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, knowledge.IntentChartCreation, body["intent"])
	assert.Equal(t, false, body["fallback"])
	assert.EqualValues(t, 1, body["score"])

	resp, body = srv.do(t, http.MethodPost, "/api/match", map[string]string{"message": "hello"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["fallback"])
	assert.Contains(t, body["response"], `"hello"`)

	resp, _ = srv.do(t, http.MethodPost, "/api/match", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRouter_SessionConversation(t *testing.T) {
	srv := newTestServer(t, true, 10)
	id := srv.createSession(t)

	resp, body := srv.do(t, http.MethodGet, "/api/sessions/"+id, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	msgs := messages(t, body)
	require.Len(t, msgs, 1)
	assert.Equal(t, conversation.Greeting, msgs[0]["content"])

	resp, body = srv.do(t, http.MethodPost, "/api/sessions/"+id+"/messages", map[string]string{"content": "怎麼創建圖表？"})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, true, body["accepted"])

	srv.waitIdle(t, id)

	_, body = srv.do(t, http.MethodGet, "/api/sessions/"+id, nil)
	msgs = messages(t, body)
	require.Len(t, msgs, 3)
	assert.Equal(t, "user", msgs[1]["role"])
	assert.Equal(t, "assistant", msgs[2]["role"])
	entry, _ := knowledge.Default().Lookup(knowledge.IntentChartCreation)
	assert.Equal(t, entry.Response, msgs[2]["content"])
	assert.Equal(t, false, body["state"].(map[string]interface{})["composing"])
}

func TestRouter_BlankMessageNotAccepted(t *testing.T) {
	srv := newTestServer(t, false, 10)
	id := srv.createSession(t)

	resp, body := srv.do(t, http.MethodPost, "/api/sessions/"+id+"/messages", map[string]string{"content": "   "})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["accepted"])
	assert.Len(t, messages(t, body), 1)
}

func TestRouter_QuickActionAndInput(t *testing.T) {
	srv := newTestServer(t, false, 10)
	id := srv.createSession(t)

	resp, body := srv.do(t, http.MethodPost, "/api/sessions/"+id+"/quick-actions", map[string]string{"label": "數據篩選方法"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	state := body["state"].(map[string]interface{})
	assert.Equal(t, "數據篩選方法", state["pending_input"])
	assert.Len(t, messages(t, body), 1)

	resp, body = srv.do(t, http.MethodPost, "/api/sessions/"+id+"/quick-actions", map[string]string{"label": "bogus"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "unknown quick action", body["error"])

	resp, body = srv.do(t, http.MethodPut, "/api/sessions/"+id+"/input", map[string]string{"content": "draft"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "draft", body["state"].(map[string]interface{})["pending_input"])
}

func TestRouter_RateLimit(t *testing.T) {
	srv := newTestServer(t, false, 1)
	id := srv.createSession(t)

	resp, _ := srv.do(t, http.MethodPost, "/api/sessions/"+id+"/messages", map[string]string{"content": "upload"})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	resp, body := srv.do(t, http.MethodPost, "/api/sessions/"+id+"/messages", map[string]string{"content": "chart"})
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "rate limit exceeded", body["error"])

	other := srv.createSession(t)
	resp, _ = srv.do(t, http.MethodPost, "/api/sessions/"+other+"/messages", map[string]string{"content": "chart"})
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
}

func TestRouter_DeleteSession(t *testing.T) {
	srv := newTestServer(t, false, 10)
	id := srv.createSession(t)

	resp, _ := srv.do(t, http.MethodDelete, "/api/sessions/"+id, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, body := srv.do(t, http.MethodGet, "/api/sessions/"+id, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "session not found", body["error"])

	resp, _ = srv.do(t, http.MethodDelete, "/api/sessions/"+id, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRouter_InteractionsAndStats(t *testing.T) {
	srv := newTestServer(t, true, 10)
	id := srv.createSession(t)

	for _, q := range []string{"upload data", "create chart", "asdf"} {
		resp, _ := srv.do(t, http.MethodPost, "/api/sessions/"+id+"/messages", map[string]string{"content": q})
		require.Equal(t, http.StatusAccepted, resp.StatusCode)
	}
	srv.waitIdle(t, id)

	// Recording happens right after the reply is published.
	require.Eventually(t, func() bool {
		srv.repo.mu.Lock()
		defer srv.repo.mu.Unlock()
		return len(srv.repo.records) == 3
	}, 2*time.Second, 10*time.Millisecond)

	resp, body := srv.do(t, http.MethodGet, "/api/sessions/"+id+"/interactions?limit=2", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	items := body["interactions"].([]interface{})
	require.Len(t, items, 2)
	assert.Equal(t, "asdf", items[0].(map[string]interface{})["utterance"])

	resp, _ = srv.do(t, http.MethodGet, "/api/sessions/"+id+"/interactions?limit=x", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = srv.do(t, http.MethodGet, "/api/stats/intents", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	stats := body["stats"].([]interface{})
	require.Len(t, stats, 3)
	assert.Equal(t, "fallback", stats[2].(map[string]interface{})["label"])
}

func TestRouter_StoreDisabled(t *testing.T) {
	srv := newTestServer(t, false, 10)
	id := srv.createSession(t)

	resp, _ := srv.do(t, http.MethodGet, "/api/stats/intents", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp, _ = srv.do(t, http.MethodGet, "/api/sessions/"+id+"/interactions", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
