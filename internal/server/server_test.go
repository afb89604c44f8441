package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/procureflow-core/server/internal/agent/engine"
	"github.com/procureflow-core/server/internal/agent/extract"
	"github.com/procureflow-core/server/internal/agent/llm"
	"github.com/procureflow-core/server/internal/agent/model"
	"github.com/procureflow-core/server/internal/agent/prompts"
	"github.com/procureflow-core/server/internal/agent/repo"
)

type noopSourcer struct{}

func (noopSourcer) FindOptions(context.Context, *model.FinalizedSpecification) ([]model.SourcingResult, error) {
	return nil, nil
}

type recordingNotifier struct {
	sent chan [2]string
}

func (n *recordingNotifier) Send(_ context.Context, recipient, text string) error {
	n.sent <- [2]string{recipient, text}
	return nil
}

func newTestServer(mock *llm.Mock, notifier *recordingNotifier) *Server {
	pipeline := extract.NewPipeline()
	store := repo.NewMemoryConversationRepository(prompts.SystemInstructions(), pipeline.Rebuild)
	eng := engine.New(engine.Config{
		Store:     store,
		Generator: mock,
		Sourcer:   noopSourcer{},
		Pipeline:  pipeline,
	})
	cfg := Config{
		Engine:              eng,
		Store:               store,
		GeneratorConfigured: true,
		ChannelSelfID:       "agent-self",
		AllowedOrigin:       "http://localhost:4200",
	}
	if notifier != nil {
		cfg.Notifier = notifier
	}
	return New(cfg)
}

func postJSON(t *testing.T, handler http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestChatTurn(t *testing.T) {
	srv := newTestServer(&llm.Mock{Reply: "What size?"}, nil)
	handler := srv.Handler()

	rec := postJSON(t, handler, "/api/chat", map[string]any{
		"message": "I want to buy Pyrus calleryana",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	var resp chatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.ConversationID)
	assert.Equal(t, "What size?", resp.Response)
	assert.False(t, resp.IsSpecificationFinalized)
	assert.Nil(t, resp.ProductSpecification)
	require.Len(t, resp.Messages, 2)
	assert.Equal(t, "http://localhost:4200", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestChatTurnWithCachedHistory(t *testing.T) {
	srv := newTestServer(&llm.Mock{Reply: "Welcome back."}, nil)
	handler := srv.Handler()

	rec := postJSON(t, handler, "/api/chat", map[string]any{
		"message": "is it still available?",
		"cached_messages": []map[string]string{
			{"role": "user", "content": "I want to buy Pyrus calleryana"},
			{"role": "assistant", "content": "Noted."},
		},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	var resp chatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	// adopted history turns plus the new exchange
	assert.Len(t, resp.Messages, 4)
}

func TestChatRejectsEmptyMessage(t *testing.T) {
	srv := newTestServer(&llm.Mock{}, nil)

	rec := postJSON(t, srv.Handler(), "/api/chat", map[string]any{"message": ""})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestConversationLookup(t *testing.T) {
	srv := newTestServer(&llm.Mock{Reply: "Sure."}, nil)
	handler := srv.Handler()

	rec := postJSON(t, handler, "/api/chat", map[string]any{"message": "hello"})
	require.Equal(t, http.StatusOK, rec.Code)
	var resp chatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	req := httptest.NewRequest(http.MethodGet, "/api/conversations/"+resp.ConversationID, nil)
	lookup := httptest.NewRecorder()
	handler.ServeHTTP(lookup, req)

	require.Equal(t, http.StatusOK, lookup.Code)
	var body struct {
		ConversationID string                 `json:"conversation_id"`
		Messages       []model.DisplayMessage `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(lookup.Body.Bytes(), &body))
	assert.Equal(t, resp.ConversationID, body.ConversationID)
	assert.Len(t, body.Messages, 2)
}

func TestConversationLookupUnknown(t *testing.T) {
	srv := newTestServer(&llm.Mock{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/conversations/no-such-id", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(&llm.Mock{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["generator_configured"])
}

func TestWebhookProcessesTextMessages(t *testing.T) {
	notifier := &recordingNotifier{sent: make(chan [2]string, 1)}
	srv := newTestServer(&llm.Mock{Reply: "Hello Alice."}, notifier)

	rec := postJSON(t, srv.Handler(), "/webhook", map[string]any{
		"messages": []map[string]string{
			{"from": "alice", "type": "text", "text": "I want to buy a shed"},
			{"from": "agent-self", "type": "text", "text": "our own echo"},
			{"from": "alice", "type": "image", "text": "photo"},
		},
	})

	require.Equal(t, http.StatusAccepted, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.EqualValues(t, 1, body["accepted"])

	select {
	case sent := <-notifier.sent:
		assert.Equal(t, "alice", sent[0])
		assert.Equal(t, "Hello Alice.", sent[1])
	case <-time.After(2 * time.Second):
		t.Fatal("expected a channel notification")
	}
}

type failingStore struct{}

func (failingStore) Get(context.Context, string) (*model.Conversation, error) {
	return nil, errors.New("store down")
}

func (failingStore) Upsert(context.Context, string, []*schema.Message) (*model.Conversation, error) {
	return nil, errors.New("store down")
}

func (failingStore) Save(context.Context, *model.Conversation) error {
	return errors.New("store down")
}

func TestWebhookFailedTurnSendsFallback(t *testing.T) {
	notifier := &recordingNotifier{sent: make(chan [2]string, 1)}
	eng := engine.New(engine.Config{
		Store:     failingStore{},
		Generator: &llm.Mock{Reply: "ok"},
		Sourcer:   noopSourcer{},
	})
	srv := New(Config{
		Engine:        eng,
		Store:         failingStore{},
		Notifier:      notifier,
		ChannelSelfID: "agent-self",
	})

	rec := postJSON(t, srv.Handler(), "/webhook", map[string]any{
		"messages": []map[string]string{
			{"from": "bob", "type": "text", "text": "hello"},
		},
	})

	require.Equal(t, http.StatusAccepted, rec.Code)
	select {
	case sent := <-notifier.sent:
		assert.Equal(t, "bob", sent[0])
		assert.Equal(t, fallbackNotification, sent[1])
	case <-time.After(2 * time.Second):
		t.Fatal("expected a channel notification")
	}
}

func TestWebhookRejectsMalformedEnvelope(t *testing.T) {
	srv := newTestServer(&llm.Mock{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(&llm.Mock{}, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/chat", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:4200", rec.Header().Get("Access-Control-Allow-Origin"))
}
