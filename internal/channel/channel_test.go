package channel

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/procureflow-core/server/internal/agent/model"
)

func TestDeliverableFiltering(t *testing.T) {
	envelope := Envelope{Messages: []InboundMessage{
		{From: "alice", Type: "text", Text: "I want to buy a shed"},
		{From: "alice", Type: "image", Text: "photo.jpg"},
		{From: "agent-self", Type: "text", Text: "echo of our own reply"},
		{From: "", Type: "text", Text: "anonymous"},
		{From: "bob", Type: "text", Text: ""},
	}}

	deliverable := envelope.Deliverable("agent-self")

	require.Len(t, deliverable, 1)
	assert.Equal(t, "alice", deliverable[0].From)
}

func TestDeliverableWithoutSelfID(t *testing.T) {
	envelope := Envelope{Messages: []InboundMessage{
		{From: "agent-self", Type: "text", Text: "hi"},
	}}

	assert.Len(t, envelope.Deliverable(""), 1)
}

func TestHTTPNotifierSend(t *testing.T) {
	var gotAuth string
	var gotPayload outboundPayload
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	n := NewHTTPNotifier(model.ChannelConfig{
		OutboundURL: ts.URL,
		AuthToken:   "secret",
		Timeout:     5,
	})

	err := n.Send(context.Background(), "alice", "your reply")

	require.NoError(t, err)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "alice", gotPayload.To)
	assert.Equal(t, "your reply", gotPayload.Text)
}

func TestHTTPNotifierSendFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer ts.Close()

	n := NewHTTPNotifier(model.ChannelConfig{OutboundURL: ts.URL, Timeout: 5})

	assert.Error(t, n.Send(context.Background(), "alice", "text"))
}

func TestHTTPNotifierUnconfigured(t *testing.T) {
	n := NewHTTPNotifier(model.ChannelConfig{Timeout: 5})

	assert.Error(t, n.Send(context.Background(), "alice", "text"))
}
