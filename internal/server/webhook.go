package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/procureflow-core/server/internal/agent/model"
	"github.com/procureflow-core/server/internal/channel"
	errx "github.com/procureflow-core/server/internal/core/error"
	logx "github.com/procureflow-core/server/pkg/logger"
)

// fallbackNotification is sent when a turn fails end to end; channel users
// get a reply either way.
const fallbackNotification = "Sorry, something went wrong while processing your message. Please try again."

// webhookTurnTimeout bounds a detached turn, which is no longer tied to the
// inbound request's lifetime.
const webhookTurnTimeout = 2 * time.Minute

// handleWebhook accepts an inbound channel envelope, acknowledges it
// immediately, and runs each deliverable message as a detached turn whose
// result is a notification send rather than a response body.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var envelope channel.Envelope
	if err := json.NewDecoder(r.Body).Decode(&envelope); err != nil {
		writeError(w, errx.New(err, http.StatusBadRequest, "invalid request body"))
		return
	}

	deliverable := envelope.Deliverable(s.channelSelfID)
	for _, msg := range deliverable {
		go s.processChannelMessage(msg)
	}

	writeJSON(w, http.StatusAccepted, map[string]any{"accepted": len(deliverable)})
}

func (s *Server) processChannelMessage(msg channel.InboundMessage) {
	ctx, cancel := context.WithTimeout(context.Background(), webhookTurnTimeout)
	defer cancel()

	// The sender identity doubles as the conversation identifier, so the
	// same store and merge policy apply to channel traffic.
	result, err := s.engine.ProcessTurn(ctx, model.TurnInput{
		ConversationID: msg.From,
		Message:        msg.Text,
	})

	text := fallbackNotification
	if err != nil {
		logx.Error().Err(err).Str("sender", msg.From).Msg("channel turn failed")
	} else {
		text = result.Response
	}

	if s.notifier == nil {
		logx.Warn().Str("sender", msg.From).Msg("no channel notifier configured, dropping reply")
		return
	}
	if err := s.notifier.Send(ctx, msg.From, text); err != nil {
		logx.Error().Err(err).Str("sender", msg.From).Msg("channel notification failed")
	}
}
