// Package channel handles the asynchronous messaging-channel boundary:
// decoding inbound webhook envelopes and delivering outbound notifications
// to a sender identity.
package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/procureflow-core/server/internal/agent/model"
)

// messageTypeText is the only inbound message type the agent processes.
const messageTypeText = "text"

// InboundMessage is one message inside an inbound envelope.
type InboundMessage struct {
	From string `json:"from"`
	Type string `json:"type"`
	Text string `json:"text"`
}

// Envelope is the inbound webhook payload: one or more messages, each with
// sender identity and type.
type Envelope struct {
	Messages []InboundMessage `json:"messages"`
}

// Deliverable filters the envelope down to plain-text messages that were not
// authored by the system itself.
func (e Envelope) Deliverable(selfID string) []InboundMessage {
	out := make([]InboundMessage, 0, len(e.Messages))
	for _, m := range e.Messages {
		if m.Type != messageTypeText || m.Text == "" || m.From == "" {
			continue
		}
		if selfID != "" && m.From == selfID {
			continue
		}
		out = append(out, m)
	}
	return out
}

// Notifier delivers a single text payload addressed to a sender identity.
type Notifier interface {
	Send(ctx context.Context, recipient, text string) error
}

// HTTPNotifier posts outbound payloads to the channel's delivery endpoint.
type HTTPNotifier struct {
	cfg    model.ChannelConfig
	client *http.Client
}

func NewHTTPNotifier(cfg model.ChannelConfig) *HTTPNotifier {
	return &HTTPNotifier{
		cfg:    cfg,
		client: &http.Client{Timeout: time.Duration(cfg.Timeout) * time.Second},
	}
}

type outboundPayload struct {
	To   string `json:"to"`
	Text string `json:"text"`
}

func (n *HTTPNotifier) Send(ctx context.Context, recipient, text string) error {
	if n.cfg.OutboundURL == "" {
		return fmt.Errorf("channel outbound url not configured")
	}

	body, err := json.Marshal(outboundPayload{To: recipient, Text: text})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.cfg.OutboundURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if n.cfg.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+n.cfg.AuthToken)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return fmt.Errorf("channel delivery returned %d: %s", resp.StatusCode, string(snippet))
	}
	return nil
}

var _ Notifier = (*HTTPNotifier)(nil)
