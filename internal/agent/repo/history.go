// Package repo implements the conversation store: a keyed map from
// conversation identifier to message log, display log, and derived product
// candidate, with a shared merge policy for externally supplied history.
package repo

import (
	"time"

	"github.com/cloudwego/eino/schema"

	"github.com/procureflow-core/server/internal/agent/model"
)

// normalizeHistory enforces the message-log invariant on ingested history:
// exactly one system turn, at index 0. A missing system turn is repaired by
// inserting the canonical instructions; extra or misplaced system turns are
// collapsed into turn 0, keeping the first one's content. The input slice is
// never mutated.
func normalizeHistory(history []*schema.Message, instructions string) []*schema.Message {
	var system *schema.Message
	rest := make([]*schema.Message, 0, len(history))
	for _, msg := range history {
		if msg == nil {
			continue
		}
		if msg.Role == schema.System {
			if system == nil {
				system = msg
			}
			continue
		}
		rest = append(rest, msg)
	}
	if system == nil {
		system = schema.SystemMessage(instructions)
	}

	normalized := make([]*schema.Message, 0, len(rest)+1)
	normalized = append(normalized, system)
	return append(normalized, rest...)
}

// displayFromHistory rebuilds the UI replay log from an adopted message log.
// Cached turns carry no timestamps of their own, so adoption time is used.
func displayFromHistory(history []*schema.Message, at time.Time) []model.DisplayMessage {
	display := make([]model.DisplayMessage, 0, len(history))
	for _, msg := range history {
		if msg == nil || msg.Role == schema.System {
			continue
		}
		display = append(display, model.DisplayMessage{
			Role:      string(msg.Role),
			Content:   msg.Content,
			Timestamp: at,
		})
	}
	return display
}
