// Package parsers extracts structured data out of generated assistant text.
package parsers

import (
	"encoding/json"
	"strings"

	"github.com/procureflow-core/server/internal/agent/model"
	logx "github.com/procureflow-core/server/pkg/logger"
)

const (
	specFenceOpen = "```json"
	fence         = "```"
)

// ParseAssistantReply splits a generated reply into the user-facing message
// and, when present, the finalized specification carried in a fenced json
// block. Parse failures are non-fatal: the full original text is returned as
// the message and no specification is produced.
func ParseAssistantReply(content string) (string, *model.FinalizedSpecification) {
	open := strings.Index(content, specFenceOpen)
	if open < 0 {
		return content, nil
	}

	body := content[open+len(specFenceOpen):]
	if close := strings.Index(body, fence); close >= 0 {
		body = body[:close]
	}
	body = strings.TrimSpace(body)

	if !strings.HasPrefix(body, "{") {
		logx.Debug().Str("component", "reply_parser").Msg("fenced block is not a json object")
		return content, nil
	}

	var spec model.FinalizedSpecification
	if err := json.Unmarshal([]byte(body), &spec); err != nil {
		logx.Warn().Err(err).Str("component", "reply_parser").Msg("malformed specification block, surfacing full reply")
		return content, nil
	}

	return strings.TrimSpace(content[:open]), &spec
}
