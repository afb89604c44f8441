package model

import "github.com/cloudwego/eino/schema"

// TurnInput is one user turn submitted to the engine, regardless of entry
// point (HTTP call, cached-history replay, messaging channel).
type TurnInput struct {
	ConversationID string
	Message        string
	CachedHistory  []*schema.Message
}

// TurnResult is everything a single turn produced. The specification and
// sourcing results are only set when the generated reply carried a valid
// fenced specification block.
type TurnResult struct {
	ConversationID  string
	Response        string
	Specification   *FinalizedSpecification
	SourcingResults []SourcingResult
	Messages        []DisplayMessage
}

// IsFinalized reports whether this turn produced a finalized specification.
func (r *TurnResult) IsFinalized() bool {
	return r.Specification != nil
}
