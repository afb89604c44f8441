package model

import (
	"context"
	"time"

	"github.com/cloudwego/eino/schema"
)

// Conversation is the unit of state owned by the conversation store. The
// engine borrows it for the duration of one turn and writes it back.
type Conversation struct {
	ID        string            `json:"id"`
	Messages  []*schema.Message `json:"messages"`
	Display   []DisplayMessage  `json:"display"`
	CreatedAt time.Time         `json:"created_at"`

	// Candidate is derived from Messages and rebuilt on load; it is not
	// part of the persisted representation.
	Candidate *ProductCandidate `json:"-"`
}

// DisplayMessage is one turn of the UI replay log, carrying a timestamp the
// raw message log does not have.
type DisplayMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// CandidateRebuilder recomputes the derived ProductCandidate from a message
// log. Stores call it whenever a conversation is loaded or its history is
// replaced, so the candidate never drifts from the log it was derived from.
type CandidateRebuilder func(messages []*schema.Message) *ProductCandidate

// ConversationRepository is the keyed conversation store.
//
// Upsert follows the merge policy for externally supplied history: a missing
// or unknown id mints a fresh conversation; supplied cached turns replace the
// stored message log wholesale; a system turn is inserted at index 0 when the
// supplied history lacks one; the candidate is rebuilt from the adopted log.
//
// Returned conversations are the caller's to mutate: implementations hand out
// copies, so a turn appending to its conversation never races a concurrent
// lookup of the same id.
type ConversationRepository interface {
	// Get retrieves a conversation, or a not-found error for an unknown id.
	Get(ctx context.Context, conversationID string) (*Conversation, error)

	// Upsert returns the conversation for the given id, creating it (and
	// minting an id when empty) as needed. A non-nil cached history replaces
	// the stored message log.
	Upsert(ctx context.Context, conversationID string, cached []*schema.Message) (*Conversation, error)

	// Save writes back a conversation mutated during a turn.
	Save(ctx context.Context, conv *Conversation) error
}
