package repo

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"

	"github.com/procureflow-core/server/internal/agent/model"
	errx "github.com/procureflow-core/server/internal/core/error"
	logx "github.com/procureflow-core/server/pkg/logger"
)

// MemoryConversationRepository is the default in-memory store. Entries never
// expire; the Redis-backed variant is the drop-in durable replacement.
// Stored conversations are never aliased by callers: every Get and Upsert
// returns a snapshot, and Save stores one, so a lookup served during an
// in-flight turn reads stable state.
type MemoryConversationRepository struct {
	mu            sync.RWMutex
	conversations map[string]*model.Conversation

	instructions string
	rebuild      model.CandidateRebuilder
}

func NewMemoryConversationRepository(instructions string, rebuild model.CandidateRebuilder) *MemoryConversationRepository {
	return &MemoryConversationRepository{
		conversations: make(map[string]*model.Conversation),
		instructions:  instructions,
		rebuild:       rebuild,
	}
}

func (r *MemoryConversationRepository) Get(_ context.Context, conversationID string) (*model.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conv, ok := r.conversations[conversationID]
	if !ok {
		return nil, errx.NotFoundConversation(fmt.Errorf("unknown conversation %q", conversationID))
	}
	return snapshot(conv), nil
}

// snapshot copies the conversation and its log slices. The candidate pointer
// is shared: it is derived state, replaced wholesale on rebuild and never
// mutated in place afterwards.
func snapshot(conv *model.Conversation) *model.Conversation {
	c := *conv
	c.Messages = append([]*schema.Message(nil), conv.Messages...)
	c.Display = append([]model.DisplayMessage(nil), conv.Display...)
	return &c
}

func (r *MemoryConversationRepository) Upsert(_ context.Context, conversationID string, cached []*schema.Message) (*model.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if conversationID == "" {
		conversationID = uuid.New().String()
	}

	conv, ok := r.conversations[conversationID]
	if !ok {
		now := time.Now()
		conv = &model.Conversation{
			ID:        conversationID,
			Messages:  normalizeHistory(cached, r.instructions),
			CreatedAt: now,
		}
		if len(cached) > 0 {
			conv.Display = displayFromHistory(conv.Messages, now)
		}
		conv.Candidate = r.rebuild(conv.Messages)
		r.conversations[conversationID] = conv
		logx.Debug().Str("conversationID", conversationID).Bool("fromCache", len(cached) > 0).Msg("conversation created")
		return snapshot(conv), nil
	}

	// The caller replayed fresher cached turns: adopt them wholesale and
	// rebuild the derived candidate; it is not primary state.
	if len(cached) > 0 {
		conv.Messages = normalizeHistory(cached, r.instructions)
		conv.Candidate = r.rebuild(conv.Messages)
		logx.Debug().Str("conversationID", conversationID).Int("messages", len(conv.Messages)).Msg("conversation history adopted from cache")
	} else if conv.Candidate == nil {
		conv.Candidate = r.rebuild(conv.Messages)
	}

	return snapshot(conv), nil
}

func (r *MemoryConversationRepository) Save(_ context.Context, conv *model.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conversations[conv.ID] = snapshot(conv)
	return nil
}

var _ model.ConversationRepository = (*MemoryConversationRepository)(nil)
