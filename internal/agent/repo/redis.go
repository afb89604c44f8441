package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/procureflow-core/server/internal/agent/model"
	errx "github.com/procureflow-core/server/internal/core/error"
	logx "github.com/procureflow-core/server/pkg/logger"
)

// RedisConversationRepository is the durable store variant. It persists the
// whole conversation state as one JSON blob per key; the candidate is
// rebuilt on load since it is derived state.
type RedisConversationRepository struct {
	rdb redis.Cmdable
	ttl time.Duration

	instructions string
	rebuild      model.CandidateRebuilder
}

func NewRedisConversationRepository(rdb redis.Cmdable, ttl time.Duration, instructions string, rebuild model.CandidateRebuilder) *RedisConversationRepository {
	return &RedisConversationRepository{
		rdb:          rdb,
		ttl:          ttl,
		instructions: instructions,
		rebuild:      rebuild,
	}
}

func (r *RedisConversationRepository) conversationKey(conversationID string) string {
	return fmt.Sprintf("conversation:%s:state", conversationID)
}

func (r *RedisConversationRepository) Get(ctx context.Context, conversationID string) (*model.Conversation, error) {
	key := r.conversationKey(conversationID)

	raw, err := r.rdb.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, errx.NotFoundConversation(fmt.Errorf("unknown conversation %q", conversationID))
		}
		logx.Error().Err(err).Str("key", key).Msg("failed to load conversation from redis")
		return nil, errx.WrapRedis(err)
	}

	var conv model.Conversation
	if err := json.Unmarshal([]byte(raw), &conv); err != nil {
		logx.Error().Err(err).Str("conversationID", conversationID).Msg("failed to unmarshal conversation")
		return nil, fmt.Errorf("unmarshal conversation: %w", err)
	}
	conv.Candidate = r.rebuild(conv.Messages)
	return &conv, nil
}

func (r *RedisConversationRepository) Upsert(ctx context.Context, conversationID string, cached []*schema.Message) (*model.Conversation, error) {
	if conversationID == "" {
		conversationID = uuid.New().String()
	}

	conv, err := r.Get(ctx, conversationID)
	switch {
	case err == nil:
		if len(cached) > 0 {
			conv.Messages = normalizeHistory(cached, r.instructions)
			conv.Candidate = r.rebuild(conv.Messages)
		}
	case errx.StatusOf(err, 0) == http.StatusNotFound:
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
	default:
		return nil, err
	}

	if err := r.Save(ctx, conv); err != nil {
		return nil, err
	}
	return conv, nil
}

func (r *RedisConversationRepository) Save(ctx context.Context, conv *model.Conversation) error {
	b, err := json.Marshal(conv)
	if err != nil {
		logx.Error().Err(err).Str("conversationID", conv.ID).Msg("failed to marshal conversation")
		return fmt.Errorf("marshal conversation: %w", err)
	}
	key := r.conversationKey(conv.ID)

	if err := r.rdb.Set(ctx, key, b, r.ttl).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to write conversation to redis")
		return errx.WrapRedis(err)
	}
	return nil
}

var _ model.ConversationRepository = (*RedisConversationRepository)(nil)
