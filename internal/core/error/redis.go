package errx

import (
	"errors"
	"net/http"

	"github.com/redis/go-redis/v9"
)

// WrapRedis maps Redis errors to the unified AppError type with appropriate status codes.
func WrapRedis(err error) *AppError {
	if err == nil {
		return nil
	}

	if errors.Is(err, redis.Nil) {
		return New(err, http.StatusNotFound, RedisNotFoundMessage)
	}

	return New(err, http.StatusBadGateway, RedisErrorMessage)
}

// NotFoundConversation reports a lookup against a conversation identifier the
// store has never seen.
func NotFoundConversation(err error) *AppError {
	return New(err, http.StatusNotFound, ConversationNotFoundMessage)
}
