// Package server exposes the engine over HTTP: synchronous chat turns,
// conversation lookup, a capability check, and the asynchronous webhook
// entry point.
package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cloudwego/eino/schema"

	"github.com/procureflow-core/server/internal/agent/engine"
	"github.com/procureflow-core/server/internal/agent/model"
	"github.com/procureflow-core/server/internal/channel"
	errx "github.com/procureflow-core/server/internal/core/error"
	logx "github.com/procureflow-core/server/pkg/logger"
)

type Server struct {
	engine   *engine.Engine
	store    model.ConversationRepository
	notifier channel.Notifier

	generatorConfigured bool
	channelSelfID       string
	allowedOrigin       string
}

type Config struct {
	Engine              *engine.Engine
	Store               model.ConversationRepository
	Notifier            channel.Notifier
	GeneratorConfigured bool
	ChannelSelfID       string
	AllowedOrigin       string
}

func New(cfg Config) *Server {
	return &Server{
		engine:              cfg.Engine,
		store:               cfg.Store,
		notifier:            cfg.Notifier,
		generatorConfigured: cfg.GeneratorConfigured,
		channelSelfID:       cfg.ChannelSelfID,
		allowedOrigin:       cfg.AllowedOrigin,
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("GET /api/conversations/{id}", s.handleConversation)
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("POST /webhook", s.handleWebhook)
	return s.cors(mux)
}

// wireMessage is the over-the-wire turn shape for cached history replay.
type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Message        string        `json:"message"`
	ConversationID string        `json:"conversation_id"`
	CachedMessages []wireMessage `json:"cached_messages"`
}

type chatResponse struct {
	ConversationID           string                        `json:"conversation_id"`
	Response                 string                        `json:"response"`
	ProductSpecification     *model.FinalizedSpecification `json:"productSpecification"`
	IsSpecificationFinalized bool                          `json:"isSpecificationFinalized"`
	Messages                 []model.DisplayMessage        `json:"messages"`
	SourcingResults          []model.SourcingResult        `json:"sourcingResults,omitempty"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errx.New(err, http.StatusBadRequest, "invalid request body"))
		return
	}
	if req.Message == "" {
		writeError(w, errx.New(errors.New("empty message"), http.StatusBadRequest, "message is required"))
		return
	}

	result, err := s.engine.ProcessTurn(r.Context(), model.TurnInput{
		ConversationID: req.ConversationID,
		Message:        req.Message,
		CachedHistory:  convertCached(req.CachedMessages),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{
		ConversationID:           result.ConversationID,
		Response:                 result.Response,
		ProductSpecification:     result.Specification,
		IsSpecificationFinalized: result.IsFinalized(),
		Messages:                 result.Messages,
		SourcingResults:          result.SourcingResults,
	})
}

func (s *Server) handleConversation(w http.ResponseWriter, r *http.Request) {
	conv, err := s.store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"conversation_id": conv.ID,
		"messages":        conv.Display,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":               "ok",
		"generator_configured": s.generatorConfigured,
	})
}

func convertCached(wire []wireMessage) []*schema.Message {
	if len(wire) == 0 {
		return nil
	}
	msgs := make([]*schema.Message, 0, len(wire))
	for _, m := range wire {
		if m.Role == "" || m.Content == "" {
			continue
		}
		msgs = append(msgs, &schema.Message{
			Role:    schema.RoleType(m.Role),
			Content: m.Content,
		})
	}
	return msgs
}

func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.allowedOrigin != "" {
			w.Header().Set("Access-Control-Allow-Origin", s.allowedOrigin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Allow-Credentials", "true")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logx.Error().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := errx.StatusOf(err, http.StatusInternalServerError)
	message := errx.SystemErrorMessage
	var app *errx.AppError
	if errors.As(err, &app) {
		message = app.Message
	}
	logx.Error().Err(err).Int("status", status).Msg("request failed")
	writeJSON(w, status, map[string]string{"error": message})
}
