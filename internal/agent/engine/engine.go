// Package engine is the per-turn orchestration controller. Each turn
// re-derives its path from the current message log and the new user turn:
// gather by default, finalize when the user signals completion, source when
// the generated reply carries a parsed specification.
package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"

	"github.com/procureflow-core/server/internal/agent/extract"
	"github.com/procureflow-core/server/internal/agent/intent"
	"github.com/procureflow-core/server/internal/agent/llm"
	"github.com/procureflow-core/server/internal/agent/model"
	"github.com/procureflow-core/server/internal/agent/parsers"
	"github.com/procureflow-core/server/internal/agent/prompts"
	"github.com/procureflow-core/server/internal/agent/sourcing"
	logx "github.com/procureflow-core/server/pkg/logger"
)

// finalizePhrase triggers finalization even outside the classifier's trigger
// table.
const finalizePhrase = "give me the specification"

// Config wires the engine's collaborators.
type Config struct {
	Store     model.ConversationRepository
	Generator llm.Client
	Sourcer   sourcing.Sourcer

	// Classifier and Pipeline default to the standard tables when nil.
	Classifier *intent.Classifier
	Pipeline   *extract.Pipeline

	// MaxSourcingResults caps the listings attached to a turn's output.
	MaxSourcingResults int
}

type Engine struct {
	store      model.ConversationRepository
	generator  llm.Client
	sourcer    sourcing.Sourcer
	classifier *intent.Classifier
	pipeline   *extract.Pipeline
	maxResults int

	// per-conversation serialization; at most one in-flight turn per id
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func New(cfg Config) *Engine {
	if cfg.Classifier == nil {
		cfg.Classifier = intent.NewClassifier()
	}
	if cfg.Pipeline == nil {
		cfg.Pipeline = extract.NewPipeline()
	}
	if cfg.MaxSourcingResults <= 0 {
		cfg.MaxSourcingResults = 5
	}
	return &Engine{
		store:      cfg.Store,
		generator:  cfg.Generator,
		sourcer:    cfg.Sourcer,
		classifier: cfg.Classifier,
		pipeline:   cfg.Pipeline,
		maxResults: cfg.MaxSourcingResults,
		locks:      make(map[string]*sync.Mutex),
	}
}

// ProcessTurn runs one full conversation turn. History accumulated so far is
// always preserved and returned, also on collaborator failure.
func (e *Engine) ProcessTurn(ctx context.Context, in model.TurnInput) (*model.TurnResult, error) {
	conversationID := in.ConversationID
	if conversationID == "" {
		conversationID = uuid.New().String()
	}
	unlock := e.lockConversation(conversationID)
	defer unlock()

	conv, err := e.store.Upsert(ctx, conversationID, in.CachedHistory)
	if err != nil {
		return nil, err
	}

	conv.Messages = append(conv.Messages, schema.UserMessage(in.Message))
	conv.Display = append(conv.Display, model.DisplayMessage{
		Role:      string(schema.User),
		Content:   in.Message,
		Timestamp: time.Now(),
	})

	signals := e.classifier.Classify(in.Message)
	conv.Candidate = e.pipeline.Rebuild(conv.Messages)
	steering := e.buildSteering(in.Message, signals, conv.Candidate.Summary())

	reply, err := e.generator.Generate(ctx, withSteering(conv.Messages, steering))
	if err != nil {
		// The log still gets what was sent plus a synthetic error notice, so
		// conversation state stays consistent.
		logx.Error().Err(err).Str("conversationID", conv.ID).Msg("generation call failed")
		reply = fmt.Sprintf("I encountered an error: %v", err)
	}

	conv.Messages = append(conv.Messages, schema.AssistantMessage(reply, nil))

	message, spec := parsers.ParseAssistantReply(reply)
	conv.Display = append(conv.Display, model.DisplayMessage{
		Role:      string(schema.Assistant),
		Content:   message,
		Timestamp: time.Now(),
	})

	var results []model.SourcingResult
	if spec != nil {
		logx.Info().Str("conversationID", conv.ID).Str("product", spec.Name).Msg("specification finalized, sourcing options")
		found, serr := e.sourcer.FindOptions(ctx, spec)
		if serr != nil {
			// Sourcing failures never invalidate the produced message or
			// specification; the result list stays empty.
			logx.Error().Err(serr).Str("conversationID", conv.ID).Msg("sourcing call failed")
		} else {
			results = found
			if len(results) > e.maxResults {
				results = results[:e.maxResults]
			}
		}
	}

	if err := e.store.Save(ctx, conv); err != nil {
		return nil, err
	}

	return &model.TurnResult{
		ConversationID:  conv.ID,
		Response:        message,
		Specification:   spec,
		SourcingResults: results,
		Messages:        conv.Display,
	}, nil
}

// buildSteering resolves the steering instructions for one turn. Recall
// intent takes precedence over finalize intent when both fire; this mirrors
// the documented priority rule, not an accident of assignment order.
func (e *Engine) buildSteering(message string, signals intent.Signals, summary string) string {
	steering := prompts.DefaultSteering(summary)
	if signals.FinalizeRequested || strings.Contains(strings.ToLower(message), finalizePhrase) {
		steering = prompts.FinalizeSteering(summary)
	}
	if signals.RecallRequested {
		steering = prompts.RecallSteering(summary)
	}
	return steering
}

// withSteering returns a copy of the message log whose system turn carries
// the canonical instructions plus this turn's steering. The persisted log is
// never mutated; steering exists for one generation call only.
func withSteering(messages []*schema.Message, steering string) []*schema.Message {
	steered := make([]*schema.Message, 0, len(messages)+1)
	replaced := false
	for _, m := range messages {
		if !replaced && m != nil && m.Role == schema.System {
			steered = append(steered, schema.SystemMessage(prompts.WithSteering(steering)))
			replaced = true
			continue
		}
		steered = append(steered, m)
	}
	if !replaced {
		steered = append([]*schema.Message{schema.SystemMessage(prompts.WithSteering(steering))}, steered...)
	}
	return steered
}

func (e *Engine) lockConversation(conversationID string) func() {
	e.mu.Lock()
	l, ok := e.locks[conversationID]
	if !ok {
		l = &sync.Mutex{}
		e.locks[conversationID] = l
	}
	e.mu.Unlock()

	l.Lock()
	return l.Unlock
}
