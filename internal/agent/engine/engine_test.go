package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/procureflow-core/server/internal/agent/extract"
	"github.com/procureflow-core/server/internal/agent/llm"
	"github.com/procureflow-core/server/internal/agent/model"
	"github.com/procureflow-core/server/internal/agent/prompts"
	"github.com/procureflow-core/server/internal/agent/repo"
)

const specReply = "Here is your specification.\n\n```json\n" +
	`{"name":"Pyrus calleryana","description":"Callery pear tree","features":["90-120cm","container grown"],"estimatedPrice":"$40-$60","category":"Plants"}` +
	"\n```"

type stubSourcer struct {
	results  []model.SourcingResult
	err      error
	lastSpec *model.FinalizedSpecification
	calls    int
}

func (s *stubSourcer) FindOptions(_ context.Context, spec *model.FinalizedSpecification) ([]model.SourcingResult, error) {
	s.calls++
	s.lastSpec = spec
	return s.results, s.err
}

func newTestEngine(mock *llm.Mock, sourcer *stubSourcer) *Engine {
	pipeline := extract.NewPipeline()
	store := repo.NewMemoryConversationRepository(prompts.SystemInstructions(), pipeline.Rebuild)
	return New(Config{
		Store:     store,
		Generator: mock,
		Sourcer:   sourcer,
		Pipeline:  pipeline,
	})
}

func TestProcessTurnGathering(t *testing.T) {
	mock := &llm.Mock{Reply: "What size would you like?"}
	eng := newTestEngine(mock, &stubSourcer{})

	result, err := eng.ProcessTurn(context.Background(), model.TurnInput{
		Message: "I want to buy Pyrus calleryana",
	})

	require.NoError(t, err)
	assert.NotEmpty(t, result.ConversationID)
	assert.Equal(t, "What size would you like?", result.Response)
	assert.Nil(t, result.Specification)
	assert.False(t, result.IsFinalized())
	require.Len(t, result.Messages, 2)
	assert.Equal(t, "user", result.Messages[0].Role)
	assert.Equal(t, "assistant", result.Messages[1].Role)

	// default steering carries the extracted candidate summary
	require.NotEmpty(t, mock.LastMessages)
	system := mock.LastMessages[0]
	assert.Equal(t, schema.System, system.Role)
	assert.Contains(t, system.Content, "Remember, the user has previously mentioned: Product: Pyrus calleryana")
}

func TestProcessTurnReusesConversation(t *testing.T) {
	mock := &llm.Mock{Reply: "Noted."}
	eng := newTestEngine(mock, &stubSourcer{})
	ctx := context.Background()

	first, err := eng.ProcessTurn(ctx, model.TurnInput{Message: "I want to buy Pyrus calleryana"})
	require.NoError(t, err)

	second, err := eng.ProcessTurn(ctx, model.TurnInput{
		ConversationID: first.ConversationID,
		Message:        "height 90-120cm",
	})
	require.NoError(t, err)

	assert.Equal(t, first.ConversationID, second.ConversationID)
	assert.Len(t, second.Messages, 4)
	// candidate accumulated across turns
	assert.Contains(t, mock.LastMessages[0].Content, "size: 90-120cm")
}

func TestProcessTurnFinalizeSteering(t *testing.T) {
	mock := &llm.Mock{Reply: "Thanks."}
	eng := newTestEngine(mock, &stubSourcer{})

	_, err := eng.ProcessTurn(context.Background(), model.TurnInput{Message: "no, that's all"})

	require.NoError(t, err)
	assert.Contains(t, mock.LastMessages[0].Content, "You must output a finalized JSON specification")
}

func TestProcessTurnRecallOverridesFinalize(t *testing.T) {
	mock := &llm.Mock{Reply: "Thanks."}
	eng := newTestEngine(mock, &stubSourcer{})

	_, err := eng.ProcessTurn(context.Background(), model.TurnInput{
		Message: "that's all, but first, do you remember the size?",
	})

	require.NoError(t, err)
	system := mock.LastMessages[0].Content
	assert.Contains(t, system, "recall what they specified previously")
	assert.NotContains(t, system, "You must output a finalized JSON specification")
}

func TestProcessTurnFinalizesAndSources(t *testing.T) {
	mock := &llm.Mock{Reply: specReply}
	sourcer := &stubSourcer{results: []model.SourcingResult{
		{Title: "Pyrus calleryana 90-120cm", Link: "https://example.com/p", Snippet: "Container grown."},
	}}
	eng := newTestEngine(mock, sourcer)

	result, err := eng.ProcessTurn(context.Background(), model.TurnInput{Message: "that's all"})

	require.NoError(t, err)
	require.NotNil(t, result.Specification)
	assert.True(t, result.IsFinalized())
	assert.Equal(t, "Pyrus calleryana", result.Specification.Name)
	assert.Equal(t, "Here is your specification.", result.Response)
	assert.Equal(t, 1, sourcer.calls)
	assert.Equal(t, result.Specification, sourcer.lastSpec)
	require.Len(t, result.SourcingResults, 1)
	assert.Equal(t, "Pyrus calleryana 90-120cm", result.SourcingResults[0].Title)

	// the display log shows the fenced block stripped, the raw log keeps it
	assert.Equal(t, "Here is your specification.", result.Messages[len(result.Messages)-1].Content)
}

func TestProcessTurnCapsSourcingResults(t *testing.T) {
	many := make([]model.SourcingResult, 8)
	for i := range many {
		many[i] = model.SourcingResult{Title: "listing", Link: "#", Snippet: "n/a"}
	}
	mock := &llm.Mock{Reply: specReply}
	eng := newTestEngine(mock, &stubSourcer{results: many})

	result, err := eng.ProcessTurn(context.Background(), model.TurnInput{Message: "that's all"})

	require.NoError(t, err)
	assert.Len(t, result.SourcingResults, 5)
}

func TestProcessTurnSourcingFailureIsSwallowed(t *testing.T) {
	mock := &llm.Mock{Reply: specReply}
	sourcer := &stubSourcer{err: errors.New("quota exceeded")}
	eng := newTestEngine(mock, sourcer)

	result, err := eng.ProcessTurn(context.Background(), model.TurnInput{Message: "that's all"})

	require.NoError(t, err)
	require.NotNil(t, result.Specification)
	assert.Equal(t, "Here is your specification.", result.Response)
	assert.Empty(t, result.SourcingResults)
}

func TestProcessTurnGenerationFailureKeepsHistory(t *testing.T) {
	mock := &llm.Mock{Err: errors.New("connection refused")}
	eng := newTestEngine(mock, &stubSourcer{})

	result, err := eng.ProcessTurn(context.Background(), model.TurnInput{Message: "I want to buy a shed"})

	require.NoError(t, err)
	assert.Contains(t, result.Response, "I encountered an error:")
	assert.Nil(t, result.Specification)
	// both the user turn and the synthetic error notice are in the log
	require.Len(t, result.Messages, 2)
	assert.Equal(t, "I want to buy a shed", result.Messages[0].Content)
}

func TestProcessTurnMalformedSpecificationBlock(t *testing.T) {
	mock := &llm.Mock{Reply: "Almost.\n```json\n{broken\n```"}
	sourcer := &stubSourcer{}
	eng := newTestEngine(mock, sourcer)

	result, err := eng.ProcessTurn(context.Background(), model.TurnInput{Message: "that's all"})

	require.NoError(t, err)
	assert.Nil(t, result.Specification)
	assert.Equal(t, mock.Reply, result.Response)
	assert.Zero(t, sourcer.calls)
}

func TestProcessTurnAdoptsCachedHistory(t *testing.T) {
	mock := &llm.Mock{Reply: "Welcome back."}
	eng := newTestEngine(mock, &stubSourcer{})

	result, err := eng.ProcessTurn(context.Background(), model.TurnInput{
		Message: "anything else you remember?",
		CachedHistory: []*schema.Message{
			schema.UserMessage("I want to buy Pyrus calleryana"),
			schema.AssistantMessage("Noted.", nil),
		},
	})

	require.NoError(t, err)
	assert.Equal(t, "Welcome back.", result.Response)
	// adopted turns plus the new exchange, system turn excluded
	assert.Len(t, result.Messages, 4)
	// cached turns replayed without a system turn get one installed at index 0
	require.NotEmpty(t, mock.LastMessages)
	assert.Equal(t, schema.System, mock.LastMessages[0].Role)
	// and the candidate is rebuilt from the adopted history
	assert.Contains(t, mock.LastMessages[0].Content, "Pyrus calleryana")
}
