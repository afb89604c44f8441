// Package extract turns the accumulated turns of a conversation into a
// ProductCandidate. Name detection runs as an ordered cascade of strategies,
// cheap high-confidence patterns first, ambiguous fallbacks last; the first
// strategy to yield a name wins. Specification-value extraction always runs,
// independent of whether a name was found.
//
// The pipeline is pure: it recomputes a fresh candidate from the full message
// log on every call, so re-running it over an unchanged log always yields an
// identical result.
package extract

import (
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/procureflow-core/server/internal/agent/model"
)

// Turns is the role-split view of a message log that strategies operate on.
type Turns struct {
	User      []string
	Assistant []string
}

// NameStrategy attempts to derive a product name from the conversation.
// Strategies must be pure and report ok=false rather than guessing.
type NameStrategy func(t Turns) (name string, ok bool)

// Pipeline is the configured extraction cascade.
type Pipeline struct {
	nameStrategies []NameStrategy
	specPatterns   []SpecPattern
}

// NewPipeline returns the default cascade: explicit purchase mentions, then
// textual pattern fallbacks over user turns, then assistant confirmations.
func NewPipeline() *Pipeline {
	return &Pipeline{
		nameStrategies: []NameStrategy{
			ExplicitMention,
			PatternFallback,
			AssistantConfirmation,
		},
		specPatterns: DefaultSpecPatterns,
	}
}

// Rebuild recomputes the ProductCandidate from scratch over the given
// message log. The system turn is ignored.
func (p *Pipeline) Rebuild(messages []*schema.Message) *model.ProductCandidate {
	turns := splitTurns(messages)
	candidate := model.NewProductCandidate()

	for _, strategy := range p.nameStrategies {
		if name, ok := strategy(turns); ok {
			candidate.Name = name
			break
		}
	}

	p.extractSpecifications(turns.User, candidate)

	return candidate
}

func splitTurns(messages []*schema.Message) Turns {
	var t Turns
	for _, msg := range messages {
		if msg == nil || msg.Content == "" {
			continue
		}
		switch msg.Role {
		case schema.User:
			t.User = append(t.User, msg.Content)
		case schema.Assistant:
			t.Assistant = append(t.Assistant, msg.Content)
		}
	}
	return t
}

// trimEdgePunct removes the punctuation the heuristics treat as noise at
// phrase boundaries.
func trimEdgePunct(s string) string {
	return strings.Trim(strings.TrimSpace(s), ",.!?:;")
}
