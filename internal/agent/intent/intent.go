// Package intent classifies a raw user turn into coarse conversation
// signals. Matching is plain lowercased substring search over configurable
// trigger tables; both signals may fire on the same turn.
package intent

import "strings"

// Signals are the intent flags derived from a single user turn.
type Signals struct {
	// FinalizeRequested indicates the user is done specifying the product.
	FinalizeRequested bool
	// RecallRequested indicates the user wants prior specification restated.
	RecallRequested bool
}

// DefaultFinalizeTriggers are phrases indicating the user has finished
// specifying and wants the finalized specification.
var DefaultFinalizeTriggers = []string{
	"that's all",
	"no, thank you",
	"nothing else",
	"that is all",
	"that should be it",
	"no thank",
	"thats all",
}

// DefaultRecallTriggers are phrases asking the assistant to restate what was
// specified earlier in the conversation.
var DefaultRecallTriggers = []string{
	"remember",
	"what did i",
	"what was the",
	"specified earlier",
	"what product",
	"give me the spec",
	"specs again",
}

// Classifier matches user turns against its trigger tables. The tables are
// data, not code, so deployments can tune phrasing without touching logic.
type Classifier struct {
	finalizeTriggers []string
	recallTriggers   []string
}

// NewClassifier returns a classifier with the default trigger tables.
func NewClassifier() *Classifier {
	return NewClassifierWithTriggers(DefaultFinalizeTriggers, DefaultRecallTriggers)
}

// NewClassifierWithTriggers returns a classifier with custom tables.
func NewClassifierWithTriggers(finalize, recall []string) *Classifier {
	return &Classifier{
		finalizeTriggers: finalize,
		recallTriggers:   recall,
	}
}

// Classify inspects the latest user turn. Pure function, no side effects.
func (c *Classifier) Classify(message string) Signals {
	lowered := strings.ToLower(message)
	return Signals{
		FinalizeRequested: containsAny(lowered, c.finalizeTriggers),
		RecallRequested:   containsAny(lowered, c.recallTriggers),
	}
}

func containsAny(s string, triggers []string) bool {
	for _, t := range triggers {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}
