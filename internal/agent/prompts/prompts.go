// Package prompts owns the canonical system instructions and the steering
// text injected alongside them per turn.
package prompts

import (
	_ "embed"
	"fmt"
)

//go:embed template/system_prompt.txt
var systemInstructions string

// SystemInstructions returns the canonical instructions installed as the
// system turn of every conversation.
func SystemInstructions() string {
	return systemInstructions
}

// WithSteering combines the canonical instructions with per-turn steering
// text; the result replaces the system turn content for one generation call
// only, never in the persisted message log.
func WithSteering(steering string) string {
	if steering == "" {
		return systemInstructions
	}
	return systemInstructions + "\n\n" + steering
}

// DefaultSteering reminds the generation backend of what has been gathered
// so far.
func DefaultSteering(candidateSummary string) string {
	return fmt.Sprintf("Remember, the user has previously mentioned: %s", candidateSummary)
}

// FinalizeSteering pushes the generation backend to emit the fenced json
// specification block.
func FinalizeSteering(candidateSummary string) string {
	return fmt.Sprintf(
		"The user has indicated they're done specifying the product or wants a specification. "+
			"You must output a finalized JSON specification using the exact format specified in your instructions. "+
			"Based on the conversation, they want: %s", candidateSummary)
}

// RecallSteering pushes the generation backend to restate everything the
// user has specified so far. When both recall and finalize fire on the same
// turn, recall takes precedence.
func RecallSteering(candidateSummary string) string {
	return fmt.Sprintf(
		"The user is asking you to recall what they specified previously. "+
			"Make sure to mention ALL details they've provided so far AND provide a JSON specification. "+
			"Based on the conversation history, they have mentioned: %s", candidateSummary)
}
