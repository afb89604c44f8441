package llm

import (
	"context"

	"github.com/cloudwego/eino/schema"
)

// Mock is a canned generation backend for local runs and tests. It records
// the last message list it was handed so tests can assert on steering.
type Mock struct {
	Reply string
	Err   error

	LastMessages []*schema.Message
}

func (m *Mock) Generate(_ context.Context, messages []*schema.Message) (string, error) {
	m.LastMessages = messages
	if m.Err != nil {
		return "", m.Err
	}
	if m.Reply != "" {
		return m.Reply, nil
	}
	return "Understood. Could you tell me more about the product you need?", nil
}

var _ Client = (*Mock)(nil)
