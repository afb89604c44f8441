package llm

import (
	"context"
	"net/http"

	"github.com/cloudwego/eino/schema"

	errx "github.com/procureflow-core/server/internal/core/error"
)

// Unavailable stands in when no provider could be constructed (typically
// missing credentials). The service still starts: the capability check
// reports the gap, and every turn fails at the collaborator call the same
// way a network outage would.
type Unavailable struct {
	Reason error
}

func NewUnavailable(reason error) *Unavailable {
	return &Unavailable{Reason: reason}
}

func (u *Unavailable) Generate(context.Context, []*schema.Message) (string, error) {
	return "", errx.New(u.Reason, http.StatusBadGateway, errx.GenerationErrorMessage)
}

var _ Client = (*Unavailable)(nil)
