package llm

import (
	"context"
	"strings"
)

// EchoClient answers every request with the prompt it received, one
// "role: content" block per message. It needs no network and is used for
// local development (LLM_PROVIDER=echo) and tests.
type EchoClient struct{}

// Invoke implements Client.
func (EchoClient) Invoke(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	parts := make([]string, 0, len(req.Messages))
	for _, m := range req.Messages {
		parts = append(parts, m.Role+": "+m.Content)
	}
	return TextResponse(strings.Join(parts, "\n\n")), nil
}

var _ Client = EchoClient{}
