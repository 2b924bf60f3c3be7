// Package llm defines the chat completion contract used by the chatbot and
// its implementations: an OpenAI-compatible HTTP client, a circuit breaker
// decorator and an echo client for local development and tests.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
)

// Message roles understood by chat completion APIs.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

var (
	// ErrMalformedCompletion means the response carried no usable string
	// completion (no choices, null or non-string content).
	ErrMalformedCompletion = errors.New("llm: malformed completion")
	// ErrTimeout means the call did not finish within its deadline.
	ErrTimeout = errors.New("llm: timeout")
	// ErrCircuitOpen means the breaker is rejecting calls after repeated failures.
	ErrCircuitOpen = errors.New("llm: circuit open")
)

// Message is one entry of the prompt.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is a chat completion request.
type Request struct {
	Model       string    `json:"model,omitempty"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature *float64  `json:"temperature,omitempty"`
}

// Response is the subset of a chat completion response the chatbot reads.
type Response struct {
	ID      string   `json:"id,omitempty"`
	Model   string   `json:"model,omitempty"`
	Choices []Choice `json:"choices"`
}

// Choice is one completion alternative.
type Choice struct {
	Index        int           `json:"index"`
	Message      ChoiceMessage `json:"message"`
	FinishReason string        `json:"finish_reason,omitempty"`
}

// ChoiceMessage keeps Content raw so a non-string body (null, array of
// parts, object) can be told apart from text.
type ChoiceMessage struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

// TextResponse builds a well-formed single-choice response.
func TextResponse(text string) *Response {
	raw, _ := json.Marshal(text)
	return &Response{Choices: []Choice{{Message: ChoiceMessage{Role: RoleAssistant, Content: raw}}}}
}

// Text returns the first choice's content when it is a JSON string. A blank
// string is still a completion.
func (r *Response) Text() (string, bool) {
	if r == nil || len(r.Choices) == 0 {
		return "", false
	}
	raw := r.Choices[0].Message.Content
	if len(raw) == 0 || raw[0] != '"' {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// Client invokes a chat completion model.
type Client interface {
	Invoke(ctx context.Context, req Request) (*Response, error)
}

// ClientFunc adapts a function to Client.
type ClientFunc func(ctx context.Context, req Request) (*Response, error)

// Invoke implements Client.
func (f ClientFunc) Invoke(ctx context.Context, req Request) (*Response, error) { return f(ctx, req) }

// Complete invokes c and extracts the completion text. Errors are
// classified: deadline expiry yields ErrTimeout, a response without string
// content yields ErrMalformedCompletion, anything else is returned wrapped.
func Complete(ctx context.Context, c Client, req Request) (string, error) {
	resp, err := c.Invoke(ctx, req)
	if err != nil {
		if IsTimeout(err) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return "", err
	}
	text, ok := resp.Text()
	if !ok {
		return "", ErrMalformedCompletion
	}
	return text, nil
}

// IsTimeout reports deadline and network timeout errors.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
