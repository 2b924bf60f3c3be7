package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jsonServer(t *testing.T, status int, body string, inspect func(r *http.Request)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if inspect != nil {
			inspect(r)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestResponseText(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
		ok   bool
	}{
		{"string", `{"choices":[{"message":{"role":"assistant","content":"Hi there"}}]}`, "Hi there", true},
		{"no choices", `{"choices":[]}`, "", false},
		{"null content", `{"choices":[{"message":{"content":null}}]}`, "", false},
		{"array content", `{"choices":[{"message":{"content":[{"type":"text","text":"x"}]}}]}`, "", false},
		{"number content", `{"choices":[{"message":{"content":42}}]}`, "", false},
		{"blank string", `{"choices":[{"message":{"content":"   "}}]}`, "   ", true},
		{"empty string", `{"choices":[{"message":{"content":""}}]}`, "", true},
		{"missing content", `{"choices":[{"message":{"role":"assistant"}}]}`, "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var r Response
			require.NoError(t, json.Unmarshal([]byte(tc.body), &r))
			got, ok := r.Text()
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}

	var nilResp *Response
	_, ok := nilResp.Text()
	assert.False(t, ok)
}

func TestHTTPClient_Invoke_SendsRequestAndParses(t *testing.T) {
	var got Request
	srv := jsonServer(t, http.StatusOK, `{"id":"cmpl-1","choices":[{"index":0,"message":{"role":"assistant","content":"Welcome to Namibia"}}]}`,
		func(r *http.Request) {
			assert.Equal(t, "/v1/chat/completions", r.URL.Path)
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		})

	c := NewHTTPClient(HTTPConfig{BaseURL: srv.URL + "/v1/", APIKey: "sk-test", Model: "gpt-test", Timeout: 5 * time.Second, MaxTokens: 256, Temperature: 0.2})
	text, err := Complete(context.Background(), c, Request{Messages: []Message{{Role: RoleSystem, Content: "sys"}, {Role: RoleUser, Content: "hello"}}})
	require.NoError(t, err)
	assert.Equal(t, "Welcome to Namibia", text)

	assert.Equal(t, "gpt-test", got.Model)
	assert.Equal(t, 256, got.MaxTokens)
	require.NotNil(t, got.Temperature)
	assert.InDelta(t, 0.2, *got.Temperature, 1e-9)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, RoleUser, got.Messages[1].Role)
}

func TestHTTPClient_StatusError(t *testing.T) {
	srv := jsonServer(t, http.StatusTooManyRequests, `{"error":{"message":"rate limited"}}`, nil)
	c := NewHTTPClient(HTTPConfig{BaseURL: srv.URL, Timeout: time.Second})

	_, err := c.Invoke(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "x"}}})
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusTooManyRequests, se.Code)
	assert.Contains(t, se.Error(), "rate limited")
}

func TestComplete_Malformed(t *testing.T) {
	srv := jsonServer(t, http.StatusOK, `{"choices":[]}`, nil)
	c := NewHTTPClient(HTTPConfig{BaseURL: srv.URL, Timeout: time.Second})

	_, err := Complete(context.Background(), c, Request{})
	assert.ErrorIs(t, err, ErrMalformedCompletion)
}

func TestComplete_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() { close(release); srv.Close() })

	c := NewHTTPClient(HTTPConfig{BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
	start := time.Now()
	_, err := Complete(context.Background(), c, Request{})
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Less(t, time.Since(start), 5*time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = Complete(ctx, ClientFunc(func(ctx context.Context, _ Request) (*Response, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}), Request{})
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestComplete_PassesOtherErrors(t *testing.T) {
	boom := errors.New("boom")
	_, err := Complete(context.Background(), ClientFunc(func(context.Context, Request) (*Response, error) {
		return nil, boom
	}), Request{})
	assert.ErrorIs(t, err, boom)
	assert.False(t, IsTimeout(err))
	assert.False(t, IsTimeout(nil))
}

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	var calls int32
	failing := ClientFunc(func(context.Context, Request) (*Response, error) {
		atomic.AddInt32(&calls, 1)
		return nil, errors.New("upstream down")
	})
	var transitions []gobreaker.State
	b := NewBreaker(failing, BreakerConfig{
		Failures: 2,
		Cooldown: time.Minute,
		OnStateChange: func(_ string, _, to gobreaker.State) {
			transitions = append(transitions, to)
		},
	})

	for i := 0; i < 2; i++ {
		_, err := b.Invoke(context.Background(), Request{})
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrCircuitOpen)
	}
	assert.Equal(t, gobreaker.StateOpen, b.State())

	_, err := b.Invoke(context.Background(), Request{})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls), "open circuit must not reach the provider")
	assert.Equal(t, []gobreaker.State{gobreaker.StateOpen}, transitions)
}

func TestBreaker_CancellationIsNotAFailure(t *testing.T) {
	canceled := ClientFunc(func(context.Context, Request) (*Response, error) {
		return nil, context.Canceled
	})
	b := NewBreaker(canceled, BreakerConfig{Failures: 1, Cooldown: time.Minute})
	for i := 0; i < 3; i++ {
		_, err := b.Invoke(context.Background(), Request{})
		assert.ErrorIs(t, err, context.Canceled)
	}
	assert.Equal(t, gobreaker.StateClosed, b.State())
}

func TestBreaker_PassesResponses(t *testing.T) {
	b := NewBreaker(EchoClient{}, BreakerConfig{})
	text, err := Complete(context.Background(), b, Request{Messages: []Message{{Role: RoleUser, Content: "hello"}}})
	require.NoError(t, err)
	assert.Equal(t, "user: hello", text)
}

func TestEchoClient(t *testing.T) {
	resp, err := EchoClient{}.Invoke(context.Background(), Request{Messages: []Message{
		{Role: RoleSystem, Content: "You are helpful"},
		{Role: RoleUser, Content: "Hi"},
	}})
	require.NoError(t, err)
	text, ok := resp.Text()
	require.True(t, ok)
	assert.Equal(t, "system: You are helpful\n\nuser: Hi", text)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = EchoClient{}.Invoke(ctx, Request{})
	assert.ErrorIs(t, err, context.Canceled)
}
