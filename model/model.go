package model

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/hupe1980/expertpanel/core"
)

// Request captures the normalized model input: an ordered list of role-tagged
// messages. Sampling parameters live on the adapter, not on the request.
type Request struct {
	Messages []core.Message `json:"messages"`
}

// TokenUsage captures token usage statistics for a response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is the final completion emitted by a model.
type Response struct {
	ID           string       `json:"id"`
	Content      core.Message `json:"content"`
	FinishReason string       `json:"finish_reason"` // "stop", "length", ...
	Usage        *TokenUsage  `json:"usage,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name     string `json:"name"`
	Provider string `json:"provider"` // "openai", "groq", "gemini", "ollama", "anthropic"
}

// Model is the minimal interface required by the graph and the chat agent.
// Implementations close both channels when done; the error channel carries at
// most one value.
type Model interface {
	Generate(ctx context.Context, req Request) (<-chan Response, <-chan error)

	// Info returns information about the model implementation.
	Info() Info
}

// ErrEmptyResponse is returned by GenerateText when a model finishes without text.
var ErrEmptyResponse = errors.New("model returned no content")

// GenerateText invokes m with messages and returns the generated text of the
// final response.
func GenerateText(ctx context.Context, m Model, messages []core.Message) (string, error) {
	respCh, errCh := m.Generate(ctx, Request{Messages: messages})

	var (
		text string
		got  bool
	)
	for respCh != nil || errCh != nil {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case resp, ok := <-respCh:
			if !ok {
				respCh = nil
				continue
			}
			text, got = resp.Content.Content, true
		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			if err != nil {
				return "", err
			}
		}
	}
	if !got || strings.TrimSpace(text) == "" {
		info := m.Info()
		return "", &core.ProviderError{Kind: core.ProviderErrInvalidResponse, Provider: info.Provider, Cause: ErrEmptyResponse}
	}
	return text, nil
}

// MockModel is a lightweight in-memory Model useful for tests and examples.
// Responses are keyed by the system instruction of the request, falling back
// to the last user message, then to a generated echo. It is safe for
// concurrent use.
type MockModel struct {
	info Info

	mu        sync.Mutex
	responses map[string]string
	errs      map[string]error
	requests  []Request
}

// NewMockModel constructs a MockModel.
func NewMockModel(name, provider string) *MockModel {
	return &MockModel{
		info:      Info{Name: name, Provider: provider},
		responses: make(map[string]string),
		errs:      make(map[string]error),
	}
}

// AddResponse registers a canned completion for requests whose system
// instruction or last user message equals prompt.
func (m *MockModel) AddResponse(prompt, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[prompt] = response
}

// AddError registers a failure for requests matching prompt.
func (m *MockModel) AddError(prompt string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[prompt] = err
}

// Requests returns a copy of every request received so far.
func (m *MockModel) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.requests))
	copy(out, m.requests)
	return out
}

// Calls returns the number of Generate invocations.
func (m *MockModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

func (m *MockModel) lookup(req Request) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, Request{Messages: core.CloneMessages(req.Messages)})

	keys := make([]string, 0, 2)
	for _, msg := range req.Messages {
		if msg.Role == core.RoleSystem {
			keys = append(keys, msg.Content)
			break
		}
	}
	last, hasUser := core.LastUserMessage(req.Messages)
	if hasUser {
		keys = append(keys, last.Content)
	}
	for _, k := range keys {
		if err, ok := m.errs[k]; ok {
			return "", err
		}
	}
	for _, k := range keys {
		if r, ok := m.responses[k]; ok {
			return r, nil
		}
	}
	return fmt.Sprintf("Mock response to: %s", last.Content), nil
}

// Generate implements Model.
func (m *MockModel) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	respCh := make(chan Response, 1)
	errCh := make(chan error, 1)

	go func() {
		defer close(respCh)
		defer close(errCh)
		if len(req.Messages) == 0 {
			errCh <- fmt.Errorf("no messages provided")
			return
		}
		text, err := m.lookup(req)
		if err != nil {
			errCh <- err
			return
		}
		select {
		case <-ctx.Done():
			errCh <- ctx.Err()
		case respCh <- Response{Content: core.NewAssistantMessage(text), FinishReason: "stop"}:
		}
	}()
	return respCh, errCh
}

// Info implements Model.
func (m *MockModel) Info() Info { return m.info }
