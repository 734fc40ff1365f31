// Package ollama provides a model.Model backed by a self-hosted Ollama server
// using its native /api/chat endpoint.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hupe1980/expertpanel/core"
	"github.com/hupe1980/expertpanel/model"
)

const (
	providerName = "ollama"

	// DefaultBaseURL is the address of a local Ollama server.
	DefaultBaseURL = "http://localhost:11434"
	// DefaultModel is used when no model is configured.
	DefaultModel = "llama3.2"
)

// Options configures the Ollama adapter.
type Options struct {
	BaseURL     string
	Model       string
	Temperature float64
	// Timeout bounds a single request; zero leaves timing to the caller's context.
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Model talks to an Ollama server.
type Model struct {
	httpClient *http.Client
	opts       Options
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatOptions struct {
	Temperature float64 `json:"temperature"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  *chatOptions  `json:"options,omitempty"`
}

type chatResponse struct {
	Model           string      `json:"model"`
	Message         chatMessage `json:"message"`
	Done            bool        `json:"done"`
	DoneReason      string      `json:"done_reason,omitempty"`
	PromptEvalCount int         `json:"prompt_eval_count,omitempty"`
	EvalCount       int         `json:"eval_count,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewModel creates an Ollama model, filling in defaults for zero values.
func NewModel(optFns ...func(o *Options)) *Model {
	opts := Options{
		BaseURL:     DefaultBaseURL,
		Model:       DefaultModel,
		Temperature: 0.7,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	if opts.Model == "" {
		opts.Model = DefaultModel
	}

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	return &Model{httpClient: client, opts: opts}
}

// Generate implements model.Model with a single non-streaming chat request.
func (m *Model) Generate(ctx context.Context, req model.Request) (<-chan model.Response, <-chan error) {
	out := make(chan model.Response, 1)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		resp, err := m.chat(ctx, req.Messages)
		if err != nil {
			errCh <- err
			return
		}
		out <- model.Response{
			Content:      core.NewAssistantMessage(resp.Message.Content),
			FinishReason: finishReason(resp),
			Usage: &model.TokenUsage{
				PromptTokens:     resp.PromptEvalCount,
				CompletionTokens: resp.EvalCount,
				TotalTokens:      resp.PromptEvalCount + resp.EvalCount,
			},
		}
	}()

	return out, errCh
}

func (m *Model) chat(ctx context.Context, messages []core.Message) (*chatResponse, error) {
	body := chatRequest{
		Model:    m.opts.Model,
		Messages: make([]chatMessage, 0, len(messages)),
		Stream:   false,
		Options:  &chatOptions{Temperature: m.opts.Temperature},
	}
	for _, msg := range messages {
		body.Messages = append(body.Messages, chatMessage{Role: string(msg.Role), Content: msg.Content})
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return nil, &core.ProviderError{Kind: core.ProviderErrInvalidResponse, Provider: providerName, Message: "failed to marshal request", Cause: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, m.opts.BaseURL+"/api/chat", bytes.NewReader(raw))
	if err != nil {
		return nil, &core.ProviderError{Kind: core.ProviderErrNetwork, Provider: providerName, Message: "failed to create request", Cause: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, &core.ProviderError{Kind: core.ProviderErrNetwork, Provider: providerName, Message: "ollama is not reachable at " + m.opts.BaseURL, Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var oe errorResponse
		msg := resp.Status
		if data, readErr := io.ReadAll(io.LimitReader(resp.Body, 4096)); readErr == nil {
			if json.Unmarshal(data, &oe) == nil && oe.Error != "" {
				msg = oe.Error
			}
		}
		if resp.StatusCode == http.StatusNotFound {
			return nil, &core.ProviderError{Kind: core.ProviderErrInvalidResponse, Provider: providerName, StatusCode: resp.StatusCode, Message: fmt.Sprintf("model %q not found: %s", m.opts.Model, msg)}
		}
		return nil, core.ProviderErrorFromStatus(providerName, resp.StatusCode, msg, nil)
	}

	var result chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &core.ProviderError{Kind: core.ProviderErrInvalidResponse, Provider: providerName, Message: "failed to decode response", Cause: err}
	}
	return &result, nil
}

func finishReason(r *chatResponse) string {
	if r.DoneReason != "" {
		return r.DoneReason
	}
	return "stop"
}

// Info returns metadata describing this model implementation.
func (m *Model) Info() model.Info {
	return model.Info{Name: m.opts.Model, Provider: providerName}
}
