package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/expertpanel/core"
	"github.com/hupe1980/expertpanel/logging"
	"github.com/hupe1980/expertpanel/model"
	"github.com/hupe1980/expertpanel/session"
)

const (
	// DefaultModel is the model chat mode uses unless the caller names one.
	DefaultModel = "llama-3.1-8b-instant"
	// DefaultTemperature is the sampling temperature of chat mode.
	DefaultTemperature = 0.2

	// DefaultSystemPrompt is the persona used when the caller sends no system message.
	DefaultSystemPrompt = "You are Nova, a concise, friendly, and slightly witty AI product co-pilot. Your style: practical, to-the-point, prefers short bullet lists, and adds a single fitting emoji occasionally. Always be helpful, avoid fluff, and ask a brief clarifying question when needed."

	timeLayout = "January 2, 2006 at 15:04:05 MST"
)

// Options configures an Agent.
type Options struct {
	SystemPrompt string
	// Location is the timezone of the injected date and time.
	Location *time.Location
	// WindowSize bounds the history sent to the model; zero or less keeps all.
	WindowSize int
	Now        func() time.Time
	Logger     logging.Logger
}

// Agent answers a conversation with a single model call.
type Agent struct {
	model model.Model
	opts  Options
}

// New creates an Agent backed by m.
func New(m model.Model, optFns ...func(o *Options)) *Agent {
	opts := Options{
		SystemPrompt: DefaultSystemPrompt,
		Location:     time.UTC,
		WindowSize:   session.DefaultWindowSize,
		Now:          time.Now,
		Logger:       logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.SystemPrompt == "" {
		opts.SystemPrompt = DefaultSystemPrompt
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return &Agent{model: m, opts: opts}
}

// SystemPrompt returns the system instruction for messages: the caller's
// first system message if any, else the configured persona, followed by the
// current date and time.
func (a *Agent) SystemPrompt(messages []core.Message) string {
	base := a.opts.SystemPrompt
	for _, m := range messages {
		if m.Role == core.RoleSystem {
			base = m.Content
			break
		}
	}
	now := a.opts.Now().In(a.opts.Location)
	return fmt.Sprintf("%s\nCurrent date and time: %s (%s).", base, now.Format(timeLayout), a.opts.Location)
}

// Prompt builds the model request: one system message followed by the
// windowed non-system history.
func (a *Agent) Prompt(messages []core.Message) []core.Message {
	_, history := session.SplitSystem(messages)
	history = session.Window(history, a.opts.WindowSize)

	out := make([]core.Message, 0, len(history)+1)
	out = append(out, core.NewSystemMessage(a.SystemPrompt(messages)))
	return append(out, history...)
}

// Reply generates the assistant's answer to messages.
func (a *Agent) Reply(ctx context.Context, messages []core.Message) (core.Message, error) {
	if err := core.ValidateMessages(messages); err != nil {
		return core.Message{}, err
	}

	start := time.Now()
	text, err := model.GenerateText(ctx, a.model, a.Prompt(messages))
	info := a.model.Info()
	cl, ok := a.opts.Logger.(interface {
		LogLLMCall(provider, model string, dur time.Duration, success bool, err error)
	})
	switch {
	case ok:
		cl.LogLLMCall(info.Provider, info.Name, time.Since(start), err == nil, err)
	case err != nil:
		a.opts.Logger.Error("chat call failed", "provider", info.Provider, "model", info.Name, "duration", time.Since(start), "error", err)
	default:
		a.opts.Logger.Debug("chat call completed", "provider", info.Provider, "model", info.Name, "duration", time.Since(start))
	}
	if err != nil {
		return core.Message{}, fmt.Errorf("chat: %w", err)
	}
	return core.NewAssistantMessage(text), nil
}

// Respond returns messages with exactly one new assistant message appended.
func (a *Agent) Respond(ctx context.Context, messages []core.Message) ([]core.Message, error) {
	reply, err := a.Reply(ctx, messages)
	if err != nil {
		return nil, err
	}
	return append(core.CloneMessages(messages), reply), nil
}
