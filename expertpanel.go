// Package expertpanel answers conversations either with a single model call
// (chat mode) or by routing the latest question through a panel of expert
// models whose answers are merged by a synthesis model (panel mode).
//
// Most applications:
//  1. Create a Panel via New (optionally overriding the registry, provider
//     defaults or model factory)
//  2. Call Ask with the conversation and the desired mode
//
// A Panel holds no per-request state and is safe for concurrent use.
package expertpanel

import (
	"context"
	"fmt"
	"text/template"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/hupe1980/expertpanel/chat"
	"github.com/hupe1980/expertpanel/core"
	"github.com/hupe1980/expertpanel/expert"
	"github.com/hupe1980/expertpanel/graph"
	"github.com/hupe1980/expertpanel/logging"
	"github.com/hupe1980/expertpanel/model"
	"github.com/hupe1980/expertpanel/provider"
	"github.com/hupe1980/expertpanel/session"
)

// Mode selects how a request is answered.
type Mode string

const (
	ModePanel Mode = "panel"
	ModeChat  Mode = "chat"
)

// ChatRole labels the chat mode model in configuration errors.
const ChatRole expert.Key = "CHAT"

// ModelFactory builds the model serving a role. *provider.Factory implements it.
type ModelFactory interface {
	New(role expert.Key, cfg provider.Config) (model.Model, error)
}

// ModelFactoryFunc adapts a function to ModelFactory.
type ModelFactoryFunc func(role expert.Key, cfg provider.Config) (model.Model, error)

// New implements ModelFactory.
func (f ModelFactoryFunc) New(role expert.Key, cfg provider.Config) (model.Model, error) {
	return f(role, cfg)
}

// Options configures a Panel.
type Options struct {
	Registry *expert.Registry
	// Defaults holds one provider config per registered expert plus expert.Synthesis.
	Defaults map[expert.Key]provider.Config
	Factory  ModelFactory

	Strategy graph.Strategy
	// Timeout bounds each panel run; zero leaves it to the caller's context.
	Timeout           time.Duration
	SynthesisTemplate *template.Template

	Chat             provider.Config
	ChatSystemPrompt string
	ChatLocation     *time.Location

	WindowSize int

	// MaxConcurrentRequests limits the number of Ask calls that run at the
	// same time; further callers wait for a slot or their context. Zero means
	// unlimited.
	MaxConcurrentRequests int64

	Logger logging.Logger
}

// DefaultChatConfig is the provider used by chat mode unless configured otherwise.
func DefaultChatConfig() provider.Config {
	return provider.Config{
		Kind:        provider.KindGroq,
		Model:       chat.DefaultModel,
		Temperature: provider.Float(chat.DefaultTemperature),
	}
}

// Panel is the entry point for both modes.
type Panel struct {
	opts     Options
	sessions *session.Manager
	sem      *semaphore.Weighted
}

// New creates a Panel with the default experts, provider table and an
// environment backed provider factory.
func New(optFns ...func(o *Options)) *Panel {
	opts := Options{
		Registry:     expert.Default(),
		Defaults:     provider.DefaultTable(),
		Factory:      provider.NewFactory(),
		Strategy:     graph.StrategySequential,
		Chat:         DefaultChatConfig(),
		ChatLocation: time.UTC,
		WindowSize:   session.DefaultWindowSize,
		Logger:       logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	p := &Panel{
		opts:     opts,
		sessions: session.NewManager(func(o *session.Options) { o.WindowSize = opts.WindowSize }),
	}
	if opts.MaxConcurrentRequests > 0 {
		p.sem = semaphore.NewWeighted(opts.MaxConcurrentRequests)
	}
	return p
}

// Registry returns the expert registry in use.
func (p *Panel) Registry() *expert.Registry { return p.opts.Registry }

// Request is one inbound conversation turn.
type Request struct {
	Messages []core.Message
	Mode     Mode
	// Model overrides the chat mode model id. Ignored in panel mode.
	Model string
	// Providers overrides provider configs per role in panel mode.
	Providers map[expert.Key]provider.Config
	SessionID string
}

// Reply is the answer to a Request.
type Reply struct {
	Text      string
	SessionID string
	Mode      Mode
	// ExpertResponses lists the individual panel answers in registration order.
	ExpertResponses []graph.ExpertResponse
}

// Ask answers req. Invalid input is rejected with *core.InputError before any
// model is called.
func (p *Panel) Ask(ctx context.Context, req Request) (*Reply, error) {
	mode := req.Mode
	if mode == "" {
		mode = ModePanel
	}
	if mode != ModePanel && mode != ModeChat {
		return nil, core.NewInputError("unknown mode %q", req.Mode)
	}
	if err := core.ValidateMessages(req.Messages); err != nil {
		return nil, err
	}
	if mode == ModePanel {
		if _, ok := core.LastUserMessage(req.Messages); !ok {
			return nil, core.NewInputError("panel mode requires at least one user message")
		}
	}

	if p.sem != nil {
		if err := p.sem.Acquire(ctx, 1); err != nil {
			return nil, fmt.Errorf("waiting for a free request slot: %w", err)
		}
		defer p.sem.Release(1)
	}

	conv := p.sessions.Open(req.SessionID, req.Messages)
	if mode == ModePanel {
		if _, ok := core.LastUserMessage(conv.Messages); !ok {
			return nil, core.NewInputError("no user message within the last %d messages of the history window", p.sessions.WindowSize())
		}
	}

	logger := p.sessionLogger(conv.ID)

	start := time.Now()
	var (
		reply *Reply
		err   error
	)
	if mode == ModeChat {
		reply, err = p.chat(ctx, req, conv, logger)
	} else {
		reply, err = p.panel(ctx, req, conv, logger)
	}
	if err != nil {
		logger.Error("request failed",
			"mode", string(mode),
			"category", string(core.CategoryOf(err)),
			"duration", time.Since(start),
			"error", err,
		)
		return nil, err
	}
	logger.Info("request completed",
		"mode", string(mode),
		"dropped_messages", conv.Dropped,
		"duration", time.Since(start),
	)
	return reply, nil
}

// sessionLogger scopes the configured logger to one session. Loggers without
// session support get the id as a plain attribute on every entry.
func (p *Panel) sessionLogger(sessionID string) logging.Logger {
	if pl, ok := p.opts.Logger.(*logging.PanelLogger); ok {
		return pl.WithSession(sessionID)
	}
	return sessionAttrLogger{Logger: p.opts.Logger, sessionID: sessionID}
}

type sessionAttrLogger struct {
	logging.Logger
	sessionID string
}

func (l sessionAttrLogger) Debug(msg string, args ...any) {
	l.Logger.Debug(msg, append([]any{"session_id", l.sessionID}, args...)...)
}

func (l sessionAttrLogger) Info(msg string, args ...any) {
	l.Logger.Info(msg, append([]any{"session_id", l.sessionID}, args...)...)
}

func (l sessionAttrLogger) Warn(msg string, args ...any) {
	l.Logger.Warn(msg, append([]any{"session_id", l.sessionID}, args...)...)
}

func (l sessionAttrLogger) Error(msg string, args ...any) {
	l.Logger.Error(msg, append([]any{"session_id", l.sessionID}, args...)...)
}

func (p *Panel) chat(ctx context.Context, req Request, conv session.Conversation, logger logging.Logger) (*Reply, error) {
	cfg := provider.Merge(provider.Config{Model: req.Model}, p.opts.Chat)
	m, err := p.opts.Factory.New(ChatRole, cfg)
	if err != nil {
		return nil, err
	}

	agent := chat.New(m, func(o *chat.Options) {
		o.SystemPrompt = p.opts.ChatSystemPrompt
		o.Location = p.opts.ChatLocation
		o.WindowSize = 0 // already windowed by the session manager
		o.Logger = logger
	})
	msg, err := agent.Reply(ctx, conv.Messages)
	if err != nil {
		return nil, err
	}
	return &Reply{Text: msg.Content, SessionID: conv.ID, Mode: ModeChat}, nil
}

func (p *Panel) panel(ctx context.Context, req Request, conv session.Conversation, logger logging.Logger) (*Reply, error) {
	roles := p.opts.Registry.Roles()
	for key := range req.Providers {
		if key != expert.Synthesis && !p.opts.Registry.Has(key) {
			logger.Warn("ignoring provider override for unknown role", "role", string(key))
		}
	}

	resolved, err := provider.Resolve(req.Providers, p.opts.Defaults, roles)
	if err != nil {
		return nil, err
	}

	models := make(map[expert.Key]model.Model, len(roles))
	for _, role := range roles {
		cfg, err := resolved.For(role)
		if err != nil {
			return nil, err
		}
		m, err := p.opts.Factory.New(role, cfg)
		if err != nil {
			return nil, err
		}
		models[role] = m
	}

	g, err := graph.New(p.opts.Registry, models, func(o *graph.Options) {
		o.Strategy = p.opts.Strategy
		o.Timeout = p.opts.Timeout
		o.SynthesisTemplate = p.opts.SynthesisTemplate
		o.Logger = logger
	})
	if err != nil {
		return nil, err
	}

	state, err := g.Run(ctx, conv.Messages)
	if err != nil {
		return nil, err
	}
	text, ok := state.Synthesized()
	if !ok {
		return nil, fmt.Errorf("panel finished without a synthesized response")
	}
	return &Reply{
		Text:            text,
		SessionID:       conv.ID,
		Mode:            ModePanel,
		ExpertResponses: state.Responses(),
	}, nil
}
