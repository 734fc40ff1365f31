package graph

import (
	"context"
	"fmt"
	"strings"
	"text/template"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/expertpanel/core"
	"github.com/hupe1980/expertpanel/expert"
	"github.com/hupe1980/expertpanel/logging"
	"github.com/hupe1980/expertpanel/model"
)

// Strategy selects how expert stages are scheduled.
type Strategy string

const (
	// StrategySequential runs expert stages one after another in registration order.
	StrategySequential Strategy = "sequential"
	// StrategyParallel runs expert stages concurrently and applies their
	// updates in registration order once all have finished.
	StrategyParallel Strategy = "parallel"
)

// ParseStrategy parses a strategy name. The empty string selects StrategySequential.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", StrategySequential:
		return StrategySequential, nil
	case StrategyParallel:
		return StrategyParallel, nil
	}
	return "", fmt.Errorf("unknown graph strategy %q", s)
}

// Options configures a Graph.
type Options struct {
	Strategy Strategy
	// Timeout bounds a whole Run; zero means no limit beyond the caller's context.
	Timeout time.Duration
	// SynthesisTemplate overrides the default synthesis meta-prompt.
	SynthesisTemplate *template.Template
	Logger            logging.Logger
}

// callLogger and runLogger are optional Logger extensions implemented by
// *logging.PanelLogger.
type callLogger interface {
	LogLLMCall(provider, model string, dur time.Duration, success bool, err error)
}

type runLogger interface {
	LogGraphExecution(strategy string, stages, responses int, dur time.Duration, success bool, err error)
}

// Graph is the compiled, reusable panel pipeline. It holds no per-request
// state and is safe for concurrent use.
type Graph struct {
	experts   []*ExpertStage
	synthesis Stage
	opts      Options
}

// New compiles a graph for every expert in registry. models must contain one
// model per registered key plus expert.Synthesis.
func New(registry *expert.Registry, models map[expert.Key]model.Model, optFns ...func(o *Options)) (*Graph, error) {
	opts := Options{
		Strategy: StrategySequential,
		Logger:   logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if _, err := ParseStrategy(string(opts.Strategy)); err != nil {
		return nil, err
	}

	g := &Graph{opts: opts}
	for _, def := range registry.Definitions() {
		m, ok := models[def.Key]
		if !ok {
			return nil, core.NewConfigurationError(string(def.Key), "no model for expert")
		}
		g.experts = append(g.experts, NewExpertStage(def, m))
	}

	synth, ok := models[expert.Synthesis]
	if !ok {
		return nil, core.NewConfigurationError(string(expert.Synthesis), "no model for synthesis")
	}
	g.synthesis = NewSynthesisStage(registry, synth, opts.SynthesisTemplate)
	return g, nil
}

// Stages returns the stage names in traversal order, ending with Synthesis.
func (g *Graph) Stages() []string {
	names := make([]string, 0, len(g.experts)+1)
	for _, s := range g.experts {
		names = append(names, s.Name())
	}
	return append(names, g.synthesis.Name())
}

// Strategy returns the configured scheduling strategy.
func (g *Graph) Strategy() Strategy { return g.opts.Strategy }

// Run executes the pipeline over messages. The returned state is never nil:
// on failure it holds everything applied before the failing stage, so
// callers can inspect partial results. Synthesis only runs when every expert
// stage succeeded.
func (g *Graph) Run(ctx context.Context, messages []core.Message) (*State, error) {
	if g.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	state := NewState(messages)

	var err error
	if g.opts.Strategy == StrategyParallel {
		err = g.runParallel(ctx, state)
	} else {
		err = g.runSequential(ctx, state)
	}
	if err == nil {
		err = g.runStage(ctx, g.synthesis, state)
	}

	if rl, ok := g.opts.Logger.(runLogger); ok {
		rl.LogGraphExecution(string(g.opts.Strategy), len(g.experts)+1, len(state.order), time.Since(start), err == nil, err)
		return state, err
	}

	args := []any{
		"strategy", string(g.opts.Strategy),
		"stages", len(g.experts) + 1,
		"responses", len(state.order),
		"duration", time.Since(start),
	}
	if err != nil {
		g.opts.Logger.Error("panel graph failed", append(args, "error", err)...)
		return state, err
	}
	g.opts.Logger.Info("panel graph completed", args...)
	return state, nil
}

func (g *Graph) runSequential(ctx context.Context, state *State) error {
	for _, s := range g.experts {
		if err := g.runStage(ctx, s, state); err != nil {
			return err
		}
	}
	return nil
}

func (g *Graph) runStage(ctx context.Context, s Stage, state *State) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("stage %s: %w", s.Name(), err)
	}
	start := time.Now()
	update, err := s.Run(ctx, state)
	g.logStage(s, update, time.Since(start), err)
	if err != nil {
		return fmt.Errorf("stage %s: %w", s.Name(), err)
	}
	if err := state.Apply(update); err != nil {
		return fmt.Errorf("stage %s: %w", s.Name(), err)
	}
	return nil
}

// runParallel fans expert stages out over a shared read-only state. The
// state is only written after all stages returned; updates are applied in
// registration order up to the first failed stage.
func (g *Graph) runParallel(ctx context.Context, state *State) error {
	updates := make([]Update, len(g.experts))
	failed := make([]bool, len(g.experts))

	eg, egCtx := errgroup.WithContext(ctx)
	for i, s := range g.experts {
		eg.Go(func() error {
			start := time.Now()
			update, err := s.Run(egCtx, state)
			g.logStage(s, update, time.Since(start), err)
			if err != nil {
				failed[i] = true
				return fmt.Errorf("stage %s: %w", s.Name(), err)
			}
			updates[i] = update
			return nil
		})
	}
	runErr := eg.Wait()

	for i, s := range g.experts {
		if failed[i] {
			break
		}
		if err := state.Apply(updates[i]); err != nil {
			return fmt.Errorf("stage %s: %w", s.Name(), err)
		}
	}
	return runErr
}

func (g *Graph) logStage(s Stage, update Update, dur time.Duration, err error) {
	if cl, ok := g.opts.Logger.(callLogger); ok && (err != nil || !update.IsZero()) {
		if ms, ok := s.(interface{ Info() model.Info }); ok {
			info := ms.Info()
			cl.LogLLMCall(info.Provider, info.Name, dur, err == nil, err)
			return
		}
	}
	if err != nil {
		g.opts.Logger.Warn("stage failed", "stage", s.Name(), "duration", dur, "error", err)
		return
	}
	g.opts.Logger.Debug("stage completed", "stage", s.Name(), "duration", dur)
}
