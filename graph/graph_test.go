package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hupe1980/expertpanel/core"
	"github.com/hupe1980/expertpanel/expert"
	"github.com/hupe1980/expertpanel/logging"
	"github.com/hupe1980/expertpanel/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type panelModels struct {
	experts   *model.MockModel
	synthesis *model.MockModel
}

func newPanelModels(registry *expert.Registry) (panelModels, map[expert.Key]model.Model) {
	pm := panelModels{
		experts:   model.NewMockModel("experts", "mock"),
		synthesis: model.NewMockModel("synthesis", "mock"),
	}
	models := make(map[expert.Key]model.Model)
	for _, def := range registry.Definitions() {
		pm.experts.AddResponse(def.Prompt, "answer from "+string(def.Key))
		models[def.Key] = pm.experts
	}
	models[expert.Synthesis] = pm.synthesis
	return pm, models
}

func TestGraph_FullTraversal(t *testing.T) {
	registry := expert.Default()
	pm, models := newPanelModels(registry)
	pm.synthesis.AddResponse("How do I scale?", "the synthesized answer")

	g, err := New(registry, models)
	require.NoError(t, err)

	state, err := g.Run(context.Background(), []core.Message{core.NewUserMessage("How do I scale?")})
	require.NoError(t, err)

	responses := state.ResponseMap()
	require.Len(t, responses, 4)
	for _, key := range registry.Keys() {
		assert.Equal(t, "answer from "+string(key), responses[key])
	}

	final, ok := state.Synthesized()
	require.True(t, ok)
	assert.Equal(t, "the synthesized answer", final)

	msgs := state.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, core.NewAssistantMessage("the synthesized answer"), msgs[1])

	assert.Equal(t, 4, pm.experts.Calls())
	assert.Equal(t, 1, pm.synthesis.Calls())
}

func TestGraph_LogsOneEntryPerEvent(t *testing.T) {
	registry := expert.Default()
	pm, models := newPanelModels(registry)
	creative, _ := registry.Lookup(expert.Creative)
	pm.experts.AddError(creative.Prompt, &core.ProviderError{Kind: core.ProviderErrNetwork, Provider: "openai"})

	var buf bytes.Buffer
	logger := logging.NewLogger(&logging.LoggerConfig{Level: logging.LogLevelDebug, Format: "json", Output: &buf})

	g, err := New(registry, models, func(o *Options) { o.Logger = logger })
	require.NoError(t, err)

	_, err = g.Run(context.Background(), []core.Message{core.NewUserMessage("q")})
	require.Error(t, err)

	var msgs []string
	var graphEntry map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		msgs = append(msgs, entry["msg"].(string))
		if entry["msg"] == "Graph execution failed" {
			graphEntry = entry
		}
	}
	assert.Equal(t, []string{"LLM call completed", "LLM call failed", "Graph execution failed"}, msgs)
	require.NotNil(t, graphEntry)
	assert.EqualValues(t, 1, graphEntry["responses"])
}

func TestGraph_ExpertRequestShape(t *testing.T) {
	registry := expert.Default()
	pm, models := newPanelModels(registry)

	g, err := New(registry, models)
	require.NoError(t, err)

	_, err = g.Run(context.Background(), []core.Message{
		core.NewUserMessage("first"),
		core.NewAssistantMessage("reply"),
		core.NewUserMessage("second"),
	})
	require.NoError(t, err)

	tech, _ := registry.Lookup(expert.Technical)
	req := pm.experts.Requests()[0]
	assert.Equal(t, []core.Message{
		core.NewSystemMessage(tech.Prompt),
		core.NewUserMessage("second"),
	}, req.Messages)
}

func TestGraph_SynthesisSectionsInRegistrationOrder(t *testing.T) {
	registry := expert.Default()
	pm, models := newPanelModels(registry)

	g, err := New(registry, models)
	require.NoError(t, err)

	_, err = g.Run(context.Background(), []core.Message{core.NewUserMessage("q")})
	require.NoError(t, err)

	reqs := pm.synthesis.Requests()
	require.Len(t, reqs, 1)
	require.Len(t, reqs[0].Messages, 2)

	system := reqs[0].Messages[0]
	assert.Equal(t, core.RoleSystem, system.Role)
	assert.Equal(t, core.NewUserMessage("q"), reqs[0].Messages[1])

	want := "## Technical Expert\nanswer from TECHNICAL\n\n---\n\n" +
		"## Creative Expert\nanswer from CREATIVE\n\n---\n\n" +
		"## Analytical Expert\nanswer from ANALYTICAL\n\n---\n\n" +
		"## Communication Expert\nanswer from COMMUNICATION\n\n\nPlease synthesize"
	assert.Contains(t, system.Content, want)
	assert.True(t, strings.HasPrefix(system.Content, "You are a Synthesis Expert."))
}

func TestGraph_CreativeFailureAbortsBeforeSynthesis(t *testing.T) {
	registry := expert.Default()
	pm, models := newPanelModels(registry)

	creative, _ := registry.Lookup(expert.Creative)
	pm.experts.AddError(creative.Prompt, &core.ProviderError{Kind: core.ProviderErrRateLimit, Provider: "openai"})

	g, err := New(registry, models)
	require.NoError(t, err)

	state, err := g.Run(context.Background(), []core.Message{core.NewUserMessage("q")})
	require.Error(t, err)

	var pe *core.ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, core.ProviderErrRateLimit, pe.Kind)
	assert.Contains(t, err.Error(), "CreativeExpert")

	assert.Equal(t, []ExpertResponse{{Key: expert.Technical, Text: "answer from TECHNICAL"}}, state.Responses())
	_, ok := state.Synthesized()
	assert.False(t, ok)
	assert.Equal(t, 0, pm.synthesis.Calls())
	assert.Equal(t, 2, pm.experts.Calls(), "stages after the failure must not run")
}

func TestGraph_NoUserMessageIsNoOpForExperts(t *testing.T) {
	registry := expert.Default()
	pm, models := newPanelModels(registry)

	g, err := New(registry, models)
	require.NoError(t, err)

	state, err := g.Run(context.Background(), []core.Message{core.NewSystemMessage("only system")})
	require.ErrorIs(t, err, ErrNoExpertResponses)

	assert.Empty(t, state.Responses())
	assert.Equal(t, 0, pm.experts.Calls())
	assert.Equal(t, 0, pm.synthesis.Calls())
}

func TestGraph_MissingModel(t *testing.T) {
	registry := expert.Default()
	_, models := newPanelModels(registry)
	delete(models, expert.Synthesis)

	_, err := New(registry, models)

	var ce *core.ConfigurationError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "SYNTHESIS", ce.Role)
}

func TestGraph_UnknownStrategy(t *testing.T) {
	registry := expert.Default()
	_, models := newPanelModels(registry)

	_, err := New(registry, models, func(o *Options) { o.Strategy = "random" })
	assert.Error(t, err)
}

func TestGraph_Stages(t *testing.T) {
	registry := expert.Default()
	_, models := newPanelModels(registry)

	g, err := New(registry, models)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"TechnicalExpert", "CreativeExpert", "AnalyticalExpert", "CommunicationExpert", "Synthesis",
	}, g.Stages())
	assert.Equal(t, StrategySequential, g.Strategy())
}

// delayedModel answers after a fixed delay, reporting completion order.
type delayedModel struct {
	text    string
	delay   time.Duration
	counter *atomic.Int32
	done    int32
}

func (m *delayedModel) Generate(ctx context.Context, _ model.Request) (<-chan model.Response, <-chan error) {
	out := make(chan model.Response, 1)
	errCh := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errCh)
		select {
		case <-ctx.Done():
			errCh <- ctx.Err()
		case <-time.After(m.delay):
			m.done = m.counter.Add(1)
			out <- model.Response{Content: core.NewAssistantMessage(m.text)}
		}
	}()
	return out, errCh
}

func (m *delayedModel) Info() model.Info { return model.Info{Name: m.text, Provider: "delayed"} }

func TestGraph_ParallelKeepsRegistrationOrder(t *testing.T) {
	registry := expert.Default()
	var counter atomic.Int32
	synth := model.NewMockModel("synthesis", "mock")

	delays := map[expert.Key]time.Duration{
		expert.Technical:     80 * time.Millisecond,
		expert.Creative:      60 * time.Millisecond,
		expert.Analytical:    40 * time.Millisecond,
		expert.Communication: 0,
	}
	models := map[expert.Key]model.Model{expert.Synthesis: synth}
	delayed := map[expert.Key]*delayedModel{}
	for key, d := range delays {
		m := &delayedModel{text: "from " + string(key), delay: d, counter: &counter}
		delayed[key] = m
		models[key] = m
	}

	g, err := New(registry, models, func(o *Options) { o.Strategy = StrategyParallel })
	require.NoError(t, err)

	state, err := g.Run(context.Background(), []core.Message{core.NewUserMessage("q")})
	require.NoError(t, err)

	assert.Greater(t, delayed[expert.Technical].done, delayed[expert.Communication].done)

	keys := make([]expert.Key, 0, 4)
	for _, r := range state.Responses() {
		keys = append(keys, r.Key)
	}
	assert.Equal(t, registry.Keys(), keys)

	system := synth.Requests()[0].Messages[0].Content
	assert.Less(t, strings.Index(system, "## Technical Expert"), strings.Index(system, "## Communication Expert"))
}

func TestGraph_ParallelFailureSkipsSynthesis(t *testing.T) {
	registry := expert.Default()
	pm, models := newPanelModels(registry)

	analytical, _ := registry.Lookup(expert.Analytical)
	pm.experts.AddError(analytical.Prompt, &core.ProviderError{Kind: core.ProviderErrAuth, Provider: "gemini"})

	g, err := New(registry, models, func(o *Options) { o.Strategy = StrategyParallel })
	require.NoError(t, err)

	state, err := g.Run(context.Background(), []core.Message{core.NewUserMessage("q")})
	require.Error(t, err)
	assert.Equal(t, core.CategoryProvider, core.CategoryOf(err))

	_, ok := state.Response(expert.Analytical)
	assert.False(t, ok)
	_, ok = state.Response(expert.Communication)
	assert.False(t, ok, "updates after the failed stage are not applied")
	assert.Equal(t, 0, pm.synthesis.Calls())
}

func TestGraph_Timeout(t *testing.T) {
	registry := expert.Default()
	var counter atomic.Int32
	models := map[expert.Key]model.Model{expert.Synthesis: model.NewMockModel("s", "mock")}
	for _, key := range registry.Keys() {
		models[key] = &delayedModel{text: "slow", delay: time.Second, counter: &counter}
	}

	g, err := New(registry, models, func(o *Options) { o.Timeout = 20 * time.Millisecond })
	require.NoError(t, err)

	_, err = g.Run(context.Background(), []core.Message{core.NewUserMessage("q")})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, core.CategoryTimeout, core.CategoryOf(err))
}

func TestGraph_ConcurrentRuns(t *testing.T) {
	registry := expert.Default()
	_, models := newPanelModels(registry)

	g, err := New(registry, models, func(o *Options) { o.Strategy = StrategyParallel })
	require.NoError(t, err)

	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		go func() {
			state, err := g.Run(context.Background(), []core.Message{core.NewUserMessage("q")})
			if err == nil && len(state.Responses()) != 4 {
				err = errors.New("incomplete state")
			}
			errs <- err
		}()
	}
	for i := 0; i < 8; i++ {
		assert.NoError(t, <-errs)
	}
}

func TestParseStrategy(t *testing.T) {
	s, err := ParseStrategy("")
	require.NoError(t, err)
	assert.Equal(t, StrategySequential, s)

	s, err = ParseStrategy("Parallel")
	require.NoError(t, err)
	assert.Equal(t, StrategyParallel, s)

	_, err = ParseStrategy("random")
	assert.Error(t, err)
}
