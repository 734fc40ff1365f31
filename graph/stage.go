package graph

import (
	"context"
	"text/template"

	"github.com/hupe1980/expertpanel/core"
	"github.com/hupe1980/expertpanel/expert"
	"github.com/hupe1980/expertpanel/internal/util"
	"github.com/hupe1980/expertpanel/model"
)

// SynthesisStageName is the name of the final stage.
const SynthesisStageName = "Synthesis"

// Stage is one node of the graph. Run must treat state as read-only.
type Stage interface {
	Name() string
	Run(ctx context.Context, state *State) (Update, error)
}

// ExpertStage asks one expert about the latest user message.
type ExpertStage struct {
	def   expert.Definition
	model model.Model
}

// NewExpertStage creates the stage for def backed by m.
func NewExpertStage(def expert.Definition, m model.Model) *ExpertStage {
	return &ExpertStage{def: def, model: m}
}

// Name implements Stage.
func (s *ExpertStage) Name() string { return s.def.StageName() }

// Info describes the model behind the stage.
func (s *ExpertStage) Info() model.Info { return s.model.Info() }

// Key returns the expert key this stage writes.
func (s *ExpertStage) Key() expert.Key { return s.def.Key }

// Run implements Stage. Without a user message the stage is a no-op.
func (s *ExpertStage) Run(ctx context.Context, state *State) (Update, error) {
	user, ok := state.LastUserMessage()
	if !ok {
		return Update{}, nil
	}

	text, err := model.GenerateText(ctx, s.model, []core.Message{
		core.NewSystemMessage(s.def.Prompt),
		user,
	})
	if err != nil {
		return Update{}, err
	}
	return Update{Responses: []ExpertResponse{{Key: s.def.Key, Text: text}}}, nil
}

// SynthesisPrompt is the default meta-prompt. It receives a slice of
// Section values as .Sections.
const SynthesisPrompt = `You are a Synthesis Expert. Your task is to combine insights from multiple expert perspectives into a comprehensive, well-structured response.

Below are responses from different experts on the same question:

{{range $i, $s := .Sections}}{{if $i}}
---

{{end}}## {{$s.Name}}
{{$s.Text}}
{{end}}

Please synthesize these expert perspectives into a single, cohesive response that:
1. Integrates the best insights from each expert
2. Resolves any contradictions or conflicts
3. Provides a balanced, comprehensive answer
4. Maintains clarity and organization
5. Highlights key takeaways

Your synthesized response should be professional, thorough, and actionable.`

var defaultSynthesisTemplate = util.MustParseTemplate("synthesis", SynthesisPrompt)

// Section is one labeled expert answer inside the synthesis prompt.
type Section struct {
	Key  expert.Key
	Name string
	Text string
}

// SynthesisStage merges all expert responses into one answer.
type SynthesisStage struct {
	registry *expert.Registry
	model    model.Model
	tmpl     *template.Template
}

// NewSynthesisStage creates the synthesis stage. A nil tmpl selects the
// default meta-prompt.
func NewSynthesisStage(registry *expert.Registry, m model.Model, tmpl *template.Template) *SynthesisStage {
	if tmpl == nil {
		tmpl = defaultSynthesisTemplate
	}
	return &SynthesisStage{registry: registry, model: m, tmpl: tmpl}
}

// Name implements Stage.
func (s *SynthesisStage) Name() string { return SynthesisStageName }

// Info describes the model behind the stage.
func (s *SynthesisStage) Info() model.Info { return s.model.Info() }

// Sections renders the labeled sections in response insertion order.
func (s *SynthesisStage) Sections(state *State) ([]Section, error) {
	responses := state.Responses()
	sections := make([]Section, 0, len(responses))
	for _, r := range responses {
		def, err := s.registry.Lookup(r.Key)
		if err != nil {
			return nil, err
		}
		sections = append(sections, Section{Key: r.Key, Name: def.Name, Text: r.Text})
	}
	return sections, nil
}

// Prompt renders the meta-prompt for state.
func (s *SynthesisStage) Prompt(state *State) (string, error) {
	sections, err := s.Sections(state)
	if err != nil {
		return "", err
	}
	if len(sections) == 0 {
		return "", ErrNoExpertResponses
	}
	return util.RenderTemplate(s.tmpl, struct{ Sections []Section }{sections})
}

// Run implements Stage.
func (s *SynthesisStage) Run(ctx context.Context, state *State) (Update, error) {
	prompt, err := s.Prompt(state)
	if err != nil {
		return Update{}, err
	}
	user, ok := state.LastUserMessage()
	if !ok {
		return Update{}, core.NewInputError("no user message to synthesize an answer for")
	}

	text, err := model.GenerateText(ctx, s.model, []core.Message{
		core.NewSystemMessage(prompt),
		user,
	})
	if err != nil {
		return Update{}, err
	}
	return Update{
		Messages:    []core.Message{core.NewAssistantMessage(text)},
		Synthesized: &text,
	}, nil
}
