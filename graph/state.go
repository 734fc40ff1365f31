package graph

import (
	"errors"
	"fmt"

	"github.com/hupe1980/expertpanel/core"
	"github.com/hupe1980/expertpanel/expert"
)

var (
	// ErrDuplicateResponse is returned when an update writes an expert key
	// that already holds a response.
	ErrDuplicateResponse = errors.New("expert response already recorded")
	// ErrAlreadySynthesized is returned when the synthesized response is
	// written a second time.
	ErrAlreadySynthesized = errors.New("synthesized response already set")
	// ErrNoExpertResponses is returned when synthesis runs over an empty
	// response map.
	ErrNoExpertResponses = errors.New("no expert responses to synthesize")
)

// ExpertResponse is the text one expert produced.
type ExpertResponse struct {
	Key  expert.Key `json:"key"`
	Text string     `json:"text"`
}

// State is the request scoped orchestration state.
type State struct {
	messages    []core.Message
	responses   map[expert.Key]string
	order       []expert.Key
	synthesized *string
}

// NewState seeds a state from the inbound conversation.
func NewState(messages []core.Message) *State {
	return &State{
		messages:  core.CloneMessages(messages),
		responses: make(map[expert.Key]string),
	}
}

// Messages returns a copy of the conversation.
func (s *State) Messages() []core.Message { return core.CloneMessages(s.messages) }

// LastUserMessage returns the most recent user message.
func (s *State) LastUserMessage() (core.Message, bool) {
	return core.LastUserMessage(s.messages)
}

// Response returns the text recorded for key.
func (s *State) Response(key expert.Key) (string, bool) {
	text, ok := s.responses[key]
	return text, ok
}

// Responses returns the recorded expert responses in insertion order.
func (s *State) Responses() []ExpertResponse {
	out := make([]ExpertResponse, 0, len(s.order))
	for _, k := range s.order {
		out = append(out, ExpertResponse{Key: k, Text: s.responses[k]})
	}
	return out
}

// ResponseMap returns a copy of the expert response map.
func (s *State) ResponseMap() map[expert.Key]string {
	out := make(map[expert.Key]string, len(s.responses))
	for k, v := range s.responses {
		out[k] = v
	}
	return out
}

// Synthesized returns the final answer once synthesis has run.
func (s *State) Synthesized() (string, bool) {
	if s.synthesized == nil {
		return "", false
	}
	return *s.synthesized, true
}

// Clone returns a deep copy of the state.
func (s *State) Clone() *State {
	c := &State{
		messages:  core.CloneMessages(s.messages),
		responses: s.ResponseMap(),
		order:     append([]expert.Key(nil), s.order...),
	}
	if s.synthesized != nil {
		v := *s.synthesized
		c.synthesized = &v
	}
	return c
}

// Update is the delta a stage returns. A zero Update is a no-op.
type Update struct {
	Messages    []core.Message
	Responses   []ExpertResponse
	Synthesized *string
}

// IsZero reports whether the update changes nothing.
func (u Update) IsZero() bool {
	return len(u.Messages) == 0 && len(u.Responses) == 0 && u.Synthesized == nil
}

// Apply folds u into the state. The update is validated before anything is
// written, so a rejected update leaves the state unchanged.
func (s *State) Apply(u Update) error {
	seen := make(map[expert.Key]struct{}, len(u.Responses))
	for _, r := range u.Responses {
		if _, ok := s.responses[r.Key]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateResponse, r.Key)
		}
		if _, ok := seen[r.Key]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateResponse, r.Key)
		}
		seen[r.Key] = struct{}{}
	}
	if u.Synthesized != nil && s.synthesized != nil {
		return ErrAlreadySynthesized
	}

	s.messages = append(s.messages, u.Messages...)
	for _, r := range u.Responses {
		s.responses[r.Key] = r.Text
		s.order = append(s.order, r.Key)
	}
	if u.Synthesized != nil {
		v := *u.Synthesized
		s.synthesized = &v
	}
	return nil
}
