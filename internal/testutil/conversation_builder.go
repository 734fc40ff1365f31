package testutil

import (
	"fmt"

	"github.com/hupe1980/expertpanel/core"
)

// ConversationBuilder constructs message histories with fluent chaining.
// Example:
//
//	msgs := NewConversation().System("persona").Turns(10).User("last").Build()
type ConversationBuilder struct {
	messages []core.Message
}

// NewConversation creates an empty builder.
func NewConversation() *ConversationBuilder { return &ConversationBuilder{} }

// System appends a system message (chainable).
func (b *ConversationBuilder) System(text string) *ConversationBuilder {
	b.messages = append(b.messages, core.NewSystemMessage(text))
	return b
}

// User appends a user message (chainable).
func (b *ConversationBuilder) User(text string) *ConversationBuilder {
	b.messages = append(b.messages, core.NewUserMessage(text))
	return b
}

// Assistant appends an assistant message (chainable).
func (b *ConversationBuilder) Assistant(text string) *ConversationBuilder {
	b.messages = append(b.messages, core.NewAssistantMessage(text))
	return b
}

// Turns appends n alternating messages starting with a user message. The
// i-th appended message reads "u<i>" or "a<i>" (chainable).
func (b *ConversationBuilder) Turns(n int) *ConversationBuilder {
	for i := 0; i < n; i++ {
		if i%2 == 0 {
			b.User(fmt.Sprintf("u%d", i))
		} else {
			b.Assistant(fmt.Sprintf("a%d", i))
		}
	}
	return b
}

// Build returns a copy of the accumulated messages.
func (b *ConversationBuilder) Build() []core.Message {
	return core.CloneMessages(b.messages)
}
