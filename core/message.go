package core

import "strings"

// Role identifies the author of a Message.
type Role string

const (
	// RoleUser marks messages written by the end user.
	RoleUser Role = "user"
	// RoleAssistant marks messages produced by a model.
	RoleAssistant Role = "assistant"
	// RoleSystem marks instruction messages.
	RoleSystem Role = "system"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	default:
		return false
	}
}

// Message is a single role-tagged conversation entry. Messages are values and
// are never mutated once they enter a history.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// NewUserMessage returns a user message with the given text.
func NewUserMessage(text string) Message { return Message{Role: RoleUser, Content: text} }

// NewAssistantMessage returns an assistant message with the given text.
func NewAssistantMessage(text string) Message { return Message{Role: RoleAssistant, Content: text} }

// NewSystemMessage returns a system message with the given text.
func NewSystemMessage(text string) Message { return Message{Role: RoleSystem, Content: text} }

// LastUserMessage returns the most recent user message in history.
func LastUserMessage(history []Message) (Message, bool) {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == RoleUser {
			return history[i], true
		}
	}
	return Message{}, false
}

// ValidateMessages checks that history is non-empty and well formed. It returns
// an *InputError describing the first problem found.
func ValidateMessages(history []Message) error {
	if len(history) == 0 {
		return NewInputError("request must include a non-empty messages array")
	}
	for i, m := range history {
		if !m.Role.Valid() {
			return NewInputError("message %d has unsupported role %q", i, m.Role)
		}
		if strings.TrimSpace(m.Content) == "" {
			return NewInputError("message %d has empty content", i)
		}
	}
	return nil
}

// CloneMessages returns a copy of history that does not share its backing array.
func CloneMessages(history []Message) []Message {
	if history == nil {
		return nil
	}
	out := make([]Message, len(history))
	copy(out, history)
	return out
}
