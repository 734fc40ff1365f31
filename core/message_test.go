package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLastUserMessage(t *testing.T) {
	history := []Message{
		NewSystemMessage("s"),
		NewUserMessage("first"),
		NewAssistantMessage("a"),
		NewUserMessage("second"),
		NewAssistantMessage("b"),
	}

	m, ok := LastUserMessage(history)
	require.True(t, ok)
	assert.Equal(t, "second", m.Content)

	_, ok = LastUserMessage([]Message{NewSystemMessage("s")})
	assert.False(t, ok)
}

func TestValidateMessages(t *testing.T) {
	tests := []struct {
		name    string
		history []Message
		wantErr bool
	}{
		{"valid", []Message{NewUserMessage("hi")}, false},
		{"empty", nil, true},
		{"unknown role", []Message{{Role: "tool", Content: "x"}}, true},
		{"blank content", []Message{NewUserMessage(" \n")}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateMessages(tt.history)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			var ie *InputError
			require.True(t, errors.As(err, &ie))
			assert.Equal(t, CategoryInput, CategoryOf(err))
		})
	}
}

func TestCloneMessages(t *testing.T) {
	assert.Nil(t, CloneMessages(nil))

	in := []Message{NewUserMessage("a")}
	out := CloneMessages(in)
	out[0].Content = "b"
	assert.Equal(t, "a", in[0].Content)
}

func TestRole_Valid(t *testing.T) {
	assert.True(t, RoleUser.Valid())
	assert.True(t, RoleAssistant.Valid())
	assert.True(t, RoleSystem.Valid())
	assert.False(t, Role("function").Valid())
}
