package testutil

import (
	"testing"

	"github.com/hupe1980/expertpanel/core"
	"github.com/stretchr/testify/assert"
)

func TestConversationBuilder(t *testing.T) {
	msgs := NewConversation().System("s").Turns(3).Assistant("done").Build()

	assert.Equal(t, []core.Message{
		core.NewSystemMessage("s"),
		core.NewUserMessage("u0"),
		core.NewAssistantMessage("a1"),
		core.NewUserMessage("u2"),
		core.NewAssistantMessage("done"),
	}, msgs)
}
