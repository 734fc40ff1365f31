package model

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/hupe1980/expertpanel/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateText_MockDefaultEcho(t *testing.T) {
	m := NewMockModel("mock-1", "mock")

	text, err := GenerateText(context.Background(), m, []core.Message{core.NewUserMessage("hello")})
	require.NoError(t, err)
	assert.Equal(t, "Mock response to: hello", text)
	assert.Equal(t, Info{Name: "mock-1", Provider: "mock"}, m.Info())
}

func TestMockModel_LookupPrefersSystemPrompt(t *testing.T) {
	m := NewMockModel("mock", "mock")
	m.AddResponse("You are technical.", "by system")
	m.AddResponse("question", "by user")

	text, err := GenerateText(context.Background(), m, []core.Message{
		core.NewSystemMessage("You are technical."),
		core.NewUserMessage("question"),
	})
	require.NoError(t, err)
	assert.Equal(t, "by system", text)

	text, err = GenerateText(context.Background(), m, []core.Message{
		core.NewSystemMessage("Unknown"),
		core.NewUserMessage("question"),
	})
	require.NoError(t, err)
	assert.Equal(t, "by user", text)
}

func TestMockModel_ErrorWins(t *testing.T) {
	m := NewMockModel("mock", "mock")
	boom := errors.New("boom")
	m.AddResponse("q", "ignored")
	m.AddError("q", boom)

	_, err := GenerateText(context.Background(), m, []core.Message{core.NewUserMessage("q")})
	assert.ErrorIs(t, err, boom)
}

func TestMockModel_RecordsRequests(t *testing.T) {
	m := NewMockModel("mock", "mock")
	msgs := []core.Message{core.NewUserMessage("q")}

	_, err := GenerateText(context.Background(), m, msgs)
	require.NoError(t, err)
	msgs[0].Content = "mutated"

	require.Equal(t, 1, m.Calls())
	assert.Equal(t, "q", m.Requests()[0].Messages[0].Content)
}

func TestMockModel_Concurrent(t *testing.T) {
	m := NewMockModel("mock", "mock")
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := GenerateText(context.Background(), m, []core.Message{core.NewUserMessage("q")})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, 16, m.Calls())
}

func TestGenerateText_EmptyResponse(t *testing.T) {
	m := NewMockModel("mock", "mock")
	m.AddResponse("q", "   ")

	_, err := GenerateText(context.Background(), m, []core.Message{core.NewUserMessage("q")})

	var pe *core.ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, core.ProviderErrInvalidResponse, pe.Kind)
	assert.ErrorIs(t, err, ErrEmptyResponse)
}
