package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hupe1980/expertpanel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_InvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("panel:\n  strategy: random\n"), 0o600))

	err := run(context.Background(), path, "", expertpanel.ModePanel, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestRun_AskReportsMissingCredentials(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "")

	var out bytes.Buffer
	err := run(context.Background(), "", "hello", expertpanel.ModeChat, &out)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "misconfigured")
	assert.Empty(t, out.String())
}
