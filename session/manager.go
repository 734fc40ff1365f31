package session

import (
	"strings"

	"github.com/google/uuid"

	"github.com/hupe1980/expertpanel/core"
)

// Conversation is one windowed request history.
type Conversation struct {
	ID       string
	Messages []core.Message
	// Dropped counts the non-system messages cut by the window.
	Dropped int
}

// Options configures a Manager.
type Options struct {
	// WindowSize bounds the non-system messages kept; zero or less keeps all.
	WindowSize int
	// NewID generates ids for conversations the caller did not name.
	NewID func() string
}

// Manager prepares inbound histories. It keeps no per-conversation state and
// is safe for concurrent use.
type Manager struct {
	opts Options
}

// NewManager creates a Manager with a window of DefaultWindowSize and uuid ids.
func NewManager(optFns ...func(o *Options)) *Manager {
	opts := Options{
		WindowSize: DefaultWindowSize,
		NewID:      uuid.NewString,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	return &Manager{opts: opts}
}

// WindowSize returns the configured window.
func (m *Manager) WindowSize() int { return m.opts.WindowSize }

// Open windows messages and assigns an id when id is blank. System messages
// are pinned ahead of the window and do not count against it.
func (m *Manager) Open(id string, messages []core.Message) Conversation {
	id = strings.TrimSpace(id)
	if id == "" {
		id = m.opts.NewID()
	}

	system, rest := SplitSystem(messages)
	kept := Window(rest, m.opts.WindowSize)

	out := make([]core.Message, 0, len(system)+len(kept))
	out = append(out, system...)
	out = append(out, kept...)

	return Conversation{
		ID:       id,
		Messages: out,
		Dropped:  len(rest) - len(kept),
	}
}
