package session

import "github.com/hupe1980/expertpanel/core"

// DefaultWindowSize is the number of non-system messages kept per request.
const DefaultWindowSize = 20

// Window returns a copy of the last n messages in their original order. A
// non-positive n keeps everything.
func Window(messages []core.Message, n int) []core.Message {
	if n <= 0 || len(messages) <= n {
		return core.CloneMessages(messages)
	}
	return core.CloneMessages(messages[len(messages)-n:])
}

// SplitSystem separates system messages from the rest, preserving order in
// both slices.
func SplitSystem(messages []core.Message) (system, rest []core.Message) {
	for _, m := range messages {
		if m.Role == core.RoleSystem {
			system = append(system, m)
			continue
		}
		rest = append(rest, m)
	}
	return system, rest
}
