// Package logging provides a minimal logging interface and slog-backed adapters
// for expertpanel.
//
// The Logger interface defines the standard logging methods (Debug, Info, Warn,
// Error) that the graph, the chat agent and the HTTP boundary use. This package
// includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - PanelLogger with contextual helpers (component, session) and domain
//     helpers for model calls and graph runs
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "json", false)
//	panel, err := expertpanel.New(func(o *expertpanel.Options) { o.Logger = logger })
package logging
