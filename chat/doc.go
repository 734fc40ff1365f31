// Package chat implements the single-agent conversational mode: one model
// call over the windowed history under a persona system prompt that carries
// the current date and time.
package chat
