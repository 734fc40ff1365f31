// Package model defines the provider-agnostic abstraction for invoking a
// language model inside expertpanel.
//
// Core goals:
//   - A single Generate contract shared by every backend adapter
//   - Keep request/response shapes minimal and transport independent
//   - Facilitate lightweight mocking for tests (MockModel)
//
// Providers (OpenAI-compatible endpoints, Anthropic, Ollama) implement the
// Model interface in sub-packages so higher layers (graph, chat) remain
// decoupled from vendor SDKs. Only the provider factory chooses among them.
package model
