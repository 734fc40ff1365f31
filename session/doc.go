// Package session assigns conversation ids and bounds the history handed to
// the models. Conversations are not stored server side; the caller resends
// the history with every request.
package session
