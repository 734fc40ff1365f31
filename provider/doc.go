// Package provider resolves per-role provider configurations and turns them
// into model.Model handles.
//
// Resolution merges caller supplied, possibly partial, configurations with a
// default table keyed by role. The Factory is the only place in expertpanel
// that branches on the provider Kind; everything downstream depends on the
// model.Model interface alone.
package provider
