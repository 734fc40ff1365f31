// Package graph implements the panel orchestration pipeline.
//
// A Graph runs one ExpertStage per registered expert followed by a single
// SynthesisStage over a request scoped State. Stages never mutate the state
// directly: they return an Update that the graph folds in through
// State.Apply, whose per-field reducers enforce the state invariants
// (messages append-only, one response per expert, synthesis written once).
//
// Expert stages can run one after another (StrategySequential) or
// concurrently (StrategyParallel). Either way updates are applied in
// registration order, so the synthesis prompt never depends on completion
// order.
package graph
