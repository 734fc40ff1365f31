// Package expert holds the static catalogue of expert specializations. Each
// Definition carries a display name and the role prompt injected as the sole
// system instruction of that expert's model invocation.
//
// A Registry is constructed once at startup (Default or NewRegistry), validated
// eagerly, and passed by reference to every component that needs it. It is
// never mutated afterwards.
package expert
