// Package engine composes an edge store with the graph algorithms.
//
// An [Engine] is the single entry point used by the CLI and the HTTP API.
// Each operation loads a consistent snapshot from the [store.Store], runs
// the pure algorithm from [ready], [swarm], [visual] or
// [transform], and reports the outcome through the configured
// [observability.EngineHooks].
//
// Writes go through [Engine.AddDependency], which relies on the store to
// reject edges that would close a cycle of blocking dependencies. The
// engine adds logging and metrics around that check but never bypasses it.
//
// The Engine holds no per-call state. Multiple goroutines may share one.
package engine
