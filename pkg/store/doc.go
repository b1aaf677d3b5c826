// Package store defines the edge store contract the graph engine consumes.
//
// A [Store] persists items and typed edges. The engine never talks to a
// database directly; it loads a snapshot through this interface, runs the
// pure algorithms, and writes back through [Store.InsertEdge] and
// [Store.DeleteEdge].
//
// # Backends
//
//   - memory: in-process maps, for tests and `--store memory`
//   - sqlite: default persistent backend (zombiezen.com/go/sqlite)
//   - badger: embedded key-value backend (dgraph-io/badger/v4)
//   - redis: shared backend (redis/go-redis/v9)
//   - mongo: shared backend (mongo-driver)
//
// # Insertion Contract
//
// Every backend validates an insert with [CheckInsert] while holding its
// write lock across the whole read-check-write sequence, so two concurrent
// inserts can never both pass a cycle check against the same stale graph.
// A rejected insert returns a *errors.CycleError and leaves the edge set
// untouched. Re-inserting an existing (from, to, kind) triple is a no-op.
//
// The storetest subpackage holds the conformance suite every backend runs.
package store
