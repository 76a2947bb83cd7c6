// Package telemetry records search activity in a document store and derives a
// trending leaderboard from it.
//
// # Architecture
//
//   - Store: the document-store contract (list with equality/order/limit,
//     create, partial update). Backends that can increment a field atomically
//     also implement Incrementer.
//   - RESTStore: Appwrite-compatible document REST API.
//   - SQLiteStore: embedded backend on modernc.org/sqlite with a unique index on
//     the search term and atomic increments.
//   - MemoryStore: mutex-guarded in-process backend, used by tests and the
//     "memory" driver.
//   - Recorder: best-effort upsert of one SearchRecord per distinct term.
//   - Trending: top-N records ordered by count.
//
// Every document read from a store is decoded through DecodeRecord, which
// rejects malformed shapes with a DecodeError instead of passing them on.
//
// Recorder and Trending never return store errors to their callers; failures
// are logged and absorbed.
package telemetry
