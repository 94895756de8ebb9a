// Package session defines the session record, its wire encoding and the
// [Store] contract the engine persists sessions through.
//
// # Encoding
//
// Records are stored as a version byte followed by JSON. The version byte is
// checked on every read; an unknown version is reported as [ErrCorrupt].
//
// # Stores
//
// [MemoryStore] and [RedisStore] live here. The Postgres and Valkey stores
// live in the subpackages postgres and valkey and share the Lua scripts in
// this package where the backend speaks Redis.
//
// Every store method is a single atomic operation on its backend.
// [Store.CompareAndSwap] is the only primitive the engine uses for
// read-modify-write; it compares the record revision.
//
// # What this package must NOT do
//
//   - Import the engine, jwt, claims or csrf (no upward imports).
//   - Interpret tokens or decide whether a refresh is theft.
//   - Retry a failed backend call.
package session
