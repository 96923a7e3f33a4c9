// Package store provides the durable key-value persistence surface used by
// the Notificare SDK to keep device, session and application records across
// process restarts.
//
// The package defines a minimal Store interface plus three implementations:
//
//   - MemoryStore: process-local map, the default for tests and ephemeral use
//   - FileStore: a single JSON document on disk, written atomically, the
//     closest analogue to browser local storage for CLI/desktop hosts
//   - RedisStore: a namespaced Redis hash-free keyspace for server-side hosts
//     that embed the SDK in a long-running process fleet
//
// All implementations are safe for concurrent use. Values are opaque byte
// slices; the generic GetJSON/SetJSON helpers layer JSON (de)serialization on
// top for the structured records the SDK persists.
//
// Key naming follows the upstream convention, e.g. "re.notifica.device" and
// "re.notifica.session".
package store
