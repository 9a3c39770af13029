/*
Package ports defines the driven ports (interfaces) of the process-diagram core.

These interfaces decouple collections, catalogs and the workspace facade from
concrete storage and notification backends.

# Key Interfaces

  - KeyValueStore: Persists one JSON document per collection key (memory, file, Redis, SQLite).
  - Notifier: Receives user-facing outcomes (validation summaries, persistence failures).
  - DistributedLocker: Serializes collection writes across replicas.
  - Watchable: Signals that the backing data changed outside the process.
*/
package ports
