// Package store provides the SQLite-backed catalog of compiled queries.
//
// The catalog holds two kinds of records:
//   - Schemas: the definitions a query was compiled against, keyed by schema hash
//   - Queries: the raw spec and its rendered SQL, keyed by content-addressed query id
//
// # Identity and Ordering
//
// Both ids are content hashes (see ir.SchemaHash and ir.QueryID), so saving
// the same schema or query twice is a no-op. Records carry a seq counter
// assigned on first insert; listings use ORDER BY seq ASC, id COLLATE BINARY ASC
// and never depend on wall time.
//
// Specs are stored as RFC 8785 canonical JSON. Definitions are stored in
// declaration order because column and table order are significant.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: A query must reference a saved schema
package store
