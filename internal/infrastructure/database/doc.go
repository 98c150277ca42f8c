// Package database manages the SQLite connection used by the durable
// device store.
//
// It handles connection-string pragmas (WAL, busy timeout, foreign keys),
// pool sizing appropriate for SQLite's single-writer model, health checks,
// and schema migrations applied from an embedded filesystem.
package database
