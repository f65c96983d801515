// Package store provides SQLite-backed durable storage for the fulfillment
// engine: the rule/card catalog, correlated orders, and the idempotency
// ledger.
//
// The ledger is the engine's single contended resource. Its re-delivery
// gate is a conditional insert (INSERT ... ON CONFLICT(key) DO NOTHING)
// whose rows-affected count decides the winner: under concurrent duplicate
// fulfillment exactly one caller observes inserted=true. Stock consumption
// for data cards joins the same transaction, so a popped line is never left
// unassigned when the commit fails.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: enforce referential integrity
//
// SQLite allows one writer at a time; the pool is capped at a single
// connection so transactions serialize instead of failing with
// SQLITE_BUSY. Per-key contention therefore resolves in the database, not
// behind a process-wide mutex.
package store
