// Package fulfill executes delivery decisions exactly once.
//
// The package has two layers:
//
// Executor resolves a ranked candidate list into a terminal outcome. The
// idempotency check-and-mark, any stock pop, and the counter increment
// happen in one store transaction, so concurrent duplicate invocations for
// the same key resolve to exactly one Fulfilled and the rest to Skipped.
//
// Engine wraps the full pipeline (classify, correlate, match, fulfill)
// behind a thread-safe FIFO queue drained by a worker pool. Classification
// and matching are pure functions over their inputs plus a read-only
// catalog snapshot, so tasks for unrelated keys process with full
// parallelism; only the per-key conditional insert in the ledger contends.
//
// Per-event state machine:
//
//	Unclassified → PaymentDetected → OrderCorrelated → RuleMatched
//	             → {Fulfilled | Skipped | Failed}
//
// Fulfilled, Skipped, and Failed are terminal. Classifier and matcher
// never fail; only the executor's persistence interaction can produce a
// Failed outcome.
package fulfill
