// Package reconcile holds the configuration reconciliation engine.
//
// The engine tracks a set of proposed parameter changes separately from
// the applied on-disk state. Reads resolve proposed-then-live, proposing
// an already-effective value is a no-op, and Commit flushes every
// proposed change through the store adapter in one batch. The pending
// set and its human-readable change notes are always committed or
// discarded together, never partially.
package reconcile
