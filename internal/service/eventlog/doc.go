// Package eventlog defines the append-only attribution event trail.
//
// Every state-changing component writes an event here as a side effect.
// Entries are immutable: the log is never updated, deleted or compacted,
// and insertion order is the only ordering guarantee.
package eventlog
