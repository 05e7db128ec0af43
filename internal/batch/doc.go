// Package batch coordinates a set of acquisition jobs.
//
// Submit validates and deduplicates the raw identifiers, then runs one
// pipeline per accepted ID on a bounded pool of workers. The returned Handle
// exposes counters, a per-job view, an ordered feed of events and
// cancellation. Counters and feed are updated under a single mutex, so a
// Snapshot is always internally consistent. Done closes exactly once: when
// every job is terminal, or when the batch timeout fires.
package batch
