// Package pipeline defines the per-job state machine and the single-item
// pipeline that walks a job through duplicate detection, acquisition and
// finalization.
//
// Every state change is pushed through a Reporter so the batch coordinator
// can keep its counters and feed consistent; the pipeline itself holds no
// shared state.
package pipeline
