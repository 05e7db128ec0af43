// Package services defines shared utilities consumed by the acquisition
// pipeline and its external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp media IDs, batch IDs, stage names, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper so failures can be
//     classified consistently (see Hint).
//
// Use these helpers when wiring new stage logic so error handling and
// observability stay uniform across the pipeline.
package services
