// Package catalog persists the media library index in SQLite.
//
// Each acquired item is keyed by its canonical media ID. The batch pipeline
// uses Lookup for duplicate detection and Upsert to record finished items;
// the CLI lists, inspects, and removes entries. The schema is embedded and
// versioned; opening a database written by an incompatible version fails
// with ErrSchemaMismatch rather than migrating silently.
package catalog
