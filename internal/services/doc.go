// Package services defines shared utilities consumed by the import pipeline
// and its external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp request IDs, search terms, and stage names
//     for logging and tracing.
//   - Structured error markers plus the Wrap helper that translate failures
//     into consistent classifications (conflict, not found, transient).
//
// Use these helpers when wiring new pipeline logic so operational behaviour
// stays uniform across the catalog, acquisition, and storage layers.
package services
