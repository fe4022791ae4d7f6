// Package services defines shared utilities consumed by the import phases and
// the external tool adapters.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, source names, book labels, and phase
//     names for logging.
//   - Structured error markers plus the Wrap helper so the CLI can map a
//     failure to an exit status (precondition, conflict, tool failure, abort).
//   - ToolError, the shared shape for missing or failing external binaries.
//
// Use these helpers when wiring new import logic so error handling and
// observability stay uniform across the pipeline.
package services
