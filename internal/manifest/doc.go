// Package manifest persists the per-stage decision ledger (manifest.json).
//
// A Manifest has four sections: the source identity, the detected, picked, and
// processed book labels, the run-level decisions, and per-book metadata. Every
// write goes to a temporary file in the same directory and is renamed over the
// final path, so a crash never leaves a half-written ledger. Reads never fail:
// a missing or unparsable manifest loads as an empty one and the LoadStatus
// says which.
//
// Older untyped manifests (schema 1, cover stored as mode and source strings)
// are migrated in memory on load and rewritten in the current shape on the
// next update.
package manifest
