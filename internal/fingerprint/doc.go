// Package fingerprint computes deterministic identity hashes for inbox sources.
//
// A fingerprint covers the resolved source path plus the relative path, size,
// and modification time (nanoseconds) of every file beneath it. Directories are
// traversed in sorted order so the same tree state always yields the same
// SHA-256 hex digest. Files that vanish mid-scan are folded in as a distinct
// "missing" marker instead of failing the scan.
//
// A matching fingerprint is what allows a previously staged run to be reused.
package fingerprint
