// Package staging manages per-source stage runs under the stage root.
//
// A run directory is <stage_root>/<slug(source name)>. It holds the copied or
// unpacked source in src/, per-book work directories in work/, the manifest,
// and dry-run summaries. Runs are reused only when the operator asks for it
// and the recorded source fingerprint still matches.
package staging
