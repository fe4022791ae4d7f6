// Package textutil provides text processing helpers for naming, matching, and
// filename sanitization.
//
// The primary use cases are:
//   - Slugs for stage directories and ignore-list matching (diacritics stripped)
//   - Display-name normalization and "Author - Title" guessing for prompts
//   - Case-folded keys for deterministic, case-insensitive ordering
//   - Token vectors and cosine similarity for judging lookup matches
//   - Sanitizing filenames for safe filesystem use
package textutil
