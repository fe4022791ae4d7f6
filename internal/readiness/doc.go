// Package readiness provides readiness checks for the filesystem roots,
// external tools, and lookup service that audiomason depends on.
//
// These checks run in two contexts:
//   - The import command calls RunAll before touching the inbox. A failed
//     check aborts the run before any stage directory is created.
//   - The "audiomason deps" command renders the individual results.
//
// Optional features are skipped when disabled in config.
package readiness
