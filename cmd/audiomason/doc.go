// Package main hosts the audiomason CLI entrypoint and command graph.
//
// The Cobra command tree resolves configuration, builds the import
// collaborators (ffmpeg, archive tools, tag writer, cover cache, history
// ledger) and hands them to the internal packages. Heavy lifting belongs in
// internal/; commands here only translate flags and render results.
package main
