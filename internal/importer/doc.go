// Package importer runs the import flow: it picks inbox sources, stages and
// fingerprints them, walks the preflight decision steps, and then processes
// each picked book into the library.
//
// Every decision is written to the stage manifest before the filesystem
// change that depends on it. When several sources are picked, all of them
// finish preflight before any book is processed, so an interactive run asks
// every question up front and then runs unattended.
//
// Collaborators that shell out or touch the network (archive extraction,
// transcoding, tag writing, bibliographic lookup, prompts) are reached through
// the interfaces in ports.go so tests can substitute in-memory fakes.
package importer
