// Package detect enumerates the book candidates inside a staged source tree.
//
// Every directory that directly holds audio becomes a Book, at any depth and
// regardless of whether an ancestor matched as well. Audio sitting in the
// staged root itself is reported under RootLabel. Labels are relative,
// slash-separated paths sorted case-insensitively, so detecting the same tree
// twice yields identical labels in identical order; manifest reuse depends on
// that.
package detect
