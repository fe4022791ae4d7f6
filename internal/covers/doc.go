// Package covers selects, loads, and caches book cover art.
//
// Selection follows a fixed fallback chain: a cover.<ext> file in the book
// directory or the staged root, a picture embedded in the first audio file,
// a frame extracted from an m4a/m4b container, and finally an operator
// supplied path or URL. When both a file cover and an embedded cover exist
// the resolver refuses to pick one until a Choice has been recorded.
//
// URL covers are downloaded into a content-addressed cache keyed by the
// SHA-1 of the URL. The stored extension comes from sniffing the payload,
// never from the server's content type. GC prunes the cache by age and
// total size.
package covers
