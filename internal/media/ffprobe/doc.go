// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Key types:
//   - Result: parsed ffprobe output containing streams, chapters, and format metadata
//   - Chapter: a chapter marker with start and end times in seconds
//
// Primary entry points:
//   - Inspect: executes ffprobe and returns parsed Result
//   - Chapters: the chapter list alone, used to decide whether a container is split
package ffprobe
