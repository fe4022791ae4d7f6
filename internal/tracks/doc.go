// Package tracks orders audio files by their embedded track numbers and
// renames them into a zero-padded sequence (01.mp3, 02.mp3, ...).
//
// Track numbers are taken from a leading number, then from a
// "track"/"chapter"/"kapitola" marker, then from the first 1-4 digit run.
// Renaming is two-phase through unique temporary names so a list like
// 02.mp3,03.mp3 can become 01.mp3,02.mp3 without collisions.
package tracks
