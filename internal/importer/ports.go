package importer

import (
	"context"

	"audiomason/internal/history"
	"audiomason/internal/media/ffprobe"
	"audiomason/internal/tags"
)

// Prompter asks the operator. Implementations return an error wrapping
// services.ErrAborted or context.Canceled when the operator interrupts.
type Prompter interface {
	Ask(ctx context.Context, question, def string) (string, error)
	Confirm(ctx context.Context, question string, def bool) (bool, error)
}

// Transcoder converts non-mp3 audio.
type Transcoder interface {
	Transcode(ctx context.Context, src, dst string) error
	SplitChapters(ctx context.Context, src, outDir string, chapters []ffprobe.Chapter) ([]string, error)
}

// ChapterProber lists the chapters of a container.
type ChapterProber interface {
	Chapters(ctx context.Context, path string) ([]ffprobe.Chapter, error)
}

// TagWriter reads and writes mp3 tags.
type TagWriter interface {
	ReadEmbeddedCover(path string) ([]byte, string, error)
	WriteTags(files []string, artist, album string, cover *tags.Cover) error
	WriteCover(files []string, cover *tags.Cover) error
	WipeTags(files []string) error
}

// Lookup offers canonical names. A false result means no suggestion.
type Lookup interface {
	SuggestAuthor(ctx context.Context, name string) (string, bool)
	SuggestTitle(ctx context.Context, author, title string) (string, bool)
}

// History records published books.
type History interface {
	Record(ctx context.Context, entry history.Entry) (history.Entry, error)
	SeenFingerprint(ctx context.Context, fingerprint string) (history.Entry, bool, error)
}
