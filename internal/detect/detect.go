package detect

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"audiomason/internal/services"
	"audiomason/internal/textutil"
)

// RootLabel labels audio found directly in the staged root.
const RootLabel = "__ROOT_AUDIO__"

var audioExtensions = map[string]struct{}{
	".mp3":  {},
	".m4a":  {},
	".m4b":  {},
	".opus": {},
}

var containerExtensions = map[string]struct{}{
	".m4a": {},
	".m4b": {},
}

// Book is one detected unit of audio content.
type Book struct {
	Label     string
	Root      string
	StageRoot string
	// RelPath is the slash-separated path of Root below StageRoot ("." for the root).
	RelPath string
	// ContainerHint is the first m4a/m4b below Root, if any, used for cover extraction.
	ContainerHint string
	AudioCount    int
}

// IsRoot reports whether the book is the staged root itself.
func (b Book) IsRoot() bool { return b.Label == RootLabel }

// DefaultTitle is the title offered before the operator has answered.
func (b Book) DefaultTitle() string {
	if b.IsRoot() {
		return "Untitled"
	}
	return path.Base(b.Label)
}

// IsAudio reports whether name has a supported audio extension.
func IsAudio(name string) bool {
	_, ok := audioExtensions[strings.ToLower(filepath.Ext(name))]
	return ok
}

// IsContainer reports whether name is an MP4-family audio container.
func IsContainer(name string) bool {
	_, ok := containerExtensions[strings.ToLower(filepath.Ext(name))]
	return ok
}

// AudioFiles lists the audio files directly inside dir, sorted by name.
func AudioFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, entry := range entries {
		if entry.Type().IsRegular() && IsAudio(entry.Name()) {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// Detect walks stageRoot and returns every book candidate. It fails when no
// directory holds audio.
func Detect(ctx context.Context, stageRoot string) ([]Book, error) {
	info, err := os.Stat(stageRoot)
	if err != nil || !info.IsDir() {
		return nil, services.Wrap(services.ErrNotFound, "detect", "stat", fmt.Sprintf("source is not a directory: %s", stageRoot), err)
	}

	var books []Book
	var visit func(dir, rel string) error
	visit = func(dir, rel string) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			return fmt.Errorf("read %s: %w", dir, err)
		}
		audio := 0
		var subdirs []string
		for _, entry := range entries {
			switch {
			case entry.IsDir():
				subdirs = append(subdirs, entry.Name())
			case entry.Type().IsRegular() && IsAudio(entry.Name()):
				audio++
			}
		}
		if audio > 0 {
			label := rel
			relPath := rel
			if rel == "" {
				label = RootLabel
				relPath = "."
			}
			books = append(books, Book{
				Label:         label,
				Root:          dir,
				StageRoot:     stageRoot,
				RelPath:       relPath,
				ContainerHint: firstContainer(dir),
				AudioCount:    audio,
			})
		}
		sort.Slice(subdirs, func(i, j int) bool { return foldLess(subdirs[i], subdirs[j]) })
		for _, name := range subdirs {
			if err := visit(filepath.Join(dir, name), path.Join(rel, name)); err != nil {
				return err
			}
		}
		return nil
	}
	if err := visit(stageRoot, ""); err != nil {
		return nil, err
	}

	sort.SliceStable(books, func(i, j int) bool { return foldLess(books[i].Label, books[j].Label) })
	if len(books) == 0 {
		return nil, services.Wrap(services.ErrNotFound, "detect", "", "no books found in source (no audio in any directory)", nil)
	}
	return books, nil
}

// Labels returns the labels of books in order.
func Labels(books []Book) []string {
	out := make([]string, len(books))
	for i, b := range books {
		out[i] = b.Label
	}
	return out
}

func firstContainer(root string) string {
	var found []string
	_ = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.Type().IsRegular() && IsContainer(d.Name()) {
			found = append(found, p)
		}
		return nil
	})
	if len(found) == 0 {
		return ""
	}
	sort.Slice(found, func(i, j int) bool {
		return foldLess(filepath.ToSlash(found[i]), filepath.ToSlash(found[j]))
	})
	return found[0]
}

func foldLess(a, b string) bool {
	fa, fb := textutil.FoldKey(a), textutil.FoldKey(b)
	if fa != fb {
		return fa < fb
	}
	return a < b
}
