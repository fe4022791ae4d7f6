// Package inbox lists import sources and maintains the inbox ignore list.
package inbox

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"audiomason/internal/services"
	"audiomason/internal/textutil"
)

// IgnoreFileName is the ignore list kept at the inbox root.
const IgnoreFileName = ".abook_ignore"

// Kind distinguishes directory sources from archives.
type Kind string

const (
	KindDir     Kind = "dir"
	KindArchive Kind = "archive"
)

var archiveExts = []string{".zip", ".rar", ".7z"}

var reservedNames = map[string]bool{
	"_am_stage":        true,
	"import.log.jsonl": true,
	".DS_Store":        true,
}

// Source is one importable inbox entry.
type Source struct {
	Name string
	Path string
	Kind Kind
}

// Stem returns the name without its archive extension.
func (s Source) Stem() string {
	if s.Kind == KindArchive {
		return strings.TrimSuffix(s.Name, filepath.Ext(s.Name))
	}
	return s.Name
}

// IsArchiveName reports whether name has a supported archive extension.
func IsArchiveName(name string) bool {
	return slices.Contains(archiveExts, strings.ToLower(filepath.Ext(name)))
}

// List returns the inbox sources not covered by the ignore list, sorted by
// lower-cased name. A missing inbox yields no sources.
func List(inboxDir string) ([]Source, error) {
	entries, err := os.ReadDir(inboxDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read inbox: %w", err)
	}
	ignore, err := LoadIgnore(inboxDir)
	if err != nil {
		return nil, err
	}

	var sources []Source
	for _, entry := range entries {
		src, ok := classify(inboxDir, entry)
		if !ok || ignore.Matches(src) {
			continue
		}
		sources = append(sources, src)
	}
	slices.SortFunc(sources, func(a, b Source) int {
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})
	return sources, nil
}

func classify(inboxDir string, entry fs.DirEntry) (Source, bool) {
	name := entry.Name()
	if skipName(name) {
		return Source{}, false
	}
	path := filepath.Join(inboxDir, name)
	info, err := os.Stat(path)
	if err != nil {
		return Source{}, false
	}
	switch {
	case info.IsDir():
		return Source{Name: name, Path: path, Kind: KindDir}, true
	case info.Mode().IsRegular() && IsArchiveName(name):
		return Source{Name: name, Path: path, Kind: KindArchive}, true
	default:
		return Source{}, false
	}
}

func skipName(name string) bool {
	return reservedNames[name] || strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")
}

// Resolve validates an explicit source path, which must live directly
// under inboxDir.
func Resolve(inboxDir, path string) (Source, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Source{}, services.Wrap(services.ErrValidation, "inbox", "resolve", path, err)
	}
	if filepath.Dir(abs) != filepath.Clean(inboxDir) {
		return Source{}, services.Wrap(services.ErrValidation, "inbox", "resolve",
			fmt.Sprintf("source must be directly under inbox %s", inboxDir), nil)
	}
	entries, err := os.ReadDir(inboxDir)
	if err != nil {
		return Source{}, services.Wrap(services.ErrNotFound, "inbox", "resolve", "read inbox", err)
	}
	for _, entry := range entries {
		if entry.Name() != filepath.Base(abs) {
			continue
		}
		src, ok := classify(inboxDir, entry)
		if !ok {
			return Source{}, services.Wrap(services.ErrValidation, "inbox", "resolve",
				fmt.Sprintf("unsupported source %s", abs), nil)
		}
		return src, nil
	}
	return Source{}, services.Wrap(services.ErrNotFound, "inbox", "resolve",
		fmt.Sprintf("source path not found: %s", abs), nil)
}

// Ignore is a loaded ignore list.
type Ignore struct {
	keys map[string]bool
}

// LoadIgnore reads <inbox>/.abook_ignore. Blank lines and # comments are
// skipped; a missing file is an empty list.
func LoadIgnore(inboxDir string) (Ignore, error) {
	ig := Ignore{keys: make(map[string]bool)}
	f, err := os.Open(filepath.Join(inboxDir, IgnoreFileName))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ig, nil
		}
		return ig, fmt.Errorf("read ignore list: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ig.keys[textutil.FoldKey(line)] = true
		ig.keys[textutil.FoldKey(textutil.Slug(line))] = true
	}
	if err := scanner.Err(); err != nil {
		return ig, fmt.Errorf("read ignore list: %w", err)
	}
	return ig, nil
}

// Matches reports whether src's name, stem, or their slugs are listed.
func (ig Ignore) Matches(src Source) bool {
	for _, candidate := range []string{
		src.Name,
		src.Stem(),
		textutil.Slug(src.Name),
		textutil.Slug(src.Stem()),
	} {
		if ig.keys[textutil.FoldKey(candidate)] {
			return true
		}
	}
	return false
}

// AddIgnore appends the slug of name to the ignore list unless an equivalent
// entry is already present. It reports whether the file changed.
func AddIgnore(inboxDir, name string) (bool, error) {
	key := textutil.Slug(name)
	ig, err := LoadIgnore(inboxDir)
	if err != nil {
		return false, err
	}
	if ig.keys[textutil.FoldKey(key)] {
		return false, nil
	}
	if err := os.MkdirAll(inboxDir, 0o755); err != nil {
		return false, fmt.Errorf("create inbox: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(inboxDir, IgnoreFileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return false, fmt.Errorf("open ignore list: %w", err)
	}
	if _, err := fmt.Fprintln(f, key); err != nil {
		_ = f.Close()
		return false, fmt.Errorf("append ignore list: %w", err)
	}
	if err := f.Close(); err != nil {
		return false, fmt.Errorf("close ignore list: %w", err)
	}
	return true, nil
}
