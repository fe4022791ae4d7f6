// Package destination maps an author and title onto a library directory and
// arbitrates conflicts with directories that already hold a book.
package destination

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"audiomason/internal/fileutil"
	"audiomason/internal/manifest"
	"audiomason/internal/services"
)

// ResolveOutput returns root/author/title after rejecting names that are
// empty, contain a path separator, or are "." or "..".
func ResolveOutput(root, author, title string) (string, error) {
	if err := checkComponent("author", author); err != nil {
		return "", err
	}
	if err := checkComponent("title", title); err != nil {
		return "", err
	}
	return filepath.Join(root, author, title), nil
}

func checkComponent(kind, value string) error {
	switch {
	case strings.TrimSpace(value) == "":
		return services.Wrap(services.ErrValidation, "destination", "resolve", "empty "+kind+" (refusing to construct output path)", nil)
	case strings.ContainsAny(value, `/\`), value == ".", value == "..":
		return services.Wrap(services.ErrValidation, "destination", "resolve", fmt.Sprintf("invalid %s for output path: %q", kind, value), nil)
	}
	return nil
}

// Target is an arbitrated destination.
type Target struct {
	Dir       string
	Kind      manifest.DestKind
	Overwrite bool
}

// Resolver knows the library roots. Primary is where books normally land;
// Secondary is the staging-only output root tried when Primary conflicts.
type Resolver struct {
	Primary   string
	Secondary string
}

// Exists reports whether the primary destination already holds files.
func (r Resolver) Exists(author, title string) (bool, error) {
	dir, err := ResolveOutput(r.Primary, author, title)
	if err != nil {
		return false, err
	}
	return fileutil.IsNonEmptyDir(dir)
}

// Arbitrate picks the directory for a book. A recorded overwrite keeps the
// primary directory; otherwise a conflicting primary falls back to the
// secondary root, and a conflict there is an ErrConflict.
func (r Resolver) Arbitrate(author, title string, overwrite bool) (Target, error) {
	dir, err := ResolveOutput(r.Primary, author, title)
	if err != nil {
		return Target{}, err
	}
	target := Target{Dir: dir, Kind: r.kind(r.Primary)}

	busy, err := fileutil.IsNonEmptyDir(dir)
	if err != nil {
		return Target{}, fmt.Errorf("inspect destination: %w", err)
	}
	if !busy {
		return target, nil
	}
	if overwrite {
		target.Overwrite = true
		return target, nil
	}

	if r.Secondary != "" && !samePath(r.Secondary, r.Primary) {
		dir, err = ResolveOutput(r.Secondary, author, title)
		if err != nil {
			return Target{}, err
		}
		busy, err = fileutil.IsNonEmptyDir(dir)
		if err != nil {
			return Target{}, fmt.Errorf("inspect destination: %w", err)
		}
		if !busy {
			return Target{Dir: dir, Kind: manifest.DestOutput}, nil
		}
	}

	return Target{}, services.Wrap(services.ErrConflict, "destination", "arbitrate", "Conflict: output already exists and is not empty: "+dir, nil)
}

// ForKind rebuilds a target from a recorded destination kind.
func (r Resolver) ForKind(kind manifest.DestKind, author, title string, overwrite bool) (Target, error) {
	root := r.Primary
	if kind == manifest.DestOutput && r.Secondary != "" {
		root = r.Secondary
	}
	dir, err := ResolveOutput(root, author, title)
	if err != nil {
		return Target{}, err
	}
	return Target{Dir: dir, Kind: r.kind(root), Overwrite: overwrite}, nil
}

func (r Resolver) kind(root string) manifest.DestKind {
	if r.Secondary != "" && samePath(root, r.Secondary) {
		return manifest.DestOutput
	}
	return manifest.DestArchive
}

// Publish copies files into the target directory. An overwrite target is
// cleared first. Each copy is verified by SHA-256 and size.
func Publish(ctx context.Context, target Target, files []string) ([]string, error) {
	if target.Overwrite {
		if err := fileutil.ClearDir(target.Dir); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("clear destination: %w", err)
		}
	} else if busy, err := fileutil.IsNonEmptyDir(target.Dir); err != nil {
		return nil, fmt.Errorf("inspect destination: %w", err)
	} else if busy {
		return nil, services.Wrap(services.ErrConflict, "destination", "publish", "Conflict: output already exists and is not empty: "+target.Dir, nil)
	}
	if err := os.MkdirAll(target.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create destination: %w", err)
	}

	published := make([]string, 0, len(files))
	for _, src := range files {
		if err := ctx.Err(); err != nil {
			return published, err
		}
		dst := filepath.Join(target.Dir, filepath.Base(src))
		if err := fileutil.CopyFileVerified(src, dst); err != nil {
			return published, fmt.Errorf("publish %s: %w", filepath.Base(src), err)
		}
		published = append(published, dst)
	}
	return published, nil
}

func samePath(a, b string) bool {
	return filepath.Clean(a) == filepath.Clean(b)
}
