package fingerprint

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
)

const (
	kindFile    = "F"
	kindDir     = "D"
	markMissing = "MISSING"
)

// Compute returns the fingerprint for the file or directory at path.
func Compute(ctx context.Context, path string) (string, error) {
	resolved, err := resolve(path)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return "", fmt.Errorf("stat source: %w", err)
	}

	h := sha256.New()
	writeField(h, resolved)

	if !info.IsDir() {
		writeField(h, kindFile)
		writeStat(h, info)
		return hex.EncodeToString(h.Sum(nil)), nil
	}

	writeField(h, kindDir)
	if err := hashDir(ctx, h, resolved, ""); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// hashDir folds the files of dir (sorted) into h, then recurses into its
// subdirectories (sorted).
func hashDir(ctx context.Context, h hash.Hash, root, rel string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	entries, err := os.ReadDir(filepath.Join(root, rel))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && rel != "" {
			writeField(h, markMissing)
			writeField(h, filepath.ToSlash(rel))
			return nil
		}
		return fmt.Errorf("read %s: %w", filepath.Join(root, rel), err)
	}

	var files, dirs []string
	for _, entry := range entries {
		if entry.IsDir() {
			dirs = append(dirs, entry.Name())
		} else {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)
	sort.Strings(dirs)

	for _, name := range files {
		childRel := filepath.Join(rel, name)
		writeField(h, filepath.ToSlash(childRel))
		info, err := os.Stat(filepath.Join(root, childRel))
		if err != nil {
			writeField(h, markMissing)
			continue
		}
		writeStat(h, info)
	}
	for _, name := range dirs {
		if err := hashDir(ctx, h, root, filepath.Join(rel, name)); err != nil {
			return err
		}
	}
	return nil
}

func writeStat(h hash.Hash, info fs.FileInfo) {
	writeField(h, strconv.FormatInt(info.Size(), 10))
	writeField(h, strconv.FormatInt(info.ModTime().UnixNano(), 10))
}

func writeField(h hash.Hash, value string) {
	_, _ = h.Write([]byte(value))
	_, _ = h.Write([]byte{0})
}

func resolve(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", path, err)
	}
	if real, err := filepath.EvalSymlinks(abs); err == nil {
		return real, nil
	}
	return abs, nil
}
