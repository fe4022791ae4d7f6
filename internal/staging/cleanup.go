package staging

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"audiomason/internal/fileutil"
	"audiomason/internal/logging"
	"audiomason/internal/manifest"
)

// CleanResult contains the outcome of a stage cleanup operation.
type CleanResult struct {
	Removed []string
	Errors  []CleanupError
}

// CleanupError pairs a directory path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

// CleanStale removes stage runs older than maxAge. With dryRun set the runs
// are reported but left on disk.
func CleanStale(ctx context.Context, stageRoot string, maxAge time.Duration, dryRun bool, logger *slog.Logger) CleanResult {
	cutoff := time.Now().Add(-maxAge)
	return sweep(ctx, stageRoot, dryRun, logger, "stale", func(_ string, info os.FileInfo) bool {
		return info.ModTime().Before(cutoff)
	})
}

// CleanOrphaned removes stage runs whose name matches none of active, the
// run directory names of sources still present in the inbox. Matching is
// case-insensitive.
func CleanOrphaned(ctx context.Context, stageRoot string, active map[string]struct{}, dryRun bool, logger *slog.Logger) CleanResult {
	known := make(map[string]struct{}, len(active))
	for name := range active {
		known[strings.ToLower(name)] = struct{}{}
	}
	return sweep(ctx, stageRoot, dryRun, logger, "orphaned", func(name string, _ os.FileInfo) bool {
		_, ok := known[strings.ToLower(name)]
		return !ok
	})
}

func sweep(ctx context.Context, stageRoot string, dryRun bool, logger *slog.Logger, reason string, match func(string, os.FileInfo) bool) CleanResult {
	result := CleanResult{}
	if logger == nil {
		logger = logging.NewNop()
	}

	stageRoot = strings.TrimSpace(stageRoot)
	if stageRoot == "" {
		return result
	}

	entries, err := os.ReadDir(stageRoot)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, CleanupError{Path: stageRoot, Error: err})
		}
		return result
	}

	for _, entry := range entries {
		if ctx.Err() != nil {
			break
		}
		if !entry.IsDir() {
			continue
		}

		dirPath := filepath.Join(stageRoot, entry.Name())
		info, err := entry.Info()
		if err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: dirPath, Error: err})
			continue
		}
		if !match(entry.Name(), info) {
			continue
		}

		if dryRun {
			result.Removed = append(result.Removed, dirPath)
			continue
		}
		if err := os.RemoveAll(dirPath); err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: dirPath, Error: err})
			logging.WarnWithContext(logger, "failed to remove stage run", "stage_cleanup_failed",
				logging.String("path", dirPath),
				logging.String("reason", reason),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check stage_dir permissions"),
				logging.String(logging.FieldImpact, "disk space not reclaimed"),
			)
			continue
		}
		result.Removed = append(result.Removed, dirPath)
		logger.Info("removed stage run",
			logging.String("path", dirPath),
			logging.String("reason", reason),
			logging.Duration("age", time.Since(info.ModTime())),
			logging.String(logging.FieldEventType, "stage_cleanup"),
		)
	}

	return result
}

// DirInfo contains metadata about a stage run directory.
type DirInfo struct {
	Name      string
	Path      string
	ModTime   time.Time
	Size      int64
	Source    string
	Books     int
	Processed int
}

// ListDirectories returns every stage run with its size and manifest summary.
func ListDirectories(stageRoot string) ([]DirInfo, error) {
	stageRoot = strings.TrimSpace(stageRoot)
	if stageRoot == "" {
		return nil, nil
	}

	entries, err := os.ReadDir(stageRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var dirs []DirInfo
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		dirPath := filepath.Join(stageRoot, entry.Name())
		m, _ := manifest.Open(dirPath).Load()

		dirs = append(dirs, DirInfo{
			Name:      entry.Name(),
			Path:      dirPath,
			ModTime:   info.ModTime(),
			Size:      fileutil.DirSize(dirPath),
			Source:    m.Source.Name,
			Books:     len(m.Books.Picked),
			Processed: len(m.Books.Processed),
		})
	}

	return dirs, nil
}
