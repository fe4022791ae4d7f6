package covers

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"audiomason/internal/logging"
	"audiomason/internal/services"
)

// maxDownloadBytes caps a single cover download.
const maxDownloadBytes = 32 << 20

// cacheExts lists the extensions a cache entry may carry, in lookup order.
var cacheExts = []string{".jpg", ".png", ".webp", ".img"}

// Cache stores downloaded URL covers under their URL hash.
type Cache struct {
	root     string
	client   *http.Client
	logger   *slog.Logger
	maxBytes int64
}

// NewCache returns a cache rooted at dir. A nil client uses a client with a
// 30 second timeout.
func NewCache(dir string, client *http.Client, logger *slog.Logger) *Cache {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Cache{root: dir, client: client, logger: logging.NewComponentLogger(logger, "covers")}
}

// Dir returns the cache root.
func (c *Cache) Dir() string { return c.root }

// Key returns the SHA-1 hex digest used as the cache stem for url.
func Key(url string) string {
	sum := sha1.Sum([]byte(url))
	return hex.EncodeToString(sum[:])
}

// IsURL reports whether value looks like an http(s) URL.
func IsURL(value string) bool {
	lower := strings.ToLower(strings.TrimSpace(value))
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// Lookup returns the cached entry for url without touching the network.
func (c *Cache) Lookup(url string) (string, bool) {
	key := Key(url)
	for _, ext := range cacheExts {
		candidate := filepath.Join(c.root, key+ext)
		if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() {
			return candidate, true
		}
	}
	return "", false
}

// PlannedPath is the path Fetch would produce before the payload type is
// known. Dry runs report it instead of downloading.
func (c *Cache) PlannedPath(url string) string {
	if path, ok := c.Lookup(url); ok {
		return path
	}
	return filepath.Join(c.root, Key(url)+".img")
}

// Fetch returns the cached file for url, downloading it on a miss.
func (c *Cache) Fetch(ctx context.Context, url string) (string, error) {
	if path, ok := c.Lookup(url); ok {
		c.logger.Debug("cover cache hit", logging.String("path", path))
		return path, nil
	}
	if err := os.MkdirAll(c.root, 0o755); err != nil {
		return "", fmt.Errorf("create cover cache: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "cover", "download", url, err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return "", services.Wrap(services.ErrNotFound, "cover", "download", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", services.Wrap(services.ErrNotFound, "cover", "download", fmt.Sprintf("%s: http %d", url, resp.StatusCode), nil)
	}

	limit := c.maxBytes
	if limit <= 0 {
		limit = maxDownloadBytes
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return "", fmt.Errorf("read cover download: %w", err)
	}
	if int64(len(data)) > limit {
		return "", services.Wrap(services.ErrValidation, "cover", "download",
			fmt.Sprintf("%s: larger than %d bytes", url, limit), nil)
	}
	_, ext := Sniff(data)

	key := Key(url)
	tmp := filepath.Join(c.root, key+".tmp")
	final := filepath.Join(c.root, key+ext)
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("write cover cache entry: %w", err)
	}
	if err := os.Rename(tmp, final); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("commit cover cache entry: %w", err)
	}

	c.logger.Info("downloaded cover",
		logging.String("path", final),
		logging.Int("size_bytes", len(data)),
		logging.String(logging.FieldEventType, "cover_downloaded"),
	)
	return final, nil
}

// GCResult reports what a cache sweep removed (or would remove).
type GCResult struct {
	Removed    []string `json:"removed"`
	FreedBytes int64    `json:"freed_bytes"`
	Kept       int      `json:"kept"`
	KeptBytes  int64    `json:"kept_bytes"`
}

type cacheEntry struct {
	path      string
	sizeBytes int64
	modTime   time.Time
}

// GC removes cache entries older than maxAgeDays, then the oldest remaining
// entries until the cache fits in maxMB. A non-positive limit disables that
// pass. Files that are not cache entries are never touched.
func GC(ctx context.Context, cacheDir string, maxAgeDays, maxMB int, dryRun bool, logger *slog.Logger) (GCResult, error) {
	var result GCResult
	if logger == nil {
		logger = logging.NewNop()
	}

	entries, total, err := scan(cacheDir, logger)
	if err != nil {
		return result, err
	}

	remove := func(entry cacheEntry, reason string) error {
		if !dryRun {
			if err := os.Remove(entry.path); err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("covers: remove %q: %w", entry.path, err)
			}
		}
		logger.InfoContext(ctx, "pruned cover cache entry",
			logging.String("path", entry.path),
			logging.Int64("entry_size_bytes", entry.sizeBytes),
			logging.String("reason", reason),
			logging.Bool("dry_run", dryRun),
		)
		result.Removed = append(result.Removed, entry.path)
		result.FreedBytes += entry.sizeBytes
		total -= entry.sizeBytes
		return nil
	}

	if maxAgeDays > 0 {
		cutoff := time.Now().Add(-time.Duration(maxAgeDays) * 24 * time.Hour)
		kept := entries[:0]
		for _, entry := range entries {
			if err := ctx.Err(); err != nil {
				return result, err
			}
			if entry.modTime.Before(cutoff) {
				if err := remove(entry, "age"); err != nil {
					return result, err
				}
				continue
			}
			kept = append(kept, entry)
		}
		entries = kept
	}

	if maxMB > 0 {
		maxBytes := int64(maxMB) * 1024 * 1024
		for len(entries) > 0 && total > maxBytes {
			if err := ctx.Err(); err != nil {
				return result, err
			}
			if err := remove(entries[0], "size"); err != nil {
				return result, err
			}
			entries = entries[1:]
		}
	}

	result.Kept = len(entries)
	result.KeptBytes = total
	return result, nil
}

// scan lists known cache entries, oldest first.
func scan(root string, logger *slog.Logger) ([]cacheEntry, int64, error) {
	entries := make([]cacheEntry, 0)
	var total int64
	dirEntries, err := os.ReadDir(root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return entries, 0, nil
		}
		return nil, 0, fmt.Errorf("covers: list cache: %w", err)
	}
	for _, entry := range dirEntries {
		if !entry.Type().IsRegular() || !isCacheEntryName(entry.Name()) {
			continue
		}
		path := filepath.Join(root, entry.Name())
		info, err := entry.Info()
		if err != nil {
			logger.Warn("covers: skip entry; excluded from pruning",
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldEventType, "cover_cache_entry_skipped"),
				logging.String(logging.FieldErrorHint, "inspect cache directory permissions"),
			)
			continue
		}
		total += info.Size()
		entries = append(entries, cacheEntry{path: path, sizeBytes: info.Size(), modTime: info.ModTime()})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].modTime.Equal(entries[j].modTime) {
			return entries[i].path < entries[j].path
		}
		return entries[i].modTime.Before(entries[j].modTime)
	})
	return entries, total, nil
}

func isCacheEntryName(name string) bool {
	ext := filepath.Ext(name)
	known := false
	for _, candidate := range cacheExts {
		if ext == candidate {
			known = true
			break
		}
	}
	if !known {
		return false
	}
	stem := strings.TrimSuffix(name, ext)
	if len(stem) != sha1.Size*2 {
		return false
	}
	_, err := hex.DecodeString(stem)
	return err == nil && strings.ToLower(stem) == stem
}
