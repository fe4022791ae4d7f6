package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizePreflight()
	c.normalizePipeline()
	if err := c.normalizeCover(); err != nil {
		return err
	}
	c.normalizeFFmpeg()
	c.normalizeLookup()
	if err := c.normalizeProcessingLog(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.InboxDir, err = expandPath(c.Paths.InboxDir); err != nil {
		return fmt.Errorf("paths.inbox_dir: %w", err)
	}
	if c.Paths.StageDir, err = expandPath(c.Paths.StageDir); err != nil {
		return fmt.Errorf("paths.stage_dir: %w", err)
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.ArchiveDir, err = expandPath(strings.TrimSpace(c.Paths.ArchiveDir)); err != nil {
		return fmt.Errorf("paths.archive_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.HistoryDB) == "" {
		c.Paths.HistoryDB = defaultHistoryDB
	}
	if c.Paths.HistoryDB, err = expandPath(c.Paths.HistoryDB); err != nil {
		return fmt.Errorf("paths.history_db: %w", err)
	}
	return nil
}

func (c *Config) normalizePreflight() {
	c.Preflight.Steps = trimList(c.Preflight.Steps)
	c.Preflight.Disable = trimList(c.Preflight.Disable)
	c.Preflight.PromptsDisable = trimList(c.Preflight.PromptsDisable)
	c.Preflight.CleanInbox = strings.ToLower(strings.TrimSpace(c.Preflight.CleanInbox))
	if c.Preflight.CleanInbox == "" {
		c.Preflight.CleanInbox = defaultCleanInbox
	}
}

func (c *Config) normalizePipeline() {
	if c.Pipeline.Steps != nil {
		c.Pipeline.Steps = trimList(c.Pipeline.Steps)
	}
}

func (c *Config) normalizeCover() error {
	var err error
	if strings.TrimSpace(c.Cover.CacheDir) == "" {
		c.Cover.CacheDir = defaultCoverCacheDir()
	}
	if c.Cover.CacheDir, err = expandPath(c.Cover.CacheDir); err != nil {
		return fmt.Errorf("cover.cache_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeFFmpeg() {
	c.FFmpeg.LogLevel = strings.ToLower(strings.TrimSpace(c.FFmpeg.LogLevel))
	if c.FFmpeg.LogLevel == "" {
		c.FFmpeg.LogLevel = defaultFFmpegLogLevel
	}
}

func (c *Config) normalizeLookup() {
	c.Lookup.BaseURL = strings.TrimRight(strings.TrimSpace(c.Lookup.BaseURL), "/")
	if c.Lookup.BaseURL == "" {
		c.Lookup.BaseURL = defaultLookupBaseURL
	}
	if c.Lookup.TimeoutSeconds <= 0 {
		c.Lookup.TimeoutSeconds = defaultLookupTimeout
	}
}

func (c *Config) normalizeProcessingLog() error {
	if strings.TrimSpace(c.ProcessingLog.Path) == "" {
		c.ProcessingLog.Path = filepath.Join(c.Paths.StageDir, defaultProcessingLogName)
		return nil
	}
	var err error
	if c.ProcessingLog.Path, err = expandPath(c.ProcessingLog.Path); err != nil {
		return fmt.Errorf("processing_log.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func trimList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
