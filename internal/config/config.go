package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"audiomason/internal/services"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains the inbox, stage, and library roots.
type Paths struct {
	InboxDir string `toml:"inbox_dir"`
	StageDir string `toml:"stage_dir"`
	// OutputDir is the secondary, staging-only library root.
	OutputDir string `toml:"output_dir"`
	// ArchiveDir is the primary library root. Empty falls back to OutputDir.
	ArchiveDir string `toml:"archive_dir"`
	HistoryDB  string `toml:"history_db"`
}

// Preflight controls which decisions are asked and in what order.
type Preflight struct {
	Steps          []string `toml:"steps"`
	Disable        []string `toml:"disable"`
	PromptsDisable []string `toml:"prompts_disable"`
	CleanInbox     string   `toml:"clean_inbox"`
}

// Pipeline lists the per-book processing steps.
type Pipeline struct {
	Steps []string `toml:"steps"`
}

// Cover contains the URL cover cache settings.
type Cover struct {
	CacheDir     string `toml:"cache_dir"`
	GCMaxAgeDays int    `toml:"gc_max_age_days"`
	GCMaxMB      int    `toml:"gc_max_mb"`
}

// FFmpeg contains transcode settings.
type FFmpeg struct {
	LogLevel string `toml:"loglevel"`
	Loudnorm bool   `toml:"loudnorm"`
	QA       int    `toml:"q_a"`
}

// Lookup contains OpenLibrary suggestion settings.
type Lookup struct {
	Enabled        bool   `toml:"enabled"`
	BaseURL        string `toml:"base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// ProcessingLog tees JSON logs to a file for each import.
type ProcessingLog struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for audiomason.
//
// Configuration sections by subsystem:
//   - Paths: inbox, stage, library roots and the history database
//   - Preflight: decision step order, disabled steps, and suppressed prompts
//   - Pipeline: per-book processing steps
//   - Cover: URL cover cache location and garbage collection limits
//   - FFmpeg: transcode quality and loudness normalization
//   - Lookup: OpenLibrary suggestions for author and title prompts
//   - ProcessingLog: JSON log tee for import runs
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Preflight     Preflight     `toml:"preflight"`
	Pipeline      Pipeline      `toml:"pipeline"`
	Cover         Cover         `toml:"cover"`
	FFmpeg        FFmpeg        `toml:"ffmpeg"`
	Lookup        Lookup        `toml:"lookup"`
	ProcessingLog ProcessingLog `toml:"processing_log"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	if base, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok && strings.TrimSpace(base) != "" {
		return expandPath(filepath.Join(base, "audiomason", "config.toml"))
	}
	return expandPath("~/.config/audiomason/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized. Every failure is marked ErrConfiguration.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, configError("resolve", err)
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, configError("open", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, configError("parse", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, configError("normalize", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, configError("validate", err)
	}

	return &cfg, resolvedPath, exists, nil
}

func configError(operation string, err error) error {
	return services.Wrap(services.ErrConfiguration, "config", operation, "", err)
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("audiomason.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the stage, output, and cover cache roots. The
// archive root is created on a best-effort basis so imports can still run in
// dry-run mode when library storage is offline.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StageDir, c.Paths.OutputDir, c.Cover.CacheDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.ArchiveDir) != "" {
		_ = os.MkdirAll(c.Paths.ArchiveDir, 0o755)
	}
	return nil
}

// LibraryRoot returns the primary publish destination.
func (c *Config) LibraryRoot() string {
	if c.Paths.ArchiveDir != "" {
		return c.Paths.ArchiveDir
	}
	return c.Paths.OutputDir
}

// FFmpegBinary returns the ffmpeg executable name.
func (c *Config) FFmpegBinary() string {
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable name used for chapter inspection.
func (c *Config) FFprobeBinary() string {
	return "ffprobe"
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

func defaultCoverCacheDir() string {
	if base, ok := os.LookupEnv("XDG_CACHE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "audiomason", "covers")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "~/.cache/audiomason/covers"
	}
	return filepath.Join(home, ".cache", "audiomason", "covers")
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
