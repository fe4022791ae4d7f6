package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"audiomason/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Lookup is disabled so tests never reach the network.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.InboxDir = filepath.Join(base, "inbox")
	cfgVal.Paths.StageDir = filepath.Join(base, "stage")
	cfgVal.Paths.OutputDir = filepath.Join(base, "output")
	cfgVal.Paths.HistoryDB = filepath.Join(base, "state", "history.db")
	cfgVal.Cover.CacheDir = filepath.Join(base, "cover-cache")
	cfgVal.Lookup.Enabled = false
	cfgVal.ProcessingLog.Path = filepath.Join(cfgVal.Paths.StageDir, "import.log.jsonl")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	for _, dir := range []string{cfgVal.Paths.InboxDir, cfgVal.Paths.StageDir, cfgVal.Paths.OutputDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}
	return builder.cfg
}

// WithArchiveDir sets a primary library root separate from the output root.
func WithArchiveDir() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.ArchiveDir = filepath.Join(b.baseDir, "library")
		if err := os.MkdirAll(b.cfg.Paths.ArchiveDir, 0o755); err != nil {
			b.t.Fatalf("mkdir library: %v", err)
		}
	}
}

// WithPreflightSteps overrides the configured decision order.
func WithPreflightSteps(steps ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Preflight.Steps = steps
	}
}

// WithPipelineSteps overrides the configured processing steps.
func WithPipelineSteps(steps ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Pipeline.Steps = steps
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, the required external tools are
// stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"ffmpeg", "ffprobe", "unzip"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}

		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StageDir)
}
