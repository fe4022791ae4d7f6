package deps

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"audiomason/internal/services"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(present, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}

	if !results[0].Available {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}

	if results[1].Available {
		t.Fatalf("expected missing binary to be unavailable")
	}
	if results[1].Detail == "" {
		t.Fatalf("expected detail message for missing binary")
	}

	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}

	if results[0].Detail != "" {
		t.Fatalf("unexpected detail for available dependency: %s", results[0].Detail)
	}
}

func TestResolveToolSidecar(t *testing.T) {
	tmp := t.TempDir()
	selfPath := filepath.Join(tmp, executableName("audiomason"))
	ffmpegPath := filepath.Join(tmp, executableName("ffmpeg"))
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(selfPath, script, 0o755); err != nil {
		t.Fatalf("write self stub: %v", err)
	}
	if err := os.WriteFile(ffmpegPath, script, 0o755); err != nil {
		t.Fatalf("write ffmpeg sidecar: %v", err)
	}

	status := ResolveTool("ffmpeg", selfPath)
	if !status.Available {
		t.Fatalf("expected ffmpeg sidecar to be available, got detail %q", status.Detail)
	}
	if status.Command != ffmpegPath {
		t.Fatalf("expected ffmpeg command %q, got %q", ffmpegPath, status.Command)
	}
}

func TestResolveToolPathFallback(t *testing.T) {
	tmp := t.TempDir()
	selfPath := filepath.Join(tmp, executableName("audiomason"))
	script := []byte("#!/bin/sh\nexit 0\n")

	binDir := filepath.Join(tmp, "bin")
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		t.Fatalf("mkdir bin: %v", err)
	}
	unzipPath := filepath.Join(binDir, executableName("unzip"))
	if err := os.WriteFile(unzipPath, script, 0o755); err != nil {
		t.Fatalf("write unzip stub: %v", err)
	}
	t.Setenv("PATH", binDir)

	status := ResolveTool("unzip", selfPath)
	if !status.Available {
		t.Fatalf("expected unzip fallback to be available, got detail %q", status.Detail)
	}
	if status.Command != unzipPath {
		t.Fatalf("expected unzip command %q, got %q", unzipPath, status.Command)
	}
}

func TestResolveToolNotFound(t *testing.T) {
	t.Setenv("PATH", "")
	status := ResolveTool("7z", filepath.Join(t.TempDir(), "audiomason"))
	if status.Available {
		t.Fatal("expected 7z resolution to fail")
	}
	if status.Detail == "" {
		t.Fatal("expected detail message when 7z is unavailable")
	}
}

func TestToolRequirementsMarksArchiversOptional(t *testing.T) {
	optional := map[string]bool{}
	for _, req := range ToolRequirements("ffmpeg", "ffprobe") {
		optional[req.Name] = req.Optional
	}
	if optional["FFmpeg"] || optional["FFprobe"] || optional["unzip"] {
		t.Fatalf("core tools must be required: %v", optional)
	}
	if !optional["unrar"] || !optional["7z"] {
		t.Fatalf("rar tools must be optional: %v", optional)
	}
}

func executableName(base string) string {
	if runtime.GOOS == "windows" {
		return base + ".exe"
	}
	return base
}

func TestRunMapsFailures(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell stubs need a POSIX shell")
	}
	binDir := t.TempDir()
	failing := filepath.Join(binDir, "failing")
	if err := os.WriteFile(failing, []byte("#!/bin/sh\necho boom >&2\nexit 3\n"), 0o755); err != nil {
		t.Fatal(err)
	}

	_, err := Run(context.Background(), failing)
	var toolErr *services.ToolError
	if !errors.As(err, &toolErr) {
		t.Fatalf("expected ToolError, got %v", err)
	}
	if toolErr.ExitCode != 3 || toolErr.Stderr != "boom" || toolErr.Missing {
		t.Fatalf("tool error = %+v", toolErr)
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatal("tool errors must match ErrExternalTool")
	}

	_, err = Run(context.Background(), "clearly-not-present-binary")
	if !errors.As(err, &toolErr) || !toolErr.Missing {
		t.Fatalf("expected missing tool error, got %v", err)
	}
}
