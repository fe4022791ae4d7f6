package deps

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"

	"audiomason/internal/services"
)

// stderrTail bounds how much tool stderr is kept on failure.
const stderrTail = 512

// Run executes a tool and maps failures onto services.ToolError. A bare tool
// name prefers a sidecar copy next to the running executable. A cancelled
// context is returned as the context error.
func Run(ctx context.Context, tool string, args ...string) ([]byte, error) {
	binary := tool
	if !strings.ContainsRune(tool, os.PathSeparator) {
		self, _ := os.Executable()
		if status := ResolveTool(tool, self); status.Available {
			binary = status.Command
		}
	}
	cmd := exec.CommandContext(ctx, binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return stdout.Bytes(), nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if errors.Is(err, exec.ErrNotFound) {
		return nil, &services.ToolError{Tool: tool, Missing: true}
	}
	toolErr := &services.ToolError{Tool: tool, ExitCode: -1, Stderr: tail(stderr.String())}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		toolErr.ExitCode = exitErr.ExitCode()
	}
	return nil, toolErr
}

// Available reports whether Run would find tool.
func Available(tool string) bool {
	self, _ := os.Executable()
	return ResolveTool(tool, self).Available
}

func tail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= stderrTail {
		return s
	}
	return "..." + s[len(s)-stderrTail:]
}
