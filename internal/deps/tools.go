package deps

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// ToolRequirements lists the external tools an import may invoke. Only one
// of unrar and 7z is needed for RAR sources, so both are optional.
func ToolRequirements(ffmpeg, ffprobe string) []Requirement {
	return []Requirement{
		{Name: "FFmpeg", Command: ffmpeg, Description: "Required for conversion, splitting, and cover extraction"},
		{Name: "FFprobe", Command: ffprobe, Description: "Required for chapter inspection"},
		{Name: "unzip", Command: "unzip", Description: "Required for .zip sources"},
		{Name: "unrar", Command: "unrar", Description: "Extracts .rar sources", Optional: true},
		{Name: "7z", Command: "7z", Description: "Extracts .7z sources and is the .rar fallback", Optional: true},
	}
}

// ResolveTool reports the binary that will run for name. A copy sitting next
// to the running executable wins over one found on PATH.
func ResolveTool(name, selfPath string) Status {
	result := Status{Name: name}

	if candidate, ok := sidecarCandidate(selfPath, name); ok {
		if info, err := os.Stat(candidate); err == nil && isExecutable(info) {
			result.Command = candidate
			result.Available = true
			return result
		}
	}

	if resolved, err := exec.LookPath(name); err == nil {
		result.Command = resolved
		result.Available = true
		return result
	}

	result.Command = name
	result.Detail = fmt.Sprintf("binary %q not found", name)
	return result
}

func sidecarCandidate(selfPath, name string) (string, bool) {
	selfPath = strings.TrimSpace(selfPath)
	if selfPath == "" {
		return "", false
	}
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	return filepath.Join(filepath.Dir(selfPath), name), true
}

func isExecutable(info os.FileInfo) bool {
	if info == nil || info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
