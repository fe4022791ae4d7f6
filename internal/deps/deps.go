// Package deps locates the external tools an import shells out to and runs
// them with failures mapped onto the services error kinds.
package deps

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Requirement names one external tool and what the import uses it for.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports where a requirement resolved. Command holds the resolved
// binary when Available, and the configured value otherwise.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// CheckBinaries resolves every requirement. A bare command name goes through
// ResolveTool, so a sidecar copy next to the running executable is reported
// the same way Run would pick it. A command containing a path separator must
// exist as given.
func CheckBinaries(requirements []Requirement) []Status {
	self, _ := os.Executable()
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		status := checkOne(req, self)
		status.Name = req.Name
		status.Description = strings.TrimSpace(req.Description)
		status.Optional = req.Optional
		results = append(results, status)
	}
	return results
}

func checkOne(req Requirement, self string) Status {
	cmd := strings.TrimSpace(req.Command)
	switch {
	case cmd == "":
		return Status{Detail: "command not configured"}
	case strings.ContainsRune(cmd, os.PathSeparator):
		if _, err := exec.LookPath(cmd); err != nil {
			return Status{Command: cmd, Detail: fmt.Sprintf("binary %q not found", cmd)}
		}
		return Status{Command: cmd, Available: true}
	default:
		return ResolveTool(cmd, self)
	}
}
