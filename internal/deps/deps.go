package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"segmux/internal/errs"
)

// Requirement defines an external tool segmux invokes out of process.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Available = false
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Available = false
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}

// Resolve returns the absolute path of command, or an error marked
// errs.ErrExternalTool when it cannot be found.
func Resolve(command string) (string, error) {
	command = strings.TrimSpace(command)
	if command == "" {
		return "", errs.Wrap(errs.ErrExternalTool, "deps", "resolve", "command not configured", nil)
	}
	path, err := exec.LookPath(command)
	if err != nil {
		return "", errs.Wrap(errs.ErrExternalTool, "deps", "resolve", fmt.Sprintf("binary %q not found", command), err)
	}
	return path, nil
}
