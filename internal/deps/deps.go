// Package deps verifies the external binaries the pipeline shells out to.
package deps

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"snapsort/internal/config"
)

// ErrMissingDependency marks a required external binary that could not be
// resolved. Callers translate it into the environment exit code.
var ErrMissingDependency = errors.New("missing required dependency")

// Requirement defines an external binary the pipeline relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of one requirement.
type Status struct {
	Requirement
	Available bool
	Detail    string
}

// ForConfig lists the requirements implied by the configuration.
func ForConfig(cfg *config.Config) []Requirement {
	return []Requirement{
		{
			Name:        "ExifTool",
			Command:     cfg.ExifTool.Binary,
			Description: "Reads capture timestamps from media metadata",
		},
	}
}

// Check evaluates each requirement against PATH.
func Check(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		req.Command = strings.TrimSpace(req.Command)
		status := Status{Requirement: req}
		switch {
		case req.Command == "":
			status.Detail = "command not configured"
		default:
			if _, err := exec.LookPath(req.Command); err != nil {
				status.Detail = fmt.Sprintf("binary %q not found", req.Command)
			} else {
				status.Available = true
			}
		}
		results = append(results, status)
	}
	return results
}

// VerifyRequired fails when any non-optional requirement is unavailable.
func VerifyRequired(cfg *config.Config) error {
	for _, status := range Check(ForConfig(cfg)) {
		if status.Available || status.Optional {
			continue
		}
		return fmt.Errorf("%w: %s (%s)", ErrMissingDependency, status.Name, status.Detail)
	}
	return nil
}
