package android

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strings"

	"github.com/sipeed/devguard/pkg/detect"
)

var packageNameRegex = regexp.MustCompile(`^[A-Za-z0-9_]+(\.[A-Za-z0-9_]+)*$`)

// exit status of sh when the command is not found
const exitCommandNotFound = 127

// Packages queries the package manager with "pm path".
type Packages struct {
	Shell detect.ShellRunner
}

func (p Packages) Installed(ctx context.Context, pkg string) (bool, error) {
	if !packageNameRegex.MatchString(pkg) {
		return false, fmt.Errorf("invalid package name %q", pkg)
	}
	out, err := p.Shell.Run(ctx, "pm path "+pkg)
	if err != nil {
		// pm exits non-zero for unknown packages.
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() != exitCommandNotFound {
			return false, nil
		}
		return false, fmt.Errorf("pm path %s: %w", pkg, err)
	}
	return strings.Contains(out, "package:"), nil
}
