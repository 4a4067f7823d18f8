package security

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/kballard/go-shellquote"
)

var (
	// r10k environment and module names end up as command arguments and
	// directory names; restrict them to a conservative character set.
	environmentPattern = regexp.MustCompile(`^[A-Za-z0-9_][A-Za-z0-9_.-]*$`)
	modulePattern      = regexp.MustCompile(`^[A-Za-z0-9_][A-Za-z0-9_-]*$`)
)

// MaxNameLength bounds environment and module names.
const MaxNameLength = 255

// ValidateEnvironmentName ensures an environment name is safe to pass to r10k.
func ValidateEnvironmentName(name string) error {
	return validateName("environment", name, environmentPattern)
}

// ValidateModuleName ensures a module name is safe to pass to r10k.
func ValidateModuleName(name string) error {
	return validateName("module", name, modulePattern)
}

func validateName(kind, name string, pattern *regexp.Regexp) error {
	if name == "" {
		return fmt.Errorf("%s name cannot be empty", kind)
	}
	if len(name) > MaxNameLength {
		return fmt.Errorf("%s name too long (maximum %d characters)", kind, MaxNameLength)
	}
	if strings.Contains(name, "..") {
		return fmt.Errorf("%s name cannot contain '..'", kind)
	}
	if !pattern.MatchString(name) {
		return fmt.Errorf("%s name contains invalid characters: %s", kind, ShellEscape(name))
	}
	return nil
}

// ShellEscape quotes s for safe inclusion in log lines and shell examples.
func ShellEscape(s string) string {
	return shellquote.Join(s)
}
