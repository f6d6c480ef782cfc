// Package module defines the module.Version type along with support code.
package module

import (
	"fmt"
	"path/filepath"
	"strings"

	"golang.org/x/mod/semver"
)

// A Version represents a specific version of a package identified by its path.
type Version struct {
	Path    string // Package path, e.g. "pgplot" or "owner/repo"
	Version string // Dotted version string, e.g. "5.2.2"
}

// String returns "path@version".
func (v Version) String() string {
	if v.Version == "" {
		return v.Path
	}
	return v.Path + "@" + v.Version
}

// EscapePath returns the escaped form of the given package path as a valid
// file system path. It fails if the path is invalid.
func EscapePath(path string) (escaped string, err error) {
	return filepath.Localize(path)
}

// CheckVersion reports whether ver is a plain dotted release number such as
// "5.2.2" or "1.6". Pre-release and build suffixes are rejected.
func CheckVersion(ver string) error {
	sv := "v" + ver
	if !semver.IsValid(sv) || semver.Prerelease(sv) != "" || semver.Build(sv) != "" {
		return fmt.Errorf("invalid version %q", ver)
	}
	return nil
}

// Components splits a dotted version into its parts.
func Components(ver string) []string {
	return strings.FieldsFunc(ver, func(r rune) bool {
		return r == '.' || r == '-' || r == '_'
	})
}

// Joined returns the version with all separators removed: "5.2.2" -> "522".
func Joined(ver string) string {
	return strings.Join(Components(ver), "")
}

// Underscored returns the version joined by underscores: "1.6.37" -> "1_6_37".
func Underscored(ver string) string {
	return strings.Join(Components(ver), "_")
}

// UpTo returns the first n components joined by dots.
func UpTo(ver string, n int) string {
	parts := Components(ver)
	if n < len(parts) {
		parts = parts[:n]
	}
	return strings.Join(parts, ".")
}
