package versions

import (
	"errors"
	"regexp"
)

// versionRegex matches a dotted numeric version with an optional prerelease
// tag, an optional revision ("-rN"), and optional build metadata.
var versionRegex = regexp.MustCompile(`^v?[0-9]+(\.[0-9]+)*([-_][0-9A-Za-z.]+)*(\+[0-9A-Za-z.]+)?$`)

// ErrInvalidVersion is returned when a version string can't be used as a
// package version.
var ErrInvalidVersion = errors.New("not a valid package version")

// Validate checks that the given package version string is well-formed.
func Validate(v string) error {
	if !versionRegex.MatchString(v) {
		return ErrInvalidVersion
	}
	if _, err := NewVersion(v); err != nil {
		return ErrInvalidVersion
	}
	return nil
}
