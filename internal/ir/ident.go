package ir

import "regexp"

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// IsIdentifier reports whether s is a plain SQL identifier: a letter or
// underscore followed by letters, digits or underscores.
func IsIdentifier(s string) bool {
	return identifier.MatchString(s)
}
