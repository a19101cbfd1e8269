// Package subdomain holds the pure validation rules for tenant labels.
package subdomain

import (
	"regexp"
	"strings"
)

// Reserved labels clash with system routes and are never assignable,
// regardless of availability. Changing this set requires a deploy.
var reserved = map[string]struct{}{
	"admin":  {},
	"api":    {},
	"www":    {},
	"mail":   {},
	"static": {},
	"media":  {},
	"root":   {},
}

// 3-30 chars of [a-z0-9-], no leading or trailing hyphen.
var namePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{1,28}[a-z0-9]$`)

// Normalize trims whitespace and lowercases. Total on any input, idempotent.
func Normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// IsWellFormed reports whether the already-normalized name matches the label format.
func IsWellFormed(name string) bool {
	return namePattern.MatchString(name)
}

// IsReserved reports whether the name is in the fixed reserved set.
func IsReserved(name string) bool {
	_, ok := reserved[Normalize(name)]
	return ok
}
