// Package phone normalizes and masks Iranian mobile numbers.
package phone

import (
	"regexp"
	"strings"
)

// Accepts the local form 09XXXXXXXXX or the international +989XXXXXXXXX.
var mobilePattern = regexp.MustCompile(`^09\d{9}$`)

// Normalize strips spaces and dashes and rewrites +98/0098 prefixes to the
// local 0-leading form. Output is not guaranteed valid; call IsValid after.
func Normalize(raw string) string {
	s := strings.NewReplacer(" ", "", "-", "").Replace(strings.TrimSpace(raw))
	switch {
	case strings.HasPrefix(s, "+98"):
		s = "0" + s[3:]
	case strings.HasPrefix(s, "0098"):
		s = "0" + s[4:]
	}
	return s
}

// IsValid reports whether the normalized number is an Iranian mobile number.
func IsValid(normalized string) bool {
	return mobilePattern.MatchString(normalized)
}

// Mask hides the middle digits for display: "0912***4567".
// Numbers too short to mask are returned unchanged.
func Mask(normalized string) string {
	if len(normalized) < 8 {
		return normalized
	}
	return normalized[:4] + "***" + normalized[len(normalized)-4:]
}
