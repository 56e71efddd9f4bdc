package sanitizer

import (
	"strings"
	"unicode"
)

// TrimAndNormalize trims s and collapses every run of whitespace into a
// single space.
func TrimAndNormalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// NormalizeUserID strips surrounding whitespace. User ids are opaque, so
// inner whitespace and case are kept.
func NormalizeUserID(id string) string {
	return strings.TrimSpace(id)
}

// NormalizeFacilityName drops control characters and collapses whitespace.
// Case is significant: "Room" and "room" are different facilities.
func NormalizeFacilityName(name string) string {
	return TrimAndNormalize(strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && !unicode.IsSpace(r) {
			return -1
		}
		return r
	}, name))
}
