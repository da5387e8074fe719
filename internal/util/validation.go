package util

import (
	"regexp"
)

var uuidRegex = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

func IsValidUUID(s string) bool {
	if s == "" {
		return false
	}
	return uuidRegex.MatchString(s)
}

var tokenRegex = regexp.MustCompile(`^[0-9a-f]{64}$`)

// IsValidTokenValue checks the shape of a pairing token before it is ever sent
// to the store. A value that cannot have been issued is rejected locally.
func IsValidTokenValue(s string) bool {
	return tokenRegex.MatchString(s)
}
