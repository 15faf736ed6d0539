package oauth2

import (
	"strings"

	"github.com/samber/lo"
)

// ParseScope splits a space-delimited scope string, dropping blanks and duplicates.
func ParseScope(scope string) []string {
	return lo.Uniq(strings.Fields(scope))
}

// FormatScope joins scopes into the space-delimited wire form.
func FormatScope(scopes []string) string {
	return strings.Join(scopes, " ")
}
