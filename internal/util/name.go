package util

import (
	"regexp"
	"strings"
)

var spaceRun = regexp.MustCompile(`\s+`)

// NormalizeName trims a registrant name and collapses inner whitespace,
// including tabs and line breaks, to single spaces.
func NormalizeName(raw string) string {
	return spaceRun.ReplaceAllString(strings.TrimSpace(raw), " ")
}
