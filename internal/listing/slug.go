// AngelaMos | 2026
// slug.go

package listing

import (
	"regexp"
	"strings"
)

const maxSlugBase = 80

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases title and collapses every run of other characters into
// a single dash.
func Slugify(title string) string {
	s := nonSlugChars.ReplaceAllString(strings.ToLower(title), "-")
	s = strings.Trim(s, "-")
	if len(s) > maxSlugBase {
		s = strings.TrimRight(s[:maxSlugBase], "-")
	}
	if s == "" {
		return "listing"
	}
	return s
}

// NewSlug appends a fragment of id so two listings with the same title get
// distinct slugs. long uses the whole id for the retry after a collision.
func NewSlug(title, id string, long bool) string {
	suffix := strings.ReplaceAll(id, "-", "")
	if !long && len(suffix) > 8 {
		suffix = suffix[:8]
	}
	return Slugify(title) + "-" + suffix
}
