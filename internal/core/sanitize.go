// AngelaMos | 2026
// sanitize.go

package core

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	strictPolicy = bluemonday.StrictPolicy()
	ugcPolicy    = bluemonday.UGCPolicy()
)

// PlainText strips all markup from single line fields such as titles.
// Entities escaped by the policy are folded back so the stored value is
// the text the user typed.
func PlainText(s string) string {
	return strings.TrimSpace(html.UnescapeString(strictPolicy.Sanitize(s)))
}

// RichText keeps the safe user content subset (links, emphasis, lists).
func RichText(s string) string {
	return strings.TrimSpace(ugcPolicy.Sanitize(s))
}
