package models

import (
	"strings"

	"github.com/goliatone/go-slug"
)

// Slugify turns a title or file name into a URL-safe slug. Values the
// normalizer rejects fall back to a lower-cased, dash-joined form.
func Slugify(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if normalized, err := slug.Normalize(value); err == nil && normalized != "" {
		return normalized
	}
	return strings.Join(strings.Fields(strings.ToLower(value)), "-")
}
