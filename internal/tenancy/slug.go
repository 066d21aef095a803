package tenancy

import (
	"strings"

	"taskhub.org/internal/ids"
)

const (
	minSlugLength = 2
	maxSlugLength = 50
	suffixLength  = 6
)

// Slugify lower-cases name and collapses every run of characters outside
// [a-z0-9] into a single hyphen.
func Slugify(name string) string {
	var b strings.Builder
	hyphen := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			hyphen = false
		case !hyphen && b.Len() > 0:
			b.WriteByte('-')
			hyphen = true
		}
	}
	slug := strings.TrimRight(b.String(), "-")
	if len(slug) > maxSlugLength {
		slug = strings.TrimRight(slug[:maxSlugLength], "-")
	}
	return slug
}

// ValidSlug reports whether s is 2 to 50 characters of [a-z0-9-].
func ValidSlug(s string) bool {
	if len(s) < minSlugLength || len(s) > maxSlugLength {
		return false
	}
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '-') {
			return false
		}
	}
	return true
}

// withSuffix appends a short random suffix, keeping the result within maxSlugLength.
func withSuffix(base string) string {
	id := strings.ToLower(ids.New())
	suffix := id[len(id)-suffixLength:]
	if room := maxSlugLength - suffixLength - 1; len(base) > room {
		base = strings.TrimRight(base[:room], "-")
	}
	if base == "" {
		return suffix
	}
	return base + "-" + suffix
}
