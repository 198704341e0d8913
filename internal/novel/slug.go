package novel

import (
	"net/url"
	"path"
	"strings"
)

// Slugify derives a stable identifier from a source URL: the host's first
// label joined with the last path segment, lowercased, with anything
// outside [a-z0-9] collapsed to single dashes.
// https://twkan.com/book/76943.html -> "twkan-76943".
func Slugify(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return sanitizeSlug(rawURL)
	}
	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")
	if i := strings.Index(host, "."); i > 0 {
		host = host[:i]
	}

	base := path.Base(u.Path)
	base = strings.TrimSuffix(base, path.Ext(base))
	if base == "." || base == "/" {
		base = ""
	}

	if base == "" {
		return sanitizeSlug(host)
	}
	return sanitizeSlug(host + "-" + base)
}

func sanitizeSlug(s string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}
