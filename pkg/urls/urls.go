// Package urls provides utility functions for working with URLs.
package urls

import (
	"net/url"
	"path"
	"strings"
)

// StripQuery drops everything from the first "?".
func StripQuery(raw string) string {
	if idx := strings.IndexByte(raw, '?'); idx >= 0 {
		return raw[:idx]
	}

	return raw
}

// Host returns the lowercased host of raw without a "www." prefix.
// Example: https://www.Imgur.com/a/x => imgur.com
func Host(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}

	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

// Ext returns the extension of the URL path without the leading dot.
// Example: https://i.imgur.com/abc.png => png
func Ext(raw string) string {
	p := raw

	if u, err := url.Parse(raw); err == nil {
		p = u.Path
	}

	return strings.TrimPrefix(path.Ext(p), ".")
}

// HasExt reports whether the URL path ends in one of exts (given with dot, lowercase).
func HasExt(raw string, exts ...string) bool {
	ext := "." + strings.ToLower(Ext(raw))

	for _, e := range exts {
		if ext == e {
			return true
		}
	}

	return false
}
