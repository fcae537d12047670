package convo

import (
	"net/url"
	"strings"
)

// localHosts are origins where the bare hostname is too coarse a namespace:
// many unrelated dev apps share them, so the path joins the key.
var localHosts = map[string]bool{
	"localhost": true,
	"127.0.0.1": true,
	"[::1]":     true,
	"::1":       true,
	"0.0.0.0":   true,
}

// DomainKey derives the storage namespace for a page URL. Two different host
// pages never share history.
//
// Normal origins key by hostname alone. Local/dev origins key by sanitized
// host plus path so that localhost:3000/app-a and localhost:3000/app-b stay
// separate. Unparseable input sanitizes the raw string.
func DomainKey(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil || u.Hostname() == "" {
		return sanitizeKey(pageURL)
	}

	host := strings.ToLower(u.Hostname())
	if localHosts[host] || strings.HasSuffix(host, ".local") || strings.HasSuffix(host, ".test") {
		return sanitizeKey(host + u.Path)
	}
	return sanitizeKey(host)
}

// sanitizeKey maps arbitrary input onto [a-z0-9_.-] so the key is safe as a
// file name and as a storage key. Empty input becomes "local".
func sanitizeKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))

	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}

	key := strings.Trim(b.String(), "_")
	if key == "" {
		return "local"
	}
	return key
}
