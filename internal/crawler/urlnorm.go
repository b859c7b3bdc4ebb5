package crawler

import (
	"fmt"
	"net"
	"net/url"
	"sort"
	"strings"
)

// NormalizeURL returns the visited-set key of a URL: scheme and host are
// lowercased, the default port, fragment and trailing slash are removed
// and query parameters are sorted by key. https://example.com/ and
// https://example.com produce the same key.
func NormalizeURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	if !u.IsAbs() || u.Host == "" {
		return "", fmt.Errorf("%w: %q is not absolute", ErrInvalidURL, raw)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = stripDefaultPort(u.Scheme, strings.ToLower(u.Host))
	u.Fragment = ""
	u.RawFragment = ""
	u.User = nil

	u.Path = strings.TrimRight(u.Path, "/")
	u.RawPath = ""

	if u.RawQuery != "" {
		u.RawQuery = sortedQuery(u.Query())
	}
	u.ForceQuery = false

	return u.String(), nil
}

// cleanURL prepares a URL for fetching: the fragment is dropped and an
// empty path becomes "/". Unlike NormalizeURL it keeps the path as
// written, since servers may treat /about and /about/ differently.
func cleanURL(u *url.URL) string {
	c := *u
	c.Fragment = ""
	c.RawFragment = ""
	c.Scheme = strings.ToLower(c.Scheme)
	c.Host = stripDefaultPort(c.Scheme, strings.ToLower(c.Host))
	if c.Path == "" {
		c.Path = "/"
	}
	return c.String()
}

func stripDefaultPort(scheme, host string) string {
	h, port, err := net.SplitHostPort(host)
	if err != nil {
		return host
	}
	if (scheme == "http" && port == "80") || (scheme == "https" && port == "443") {
		return h
	}
	return host
}

func sortedQuery(q url.Values) string {
	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		vals := q[k]
		sort.Strings(vals)
		for _, v := range vals {
			if sb.Len() > 0 {
				sb.WriteByte('&')
			}
			sb.WriteString(url.QueryEscape(k))
			sb.WriteByte('=')
			sb.WriteString(url.QueryEscape(v))
		}
	}
	return sb.String()
}

// sameSite reports whether two hosts belong to the same site. A leading
// "www." is ignored so that a seed redirecting to its www host keeps its
// links internal.
func sameSite(a, b string) bool {
	return strings.EqualFold(siteHost(a), siteHost(b))
}

func siteHost(host string) string {
	host = strings.ToLower(host)
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return strings.TrimPrefix(host, "www.")
}
