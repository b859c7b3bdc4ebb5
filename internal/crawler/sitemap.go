package crawler

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// wellKnownSitemaps are tried before robots.txt references.
var wellKnownSitemaps = []string{
	"/sitemap.xml",
	"/sitemap_index.xml",
	"/sitemap-index.xml",
	"/wp-sitemap.xml",
}

const (
	// maxSitemapURLs bounds the page URLs taken from sitemaps.
	maxSitemapURLs = 1000
	// maxIndexChildren bounds the child sitemaps read from one index.
	maxIndexChildren = 10
	maxSitemapSize   = 10 * 1024 * 1024
)

type sitemapLoc struct {
	Loc string `xml:"loc"`
}

// sitemapDoc decodes both <urlset> and <sitemapindex> documents.
type sitemapDoc struct {
	XMLName  xml.Name
	URLs     []sitemapLoc `xml:"url"`
	Sitemaps []sitemapLoc `xml:"sitemap"`
}

// sitemapResult is the outcome of sitemap discovery.
type sitemapResult struct {
	// Sitemaps lists the sitemap documents that parsed.
	Sitemaps []string
	// URLs lists same-site page URLs in document order, deduplicated.
	URLs []string
}

type sitemapReader struct {
	client    *http.Client
	userAgent string
	base      *url.URL

	read   map[string]struct{}
	seen   map[string]struct{}
	result sitemapResult
}

// discoverSitemaps reads the well-known sitemap locations of base and then
// the sitemaps referenced by robots.txt. Indexes are followed one level.
func discoverSitemaps(ctx context.Context, client *http.Client, userAgent string, base *url.URL, robotsRefs []string) sitemapResult {
	r := &sitemapReader{
		client:    client,
		userAgent: userAgent,
		base:      base,
		read:      make(map[string]struct{}),
		seen:      make(map[string]struct{}),
	}

	candidates := make([]string, 0, len(wellKnownSitemaps)+len(robotsRefs))
	for _, p := range wellKnownSitemaps {
		candidates = append(candidates, (&url.URL{Scheme: base.Scheme, Host: base.Host, Path: p}).String())
	}
	candidates = append(candidates, robotsRefs...)

	for _, c := range candidates {
		if ctx.Err() != nil || len(r.result.URLs) >= maxSitemapURLs {
			break
		}
		r.readSitemap(ctx, c, true)
	}
	return r.result
}

func (r *sitemapReader) readSitemap(ctx context.Context, sitemapURL string, followIndex bool) {
	if _, done := r.read[sitemapURL]; done {
		return
	}
	r.read[sitemapURL] = struct{}{}

	doc, err := r.fetch(ctx, sitemapURL)
	if err != nil {
		return
	}

	switch doc.XMLName.Local {
	case "urlset":
		r.result.Sitemaps = append(r.result.Sitemaps, sitemapURL)
		for _, u := range doc.URLs {
			r.addURL(u.Loc)
		}
	case "sitemapindex":
		r.result.Sitemaps = append(r.result.Sitemaps, sitemapURL)
		if !followIndex {
			return
		}
		for i, child := range doc.Sitemaps {
			if i >= maxIndexChildren || len(r.result.URLs) >= maxSitemapURLs {
				break
			}
			r.readSitemap(ctx, strings.TrimSpace(child.Loc), false)
		}
	}
}

func (r *sitemapReader) addURL(loc string) {
	if len(r.result.URLs) >= maxSitemapURLs {
		return
	}
	u, err := url.Parse(strings.TrimSpace(loc))
	if err != nil || !u.IsAbs() || !sameSite(u.Host, r.base.Host) {
		return
	}
	key, err := NormalizeURL(u.String())
	if err != nil {
		return
	}
	if _, ok := r.seen[key]; ok {
		return
	}
	r.seen[key] = struct{}{}
	r.result.URLs = append(r.result.URLs, cleanURL(u))
}

func (r *sitemapReader) fetch(ctx context.Context, sitemapURL string) (*sitemapDoc, error) {
	if strings.HasSuffix(strings.ToLower(sitemapURL), ".gz") {
		return nil, fmt.Errorf("%s: compressed sitemaps are not supported", sitemapURL)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sitemapURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", r.userAgent)
	req.Header.Set("Accept", "application/xml,text/xml;q=0.9,*/*;q=0.5")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: HTTP %d", sitemapURL, resp.StatusCode)
	}

	var doc sitemapDoc
	if err := xml.NewDecoder(io.LimitReader(resp.Body, maxSitemapSize)).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%s: %w", sitemapURL, err)
	}
	return &doc, nil
}
