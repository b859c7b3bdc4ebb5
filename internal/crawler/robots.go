package crawler

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/temoto/robotstxt"
)

// maxRobotsCrawlDelay caps the Crawl-delay a site may impose on us.
const maxRobotsCrawlDelay = 5 * time.Second

// robotsPolicy is the robots.txt group that applies to our user agent.
// A nil policy allows everything.
type robotsPolicy struct {
	group    *robotstxt.Group
	sitemaps []string
}

// fetchRobots reads /robots.txt of base. Missing or unreadable files yield
// an allow-all policy; robotstxt treats 4xx as allow-all and 5xx as
// disallow-all.
func fetchRobots(ctx context.Context, client *http.Client, base *url.URL, userAgent string) *robotsPolicy {
	robotsURL := &url.URL{Scheme: base.Scheme, Host: base.Host, Path: "/robots.txt"}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL.String(), nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 512*1024))
	if err != nil {
		return nil
	}
	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		return nil
	}
	return &robotsPolicy{
		group:    data.FindGroup(userAgent),
		sitemaps: data.Sitemaps,
	}
}

// allowed reports whether path may be fetched.
func (p *robotsPolicy) allowed(path string) bool {
	if p == nil || p.group == nil {
		return true
	}
	if path == "" {
		path = "/"
	}
	return p.group.Test(path)
}

// crawlDelay returns the Crawl-delay of the group, capped.
func (p *robotsPolicy) crawlDelay() time.Duration {
	if p == nil || p.group == nil {
		return 0
	}
	return min(p.group.CrawlDelay, maxRobotsCrawlDelay)
}

func (p *robotsPolicy) sitemapRefs() []string {
	if p == nil {
		return nil
	}
	return p.sitemaps
}
