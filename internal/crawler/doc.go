// Package crawler discovers and fetches the pages of one site for an audit.
//
// # Architecture
//
// The Spider coordinates a crawl. Every Crawl call creates a job holding
// the frontier, the visited set, the duplicate filter, the CMS cache and
// the crawl statistics, so no state is shared between crawls.
//
// The frontier is a priority queue keyed by (class, discovery order):
// the homepage first, then sitemap URLs, then links found on pages. URLs
// are admitted once, keyed by NormalizeURL.
//
// # Budgets
//
// A crawl stops at the first of: the page budget is used, the frontier is
// empty, every remaining link is deeper than the depth budget, or the time
// budget expires. The trigger is recorded in CrawlStats.StopReason. A page
// slot is reserved before a page is fetched, so PagesCrawled plus
// PagesSkipped never exceeds MaxPages.
//
// # Failures
//
// A page that cannot be fetched becomes a CrawlerOutput with Error set and
// the crawl goes on. Only a seed that stays unreachable after retries ends
// the crawl with a *model.JobFatalError.
//
// # Politeness
//
//   - robots.txt Disallow rules and Crawl-delay are honored
//   - fetches are spaced by a rate limiter
//   - the number of concurrent fetches is bounded
//
// # Usage
//
//	spider := crawler.NewSpider(renderer, crawler.WithConcurrency(4))
//	res, err := spider.Crawl(ctx, "https://example.com", model.CrawlOptions{MaxPages: 50, MaxDepth: 3})
package crawler
