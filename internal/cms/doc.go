// Package cms identifies the publishing platform behind a site from its
// HTML and response headers.
//
// Detection is rule based. Each rule carries a confidence; rules are
// checked in rank order (generator meta tag, response headers, asset path
// conventions) and evidence for the same platform is combined as
// independent signals. Detect is pure; Cache memoizes the first result so
// a crawl job detects the platform once.
package cms
