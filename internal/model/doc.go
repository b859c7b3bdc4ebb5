// Package model defines the core data structures used throughout siteaudit.
//
// The types follow the audit flow:
//   - CrawlerOutput: one raw fetched page as produced by the crawler
//   - PageCrawlResult: the canonical, analyzer-facing view of a page
//   - SiteStructure: role-based classification of the crawled pages
//   - Issue and IssueGroup: single findings and their deduplicated clusters
//   - AuditResult: the terminal artifact of one audit job
//
// Models live in their own package so that crawler, analyzer, issues,
// database and report can share them without import cycles. Everything
// here serializes to JSON for report output and database storage.
package model
