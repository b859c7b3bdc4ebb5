// Package analyzer scores normalized pages.
//
// # Analyzers
//
// Four analyzers share the Analyzer interface and read the same
// PageCrawlResult:
//   - content: depth, title and description, headings, keywords, authorship
//   - technical: status, HTTPS, canonical, indexability, structured data
//   - local: name, address and phone evidence and location-page completeness
//   - ux: response time, mobile viewport, accessibility, page weight
//
// Each analyzer combines weighted sub-factors into a 0-100 score. A factor
// whose input is absent scores a neutral 50 and adds a low-severity
// missing-data issue, so one bad extraction can neither crash nor zero a
// report.
//
// # Engine
//
// The Engine runs every registered analyzer on a page concurrently and
// waits for all of them before returning. Analyzers hold no mutable state,
// so a page can be analyzed from any goroutine.
//
//	engine := analyzer.NewDefaultEngine(analyzer.WithTimeout(10 * time.Second))
//	results := engine.AnalyzePage(ctx, page)
package analyzer
