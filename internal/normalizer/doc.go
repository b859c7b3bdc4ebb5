// Package normalizer turns validated CrawlerOutputs into PageCrawlResults,
// the page shape every analyzer reads.
//
// Normalization fails closed: an output that does not satisfy the validate
// tags of model.CrawlerOutput is rejected with a *model.ValidationError and
// never reaches the analyzers.
package normalizer
