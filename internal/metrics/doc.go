// Package metrics exposes crawl and audit metrics in the Prometheus text
// format. A Collector owns its registry, so several collectors can live in
// one process (and in parallel tests).
package metrics
