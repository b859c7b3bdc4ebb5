// Package pipeline runs an audit as a sequence of steps.
//
// An audit passes through crawling, page normalization, analysis, site
// scoring, issue grouping and a completeness check. Each stage is a Step
// that receives the shared Audit state and adds to its result. Steps run
// strictly in order: scoring and grouping need the complete page set and
// cannot start before analysis has finished for every page.
//
// The pipeline supports both individual audits and batch processing of
// many sites with concurrency control using errgroup.
package pipeline
