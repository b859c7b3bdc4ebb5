// Package score combines analyzer scores into page and site scores.
//
// A page score is the weighted mean of its analyzer scores, weighted by
// analyzer name. The site score is the weighted mean of the page scores,
// weighted by page role so that the homepage and service pages count more
// than incidental pages; duplicates count less. Scores are clamped to
// 0..100 and rounded to one decimal.
package score
