// Package similarity flags duplicate and near-duplicate pages before they
// consume more crawl budget.
//
// Page text is reduced to its main content (navigation, header, footer
// and sidebars removed), Unicode-normalized, case-folded and
// whitespace-collapsed. The normalized words are split into overlapping
// k-word shingles, each hashed to 64 bits; the set of hashes is the page
// fingerprint. Two fingerprints are compared by Jaccard similarity and a
// page whose best match reaches the threshold is a duplicate.
package similarity
