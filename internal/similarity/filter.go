package similarity

import "sync"

// DefaultThreshold is the similarity at or above which a page is a
// duplicate.
const DefaultThreshold = 0.9

// Result is the outcome of a duplicate check.
type Result struct {
	IsDuplicate bool
	SimilarURL  string
	Similarity  float64
}

// CheckDuplicate compares text against the seen fingerprints and reports
// the best match. The page is a duplicate when the best similarity reaches
// threshold.
func CheckDuplicate(text string, seen []Fingerprint, threshold float64, k int) Result {
	return checkFingerprint(NewFingerprint("", text, k), seen, threshold)
}

func checkFingerprint(fp Fingerprint, seen []Fingerprint, threshold float64) Result {
	var best Result
	for _, s := range seen {
		sim := Jaccard(fp, s)
		if sim > best.Similarity {
			best.Similarity = sim
			best.SimilarURL = s.URL
		}
	}
	if best.Similarity >= threshold && best.Similarity > 0 {
		best.IsDuplicate = true
	} else {
		best.SimilarURL = ""
	}
	return best
}

// Filter keeps the fingerprints seen during one crawl job. It is safe for
// concurrent use.
type Filter struct {
	mu        sync.Mutex
	seen      []Fingerprint
	threshold float64
	k         int
}

// NewFilter creates a Filter. Non-positive arguments select the defaults.
func NewFilter(threshold float64, k int) *Filter {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	if k <= 0 {
		k = DefaultShingleSize
	}
	return &Filter{threshold: threshold, k: k}
}

// Threshold returns the duplicate threshold.
func (f *Filter) Threshold() float64 {
	return f.threshold
}

// Check compares a page's main text with every page seen so far. Pages
// that are not duplicates are remembered; duplicates are not, so later
// pages are always compared against originals.
func (f *Filter) Check(url, text string) Result {
	fp := NewFingerprint(url, text, f.k)

	f.mu.Lock()
	defer f.mu.Unlock()

	res := checkFingerprint(fp, f.seen, f.threshold)
	if !res.IsDuplicate && !fp.Empty() {
		f.seen = append(f.seen, fp)
	}
	return res
}

// Seen returns the number of remembered fingerprints.
func (f *Filter) Seen() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.seen)
}
