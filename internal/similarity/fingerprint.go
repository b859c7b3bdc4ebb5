package similarity

import (
	"encoding/binary"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// DefaultShingleSize is the number of words per shingle.
const DefaultShingleSize = 5

// Fingerprint is the shingle hash set of one page.
type Fingerprint struct {
	URL    string
	hashes map[uint64]struct{}
}

// NewFingerprint fingerprints text using k-word shingles. Texts shorter
// than k words form a single shingle; empty text yields an empty
// fingerprint.
func NewFingerprint(url, text string, k int) Fingerprint {
	if k <= 0 {
		k = DefaultShingleSize
	}
	words := Words(text)
	fp := Fingerprint{URL: url, hashes: make(map[uint64]struct{})}
	if len(words) == 0 {
		return fp
	}
	if len(words) <= k {
		fp.hashes[hashShingle(words)] = struct{}{}
		return fp
	}
	for i := 0; i+k <= len(words); i++ {
		fp.hashes[hashShingle(words[i:i+k])] = struct{}{}
	}
	return fp
}

// Size returns the number of distinct shingles.
func (f Fingerprint) Size() int {
	return len(f.hashes)
}

// Empty reports whether the fingerprint has no shingles.
func (f Fingerprint) Empty() bool {
	return len(f.hashes) == 0
}

func hashShingle(words []string) uint64 {
	sum := blake2b.Sum256([]byte(strings.Join(words, " ")))
	return binary.LittleEndian.Uint64(sum[:8])
}

// Jaccard returns |a ∩ b| / |a ∪ b|. Two empty fingerprints have
// similarity 0 so that empty pages never count as duplicates.
func Jaccard(a, b Fingerprint) float64 {
	if a.Empty() || b.Empty() {
		return 0
	}
	small, large := a.hashes, b.hashes
	if len(small) > len(large) {
		small, large = large, small
	}
	inter := 0
	for h := range small {
		if _, ok := large[h]; ok {
			inter++
		}
	}
	union := len(a.hashes) + len(b.hashes) - inter
	return float64(inter) / float64(union)
}
