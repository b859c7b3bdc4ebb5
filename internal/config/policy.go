package config

import "fmt"

// Policy holds the tunable constants of scoring, duplicate detection and
// issue prioritization. None of these values are fixed by the algorithms;
// they can be changed per audit from the configuration file.
type Policy struct {
	// SimilarityThreshold is the Jaccard similarity at or above which two
	// pages count as duplicates.
	SimilarityThreshold float64 `yaml:"similarityThreshold,omitempty"`

	// ShingleSize is the number of words per shingle.
	ShingleSize int `yaml:"shingleSize,omitempty"`

	// AnalyzerWeights weights analyzer scores in the page score, keyed by
	// analyzer name. Missing analyzers weigh 1.
	AnalyzerWeights map[string]float64 `yaml:"analyzerWeights,omitempty"`

	// RoleWeights weights page scores in the site score, keyed by page role.
	RoleWeights map[string]float64 `yaml:"roleWeights,omitempty"`

	// DuplicateWeight multiplies the role weight of duplicate pages.
	DuplicateWeight float64 `yaml:"duplicateWeight,omitempty"`

	// SeverityWeights are the severity factors of the priority formula,
	// keyed by severity name (INFO..CRITICAL).
	SeverityWeights map[string]float64 `yaml:"severityWeights,omitempty"`

	// CategoryImportance are the category factors of the priority formula,
	// keyed by issue category.
	CategoryImportance map[string]float64 `yaml:"categoryImportance,omitempty"`

	// IncompleteErrorRatio is the share of failed pages at which a result
	// is flagged as possibly incomplete.
	IncompleteErrorRatio float64 `yaml:"incompleteErrorRatio,omitempty"`
}

// DefaultPolicy returns the built-in tunables.
func DefaultPolicy() Policy {
	return Policy{
		SimilarityThreshold: 0.9,
		ShingleSize:         5,
		AnalyzerWeights: map[string]float64{
			"content":   1,
			"technical": 1,
			"local":     1,
			"ux":        1,
		},
		RoleWeights: map[string]float64{
			"homepage":     3,
			"service":      2,
			"location":     2,
			"service-area": 1.5,
			"contact":      1.5,
			"other":        1,
		},
		DuplicateWeight: 0.5,
		SeverityWeights: map[string]float64{
			"CRITICAL": 10,
			"HIGH":     7,
			"MEDIUM":   4,
			"LOW":      2,
			"INFO":     1,
		},
		CategoryImportance: map[string]float64{
			"technical": 1.0,
			"content":   0.9,
			"local":     0.8,
			"ux":        0.7,
		},
		IncompleteErrorRatio: 0.25,
	}
}

// Validate checks the policy values.
func (p Policy) Validate() error {
	if p.SimilarityThreshold <= 0 || p.SimilarityThreshold > 1 {
		return ErrInvalidThreshold
	}
	if p.ShingleSize <= 0 {
		return ErrInvalidShingleSize
	}
	for name, weights := range map[string]map[string]float64{
		"analyzer weight":     p.AnalyzerWeights,
		"role weight":         p.RoleWeights,
		"severity weight":     p.SeverityWeights,
		"category importance": p.CategoryImportance,
	} {
		for key, w := range weights {
			if w < 0 {
				return fmt.Errorf("%s %q: %w", name, key, ErrInvalidWeight)
			}
		}
	}
	if p.DuplicateWeight < 0 || p.IncompleteErrorRatio < 0 {
		return ErrInvalidWeight
	}
	return nil
}

// Merge returns p with every value set in override replacing its
// counterpart. Map entries are merged key by key.
func (p Policy) Merge(override Policy) Policy {
	out := p
	if override.SimilarityThreshold != 0 {
		out.SimilarityThreshold = override.SimilarityThreshold
	}
	if override.ShingleSize != 0 {
		out.ShingleSize = override.ShingleSize
	}
	if override.DuplicateWeight != 0 {
		out.DuplicateWeight = override.DuplicateWeight
	}
	if override.IncompleteErrorRatio != 0 {
		out.IncompleteErrorRatio = override.IncompleteErrorRatio
	}
	out.AnalyzerWeights = mergeWeights(p.AnalyzerWeights, override.AnalyzerWeights)
	out.RoleWeights = mergeWeights(p.RoleWeights, override.RoleWeights)
	out.SeverityWeights = mergeWeights(p.SeverityWeights, override.SeverityWeights)
	out.CategoryImportance = mergeWeights(p.CategoryImportance, override.CategoryImportance)
	return out
}

func mergeWeights(base, override map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}
