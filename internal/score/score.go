package score

import (
	"math"
	"sort"

	"github.com/nao1215/siteaudit/internal/config"
	"github.com/nao1215/siteaudit/internal/model"
)

// DefaultDuplicateWeight multiplies the role weight of duplicate pages.
const DefaultDuplicateWeight = 0.5

// Score is an aggregated score and its category band.
type Score struct {
	Value    float64             `json:"score"`
	Category model.ScoreCategory `json:"category"`
}

func newScore(v float64) Score {
	v = math.Round(math.Max(0, math.Min(100, v))*10) / 10
	return Score{Value: v, Category: model.CategoryFor(v)}
}

// Weights weights analyzer scores by analyzer name. Analyzers without an
// entry weigh 1.
type Weights map[string]float64

func (w Weights) of(analyzer string) float64 {
	if v, ok := w[analyzer]; ok {
		return v
	}
	return 1
}

// RoleWeights weights page scores in the site score.
type RoleWeights struct {
	// Roles maps a page role to its weight. Roles without an entry
	// weigh 1.
	Roles map[model.PageRole]float64

	// Duplicate multiplies the weight of duplicate pages.
	Duplicate float64
}

// DefaultRoleWeights returns the built-in role weights.
func DefaultRoleWeights() RoleWeights {
	return RoleWeights{
		Roles: map[model.PageRole]float64{
			model.PageRoleHomepage:    3,
			model.PageRoleService:     2,
			model.PageRoleLocation:    2,
			model.PageRoleServiceArea: 1.5,
			model.PageRoleContact:     1.5,
			model.PageRoleOther:       1,
		},
		Duplicate: DefaultDuplicateWeight,
	}
}

func (w RoleWeights) of(p model.PageScore) float64 {
	weight := 1.0
	if v, ok := w.Roles[p.Role]; ok {
		weight = v
	}
	if p.Duplicate {
		weight *= w.Duplicate
	}
	return weight
}

// FromPolicy converts the configured policy weights.
func FromPolicy(p config.Policy) (Weights, RoleWeights) {
	weights := make(Weights, len(p.AnalyzerWeights))
	for name, w := range p.AnalyzerWeights {
		weights[name] = w
	}

	roles := DefaultRoleWeights()
	for role, w := range p.RoleWeights {
		roles.Roles[model.PageRole(role)] = w
	}
	if p.DuplicateWeight > 0 {
		roles.Duplicate = p.DuplicateWeight
	}
	return weights, roles
}

// Aggregate returns the weighted mean of analyzer scores. When every
// weight is zero the scores are weighted equally. No results score 0.
func Aggregate(results []model.AnalyzerResult, weights Weights) Score {
	if len(results) == 0 {
		return newScore(0)
	}
	values := make([]float64, len(results))
	ws := make([]float64, len(results))
	for i, r := range results {
		values[i] = r.Score
		ws[i] = weights.of(r.Analyzer)
	}
	return newScore(weightedMean(values, ws))
}

// AggregateSite returns the role-weighted mean of page scores.
func AggregateSite(pages []model.PageScore, roleWeights RoleWeights) Score {
	if len(pages) == 0 {
		return newScore(0)
	}
	values := make([]float64, len(pages))
	ws := make([]float64, len(pages))
	for i, p := range pages {
		values[i] = p.Score
		ws[i] = roleWeights.of(p)
	}
	return newScore(weightedMean(values, ws))
}

// Page builds the score of one page from its analyzer results.
func Page(page *model.PageCrawlResult, results []model.AnalyzerResult, weights Weights) model.PageScore {
	s := Aggregate(results, weights)
	return model.PageScore{
		URL:       page.URL,
		Role:      page.Role,
		Duplicate: page.IsDuplicate,
		Score:     s.Value,
		Category:  s.Category,
		Results:   results,
	}
}

// AnalyzerMeans returns the unweighted mean score of each analyzer across
// pages.
func AnalyzerMeans(pages []model.PageScore) map[string]float64 {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, p := range pages {
		for _, r := range p.Results {
			sums[r.Analyzer] += r.Score
			counts[r.Analyzer]++
		}
	}
	means := make(map[string]float64, len(sums))
	for name, sum := range sums {
		means[name] = newScore(sum / float64(counts[name])).Value
	}
	return means
}

// Worst returns up to n pages ordered by ascending score; ties keep their
// input order.
func Worst(pages []model.PageScore, n int) []model.PageScore {
	out := make([]model.PageScore, len(pages))
	copy(out, pages)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score < out[j].Score
	})
	if n >= 0 && n < len(out) {
		out = out[:n]
	}
	return out
}

func weightedMean(values, weights []float64) float64 {
	var sum, total float64
	for i, v := range values {
		sum += v * weights[i]
		total += weights[i]
	}
	if total == 0 {
		for _, v := range values {
			sum += v
		}
		return sum / float64(len(values))
	}
	return sum / total
}
