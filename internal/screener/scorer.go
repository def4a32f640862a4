package screener

import (
	"fmt"
	"math"

	"StockScout/internal/model"
)

// Bucket awards Points when the metric value is below (or above) the
// threshold. Exactly one of Below/Above must be set.
type Bucket struct {
	Below  *float64 `yaml:"below,omitempty"`
	Above  *float64 `yaml:"above,omitempty"`
	Points float64  `yaml:"points"`
}

// Category is one independent scoring dimension: an ordered bucket list over
// a named metric, worth at most MaxPoints.
type Category struct {
	Name string `yaml:"name"`
	// Metric names the value scored; FallbackMetric is consulted when the
	// primary is absent (the open-interest ratio falls back to the volume
	// ratio for thinly traded chains).
	Metric         string   `yaml:"metric"`
	FallbackMetric string   `yaml:"fallback_metric,omitempty"`
	MaxPoints      float64  `yaml:"max_points"`
	Buckets        []Bucket `yaml:"buckets"`
}

// Scorer maps a metric set to a single score in [0, 10]. Categories are
// additive and independent; an absent metric contributes zero points and
// never disqualifies. Point values are configuration, not code.
type Scorer struct {
	categories []Category
	maxTotal   float64
}

// NewScorer validates the configured categories.
func NewScorer(categories []Category) (*Scorer, error) {
	if len(categories) == 0 {
		return nil, fmt.Errorf("scoring: no categories configured")
	}
	maxTotal := 0.0
	for _, cat := range categories {
		if cat.Metric == "" {
			return nil, fmt.Errorf("scoring category %q: no metric", cat.Name)
		}
		if cat.MaxPoints <= 0 {
			return nil, fmt.Errorf("scoring category %q: max_points must be positive", cat.Name)
		}
		if len(cat.Buckets) == 0 {
			return nil, fmt.Errorf("scoring category %q: no buckets", cat.Name)
		}
		for i, b := range cat.Buckets {
			if (b.Below == nil) == (b.Above == nil) {
				return nil, fmt.Errorf("scoring category %q bucket %d: exactly one of below/above required", cat.Name, i)
			}
			if b.Points > cat.MaxPoints {
				return nil, fmt.Errorf("scoring category %q bucket %d: points %v exceed max_points %v", cat.Name, i, b.Points, cat.MaxPoints)
			}
		}
		maxTotal += cat.MaxPoints
	}
	return &Scorer{categories: categories, maxTotal: maxTotal}, nil
}

// Score sums the first matching bucket of every category, normalizes by the
// theoretical maximum, scales to 10 and rounds to two decimals. The result is
// clamped to [0, 10]: penalty buckets can drag the raw sum below zero but
// never the final score.
func (s *Scorer) Score(ms *model.MetricSet) float64 {
	raw := 0.0
	for _, cat := range s.categories {
		v, ok := ms.Num(cat.Metric)
		if !ok && cat.FallbackMetric != "" {
			v, ok = ms.Num(cat.FallbackMetric)
		}
		if !ok {
			continue
		}
		for _, b := range cat.Buckets {
			if matches(b, v) {
				raw += b.Points
				break
			}
		}
	}

	score := raw / s.maxTotal * 10
	if score < 0 {
		score = 0
	}
	if score > 10 {
		score = 10
	}
	return math.Round(score*100) / 100
}

// MaxTotal returns the theoretical maximum raw point sum.
func (s *Scorer) MaxTotal() float64 { return s.maxTotal }

func matches(b Bucket, v float64) bool {
	if b.Below != nil {
		return v < *b.Below
	}
	return v > *b.Above
}
