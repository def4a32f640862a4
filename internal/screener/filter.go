package screener

import (
	"fmt"
	"sort"

	"StockScout/internal/model"
)

// Bound is a declarative min/max constraint on one named metric.
type Bound struct {
	Min *float64 `yaml:"min"`
	Max *float64 `yaml:"max"`
}

// FilterChain applies a set of bounds conjunctively: a candidate must satisfy
// every rule. A rule whose metric is absent fails, never passes by default.
type FilterChain struct {
	rules map[string]Bound
	order []string
}

// NewFilterChain builds a chain from the configured bounds. Rule order does
// not affect the outcome; rules are evaluated in sorted name order so failure
// reasons are deterministic.
func NewFilterChain(rules map[string]Bound) (*FilterChain, error) {
	order := make([]string, 0, len(rules))
	for name, b := range rules {
		if b.Min == nil && b.Max == nil {
			return nil, fmt.Errorf("filter %q: neither min nor max set", name)
		}
		if b.Min != nil && b.Max != nil && *b.Min > *b.Max {
			return nil, fmt.Errorf("filter %q: min %v exceeds max %v", name, *b.Min, *b.Max)
		}
		order = append(order, name)
	}
	sort.Strings(order)
	return &FilterChain{rules: rules, order: order}, nil
}

// Evaluate reports whether ms passes every rule, short-circuiting on the
// first failure. The returned reason names the failed rule.
func (f *FilterChain) Evaluate(ms *model.MetricSet) (ok bool, reason string) {
	for _, name := range f.order {
		b := f.rules[name]
		v, present := resolveMetric(ms, name)
		if !present {
			return false, fmt.Sprintf("filter %s: metric absent", name)
		}
		if b.Min != nil && v < *b.Min {
			return false, fmt.Sprintf("filter %s: %.4g < min %.4g", name, v, *b.Min)
		}
		if b.Max != nil && v > *b.Max {
			return false, fmt.Sprintf("filter %s: %.4g > max %.4g", name, v, *b.Max)
		}
	}
	return true, ""
}

// DerivedSMARatio is a filterable metric computed on the fly from SMA50 and
// SMA200 rather than stored in the set.
const DerivedSMARatio = "sma_50_200_ratio"

func resolveMetric(ms *model.MetricSet, name string) (float64, bool) {
	if name == DerivedSMARatio {
		sma50, ok50 := ms.Num(model.MetricSMA50)
		sma200, ok200 := ms.Num(model.MetricSMA200)
		if !ok50 || !ok200 || sma200 == 0 {
			return 0, false
		}
		return sma50 / sma200, true
	}
	if v, ok := ms.Num(name); ok {
		return v, true
	}
	// Boolean metrics filter as 0/1 so bounds like {min: 1} can require a flag.
	if b, ok := ms.Flag(name); ok {
		if b {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}
