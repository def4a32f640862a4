package model

import (
	"sort"
	"time"
)

// OptionRight distinguishes calls from puts.
type OptionRight string

const (
	Call OptionRight = "call"
	Put  OptionRight = "put"
)

// OptionContract is one row of an options chain.
type OptionContract struct {
	Right        OptionRight
	Expiry       time.Time
	Strike       float64
	Volume       float64
	OpenInterest float64
	ImpliedVol   float64
}

// OptionsChain holds the raw contracts fetched for one underlying symbol,
// possibly spanning several expiries.
type OptionsChain struct {
	Symbol    string
	Contracts []OptionContract
	FetchedAt time.Time
}

// Expiries returns the distinct expiry dates in the chain, ascending.
func (c *OptionsChain) Expiries() []time.Time {
	seen := make(map[time.Time]struct{})
	var out []time.Time
	for _, ct := range c.Contracts {
		if _, ok := seen[ct.Expiry]; ok {
			continue
		}
		seen[ct.Expiry] = struct{}{}
		out = append(out, ct.Expiry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}
