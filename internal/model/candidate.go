package model

import "errors"

// ErrInsufficientData marks a symbol whose upstream data was too thin to
// evaluate (no price history, missing current price). It is a skip reason,
// never fatal to a run.
var ErrInsufficientData = errors.New("insufficient data")

// Candidate is a symbol that passed every filter, together with its metrics
// and composite score. The score is reassigned once after options enrichment;
// nothing else changes after creation.
type Candidate struct {
	Symbol  string
	Metrics *MetricSet
	Score   float64
}
