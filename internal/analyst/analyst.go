package analyst

import (
	"context"

	"StockScout/internal/model"
)

// Analyst produces a short written assessment of a screened candidate.
type Analyst interface {
	Commentary(ctx context.Context, c model.Candidate) (string, error)
}

// Disabled is used when no analyst backend is configured. It returns an
// empty commentary so reports render without an AI section.
type Disabled struct{}

func (Disabled) Commentary(_ context.Context, _ model.Candidate) (string, error) {
	return "", nil
}
