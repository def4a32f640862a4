package provider

import (
	"context"
	"errors"
	"fmt"

	"StockScout/internal/model"
)

// Provider fetches raw market data for a symbol. It is the only layer that
// talks to the outside world. Providers return whatever the upstream has and
// never fabricate values: a field the source does not report stays absent.
type Provider interface {
	PriceHistory(ctx context.Context, symbol string, lookbackDays int) (*model.PriceSeries, error)
	Fundamentals(ctx context.Context, symbol string) (*model.MetricSet, error)
	OptionsChain(ctx context.Context, symbol string) (*model.OptionsChain, error)
	Name() string
}

// TransientError marks a failure worth retrying: network trouble, timeouts,
// rate limiting.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return fmt.Sprintf("transient: %v", e.Err) }
func (e *TransientError) Unwrap() error { return e.Err }

// PermanentError marks a failure that retrying cannot fix: unknown or
// delisted symbol, malformed upstream response for this symbol.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return fmt.Sprintf("permanent: %v", e.Err) }
func (e *PermanentError) Unwrap() error { return e.Err }

// Transient wraps err as retryable.
func Transient(err error) error { return &TransientError{Err: err} }

// Permanent wraps err as non-retryable.
func Permanent(err error) error { return &PermanentError{Err: err} }

// IsTransient reports whether err should be retried. Call timeouts count as
// transient even when unclassified.
func IsTransient(err error) bool {
	// A permanent classification anywhere in the chain is final, even when
	// it wraps a transient cause.
	var pe *PermanentError
	if errors.As(err, &pe) {
		return false
	}
	var te *TransientError
	if errors.As(err, &te) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}
