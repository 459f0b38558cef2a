// Package fallback runs an ordered chain of data-access attempts and
// reports which tier ultimately served the request.
package fallback

import (
	"context"
	"fmt"

	"budgetme/internal/log"
)

// Tier names the data source that produced a result, in order of
// preference.
type Tier string

const (
	TierView   Tier = "view"
	TierJoined Tier = "table_with_join"
	TierTable  Tier = "table_only"
	TierError  Tier = "error"
)

type (
	// Attempt is one rung of a fallback chain.
	Attempt[T any] struct {
		Source Tier
		Run    func(ctx context.Context) (T, error)
	}

	// Result carries the data together with the tier that served it.
	// When every attempt fails, Source is TierError and Err holds the
	// last failure.
	Result[T any] struct {
		Source Tier
		Data   T
		Err    error
	}
)

// Run executes attempts in order and returns the first success.
// Intermediate failures are logged at warn level so a degraded source
// is visible without failing the request.
func Run[T any](ctx context.Context, logger *log.Logger, operation string, attempts ...Attempt[T]) Result[T] {
	var lastErr error
	for _, a := range attempts {
		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}
		data, err := a.Run(ctx)
		if err == nil {
			return Result[T]{Source: a.Source, Data: data}
		}
		lastErr = fmt.Errorf("%s via %s: %w", operation, a.Source, err)
		fields := log.NewFields().
			WithOperation(operation).
			WithTier(string(a.Source)).
			WithError(err)
		logger.WarnContext(ctx, "fallback tier failed", fields.ToSlice()...)
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("%s: no attempts configured", operation)
	}
	fields := log.NewFields().WithOperation(operation).WithError(lastErr)
	logger.ErrorContext(ctx, "all fallback tiers failed", fields.ToSlice()...)
	return Result[T]{Source: TierError, Err: lastErr}
}

// Ok reports whether the chain produced usable data.
func (r Result[T]) Ok() bool { return r.Source != TierError }
