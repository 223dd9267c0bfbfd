package usecase

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/semmidev/bqvault/internal/domain"
)

const DefaultConcurrency = 8

// fanOut runs fn once per item with at most limit calls in flight and waits
// for all of them. Failures are captured in the returned outcomes, which keep
// item order; no call is cancelled because a sibling failed.
func fanOut[T any](
	ctx context.Context,
	limit int,
	items []T,
	target func(T) string,
	fn func(context.Context, T) error,
) []domain.OperationOutcome {
	outcomes := make([]domain.OperationOutcome, len(items))

	var g errgroup.Group
	if limit <= 0 {
		limit = DefaultConcurrency
	}
	g.SetLimit(limit)

	for i, item := range items {
		g.Go(func() error {
			outcome := domain.OperationOutcome{TargetID: target(item), Success: true}
			if err := fn(ctx, item); err != nil {
				outcome.Success = false
				outcome.Error = err.Error()
				outcome.Err = err
			}
			outcomes[i] = outcome
			return nil
		})
	}

	_ = g.Wait()
	return outcomes
}
