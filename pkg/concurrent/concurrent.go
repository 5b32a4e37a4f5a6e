package concurrent

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Concurrent runs action for each element of items with at most limit
// goroutines in flight (GOMAXPROCS when limit <= 0). It waits for all of
// them and returns the first error; the context passed to action is
// cancelled as soon as one fails.
func Concurrent[T any](ctx context.Context, items []T, limit int, action func(ctx context.Context, index int, item T) error) error {
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, item := range items {
		if gctx.Err() != nil {
			break
		}
		i, item := i, item
		g.Go(func() error {
			return action(gctx, i, item)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// ParallelMap applies mapFn to each element of items in parallel, preserving order.
// The workers parameter controls the number of goroutines.
func ParallelMap[T any, R any](items []T, workers int, mapFn func(T) R) []R {
	out := make([]R, len(items))
	_ = Concurrent(context.Background(), items, workers, func(_ context.Context, i int, item T) error {
		out[i] = mapFn(item)
		return nil
	})
	return out
}
