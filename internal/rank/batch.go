package rank

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	apperrors "github.com/harrier-search/harrier/pkg/errors"
)

// Ranking is one query's ranked result: aligned id/score slices, scores
// non-increasing.
type Ranking struct {
	DocIDs []string
	Scores []float64
}

// BatchClosestDocs ranks every query independently on a bounded worker
// pool and returns results positionally: Rankings[i] always answers
// queries[i] regardless of completion order. workers <= 0 means one
// worker per CPU. A resolved worker count above one requires a
// concurrency-safe tokenizer; otherwise the batch fails with
// ErrUnsupportedConcurrency before any query is dispatched.
func (r *Ranker) BatchClosestDocs(ctx context.Context, queries []string, k, workers int) ([]Ranking, error) {
	return r.batch(ctx, len(queries), workers, func(i int) ([]string, []float64, error) {
		return r.ClosestDocs(queries[i], k)
	})
}

// BatchClosestDocsTokens is BatchClosestDocs for pre-tokenized queries.
func (r *Ranker) BatchClosestDocsTokens(ctx context.Context, queries [][]string, k, workers int) ([]Ranking, error) {
	return r.batch(ctx, len(queries), workers, func(i int) ([]string, []float64, error) {
		return r.ClosestDocsTokens(queries[i], k)
	})
}

func (r *Ranker) batch(ctx context.Context, n, workers int, one func(i int) ([]string, []float64, error)) ([]Ranking, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > 1 && !r.tok.Concurrent() {
		return nil, fmt.Errorf("%w: %d workers requested", apperrors.ErrUnsupportedConcurrency, workers)
	}

	results := make([]Ranking, n)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			ids, scores, err := one(i)
			if err != nil {
				return fmt.Errorf("query %d: %w", i, err)
			}
			results[i] = Ranking{DocIDs: ids, Scores: scores}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
