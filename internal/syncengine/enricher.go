package syncengine

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

const DefaultConcurrency = 5

// EnrichFunc completes a record with its dependent sub-resources.
type EnrichFunc[R Record] func(ctx context.Context, rec R) (R, error)

type Enricher[R Record] struct {
	Enrich      EnrichFunc[R]
	Concurrency int
}

// Run enriches the records of chunk that are not older than watermark. The
// first record strictly older than watermark is left out together with
// everything after it, and stop is reported. Rows keep arrival order.
func (e Enricher[R]) Run(ctx context.Context, chunk []R, watermark time.Time) ([]R, bool, error) {
	fresh, stop := cutStale(chunk, watermark)
	if len(fresh) == 0 || e.Enrich == nil {
		return fresh, stop, nil
	}

	limit := e.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}
	rows := make([]R, len(fresh))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, rec := range fresh {
		i, rec := i, rec
		g.Go(func() error {
			enriched, err := e.Enrich(gctx, rec)
			if err != nil {
				return fmt.Errorf("enrich record %s: %w", rec.RecordID(), err)
			}
			rows[i] = enriched
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, stop, err
	}
	return rows, stop, nil
}

func cutStale[R Record](chunk []R, watermark time.Time) ([]R, bool) {
	for i, rec := range chunk {
		if rec.LastModified().Before(watermark) {
			return chunk[:i], true
		}
	}
	return chunk, false
}
