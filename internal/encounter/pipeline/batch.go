package pipeline

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/encounter.report/internal/encounter/l1fixes"
	"github.com/banshee-data/encounter.report/internal/monitoring"
)

// BatchItem is the outcome of one entity pair in a batch. Exactly one of
// Result and Err is set.
type BatchItem struct {
	Entity1 string
	Entity2 string
	Result  *Result
	Err     error
}

// EntityPairs lists every unordered pair of ids, in first-appearance order.
func EntityPairs(ids []string) [][2]string {
	var out [][2]string
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			out = append(out, [2]string{ids[i], ids[j]})
		}
	}
	return out
}

// RunBatch analyzes every pair of entities found in records as an
// independent two-entity analysis. Per-pair failures are recorded on the
// item and do not stop the batch; only schema errors, fewer than two
// entities (ErrEntityCount) and context cancellation are returned. Items
// follow EntityPairs order.
func RunBatch(ctx context.Context, records []l1fixes.Record, opts Options) ([]BatchItem, error) {
	if err := l1fixes.Validate(records); err != nil {
		return nil, err
	}
	records = l1fixes.FilterWindow(records, opts.Start, opts.End)
	ids, groups := l1fixes.GroupByEntity(records)
	if len(ids) < 2 {
		return nil, fmt.Errorf("%w: found %d", l1fixes.ErrEntityCount, len(ids))
	}
	pairs := EntityPairs(ids)
	monitoring.Logf("batch: %d entities, %d pairs", len(ids), len(pairs))

	items := make([]BatchItem, len(pairs))
	g, gctx := errgroup.WithContext(ctx)
	limit := opts.Concurrency
	if limit < 1 {
		limit = 1
	}
	g.SetLimit(limit)

	for i, p := range pairs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			item := BatchItem{Entity1: p[0], Entity2: p[1]}
			item.Result, item.Err = analyzePair(p[0], p[1], groups[p[0]], groups[p[1]], opts)
			if item.Err != nil {
				monitoring.Logf("batch: %s/%s: %v", p[0], p[1], item.Err)
			}
			// each goroutine owns its slot
			items[i] = item
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return items, nil
}
