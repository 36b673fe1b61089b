package extract

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/savagelysubtle/archivum/internal/record"
)

// DefaultBatchLimit bounds concurrent file extractions when the caller
// does not choose a limit.
const DefaultBatchLimit = 4

// ExtractMany extracts metadata for every path, at most limit files in
// flight at once. Results line up with paths by index. A failing file
// yields a degraded record in its slot; it never aborts the batch.
// Cancelling ctx stops scheduling and marks unprocessed files canceled.
func (e *Engine) ExtractMany(ctx context.Context, paths []string, limit int) []*record.Record {
	if len(paths) == 0 {
		return nil
	}
	if limit <= 0 {
		limit = DefaultBatchLimit
	}

	results := make([]*record.Record, len(paths))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, path := range paths {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					rec := record.New(path, nil)
					rec.Error = fmt.Sprintf("core extraction error: %v", r)
					results[i] = rec
				}
			}()

			if err := gCtx.Err(); err != nil {
				rec := record.New(path, nil)
				rec.AddError(fmt.Sprintf("extraction canceled: %v", err))
				results[i] = rec
				return nil
			}

			results[i] = e.ExtractOne(gCtx, path)
			return nil
		})
	}
	_ = g.Wait()

	return results
}
