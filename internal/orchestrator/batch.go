package orchestrator

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/valpere/listingfix/internal"
)

// RefineAll refines inputs with at most workers refinements in flight.
// Results are indexed like inputs. When ctx ends, records that have not
// started are abandoned and their result stays nil; in-flight ones finish
// their current step and return with state cancelled.
//
// onResult, when set, is called from the worker goroutines as each record
// finishes and must be safe for concurrent use.
func (o *Orchestrator) RefineAll(ctx context.Context, inputs []internal.ProductInput, workers int, onResult func(index int, r *Result)) []*Result {
	if workers <= 0 {
		workers = 1
	}
	results := make([]*Result, len(inputs))

	var g errgroup.Group
	g.SetLimit(workers)

	for i, in := range inputs {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			r := o.Refine(ctx, in)
			results[i] = r
			if onResult != nil {
				onResult(i, r)
			}
			return nil
		})
	}

	_ = g.Wait()
	return results
}
