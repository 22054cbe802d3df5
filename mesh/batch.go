package mesh

import (
	"context"
	"math/rand"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// BatchItem is the outcome for one input file.
type BatchItem struct {
	Path   string
	Result *Result
	Err    error
}

// RunBatch loads and reconstructs every path with up to workers buildings in
// flight. A failing building is recorded in its item and does not stop the
// others. Items are returned in input order. Each building gets its own
// random source derived from opts.RNG, so a seeded run is reproducible
// regardless of scheduling.
func RunBatch(ctx context.Context, paths []string, opts Options, workers int) []BatchItem {
	opts = opts.withDefaults()
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	seeds := make([]int64, len(paths))
	for i := range seeds {
		seeds[i] = opts.RNG.Int63()
	}

	items := make([]BatchItem, len(paths))
	var g errgroup.Group
	g.SetLimit(workers)
	for i, path := range paths {
		g.Go(func() error {
			items[i] = BatchItem{Path: path}
			if err := ctx.Err(); err != nil {
				items[i].Err = err
				return nil
			}
			pc, err := LoadBuilding(path)
			if err != nil {
				items[i].Err = err
				opts.Logger.Warn("load failed", zap.String("path", path), zap.Error(err))
				return nil
			}
			local := opts
			local.RNG = rand.New(rand.NewSource(seeds[i]))
			items[i].Result, items[i].Err = Reconstruct(ctx, pc, local)
			if items[i].Err != nil {
				opts.Logger.Warn("reconstruction failed", zap.String("building", pc.Name), zap.Error(items[i].Err))
			}
			return nil
		})
	}
	_ = g.Wait()
	return items
}
