package mesh

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// RansacFinder proposes one plane per sampled point, through the point and
// along its estimated normal, and ranks the proposals against the whole
// cloud. Normals must be estimated beforehand.
type RansacFinder struct {
	opts Options
}

// NewRansacFinder returns a finder using opts.Ransac, opts.RNG and the scoring options.
func NewRansacFinder(opts Options) *RansacFinder {
	return &RansacFinder{opts: opts.withDefaults()}
}

// FindPlanes samples from indices (all points when nil) and returns the
// deduplicated ranking.
func (f *RansacFinder) FindPlanes(ctx context.Context, pc *PointCloud, indices []int) ([]ScoredPlane, error) {
	pc.EnsureNormals(f.opts.Normals)
	if indices == nil {
		indices = pc.Indices()
	}

	start := time.Now()
	sample := f.sample(indices)
	candidates := make([]Plane, 0, len(sample))
	for _, i := range sample {
		n := pc.Normals[i]
		if n.Norm2() == 0 {
			continue
		}
		candidates = append(candidates, NewPlane(n, pc.Points[i]))
	}

	scorer := f.opts.Scorer()
	scored := make([]ScoredPlane, len(candidates))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers(f.opts))
	for k := range candidates {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			scored[k] = ScoredPlane{Plane: candidates[k], Score: pc.PlaneScore(scorer, candidates[k], nil)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sortPlanes(scored)
	result := dedupePlanes(scored, f.opts.Similarity)
	f.opts.Logger.Debug("ransac",
		zap.Int("samples", len(sample)),
		zap.Int("candidates", len(candidates)),
		zap.Int("planes", len(result)),
		zap.Duration("took", time.Since(start)))
	return result, nil
}

// sample draws up to Ransac.Samples indices without replacement and returns
// them in ascending order so scoring order does not depend on the draw.
func (f *RansacFinder) sample(indices []int) []int {
	n := f.opts.Ransac.Samples
	pool := make([]int, len(indices))
	copy(pool, indices)
	if len(pool) <= n {
		return pool
	}
	for i := 0; i < n; i++ {
		j := i + f.opts.RNG.Intn(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	pool = pool[:n]
	sort.Ints(pool)
	return pool
}
