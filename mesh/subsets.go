package mesh

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// maxSubsetPlanes bounds the power set regardless of configuration.
const maxSubsetPlanes = 16

// candidate is one evaluated subset of planes.
type candidate struct {
	mask   uint32
	planes []Plane
	mesh   []Triangle
	score  float64
	ok     bool
}

// evalFunc builds and scores the mesh for a plane subset. Returning false
// rejects the subset.
type evalFunc func(planes []Plane) (mesh []Triangle, score float64, ok bool)

// subset returns the planes selected by the bits of mask.
func subset(planes []Plane, mask uint32) []Plane {
	var result []Plane
	for i, p := range planes {
		if mask&(1<<uint(i)) != 0 {
			result = append(result, p)
		}
	}
	return result
}

// searchSubsets evaluates every subset of planes, the empty one included,
// and returns the accepted candidate with the highest score. Ties go to the
// lower mask. The second return is false when every subset was rejected.
func searchSubsets(ctx context.Context, planes []Plane, parallelism int, eval evalFunc) (candidate, bool, error) {
	if len(planes) > maxSubsetPlanes {
		return candidate{}, false, fmt.Errorf("subset search over %d planes exceeds limit of %d", len(planes), maxSubsetPlanes)
	}
	total := uint32(1) << uint(len(planes))
	results := make([]candidate, total)

	g, ctx := errgroup.WithContext(ctx)
	if parallelism > 0 {
		g.SetLimit(parallelism)
	}
	for mask := uint32(0); mask < total; mask++ {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			sel := subset(planes, mask)
			mesh, score, ok := eval(sel)
			results[mask] = candidate{mask: mask, planes: sel, mesh: mesh, score: score, ok: ok}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return candidate{}, false, err
	}

	var best candidate
	found := false
	for _, c := range results {
		if !c.ok {
			continue
		}
		if !found || c.score > best.score {
			best = c
			found = true
		}
	}
	return best, found, nil
}
