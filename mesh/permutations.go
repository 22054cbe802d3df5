package mesh

import (
	"context"
	"fmt"
	"time"

	"github.com/golang/geo/r3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// PermutationBuilder cuts the footprint along the vertical planes through
// every ridge line and roofs each resulting region with the plane that
// explains it best.
type PermutationBuilder struct{}

// Build implements Builder.
func (PermutationBuilder) Build(ctx context.Context, pc *PointCloud, opts Options) (*BuildResult, error) {
	if err := requirePlanes(pc); err != nil {
		return nil, err
	}
	if len(pc.Planes) == 0 {
		return &BuildResult{}, nil
	}
	footprint := TriangulateFootprint(pc.FootprintOrDefault())
	if len(footprint) == 0 {
		return nil, fmt.Errorf("%s: %w: footprint does not triangulate", pc.Name, ErrInvalidFootprint)
	}
	scorer := opts.Scorer()
	planes := TopPlanes(pc.Planes, opts.PlaneCap)
	separators := groundSeparators(footprint, planes)
	if len(separators) > maxSubsetPlanes {
		separators = separators[:maxSubsetPlanes]
	}

	start := time.Now()
	total := 1 << uint(len(separators))
	cells := make([]candidate, total)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers(opts))
	for perm := 0; perm < total; perm++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			cells[perm] = bestCell(pc, scorer, footprint, planes, separators, perm)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &BuildResult{}
	for _, c := range cells {
		if !c.ok {
			continue
		}
		result.Triangles = append(result.Triangles, c.mesh...)
		result.Score += c.score
		for _, p := range c.planes {
			if !containsPlane(result.UsedPlanes, p) {
				result.UsedPlanes = append(result.UsedPlanes, p)
			}
		}
	}
	opts.Logger.Debug("permutations",
		zap.String("building", pc.Name),
		zap.Int("separators", len(separators)),
		zap.Int("planes", len(result.UsedPlanes)),
		zap.Duration("took", time.Since(start)))
	return result, nil
}

// bestCell roofs the footprint region selected by perm with the single best
// plane. Bit i clear keeps the side above separator i.
func bestCell(pc *PointCloud, s Scorer, footprint []Triangle2D, planes, separators []Plane, perm int) candidate {
	var best candidate
	for _, p := range planes {
		mesh := meshFromFootprint(footprint, p)
		for i, sep := range separators {
			if len(mesh) == 0 {
				break
			}
			mesh = CutMesh(mesh, sep, perm&(1<<uint(i)) == 0)
		}
		if len(mesh) == 0 {
			continue
		}
		score := pc.MeshScore(s, mesh, nil)
		if !best.ok || score > best.score {
			best = candidate{mask: uint32(perm), planes: []Plane{p}, mesh: mesh, score: score, ok: true}
		}
	}
	return best
}

// groundSeparators returns, for each pair of planes that meet, the vertical
// plane through their intersection line. Separators that leave the whole
// footprint on one side are dropped.
func groundSeparators(footprint []Triangle2D, planes []Plane) []Plane {
	flat := meshFromFootprint(footprint, NewPlane(Up, r3.Vector{}))
	var result []Plane
	for i := range planes {
		for j := 0; j < i; j++ {
			point, dir, ok := planes[i].Intersect(planes[j])
			if !ok {
				continue
			}
			normal := dir.Cross(Up)
			if normal.Norm2() < parallelEpsilon {
				continue
			}
			sep := NewPlane(normal, point)
			above, below := SplitMesh(flat, sep)
			if len(above) == 0 || len(below) == 0 {
				continue
			}
			result = append(result, sep)
		}
	}
	return result
}
