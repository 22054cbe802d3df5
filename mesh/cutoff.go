package mesh

import (
	"context"
	"fmt"
	"sort"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"go.uber.org/zap"
)

// CutoffBuilder picks the subset of the top ranked planes whose lower
// envelope over the footprint scores best. With Attachments it then looks
// for structures above each chosen plane that the roof does not explain.
type CutoffBuilder struct {
	Attachments bool
}

// Build implements Builder.
func (b CutoffBuilder) Build(ctx context.Context, pc *PointCloud, opts Options) (*BuildResult, error) {
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
	pc.Grid()

	start := time.Now()
	best, _, err := searchSubsets(ctx, planes, workers(opts), func(sel []Plane) ([]Triangle, float64, bool) {
		mesh := createFromPlanes(footprint, sel)
		return mesh, pc.MeshScore(scorer, mesh, nil), true
	})
	if err != nil {
		return nil, err
	}
	opts.Logger.Debug("subset search",
		zap.String("building", pc.Name),
		zap.Int("planes", len(planes)),
		zap.Int("selected", len(best.planes)),
		zap.Float64("score", best.score),
		zap.Duration("took", time.Since(start)))

	result := &BuildResult{Triangles: best.mesh, UsedPlanes: best.planes, Score: best.score}
	if !b.Attachments {
		return result, nil
	}

	start = time.Now()
	if err := addAttachments(ctx, pc, opts, footprint, result); err != nil {
		return nil, err
	}
	result.Score = pc.MeshScore(scorer, result.Triangles, nil)
	opts.Logger.Debug("attachments",
		zap.String("building", pc.Name),
		zap.Int("found", result.Attachments),
		zap.Duration("took", time.Since(start)))
	return result, nil
}

// addAttachments grows result with facets fitted to the points left above
// each base plane.
func addAttachments(ctx context.Context, pc *PointCloud, opts Options, footprint []Triangle2D, result *BuildResult) error {
	finder, err := NewPlaneFinder(opts)
	if err != nil {
		return err
	}
	scorer := opts.Scorer()
	cfg := opts.Attachments
	bases := append([]Plane(nil), result.UsedPlanes...)

	for _, base := range bases {
		leftover := mapset.NewThreadUnsafeSet[int]()
		for i, p := range pc.Points {
			if base.SignedDistance(p) > opts.MaxDistance*0.5 {
				leftover.Add(i)
			}
		}

		for iter := 0; iter < cfg.MaxIterations && leftover.Cardinality() > 0; iter++ {
			found, err := finder.FindPlanes(ctx, pc, sortedMembers(leftover))
			if err != nil {
				return fmt.Errorf("attachment planes for %s: %w", pc.Name, err)
			}
			found = FilterPlanes(found, pc, opts.Filter)
			outside := outsidePlanes(found, base, result.UsedPlanes, opts)
			if len(outside) == 0 {
				break
			}
			if len(outside) > opts.PlaneCap {
				outside = outside[:opts.PlaneCap]
			}

			best, ok, err := searchSubsets(ctx, outside, workers(opts), func(sel []Plane) ([]Triangle, float64, bool) {
				mesh := CutMesh(createFromPlanes(footprint, sel), base, true)
				area := MeshArea(mesh)
				if area == 0 {
					return nil, 0, false
				}
				if float64(pc.MeshPointCount(scorer, mesh, leftover))/area < cfg.MinDensity {
					return nil, 0, false
				}
				return mesh, pc.MeshScore(scorer, mesh, leftover), true
			})
			if err != nil {
				return err
			}
			if !ok || best.score <= cfg.MinMeshScore {
				break
			}

			result.Triangles = append(result.Triangles, best.mesh...)
			result.Attachments++
			for _, p := range best.planes {
				if !containsPlane(result.UsedPlanes, p) {
					result.UsedPlanes = append(result.UsedPlanes, p)
				}
			}
			opts.Logger.Debug("attachment accepted",
				zap.String("building", pc.Name),
				zap.Float64("score", best.score),
				zap.Int("planes", len(best.planes)),
				zap.Float64("area", MeshArea(best.mesh)))

			removeExplained(pc, best.mesh, leftover)
		}
	}
	return nil
}

// outsidePlanes keeps strong planes that differ from base, replacing each by
// an already used plane it resembles.
func outsidePlanes(found []ScoredPlane, base Plane, used []Plane, opts Options) []Plane {
	var result []Plane
	for _, sp := range found {
		if sp.Score <= opts.Attachments.MinPlaneScore || opts.Similarity.Similar(base, sp.Plane) {
			continue
		}
		p := sp.Plane
		for _, u := range used {
			if opts.Similarity.Similar(u, p) {
				p = u
				break
			}
		}
		if !containsPlane(result, p) {
			result = append(result, p)
		}
	}
	return result
}

// removeExplained drops every leftover point whose ground projection lies
// under mesh, whatever its height.
func removeExplained(pc *PointCloud, mesh []Triangle, leftover mapset.Set[int]) {
	for _, t := range mesh {
		pc.candidates(t, leftover, func(i int) {
			leftover.Remove(i)
		})
	}
}

func containsPlane(planes []Plane, p Plane) bool {
	for _, q := range planes {
		if q == p {
			return true
		}
	}
	return false
}

func sortedMembers(s mapset.Set[int]) []int {
	out := s.ToSlice()
	sort.Ints(out)
	return out
}
