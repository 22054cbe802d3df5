package mesh

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"time"

	"go.uber.org/zap"
)

// ScoredPlane is a candidate plane with its accumulated point score.
type ScoredPlane struct {
	Plane Plane   `json:"plane"`
	Score float64 `json:"score"`
}

// PlaneFinder detects candidate planes in a point cloud. A nil indices slice
// means every point; otherwise only the listed points take part in the
// search. Results are sorted by descending score.
type PlaneFinder interface {
	FindPlanes(ctx context.Context, pc *PointCloud, indices []int) ([]ScoredPlane, error)
}

// NewPlaneFinder returns the finder selected by opts.Finder.
func NewPlaneFinder(opts Options) (PlaneFinder, error) {
	opts = opts.withDefaults()
	switch opts.Finder {
	case FinderRansac:
		return NewRansacFinder(opts), nil
	case FinderHough:
		return NewHoughFinder(opts), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFinder, opts.Finder)
}

// EnsurePlanes runs normal estimation and the configured plane finder unless
// planes are already present, then drops ground and wall planes.
func (pc *PointCloud) EnsurePlanes(ctx context.Context, opts Options) error {
	if pc.HasPlanes() {
		return nil
	}
	return pc.DetectPlanes(ctx, opts)
}

// DetectPlanes replaces Planes with a fresh plane finder run.
func (pc *PointCloud) DetectPlanes(ctx context.Context, opts Options) error {
	opts = opts.withDefaults()
	finder, err := NewPlaneFinder(opts)
	if err != nil {
		return err
	}

	start := time.Now()
	pc.EnsureNormals(opts.Normals)
	opts.Logger.Debug("normals estimated", zap.String("building", pc.Name), zap.Duration("took", time.Since(start)))

	start = time.Now()
	planes, err := finder.FindPlanes(ctx, pc, nil)
	if err != nil {
		return fmt.Errorf("finding planes for %s: %w", pc.Name, err)
	}
	pc.Planes = FilterPlanes(planes, pc, opts.Filter)
	if pc.Planes == nil {
		pc.Planes = []ScoredPlane{}
	}
	opts.Logger.Debug("planes detected",
		zap.String("building", pc.Name),
		zap.String("finder", string(opts.Finder)),
		zap.Int("candidates", len(planes)),
		zap.Int("kept", len(pc.Planes)),
		zap.Duration("took", time.Since(start)))
	return nil
}

// FilterPlanes removes planes lying flat near the ground point and planes
// steep enough to be walls.
func FilterPlanes(planes []ScoredPlane, pc *PointCloud, f FilterOptions) []ScoredPlane {
	var result []ScoredPlane
	for _, sp := range planes {
		if isGroundPlane(sp.Plane, pc, f) || isWallPlane(sp.Plane, f) {
			continue
		}
		result = append(result, sp)
	}
	return result
}

func isGroundPlane(p Plane, pc *PointCloud, f FilterOptions) bool {
	d := p.SignedDistance(pc.GroundPoint)
	return d < f.GroundDistance && d > -f.GroundDistance && p.Canonical().Tilt().Degrees() < f.MaxGroundTilt
}

func isWallPlane(p Plane, f FilterOptions) bool {
	return 90-p.Canonical().Tilt().Degrees() < f.MinWallAngle
}

// sortPlanes orders planes by descending score, keeping input order for ties.
func sortPlanes(planes []ScoredPlane) {
	sort.SliceStable(planes, func(i, j int) bool { return planes[i].Score > planes[j].Score })
}

// dedupePlanes keeps the first plane of every group of similar planes. The
// input must already be sorted; the result is order preserving.
func dedupePlanes(planes []ScoredPlane, s Similarity) []ScoredPlane {
	var kept []ScoredPlane
	for _, candidate := range planes {
		duplicate := false
		for _, k := range kept {
			if s.Similar(k.Plane, candidate.Plane) {
				duplicate = true
				break
			}
		}
		if !duplicate {
			kept = append(kept, candidate)
		}
	}
	return kept
}

// TopPlanes returns at most n planes from the front of the ranking.
func TopPlanes(planes []ScoredPlane, n int) []Plane {
	if n > len(planes) {
		n = len(planes)
	}
	result := make([]Plane, n)
	for i := range result {
		result[i] = planes[i].Plane
	}
	return result
}

func workers(opts Options) int {
	if opts.Parallelism > 0 {
		return opts.Parallelism
	}
	return runtime.GOMAXPROCS(0)
}
