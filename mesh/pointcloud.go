package mesh

import (
	"fmt"
	"sort"

	"github.com/golang/geo/r3"
	"github.com/paulmach/orb"
)

// groundRank skips the lowest few points so a single noisy return does not
// become the ground.
const groundRank = 20

// PointCloud is one building: points in building-local coordinates, the
// ground footprint and lazily computed normals and planes. It is not safe
// for concurrent reconstruction runs.
type PointCloud struct {
	Name      string
	Points    []r3.Vector
	Footprint orb.Ring // open ring, no duplicated closing vertex
	Offset    r3.Vector
	Metadata  *BuildingMetadata

	GroundPoint r3.Vector

	// Normals parallels Points once EnsureNormals has run.
	Normals []r3.Vector
	// Planes holds the ranked result of the last plane finder run.
	Planes []ScoredPlane

	grid *PointGrid
}

// NewPointCloud validates the input and picks the ground point.
func NewPointCloud(name string, points []r3.Vector, footprint orb.Ring) (*PointCloud, error) {
	if len(points) == 0 {
		return nil, fmt.Errorf("%s: %w", name, ErrEmptyPointCloud)
	}
	fp := orb.Ring(openRing(footprint))
	if len(fp) > 0 && len(fp) < 3 {
		return nil, fmt.Errorf("%s: %w: %d vertices", name, ErrInvalidFootprint, len(fp))
	}
	pc := &PointCloud{
		Name:      name,
		Points:    points,
		Footprint: fp,
	}
	pc.GroundPoint = groundPoint(points)
	pc.grid = NewPointGrid(points, DefaultBucketSize)
	return pc, nil
}

func groundPoint(points []r3.Vector) r3.Vector {
	sorted := make([]r3.Vector, len(points))
	copy(sorted, points)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Y < sorted[j].Y })
	if len(sorted) > groundRank {
		return sorted[groundRank]
	}
	return sorted[len(sorted)-1]
}

// Grid returns the spatial index, building it on first use.
func (pc *PointCloud) Grid() *PointGrid {
	if pc.grid == nil {
		pc.grid = NewPointGrid(pc.Points, DefaultBucketSize)
	}
	return pc.grid
}

// Len is the number of points.
func (pc *PointCloud) Len() int {
	return len(pc.Points)
}

// HasPlanes reports whether a plane finder has populated Planes.
func (pc *PointCloud) HasPlanes() bool {
	return pc.Planes != nil
}

// InvalidatePlanes forgets the detected planes.
func (pc *PointCloud) InvalidatePlanes() {
	pc.Planes = nil
}

// FootprintOrDefault returns the footprint, or the ground bounding box of
// the points when none was loaded.
func (pc *PointCloud) FootprintOrDefault() orb.Ring {
	if len(pc.Footprint) >= 3 {
		return pc.Footprint
	}
	mp := make(orb.MultiPoint, len(pc.Points))
	for i, p := range pc.Points {
		mp[i] = Ground(p)
	}
	b := mp.Bound()
	return orb.Ring{b.Min, {b.Max[0], b.Min[1]}, b.Max, {b.Min[0], b.Max[1]}}
}

// Indices returns 0..n-1.
func (pc *PointCloud) Indices() []int {
	idx := make([]int, len(pc.Points))
	for i := range idx {
		idx[i] = i
	}
	return idx
}
