package mesh

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/paulmach/orb"
)

// DefaultBucketSize is the grid cell edge used for point clouds.
const DefaultBucketSize = 2.0

type cell struct {
	x, z int
}

// PointGrid buckets points by their ground projection. It is built once and
// never updated.
type PointGrid struct {
	size    float64
	points  []r3.Vector
	buckets map[cell][]int
	ground  map[cell]float64
}

// NewPointGrid indexes points into square cells of the given size.
func NewPointGrid(points []r3.Vector, bucketSize float64) *PointGrid {
	if bucketSize <= 0 {
		bucketSize = DefaultBucketSize
	}
	g := &PointGrid{
		size:    bucketSize,
		points:  points,
		buckets: make(map[cell][]int),
		ground:  make(map[cell]float64),
	}
	for i, p := range points {
		c := g.cellOf(p.X, p.Z)
		g.buckets[c] = append(g.buckets[c], i)
		if h, ok := g.ground[c]; !ok || p.Y < h {
			g.ground[c] = p.Y
		}
	}
	return g
}

func (g *PointGrid) cellOf(x, z float64) cell {
	return cell{x: int(math.Floor(x / g.size)), z: int(math.Floor(z / g.size))}
}

// Len is the number of indexed points.
func (g *PointGrid) Len() int {
	return len(g.points)
}

// Point returns the i-th indexed point.
func (g *PointGrid) Point(i int) r3.Vector {
	return g.points[i]
}

// BucketSize is the cell edge length.
func (g *PointGrid) BucketSize() float64 {
	return g.size
}

// InRange returns the indices of points near center. Loose queries return
// every point of the covered cells; strict ones keep only points whose ground
// distance is below radius.
func (g *PointGrid) InRange(center r3.Vector, radius float64, strict bool) []int {
	lo := g.cellOf(center.X-radius, center.Z-radius)
	hi := g.cellOf(center.X+radius, center.Z+radius)
	r2 := radius * radius

	var result []int
	for x := lo.x; x <= hi.x; x++ {
		for z := lo.z; z <= hi.z; z++ {
			for _, i := range g.buckets[cell{x, z}] {
				if strict {
					p := g.points[i]
					dx, dz := p.X-center.X, p.Z-center.Z
					if dx*dx+dz*dz >= r2 {
						continue
					}
				}
				result = append(result, i)
			}
		}
	}
	return result
}

// InBound returns the indices of all points in cells overlapping the bound.
func (g *PointGrid) InBound(b orb.Bound) []int {
	lo := g.cellOf(b.Min[0], b.Min[1])
	hi := g.cellOf(b.Max[0], b.Max[1])

	var result []int
	for x := lo.x; x <= hi.x; x++ {
		for z := lo.z; z <= hi.z; z++ {
			result = append(result, g.buckets[cell{x, z}]...)
		}
	}
	return result
}

// IndexOf finds the index of a point equal to p.
func (g *PointGrid) IndexOf(p r3.Vector) (int, bool) {
	for _, i := range g.buckets[g.cellOf(p.X, p.Z)] {
		if g.points[i] == p {
			return i, true
		}
	}
	return 0, false
}

// GroundHeight is the lowest elevation in the cell containing p.
func (g *PointGrid) GroundHeight(p r3.Vector) (float64, bool) {
	h, ok := g.ground[g.cellOf(p.X, p.Z)]
	return h, ok
}

// Cluster groups points connected through chains of neighbours closer than
// maxDistance on the ground. Clusters smaller than minPoints are dropped.
// Each cluster lists point indices in discovery order.
func (g *PointGrid) Cluster(maxDistance float64, minPoints int) [][]int {
	visited := make([]bool, len(g.points))
	var clusters [][]int

	for seed := range g.points {
		if visited[seed] {
			continue
		}
		visited[seed] = true
		cluster := []int{seed}
		for head := 0; head < len(cluster); head++ {
			for _, n := range g.InRange(g.points[cluster[head]], maxDistance, true) {
				if visited[n] {
					continue
				}
				visited[n] = true
				cluster = append(cluster, n)
			}
		}
		if len(cluster) >= minPoints {
			clusters = append(clusters, cluster)
		}
	}
	return clusters
}
