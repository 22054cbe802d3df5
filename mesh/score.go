package mesh

import (
	"math"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/golang/geo/r3"
)

// Scorer rates how well a plane explains a point. A point on the plane scores
// 1, falling linearly to 0 at MaxDistance. With NormalWeighting the score is
// further scaled down linearly until the point normal is MaxAngle degrees off
// the plane normal.
type Scorer struct {
	MaxDistance     float64
	MaxAngle        float64
	NormalWeighting bool
}

// Score is in [0, 1].
func (s Scorer) Score(p Plane, point, normal r3.Vector) float64 {
	d := math.Abs(p.SignedDistance(point)) / s.MaxDistance
	if d >= 1 {
		return 0
	}
	score := 1 - d
	if s.NormalWeighting && normal.Norm2() > 0 {
		a := p.Normal.Angle(normal).Degrees() / s.MaxAngle
		if a >= 1 {
			return 0
		}
		score *= 1 - a
	}
	return score
}

// Inlier reports whether point lies within MaxDistance of the plane.
func (s Scorer) Inlier(p Plane, point r3.Vector) bool {
	return math.Abs(p.SignedDistance(point)) < s.MaxDistance
}

func (pc *PointCloud) normalAt(i int) r3.Vector {
	if pc.Normals == nil {
		return r3.Vector{}
	}
	return pc.Normals[i]
}

// PointScore scores the i-th point against p.
func (pc *PointCloud) PointScore(s Scorer, i int, p Plane) float64 {
	return s.Score(p, pc.Points[i], pc.normalAt(i))
}

// PlaneScore sums the score of the given points, or of every point when indices is nil.
func (pc *PointCloud) PlaneScore(s Scorer, p Plane, indices []int) float64 {
	var total float64
	if indices == nil {
		for i := range pc.Points {
			total += pc.PointScore(s, i, p)
		}
		return total
	}
	for _, i := range indices {
		total += pc.PointScore(s, i, p)
	}
	return total
}

// candidates visits the points whose ground projection falls in the
// triangle, optionally restricted to subset.
func (pc *PointCloud) candidates(t Triangle, subset mapset.Set[int], visit func(i int)) {
	for _, i := range pc.Grid().InBound(t.ProjectToGround().Bound()) {
		if subset != nil && !subset.Contains(i) {
			continue
		}
		if t.ContainsXZ(pc.Points[i]) {
			visit(i)
		}
	}
}

// TriangleScore sums the scores of points inside the triangle's ground
// projection against the triangle's plane.
func (pc *PointCloud) TriangleScore(s Scorer, t Triangle, subset mapset.Set[int]) float64 {
	p := t.Plane()
	var total float64
	pc.candidates(t, subset, func(i int) {
		total += pc.PointScore(s, i, p)
	})
	return total
}

// MeshScore sums TriangleScore over the mesh. A nil subset means all points.
func (pc *PointCloud) MeshScore(s Scorer, triangles []Triangle, subset mapset.Set[int]) float64 {
	var total float64
	for _, t := range triangles {
		total += pc.TriangleScore(s, t, subset)
	}
	return total
}

// MeshPointCount counts the inliers explained by the mesh. A point on an edge
// shared by several triangles is judged by the first of them only.
func (pc *PointCloud) MeshPointCount(s Scorer, triangles []Triangle, subset mapset.Set[int]) int {
	seen := mapset.NewThreadUnsafeSet[int]()
	count := 0
	for _, t := range triangles {
		p := t.Plane()
		pc.candidates(t, subset, func(i int) {
			if !seen.Add(i) {
				return
			}
			if s.Inlier(p, pc.Points[i]) {
				count++
			}
		})
	}
	return count
}
