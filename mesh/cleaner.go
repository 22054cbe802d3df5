package mesh

import (
	"math"
	"sort"

	"github.com/dhconnelly/rtreego"
	"github.com/golang/geo/r3"
	"github.com/paulmach/orb"
)

// boundsPadding keeps rtree rectangles of vertical or axis-aligned
// triangles from collapsing to zero width.
const boundsPadding = 1e-6

type spatialTriangle struct {
	t    Triangle
	rect rtreego.Rect
}

func (s *spatialTriangle) Bounds() rtreego.Rect {
	return s.rect
}

func boundsRect(b orb.Bound) rtreego.Rect {
	rect, _ := rtreego.NewRect(
		rtreego.Point{b.Min[0] - boundsPadding, b.Min[1] - boundsPadding},
		[]float64{b.Max[0] - b.Min[0] + 2*boundsPadding, b.Max[1] - b.Min[1] + 2*boundsPadding},
	)
	return rect
}

// triangleIndex finds triangles by ground position.
type triangleIndex struct {
	tree *rtreego.Rtree
}

func newTriangleIndex(triangles []Triangle) *triangleIndex {
	tree := rtreego.NewTree(2, 25, 50)
	for _, t := range triangles {
		tree.Insert(&spatialTriangle{t: t, rect: boundsRect(t.ProjectToGround().Bound())})
	}
	return &triangleIndex{tree: tree}
}

// highest returns the topmost triangle whose ground projection contains p,
// and the height of that triangle's plane at p.
func (ix *triangleIndex) highest(p orb.Point) (Triangle, float64, bool) {
	var (
		best   Triangle
		height float64
		found  bool
	)
	probe := Lift(p, 0)
	for _, s := range ix.tree.SearchIntersect(boundsRect(orb.Bound{Min: p, Max: p})) {
		t := s.(*spatialTriangle).t
		if !t.ContainsXZ(probe) {
			continue
		}
		y, ok := t.Plane().HeightAt(p)
		if !ok {
			continue
		}
		if !found || y > height {
			best, height, found = t, y, true
		}
	}
	return best, height, found
}

func (ix *triangleIndex) covers(p orb.Point) bool {
	_, _, ok := ix.highest(p)
	return ok
}

// CleanMesh resamples a mesh produced by repeated clipping into fewer,
// better shaped triangles. Samples are taken at the vertices, centroids and
// along the edges of every triangle, thinned so no two lie closer than
// MergeDistance on the ground (higher samples win), lifted onto the highest
// triangle covering them, and re-triangulated in the ground projection.
// Triangles steeper than MaxTilt never contribute.
func CleanMesh(triangles []Triangle, opts CleanerOptions) []Triangle {
	if len(triangles) == 0 {
		return nil
	}
	index := newTriangleIndex(triangles)
	samples := thinSamples(meshSamples(triangles, opts.Spacing), opts.MergeDistance)

	var ground []orb.Point
	var lifted []r3.Vector
	for _, s := range samples {
		g := Ground(s)
		t, y, ok := index.highest(g)
		if !ok || t.Plane().Tilt().Degrees() > opts.MaxTilt {
			continue
		}
		ground = append(ground, g)
		lifted = append(lifted, Lift(g, y))
	}

	indices := Delaunay(ground)
	var result []Triangle
	for f := 0; f+2 < len(indices); f += 3 {
		t, ok := TryCreateTriangle(lifted[indices[f]], lifted[indices[f+1]], lifted[indices[f+2]])
		if !ok {
			continue
		}
		if t.Plane().Tilt().Degrees() > opts.MaxTilt {
			continue
		}
		if !index.covers(Ground(t.Centroid())) {
			continue
		}
		result = append(result, t)
	}
	return result
}

// meshSamples returns the vertices, centroid and evenly spaced edge points of
// every triangle.
func meshSamples(triangles []Triangle, spacing float64) []r3.Vector {
	var samples []r3.Vector
	for _, t := range triangles {
		v := t.Vertices()
		samples = append(samples, v[0], v[1], v[2], t.Centroid())
		for k := 0; k < 3; k++ {
			a, b := v[k], v[(k+1)%3]
			n := int(math.Floor(b.Sub(a).Norm() / spacing))
			for s := 1; s < n; s++ {
				samples = append(samples, a.Add(b.Sub(a).Mul(float64(s)/float64(n))))
			}
		}
	}
	return samples
}

// thinSamples keeps samples in descending height order, skipping any that
// falls within minDistance on the ground of one already kept.
func thinSamples(samples []r3.Vector, minDistance float64) []r3.Vector {
	sort.SliceStable(samples, func(i, j int) bool { return samples[i].Y > samples[j].Y })

	tree := rtreego.NewTree(2, 25, 50)
	var kept []r3.Vector
	for _, s := range samples {
		g := Ground(s)
		near := tree.SearchIntersect(boundsRect(orb.Bound{
			Min: orb.Point{g[0] - minDistance, g[1] - minDistance},
			Max: orb.Point{g[0] + minDistance, g[1] + minDistance},
		}))
		tooClose := false
		for _, n := range near {
			q := n.(*keptSample).p
			if planarDistance2(q, g) < minDistance*minDistance {
				tooClose = true
				break
			}
		}
		if tooClose {
			continue
		}
		tree.Insert(&keptSample{p: g, rect: boundsRect(orb.Bound{Min: g, Max: g})})
		kept = append(kept, s)
	}
	return kept
}

type keptSample struct {
	p    orb.Point
	rect rtreego.Rect
}

func (k *keptSample) Bounds() rtreego.Rect {
	return k.rect
}
