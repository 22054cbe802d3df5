package mesh

import (
	"fmt"
	"math"
	"sort"

	"github.com/golang/geo/r3"
	"github.com/markus-wa/quickhull-go/v2"
	"github.com/paulmach/orb"
)

const (
	delaunayEpsilon   = 1e-9
	duplicateDistance = 1e-7
)

// Delaunay triangulates points in the plane and returns a flat index list
// into points. Points are lifted onto the paraboloid z = x² + y² and the
// downward-facing faces of their convex hull are kept. Duplicate points
// collapse onto their first occurrence. Fewer than three distinct points or a
// collinear set yield nil.
func Delaunay(points []orb.Point) []int {
	unique := dedupePoints(points)
	switch {
	case len(unique) < 3:
		return nil
	case collinear(points, unique):
		return nil
	case len(unique) == 3:
		return []int{unique[0], unique[1], unique[2]}
	}

	indices, err := liftedHull(points, unique)
	if err != nil || len(indices) == 0 {
		indices = hullFan(points, unique)
	}
	return indices
}

// dedupePoints returns the indices of the first occurrence of each distinct
// point in ascending order.
func dedupePoints(points []orb.Point) []int {
	order := make([]int, len(points))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		pa, pb := points[order[a]], points[order[b]]
		if pa[0] != pb[0] {
			return pa[0] < pb[0]
		}
		return pa[1] < pb[1]
	})

	seen := make([]bool, len(points))
	var unique []int
	for k, i := range order {
		if seen[i] {
			continue
		}
		seen[i] = true
		unique = append(unique, i)
		for _, j := range order[k+1:] {
			if points[j][0]-points[i][0] > duplicateDistance {
				break
			}
			if math.Abs(points[j][1]-points[i][1]) <= duplicateDistance {
				seen[j] = true
			}
		}
	}
	sort.Ints(unique)
	return unique
}

func collinear(points []orb.Point, idx []int) bool {
	a := points[idx[0]]
	far, best := a, 0.0
	for _, i := range idx[1:] {
		if d := planarDistance2(a, points[i]); d > best {
			far, best = points[i], d
		}
	}
	if best == 0 {
		return true
	}
	tolerance := delaunayEpsilon * best
	for _, i := range idx {
		if math.Abs(cross2(a, far, points[i])) > tolerance {
			return false
		}
	}
	return true
}

func planarDistance2(a, b orb.Point) float64 {
	dx, dy := a[0]-b[0], a[1]-b[1]
	return dx*dx + dy*dy
}

// liftedHull runs quickhull over the centred, scaled, lifted points. The hull
// library panics on some degenerate inputs; that is reported as an error.
func liftedHull(points []orb.Point, idx []int) (indices []int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("convex hull: %v", r)
		}
	}()

	var cx, cy float64
	for _, i := range idx {
		cx += points[i][0]
		cy += points[i][1]
	}
	cx /= float64(len(idx))
	cy /= float64(len(idx))
	scale := 0.0
	for _, i := range idx {
		scale = math.Max(scale, math.Max(math.Abs(points[i][0]-cx), math.Abs(points[i][1]-cy)))
	}

	lifted := make([]r3.Vector, len(idx))
	var centroid r3.Vector
	for k, i := range idx {
		x, y := (points[i][0]-cx)/scale, (points[i][1]-cy)/scale
		lifted[k] = r3.Vector{X: x, Y: y, Z: x*x + y*y}
		centroid = centroid.Add(lifted[k])
	}
	centroid = centroid.Mul(1 / float64(len(lifted)))

	hull := new(quickhull.QuickHull).ConvexHull(lifted, true, true, delaunayEpsilon)
	for f := 0; f+2 < len(hull.Indices); f += 3 {
		a, b, c := lifted[hull.Indices[f]], lifted[hull.Indices[f+1]], lifted[hull.Indices[f+2]]
		n := b.Sub(a).Cross(c.Sub(a))
		if n.Z == 0 {
			continue
		}
		if n.Z > 0 {
			n = n.Mul(-1)
		}
		// A lower face has its downward normal pointing away from the hull.
		if n.Normalize().Dot(centroid.Sub(a)) >= -delaunayEpsilon {
			continue
		}
		indices = append(indices, idx[hull.Indices[f]], idx[hull.Indices[f+1]], idx[hull.Indices[f+2]])
	}
	return indices, nil
}

// hullFan fan-triangulates the convex hull of the points. Interior points
// are left out; it only serves inputs the lifted hull cannot handle.
func hullFan(points []orb.Point, idx []int) []int {
	order := append([]int(nil), idx...)
	sort.Slice(order, func(a, b int) bool {
		pa, pb := points[order[a]], points[order[b]]
		if pa[0] != pb[0] {
			return pa[0] < pb[0]
		}
		return pa[1] < pb[1]
	})

	var hull []int
	for pass := 0; pass < 2; pass++ {
		start := len(hull)
		for _, i := range order {
			for len(hull) >= start+2 && cross2(points[hull[len(hull)-2]], points[hull[len(hull)-1]], points[i]) <= 0 {
				hull = hull[:len(hull)-1]
			}
			hull = append(hull, i)
		}
		hull = hull[:len(hull)-1]
		for l, r := 0, len(order)-1; l < r; l, r = l+1, r-1 {
			order[l], order[r] = order[r], order[l]
		}
	}

	var indices []int
	for k := 1; k+1 < len(hull); k++ {
		indices = append(indices, hull[0], hull[k], hull[k+1])
	}
	return indices
}
