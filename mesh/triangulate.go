package mesh

import (
	"github.com/paulmach/orb"
)

const earEpsilon = 1e-12

// Triangulate ear-clips a simple polygon given in either winding order and
// returns a flat list of indices into points, three per triangle. Fewer than
// three points, or a polygon the clipper cannot finish, yields what has been
// emitted so far.
func Triangulate(points []orb.Point) []int {
	n := len(points)
	if n < 3 {
		return nil
	}

	// Work on a counter-clockwise index ring.
	ring := make([]int, n)
	if orb.Ring(points).Orientation() == orb.CCW {
		for i := range ring {
			ring[i] = i
		}
	} else {
		for i := range ring {
			ring[i] = n - 1 - i
		}
	}

	indices := make([]int, 0, 3*(n-2))
	remaining := n
	guard := 2 * remaining
	v := remaining - 1
	for remaining > 2 {
		if guard == 0 {
			break
		}
		guard--

		u := v
		if u >= remaining {
			u = 0
		}
		v = u + 1
		if v >= remaining {
			v = 0
		}
		w := v + 1
		if w >= remaining {
			w = 0
		}

		if !isEar(points, ring[:remaining], u, v, w) {
			continue
		}
		indices = append(indices, ring[u], ring[v], ring[w])
		copy(ring[v:remaining-1], ring[v+1:remaining])
		remaining--
		guard = 2 * remaining
	}

	for i, j := 0, len(indices)-1; i < j; i, j = i+1, j-1 {
		indices[i], indices[j] = indices[j], indices[i]
	}
	return indices
}

// isEar reports whether u-v-w is a convex corner with no other ring vertex inside it.
func isEar(points []orb.Point, ring []int, u, v, w int) bool {
	a, b, c := points[ring[u]], points[ring[v]], points[ring[w]]
	if (b[0]-a[0])*(c[1]-a[1])-(b[1]-a[1])*(c[0]-a[0]) < earEpsilon {
		return false
	}
	for i := range ring {
		if i == u || i == v || i == w {
			continue
		}
		if insideCCW(a, b, c, points[ring[i]]) {
			return false
		}
	}
	return true
}

func insideCCW(a, b, c, p orb.Point) bool {
	aCrossBP := (c[0]-b[0])*(p[1]-b[1]) - (c[1]-b[1])*(p[0]-b[0])
	cCrossAP := (b[0]-a[0])*(p[1]-a[1]) - (b[1]-a[1])*(p[0]-a[0])
	bCrossCP := (a[0]-c[0])*(p[1]-c[1]) - (a[1]-c[1])*(p[0]-c[0])
	return aCrossBP >= 0 && bCrossCP >= 0 && cCrossAP >= 0
}

// TriangulateFootprint ear-clips a footprint ring into ground triangles.
func TriangulateFootprint(ring orb.Ring) []Triangle2D {
	pts := openRing(ring)
	idx := Triangulate(pts)
	result := make([]Triangle2D, 0, len(idx)/3)
	for i := 0; i+2 < len(idx); i += 3 {
		if t, ok := TryCreateTriangle2D(pts[idx[i]], pts[idx[i+1]], pts[idx[i+2]]); ok {
			result = append(result, t)
		}
	}
	return result
}

// openRing drops a duplicated closing vertex.
func openRing(ring orb.Ring) []orb.Point {
	if len(ring) > 1 && ring[0].Equal(ring[len(ring)-1]) {
		return ring[:len(ring)-1]
	}
	return ring
}
