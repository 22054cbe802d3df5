package mesh

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// inCircumcircle reports whether d lies strictly inside the circumcircle of
// the counter-clockwise triangle a, b, c.
func inCircumcircle(a, b, c, d orb.Point) bool {
	ax, ay := a[0]-d[0], a[1]-d[1]
	bx, by := b[0]-d[0], b[1]-d[1]
	cx, cy := c[0]-d[0], c[1]-d[1]
	det := (ax*ax+ay*ay)*(bx*cy-cx*by) - (bx*bx+by*by)*(ax*cy-cx*ay) + (cx*cx+cy*cy)*(ax*by-bx*ay)
	return det > 1e-9
}

func TestDelaunaySquare(t *testing.T) {
	points := []orb.Point{{0, 0}, {1, 0}, {1, 1}, {0, 1}}
	idx := Delaunay(points)
	require.Len(t, idx, 6)
	assert.InDelta(t, 1, indexedArea(points, idx), 1e-12)
}

func TestDelaunayDegenerate(t *testing.T) {
	assert.Nil(t, Delaunay(nil))
	assert.Nil(t, Delaunay([]orb.Point{{0, 0}, {1, 1}}))
	assert.Nil(t, Delaunay([]orb.Point{{0, 0}, {1, 1}, {2, 2}, {3, 3}}), "collinear")
	assert.Nil(t, Delaunay([]orb.Point{{0, 0}, {1, 1}, {0, 0}, {1, 1}}), "duplicates")

	idx := Delaunay([]orb.Point{{0, 0}, {2, 0}, {0, 0}, {0, 2}})
	assert.ElementsMatch(t, []int{0, 1, 3}, idx, "duplicates collapse onto the first occurrence")
}

func TestDelaunayRandom(t *testing.T) {
	points := jitteredPoints(80, 10, 11)
	idx := Delaunay(points)
	require.NotEmpty(t, idx)
	require.Zero(t, len(idx)%3)

	// Same area as the convex hull.
	hull := hullFan(points, dedupePoints(points))
	assert.InDelta(t, indexedArea(points, hull), indexedArea(points, idx), 1e-6)

	// Euler: a triangulation of n points with h on the hull has 2n-2-h triangles.
	assert.Equal(t, 2*len(points)-2-len(hull)/3-2, len(idx)/3)

	for f := 0; f+2 < len(idx); f += 3 {
		a, b, c := points[idx[f]], points[idx[f+1]], points[idx[f+2]]
		if cross2(a, b, c) < 0 {
			b, c = c, b
		}
		for i, d := range points {
			if i == idx[f] || i == idx[f+1] || i == idx[f+2] {
				continue
			}
			assert.False(t, inCircumcircle(a, b, c, d), "point %d inside circumcircle of face %d", i, f/3)
		}
	}
}

func TestHullFan(t *testing.T) {
	points := []orb.Point{{0, 0}, {4, 0}, {2, 1}, {4, 4}, {0, 4}, {1, 3}}
	idx := hullFan(points, dedupePoints(points))
	// Four hull vertices, two fan triangles, interior points unused.
	require.Len(t, idx, 6)
	assert.InDelta(t, 16, indexedArea(points, idx), 1e-12)
	assert.NotContains(t, idx, 2)
	assert.NotContains(t, idx, 5)
}
