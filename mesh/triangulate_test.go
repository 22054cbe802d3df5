package mesh

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func indexedArea(points []orb.Point, idx []int) float64 {
	var a float64
	for i := 0; i+2 < len(idx); i += 3 {
		tri := NewTriangle2D(points[idx[i]], points[idx[i+1]], points[idx[i+2]])
		a += tri.Area()
	}
	return a
}

func TestTriangulate(t *testing.T) {
	lShape := []orb.Point{{0, 0}, {6, 0}, {6, 2}, {2, 2}, {2, 6}, {0, 6}}

	tests := []struct {
		name   string
		points []orb.Point
		tris   int
		area   float64
	}{
		{name: "triangle", points: []orb.Point{{0, 0}, {1, 0}, {0, 1}}, tris: 1, area: 0.5},
		{name: "square ccw", points: square(10), tris: 2, area: 100},
		{name: "square cw", points: reversed(square(10)), tris: 2, area: 100},
		{name: "concave", points: lShape, tris: 4, area: 20},
		{name: "concave cw", points: reversed(lShape), tris: 4, area: 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx := Triangulate(tt.points)
			require.Len(t, idx, 3*tt.tris)
			assert.InDelta(t, tt.area, indexedArea(tt.points, idx), 1e-9)
			assert.InDelta(t, planar.Area(orb.Ring(append(tt.points, tt.points[0]))), tt.area, 1e-9)
		})
	}
}

func TestTriangulateTooFew(t *testing.T) {
	assert.Empty(t, Triangulate(nil))
	assert.Empty(t, Triangulate([]orb.Point{{0, 0}, {1, 1}}))
}

func TestTriangulateFootprintClosedRing(t *testing.T) {
	ring := append(square(4), orb.Point{0, 0})
	tris := TriangulateFootprint(ring)
	assert.Len(t, tris, 2)
	assert.InDelta(t, 16.0, areaOf(tris), 1e-9)
}

func reversed(pts []orb.Point) []orb.Point {
	out := make([]orb.Point, len(pts))
	for i, p := range pts {
		out[len(pts)-1-i] = p
	}
	return out
}
