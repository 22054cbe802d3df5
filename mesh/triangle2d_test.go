package mesh

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tri2(t *testing.T, a, b, c orb.Point) Triangle2D {
	t.Helper()
	tri, ok := TryCreateTriangle2D(a, b, c)
	require.True(t, ok)
	return tri
}

func areaOf(tris []Triangle2D) float64 {
	var a float64
	for _, t := range tris {
		a += t.Area()
	}
	return a
}

func TestTriangle2DWinding(t *testing.T) {
	ccw := tri2(t, orb.Point{0, 0}, orb.Point{1, 0}, orb.Point{0, 1})
	cw := tri2(t, orb.Point{0, 0}, orb.Point{0, 1}, orb.Point{1, 0})
	assert.Equal(t, cw, ccw)
	assert.Less(t, cross2(ccw.V1, ccw.V2, ccw.V3), 0.0)

	projected := flatTriangle().ProjectToGround()
	assert.Less(t, cross2(projected.V1, projected.V2, projected.V3), 0.0)
}

func TestTriangle2DContains(t *testing.T) {
	tri := tri2(t, orb.Point{0, 0}, orb.Point{4, 0}, orb.Point{0, 4})
	assert.True(t, tri.Contains(orb.Point{1, 1}))
	assert.True(t, tri.Contains(orb.Point{2, 2}), "hypotenuse")
	assert.False(t, tri.Contains(orb.Point{2.1, 2}))
	assert.InDelta(t, 8.0, tri.Area(), 1e-12)
}

func TestTriangle2DProjectToPlane(t *testing.T) {
	a, _ := gablePlanes()
	tri := tri2(t, orb.Point{0, 0}, orb.Point{4, 0}, orb.Point{0, 4})

	lifted, ok := tri.ProjectToPlane(a)
	require.True(t, ok)
	for _, v := range lifted.Vertices() {
		assert.InDelta(t, 3+0.5*v.X, v.Y, 1e-9)
	}
	assert.InDelta(t, tri.Area(), lifted.ProjectToGround().Area(), 1e-9)
}

func TestTriangle2DWithout(t *testing.T) {
	subject := tri2(t, orb.Point{0, 0}, orb.Point{6, 0}, orb.Point{0, 6})

	t.Run("disjoint", func(t *testing.T) {
		far := tri2(t, orb.Point{10, 10}, orb.Point{12, 10}, orb.Point{10, 12})
		assert.Equal(t, []Triangle2D{subject}, subject.Without(far))
	})

	t.Run("disjoint across an edge line", func(t *testing.T) {
		beside := tri2(t, orb.Point{4, 4}, orb.Point{8, 4}, orb.Point{4, 8})
		assert.Equal(t, []Triangle2D{subject}, subject.Without(beside))
	})

	t.Run("covered", func(t *testing.T) {
		big := tri2(t, orb.Point{-1, -1}, orb.Point{20, -1}, orb.Point{-1, 20})
		assert.Empty(t, subject.Without(big))
	})

	t.Run("hole", func(t *testing.T) {
		hole := tri2(t, orb.Point{1, 1}, orb.Point{2, 1}, orb.Point{1, 2})
		rest := subject.Without(hole)
		assert.InDelta(t, 18.0-0.5, areaOf(rest), 1e-9)
		for _, r := range rest {
			assert.False(t, hole.Contains(r.Centroid()))
		}
	})

	t.Run("overlap", func(t *testing.T) {
		other := tri2(t, orb.Point{3, -3}, orb.Point{9, -3}, orb.Point{3, 3})
		rest := subject.Without(other)
		// Overlap is (3,0),(6,0),(3,3); both hypotenuses lie on x+z=6.
		assert.InDelta(t, 18.0-4.5, areaOf(rest), 1e-9)
		for _, r := range rest {
			assert.True(t, subject.Contains(r.Centroid()))
			assert.False(t, other.Contains(r.Centroid()))
		}
	})
}
