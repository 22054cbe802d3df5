package mesh

import (
	"math"
	"testing"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/golang/geo/r3"
	"github.com/stretchr/testify/assert"
)

func TestScorerScore(t *testing.T) {
	s := Scorer{MaxDistance: 0.4, MaxAngle: 60}
	p := NewPlane(Up, r3.Vector{Y: 1})

	assert.InDelta(t, 1, s.Score(p, r3.Vector{X: 3, Y: 1, Z: 2}, r3.Vector{}), 1e-12)
	assert.InDelta(t, 0.5, s.Score(p, r3.Vector{Y: 1.2}, r3.Vector{}), 1e-12)
	assert.InDelta(t, 0.5, s.Score(p, r3.Vector{Y: 0.8}, r3.Vector{}), 1e-12)
	assert.Zero(t, s.Score(p, r3.Vector{Y: 1.4}, r3.Vector{}))
	assert.Zero(t, s.Score(p, r3.Vector{Y: 3}, r3.Vector{}))

	// Normals are ignored unless weighting is on.
	tilted := r3.Vector{X: math.Sin(math.Pi / 6), Y: math.Cos(math.Pi / 6)}
	assert.InDelta(t, 1, s.Score(p, r3.Vector{Y: 1}, tilted), 1e-12)

	s.NormalWeighting = true
	assert.InDelta(t, 0.5, s.Score(p, r3.Vector{Y: 1}, tilted), 1e-9)
	assert.InDelta(t, 0.25, s.Score(p, r3.Vector{Y: 1.2}, tilted), 1e-9)
	assert.Zero(t, s.Score(p, r3.Vector{Y: 1}, r3.Vector{X: 1}))
	assert.InDelta(t, 1, s.Score(p, r3.Vector{Y: 1}, r3.Vector{}), 1e-12, "missing normals are not penalised")
}

func TestScorerInlier(t *testing.T) {
	s := Scorer{MaxDistance: 0.4}
	p := NewPlane(Up, r3.Vector{})
	assert.True(t, s.Inlier(p, r3.Vector{Y: 0.39}))
	assert.False(t, s.Inlier(p, r3.Vector{Y: -0.4}))
}

func TestPlaneScore(t *testing.T) {
	p := NewPlane(Up, r3.Vector{Y: 2})
	pc := testCloud(t, []r3.Vector{{Y: 2}, {X: 1, Y: 2.2}, {X: 2, Y: 5}}, nil)
	s := Scorer{MaxDistance: 0.4}

	assert.InDelta(t, 1.5, pc.PlaneScore(s, p, nil), 1e-12)
	assert.InDelta(t, 0.5, pc.PlaneScore(s, p, []int{1, 2}), 1e-12)
	assert.Zero(t, pc.PlaneScore(s, p, []int{}))
}

func TestMeshScore(t *testing.T) {
	p := NewPlane(Up, r3.Vector{Y: 2})
	mesh := footprintOnPlane(t, square(4), p)
	// Offsets keep the lattice off both diagonals, where points would
	// count for two triangles.
	var points []r3.Vector
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			points = append(points, r3.Vector{X: 0.5 + float64(i), Y: 2, Z: 0.25 + float64(j)})
		}
	}
	points = append(points, r3.Vector{X: 8, Y: 2, Z: 8}, r3.Vector{X: 1.5, Y: 9, Z: 1.25})
	pc := testCloud(t, points, square(4))
	s := Scorer{MaxDistance: 0.4}

	// 16 lattice points on the plane, the far point is outside the mesh and
	// the high point is out of range.
	assert.InDelta(t, 16, pc.MeshScore(s, mesh, nil), 1e-9)
	assert.Equal(t, 16, pc.MeshPointCount(s, mesh, nil))

	subset := mapset.NewThreadUnsafeSet(0, 1, 2, len(points)-1)
	assert.InDelta(t, 3, pc.MeshScore(s, mesh, subset), 1e-9)
	assert.Equal(t, 3, pc.MeshPointCount(s, mesh, subset))
}

func TestMeshPointCountSharedEdge(t *testing.T) {
	p := NewPlane(Up, r3.Vector{Y: 2})
	mesh := footprintOnPlane(t, square(4), p)
	// The centre lies on the diagonal of either triangulation.
	pc := testCloud(t, []r3.Vector{{X: 2, Y: 2, Z: 2}, {X: 0.5, Y: 2, Z: 0.25}}, square(4))
	s := Scorer{MaxDistance: 0.4}

	assert.Equal(t, 2, pc.MeshPointCount(s, mesh, nil))
}
