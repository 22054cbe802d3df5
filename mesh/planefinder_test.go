package mesh

import (
	"context"
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// slopedRoof is y = 6 + 0.7(x - 5), the Hough bin with slopes (-0.7, 0).
func slopedRoof() Plane {
	return NewPlane(r3.Vector{X: -0.7, Y: 1}, r3.Vector{X: 5, Y: 6, Z: 5})
}

// withGroundStrip adds ground returns next to the building so the ground
// point sits at y = 0.
func withGroundStrip(points []r3.Vector) []r3.Vector {
	for x := -3.0; x < -1; x += 0.25 {
		for z := 0.125; z < 10; z += 0.25 {
			points = append(points, r3.Vector{X: x, Y: 0, Z: z})
		}
	}
	return points
}

func assertFinds(t *testing.T, planes []ScoredPlane, want Plane, at r3.Vector) {
	t.Helper()
	for _, sp := range planes {
		if sp.Plane.Angle(want).Degrees() < 2 && math.Abs(sp.Plane.SignedDistance(at)) < 0.1 {
			return
		}
	}
	t.Errorf("no plane close to %v among %v", want, planes)
}

func TestNewPlaneFinder(t *testing.T) {
	f, err := NewPlaneFinder(Options{Finder: FinderRansac})
	require.NoError(t, err)
	assert.IsType(t, &RansacFinder{}, f)

	f, err = NewPlaneFinder(Options{Finder: FinderHough})
	require.NoError(t, err)
	assert.IsType(t, &HoughFinder{}, f)

	_, err = NewPlaneFinder(Options{Finder: "lsd"})
	assert.ErrorIs(t, err, ErrUnknownFinder)
}

func TestRansacFindsRoofPlane(t *testing.T) {
	roof := slopedRoof()
	pc := testCloud(t, withGroundStrip(samplePlanes(10, 0.25, roof)), square(10))

	planes, err := NewRansacFinder(buildOptions(ModeCutoff)).FindPlanes(context.Background(), pc, nil)
	require.NoError(t, err)
	require.NotEmpty(t, planes)

	assert.Less(t, planes[0].Plane.Angle(roof).Degrees(), 1.0)
	assert.InDelta(t, 0, planes[0].Plane.SignedDistance(r3.Vector{X: 5, Y: 6, Z: 5}), 0.05)
	for i := 1; i < len(planes); i++ {
		assert.GreaterOrEqual(t, planes[i-1].Score, planes[i].Score, "ranking not sorted")
		for j := 0; j < i; j++ {
			assert.False(t, DefaultSimilarity().Similar(planes[i].Plane, planes[j].Plane), "duplicates %d and %d", i, j)
		}
	}
}

func TestRansacSubsetOfPoints(t *testing.T) {
	a, b := gablePlanes()
	pc := testCloud(t, samplePlanes(10, 0.25, a, b), square(10))

	var right []int
	for i, p := range pc.Points {
		if p.X > 6 {
			right = append(right, i)
		}
	}
	planes, err := NewRansacFinder(buildOptions(ModeCutoff)).FindPlanes(context.Background(), pc, right)
	require.NoError(t, err)
	require.NotEmpty(t, planes)
	assert.Less(t, planes[0].Plane.Angle(b).Degrees(), 1.0)
}

func TestRansacSampleIsSeeded(t *testing.T) {
	indices := make([]int, 1000)
	for i := range indices {
		indices[i] = i
	}
	first := NewRansacFinder(buildOptions(ModeCutoff)).sample(indices)
	second := NewRansacFinder(buildOptions(ModeCutoff)).sample(indices)
	assert.Len(t, first, 400)
	assert.Equal(t, first, second)
	assert.IsIncreasing(t, first)

	short := NewRansacFinder(buildOptions(ModeCutoff)).sample(indices[:10])
	assert.Equal(t, indices[:10], short)
}

func TestHoughFindsRoofPlane(t *testing.T) {
	roof := slopedRoof()
	pc := testCloud(t, withGroundStrip(samplePlanes(10, 0.25, roof)), square(10))
	opts := buildOptions(ModeCutoff)
	opts.Finder = FinderHough

	planes, err := NewHoughFinder(opts).FindPlanes(context.Background(), pc, nil)
	require.NoError(t, err)
	require.NotEmpty(t, planes)

	assert.Less(t, planes[0].Plane.Angle(roof).Degrees(), 1.0)
	assert.InDelta(t, 0, planes[0].Plane.SignedDistance(r3.Vector{X: 5, Y: 6, Z: 5}), 0.05)
	assertFinds(t, planes, NewPlane(Up, r3.Vector{}), r3.Vector{})
}

func TestHoughSpaceBins(t *testing.T) {
	h := newHoughSpace(DefaultOptions().Hough)
	assert.InDelta(t, -1.4, h.slope(0), 1e-12)
	assert.InDelta(t, -0.7, h.slope(5), 1e-12)
	assert.InDelta(t, 0, h.slope(10), 1e-12)
	assert.InDelta(t, -8, h.distance(0), 1e-12)
	assert.InDelta(t, 100, h.distanceBin(h.distance(100)), 1e-9)
	assert.Zero(t, h.at(-1, 0, 0))
	assert.Zero(t, h.at(0, 0, 200))
}

func TestHoughCancelled(t *testing.T) {
	pc := testCloud(t, samplePlanes(4, 0.5, slopedRoof()), square(4))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewHoughFinder(buildOptions(ModeCutoff)).FindPlanes(ctx, pc, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFilterPlanes(t *testing.T) {
	pc := testCloud(t, withGroundStrip(samplePlanes(10, 1, slopedRoof())), square(10))
	f := DefaultOptions().Filter

	ground := ScoredPlane{Plane: NewPlane(Up, r3.Vector{Y: 0.5})}
	tiltedGround := ScoredPlane{Plane: NewPlane(r3.Vector{X: 0.1, Y: 1}, r3.Vector{})}
	wall := ScoredPlane{Plane: NewPlane(r3.Vector{X: 1, Y: 0.05}, r3.Vector{X: 3})}
	flatRoof := ScoredPlane{Plane: NewPlane(Up, r3.Vector{Y: 6})}
	pitched := ScoredPlane{Plane: slopedRoof()}
	// Upside-down normals are judged by their canonical orientation.
	flipped := ScoredPlane{Plane: slopedRoof().Flipped()}

	got := FilterPlanes([]ScoredPlane{ground, tiltedGround, wall, flatRoof, pitched, flipped}, pc, f)
	assert.Equal(t, []ScoredPlane{flatRoof, pitched, flipped}, got)
}

func TestDedupePlanes(t *testing.T) {
	a, b := gablePlanes()
	nearA := NewPlane(r3.Vector{X: -0.45, Y: 1}, r3.Vector{Y: 3.2})
	planes := []ScoredPlane{{a, 10}, {nearA, 9}, {b, 8}}

	got := dedupePlanes(planes, DefaultSimilarity())
	assert.Equal(t, []ScoredPlane{{a, 10}, {b, 8}}, got)
}

func TestTopPlanes(t *testing.T) {
	a, b := gablePlanes()
	planes := []ScoredPlane{{a, 2}, {b, 1}}
	assert.Equal(t, []Plane{a}, TopPlanes(planes, 1))
	assert.Equal(t, []Plane{a, b}, TopPlanes(planes, 5))
	assert.Empty(t, TopPlanes(nil, 3))
}

func TestEnsurePlanes(t *testing.T) {
	roof := slopedRoof()
	pc := testCloud(t, withGroundStrip(samplePlanes(10, 0.5, roof)), square(10))
	require.False(t, pc.HasPlanes())

	require.NoError(t, pc.EnsurePlanes(context.Background(), buildOptions(ModeCutoff)))
	require.True(t, pc.HasPlanes())
	require.NotEmpty(t, pc.Planes)
	assertFinds(t, pc.Planes, roof, r3.Vector{X: 5, Y: 6, Z: 5})
	for _, sp := range pc.Planes {
		assert.False(t, isGroundPlane(sp.Plane, pc, DefaultOptions().Filter), "ground plane kept: %v", sp.Plane)
	}

	// A second call keeps the existing ranking.
	pc.Planes = pc.Planes[:1]
	require.NoError(t, pc.EnsurePlanes(context.Background(), buildOptions(ModeCutoff)))
	assert.Len(t, pc.Planes, 1)

	pc.InvalidatePlanes()
	assert.False(t, pc.HasPlanes())
}
