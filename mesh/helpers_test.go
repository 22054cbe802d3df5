package mesh

import (
	"math/rand"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/paulmach/orb"
)

func square(size float64) orb.Ring {
	return orb.Ring{{0, 0}, {size, 0}, {size, size}, {0, size}}
}

func footprintOnPlane(t *testing.T, ring orb.Ring, p Plane) []Triangle {
	t.Helper()
	var result []Triangle
	for _, g := range TriangulateFootprint(ring) {
		if tri, ok := g.ProjectToPlane(p); ok {
			result = append(result, tri)
		}
	}
	return result
}

// samplePlanes places points on a regular lattice over the footprint, each at
// the height of the lowest of the given planes, so the surface is the lower
// envelope of the planes.
func samplePlanes(size, step float64, planes ...Plane) []r3.Vector {
	var pts []r3.Vector
	for x := step / 2; x < size; x += step {
		for z := step / 2; z < size; z += step {
			g := orb.Point{x, z}
			best := 0.0
			for i, p := range planes {
				y, ok := p.HeightAt(g)
				if !ok {
					continue
				}
				if i == 0 || y < best {
					best = y
				}
			}
			pts = append(pts, Lift(g, best))
		}
	}
	return pts
}

// jitteredPoints returns n ground points in [0, size)² from a fixed seed.
func jitteredPoints(n int, size float64, seed int64) []orb.Point {
	rng := rand.New(rand.NewSource(seed))
	pts := make([]orb.Point, n)
	for i := range pts {
		pts[i] = orb.Point{rng.Float64() * size, rng.Float64() * size}
	}
	return pts
}

func testCloud(t *testing.T, points []r3.Vector, footprint orb.Ring) *PointCloud {
	t.Helper()
	pc, err := NewPointCloud("test", points, footprint)
	if err != nil {
		t.Fatalf("NewPointCloud: %v", err)
	}
	return pc
}
