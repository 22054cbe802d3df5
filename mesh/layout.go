package mesh

import (
	"context"
	"fmt"

	"github.com/golang/geo/r3"
)

// LayoutBuilder ignores the detected planes and extrudes the footprint from
// the ground point to LayoutHeight above it, producing a flat-topped box.
type LayoutBuilder struct{}

// Build implements Builder.
func (LayoutBuilder) Build(_ context.Context, pc *PointCloud, opts Options) (*BuildResult, error) {
	ring := openRing(pc.FootprintOrDefault())
	footprint := TriangulateFootprint(ring)
	if len(footprint) == 0 {
		return nil, fmt.Errorf("%s: %w: footprint does not triangulate", pc.Name, ErrInvalidFootprint)
	}
	bottom := pc.GroundPoint.Y
	top := bottom + opts.LayoutHeight

	flat := NewPlane(Up, r3.Vector{Y: top})
	roof := meshFromFootprint(footprint, flat)
	triangles := append([]Triangle(nil), roof...)
	for i := range ring {
		a, b := ring[i], ring[(i+1)%len(ring)]
		triangles = appendIfValid(triangles, Lift(a, bottom), Lift(b, bottom), Lift(b, top))
		triangles = appendIfValid(triangles, Lift(a, bottom), Lift(b, top), Lift(a, top))
	}
	return &BuildResult{
		Triangles:  triangles,
		UsedPlanes: []Plane{flat},
		Score:      pc.MeshScore(opts.Scorer(), roof, nil),
	}, nil
}
