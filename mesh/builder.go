package mesh

import (
	"context"
	"fmt"

	"github.com/golang/geo/r3"
)

// BuildResult is the output of a mesh construction strategy.
type BuildResult struct {
	Triangles   []Triangle
	UsedPlanes  []Plane
	Attachments int
	Score       float64
	// Outline holds boundary edges found by the from-points strategy.
	Outline [][2]r3.Vector
}

// Builder is one mesh construction strategy.
type Builder interface {
	Build(ctx context.Context, pc *PointCloud, opts Options) (*BuildResult, error)
}

// NewBuilder returns the strategy for mode.
func NewBuilder(mode Mode) (Builder, error) {
	switch mode {
	case ModeCutoff:
		return CutoffBuilder{}, nil
	case ModeAttachments:
		return CutoffBuilder{Attachments: true}, nil
	case ModePermutations:
		return PermutationBuilder{}, nil
	case ModeLayout:
		return LayoutBuilder{}, nil
	case ModeFromPoints:
		return FromPointsBuilder{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
}

// Build runs the strategy selected by opts.Mode.
func Build(ctx context.Context, pc *PointCloud, opts Options) (*BuildResult, error) {
	opts = opts.withDefaults()
	b, err := NewBuilder(opts.Mode)
	if err != nil {
		return nil, err
	}
	return b.Build(ctx, pc, opts)
}

// requirePlanes fails unless a plane finder has run. A run that kept no
// planes is not an error: builders return an empty mesh for it.
func requirePlanes(pc *PointCloud) error {
	if !pc.HasPlanes() {
		return fmt.Errorf("%s: %w: plane detection has not run", pc.Name, ErrNoPlanes)
	}
	return nil
}

// meshFromFootprint lifts the footprint triangles vertically onto p. Vertical
// planes produce nothing.
func meshFromFootprint(footprint []Triangle2D, p Plane) []Triangle {
	result := make([]Triangle, 0, len(footprint))
	for _, g := range footprint {
		if t, ok := g.ProjectToPlane(p); ok {
			result = append(result, t)
		}
	}
	return result
}

// createFromPlanes intersects the half-spaces below the given planes within
// the footprint: each plane's footprint mesh is cut by every other plane,
// keeping the part below it.
func createFromPlanes(footprint []Triangle2D, planes []Plane) []Triangle {
	var result []Triangle
	for i, p := range planes {
		mesh := meshFromFootprint(footprint, p)
		for j, other := range planes {
			if len(mesh) == 0 {
				break
			}
			if i == j {
				continue
			}
			mesh = CutMesh(mesh, other, false)
		}
		result = append(result, mesh...)
	}
	return result
}
