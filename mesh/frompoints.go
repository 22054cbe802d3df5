package mesh

import (
	"context"
	"math"
	"sort"

	"github.com/golang/geo/r3"
	"github.com/paulmach/orb"
	"go.uber.org/zap"
)

// minClusterPoints is the smallest region the from-points strategy triangulates.
const minClusterPoints = 3

// FromPointsBuilder triangulates the inliers of the best plane directly,
// without the footprint. Only the largest connected region of inliers is
// used, and triangles with an edge longer than MaxEdgeLength are dropped so
// concave outlines survive.
type FromPointsBuilder struct{}

// Build implements Builder.
func (FromPointsBuilder) Build(_ context.Context, pc *PointCloud, opts Options) (*BuildResult, error) {
	if err := requirePlanes(pc); err != nil {
		return nil, err
	}
	if len(pc.Planes) == 0 {
		return &BuildResult{}, nil
	}
	scorer := opts.Scorer()
	best := pc.Planes[0].Plane

	var inliers []r3.Vector
	for _, p := range pc.Points {
		if scorer.Inlier(best, p) {
			inliers = append(inliers, p)
		}
	}
	result := &BuildResult{UsedPlanes: []Plane{best}}
	if len(inliers) < minClusterPoints {
		return result, nil
	}

	clusters := NewPointGrid(inliers, DefaultBucketSize).Cluster(opts.MaxEdgeLength, minClusterPoints)
	if len(clusters) == 0 {
		return result, nil
	}
	sort.SliceStable(clusters, func(i, j int) bool { return len(clusters[i]) > len(clusters[j]) })
	region := clusters[0]

	coords := NewPlaneCoordinates(best)
	flat := make([]orb.Point, len(region))
	onPlane := make([]r3.Vector, len(region))
	for k, i := range region {
		flat[k] = coords.ToPlane(inliers[i])
		onPlane[k] = coords.ToWorld(flat[k])
	}

	indices := Delaunay(flat)
	kept := make([]int, 0, len(indices))
	for f := 0; f+2 < len(indices); f += 3 {
		a, b, c := indices[f], indices[f+1], indices[f+2]
		if longestEdge(flat[a], flat[b], flat[c]) > opts.MaxEdgeLength {
			continue
		}
		if _, ok := TryCreateTriangle(onPlane[a], onPlane[b], onPlane[c]); !ok {
			continue
		}
		kept = append(kept, a, b, c)
	}

	result.Triangles = TrianglesFromIndices(onPlane, kept)
	result.Outline = boundaryEdges(onPlane, kept)
	result.Score = pc.MeshScore(scorer, result.Triangles, nil)
	opts.Logger.Debug("from points",
		zap.String("building", pc.Name),
		zap.Int("inliers", len(inliers)),
		zap.Int("region", len(region)),
		zap.Int("triangles", len(result.Triangles)),
		zap.Int("outline", len(result.Outline)))
	return result, nil
}

func longestEdge(a, b, c orb.Point) float64 {
	d := planarDistance2(a, b)
	if e := planarDistance2(b, c); e > d {
		d = e
	}
	if e := planarDistance2(c, a); e > d {
		d = e
	}
	return math.Sqrt(d)
}

type edgeKey struct{ a, b int }

func newEdgeKey(a, b int) edgeKey {
	if a > b {
		a, b = b, a
	}
	return edgeKey{a, b}
}

// boundaryEdges returns the edges used by exactly one triangle of the index
// list, in first-seen order. The triangles come from one Delaunay
// triangulation and never overlap, so an edge with one triangle on it has
// that triangle on one side and nothing on the other. A triangle meeting it
// only at a vertex covers neither side near the edge.
func boundaryEdges(vertices []r3.Vector, indices []int) [][2]r3.Vector {
	count := make(map[edgeKey]int)
	var order []edgeKey
	for f := 0; f+2 < len(indices); f += 3 {
		tri := [3]int{indices[f], indices[f+1], indices[f+2]}
		for k := 0; k < 3; k++ {
			e := newEdgeKey(tri[k], tri[(k+1)%3])
			if count[e] == 0 {
				order = append(order, e)
			}
			count[e]++
		}
	}
	var outline [][2]r3.Vector
	for _, e := range order {
		if count[e] == 1 {
			outline = append(outline, [2]r3.Vector{vertices[e.a], vertices[e.b]})
		}
	}
	return outline
}
